// Package console is the headless status observer. Once per interval it
// prints the cooldown of every armed key ("F3 in 1s | F4 in 0s") and logs
// status changes.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"afkbot/internal/observer"
	"afkbot/internal/state"
	logx "afkbot/pkg/logx"
)

const defaultEvery = time.Second

type Options struct {
	Every time.Duration
	Out   io.Writer
	Now   func() time.Time
}

// Counters renders the armed keys of snap, in table order.
func Counters(snap state.Snapshot) string {
	parts := make([]string, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if !r.Armed {
			continue
		}
		parts = append(parts, r.Key.String()+" in "+strconv.Itoa(int(r.Remaining/time.Second))+"s")
	}
	return strings.Join(parts, " | ")
}

// Run prints counters until the state stops running or ctx is done.
func Run(ctx context.Context, src observer.Source, log logx.Logger, opts Options) error {
	if opts.Every <= 0 {
		opts.Every = defaultEvery
	}
	if opts.Out == nil {
		opts.Out = logx.Stdout()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log = log.With(logx.String("comp", "console"))

	t := time.NewTicker(opts.Every)
	defer t.Stop()

	var lastStatus string
	for {
		snap := src.Snapshot(opts.Now())
		if snap.Status != lastStatus {
			log.Info("status", logx.String("status", snap.Status), logx.Bool("connected", snap.Connected))
			lastStatus = snap.Status
		}
		if !snap.Running {
			return nil
		}
		if line := Counters(snap); line != "" && snap.Connected {
			fmt.Fprintln(opts.Out, line)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
