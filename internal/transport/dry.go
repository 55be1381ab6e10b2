package transport

import (
	"context"
	"strings"
	"sync"

	logx "afkbot/pkg/logx"
)

// Dry is a Transport that logs frames instead of sending them. It lets the
// scheduler run without a device attached.
type Dry struct {
	name string
	log  logx.Logger

	mu     sync.Mutex
	open   bool
	frames int
}

func NewDry(name string, log logx.Logger) *Dry {
	if name == "" {
		name = "none"
	}
	return &Dry{name: name, log: log.With(logx.String("transport", "dry"))}
}

func (d *Dry) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
	d.log.Debug("dry link opened", logx.String("port", d.name))
	return nil
}

func (d *Dry) Write(p []byte) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return &Error{Op: "write", Port: d.name, Err: ErrClosed}
	}
	d.frames++
	n := d.frames
	d.mu.Unlock()
	d.log.Debug("frame", logx.String("data", strings.TrimRight(string(p), "\n")), logx.Int("n", n))
	return nil
}

func (d *Dry) Close() error {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
	return nil
}

func (d *Dry) Describe() string { return d.name + " (dry run)" }

// Frames returns the number of frames written so far.
func (d *Dry) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}
