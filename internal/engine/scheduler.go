package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"afkbot/internal/eventbus"
	"afkbot/internal/keys"
	"afkbot/internal/state"
	"afkbot/internal/transport"
	logx "afkbot/pkg/logx"
)

// ErrFatal wraps every error that stops the scheduler permanently.
var ErrFatal = errors.New("scheduler stopped on unexpected error")

// Scheduler drives one transport from one shared state.
type Scheduler struct {
	cfg      Config
	st       *state.Shared
	tr       transport.Transport
	bus      eventbus.Bus
	log      logx.Logger
	clock    Clock
	rng      *rand.Rand
	loggable map[keys.Key]bool

	// linkWarn throttles reconnect warnings while a port stays dead.
	linkWarn rate.Sometimes
	session  string
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRand sets the random source for range policies and human delays. It
// is used only from the Run goroutine.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rng = r
		}
	}
}

func WithBus(b eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = b }
}

func WithLogger(l logx.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func New(cfg Config, st *state.Shared, tr transport.Transport, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		st:       st,
		tr:       tr,
		log:      logx.Nop(),
		clock:    SystemClock(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		loggable: make(map[keys.Key]bool, len(cfg.Loggable)),
		linkWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	for _, k := range cfg.Loggable {
		s.loggable[k] = true
	}
	s.log = s.log.With(logx.String("comp", "engine"))
	return s
}

// Run blocks until the state stops running, ctx is done, or a fatal error
// occurs. It returns nil on a requested stop and an ErrFatal-wrapped error
// otherwise.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.fatal(fmt.Errorf("panic: %v", r))
		}
		reason := "stop requested"
		if err != nil {
			reason = err.Error()
		} else if ctx.Err() != nil {
			reason = ctx.Err().Error()
		}
		s.publish(eventbus.SchedulerStopped, eventbus.StopData{Reason: reason})
		s.log.Info("scheduler stopped", logx.String("reason", reason))
	}()

	for s.active(ctx) {
		s.st.SetStatus("connecting to " + s.tr.Describe())
		err := s.runSession(ctx)
		if err == nil || ctx.Err() != nil {
			break
		}
		if !transport.IsTransient(err) {
			return s.fatal(err)
		}
		s.linkLost(err)
		if s.clock.Sleep(ctx, s.cfg.Backoff) != nil {
			break
		}
	}
	_ = s.tr.Close()
	s.st.Disconnected("stopped")
	return nil
}

func (s *Scheduler) active(ctx context.Context) bool {
	return ctx.Err() == nil && s.st.Running()
}

// runSession opens the link and runs the tick loop until the link fails or a
// stop is requested. A nil return means stop.
func (s *Scheduler) runSession(ctx context.Context) error {
	if err := s.tr.Open(ctx); err != nil {
		return err
	}
	if err := s.clock.Sleep(ctx, s.cfg.Settle); err != nil {
		return nil
	}
	if !s.st.Running() {
		return nil
	}

	s.session = uuid.NewString()
	link := s.tr.Describe()
	s.st.Connected("connected to "+link, s.clock.Now(), s.rng)
	s.publish(eventbus.LinkConnected, eventbus.LinkData{Session: s.session, Link: link})
	s.log.Info("link connected", logx.String("link", link), logx.String("session", s.session))

	for {
		if !s.active(ctx) {
			return nil
		}
		now := s.clock.Now()
		for _, k := range s.st.DueKeys(now) {
			if err := s.press(k); err != nil {
				return fmt.Errorf("press %s: %w", k, err)
			}
			at := s.clock.Now()
			tm := s.st.Fired(k, at, at, s.rng)
			s.publish(eventbus.KeyFired, eventbus.FireData{Session: s.session, Key: k.String(), Next: tm.LastInterval})
		}
		if err := s.clock.Sleep(ctx, s.cfg.Tick); err != nil {
			return nil
		}
	}
}

// press writes the key frame and runs the post-press pauses. The pauses are
// not cancellable.
func (s *Scheduler) press(k keys.Key) error {
	if err := s.tr.Write(keys.Frame(k)); err != nil {
		return err
	}
	if d := s.humanDelay(); d > 0 {
		_ = s.clock.Sleep(context.Background(), d)
	}
	if s.loggable[k] {
		s.log.Info("action", logx.String("key", k.String()))
	}
	if d := s.cfg.ExtraBlock[k]; d > 0 {
		s.log.Debug("extra block", logx.String("key", k.String()), logx.Duration("for", d))
		_ = s.clock.Sleep(context.Background(), d)
	}
	return nil
}

func (s *Scheduler) humanDelay() time.Duration {
	lo, hi := s.cfg.HumanDelayMin, s.cfg.HumanDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)))
}

func (s *Scheduler) linkLost(err error) {
	_ = s.tr.Close()
	msg := "serial error: " + err.Error() + "; reconnecting"
	s.st.Disconnected(msg)
	s.publish(eventbus.LinkDisconnected, eventbus.LinkData{Session: s.session, Link: s.tr.Describe(), Err: err.Error()})
	s.linkWarn.Do(func() {
		s.log.Warn("link down, reconnecting", logx.Err(err), logx.Duration("backoff", s.cfg.Backoff))
	})
	s.log.Debug("link down", logx.Err(err))
	s.session = ""
}

func (s *Scheduler) fatal(err error) error {
	_ = s.tr.Close()
	s.st.Fail("unexpected error: " + err.Error() + "; stopping")
	s.publish(eventbus.SchedulerFatal, eventbus.StopData{Reason: err.Error()})
	s.log.Error("scheduler failed", logx.Err(err))
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

func (s *Scheduler) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}
