package engine

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"afkbot/internal/eventbus"
	"afkbot/internal/keys"
	"afkbot/internal/schedule"
	"afkbot/internal/state"
	"afkbot/internal/transport"
	logx "afkbot/pkg/logx"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock advances instantly on Sleep. Once now reaches limit, onLimit runs.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	limit   time.Time
	onLimit func()
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	hit := !c.limit.IsZero() && !c.now.Before(c.limit)
	fn := c.onLimit
	c.mu.Unlock()
	if hit && fn != nil {
		fn()
	}
	return ctx.Err()
}

func (c *fakeClock) stopAt(t time.Time, fn func()) {
	c.mu.Lock()
	c.limit, c.onLimit = t, fn
	c.mu.Unlock()
}

type write struct {
	at   time.Time
	data string
}

// fakeTransport records writes and returns scripted errors.
type fakeTransport struct {
	clock     *fakeClock
	openErrs  []error
	writeErrs map[int]error
	onWrite   func(n int)

	opens  int
	closes int
	open   bool
	writes []write
}

func (f *fakeTransport) Open(context.Context) error {
	f.opens++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Write(p []byte) error {
	n := len(f.writes) + 1
	if f.onWrite != nil {
		f.onWrite(n)
	}
	if err := f.writeErrs[n]; err != nil {
		f.writeErrs[n] = nil
		return err
	}
	f.writes = append(f.writes, write{at: f.clock.Now(), data: string(p)})
	return nil
}

func (f *fakeTransport) Close() error {
	f.closes++
	f.open = false
	return nil
}

func (f *fakeTransport) Describe() string { return "COM17 @ 9600" }

func linkErr(msg string) error {
	return &transport.Error{Op: "open", Port: "COM17", Err: errors.New(msg)}
}

func newShared(t *testing.T, policies map[keys.Key]schedule.Policy) *state.Shared {
	t.Helper()
	tbl, err := schedule.NewTable(policies)
	if err != nil {
		t.Fatal(err)
	}
	return state.New(tbl)
}

func fixed(t *testing.T, d time.Duration) schedule.Policy {
	t.Helper()
	p, err := schedule.Fixed(d)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func quietConfig() Config {
	return Config{Settle: 2 * time.Second, Backoff: 2 * time.Second, Tick: 10 * time.Millisecond}
}

func newScheduler(cfg Config, st *state.Shared, tr transport.Transport, clk *fakeClock, opts ...Option) *Scheduler {
	base := []Option{WithClock(clk), WithRand(rand.New(rand.NewSource(42)))}
	return New(cfg, st, tr, append(base, opts...)...)
}

func TestEndToEndFixedOneSecond(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Second)})
	cfg := quietConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := epoch.Add(cfg.Settle)
	clk.stopAt(ready.Add(3050*time.Millisecond), cancel)

	if err := newScheduler(cfg, st, tr, clk).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.writes) != 3 {
		t.Fatalf("writes = %d (%v), want 3", len(tr.writes), tr.writes)
	}
	for i, w := range tr.writes {
		if w.data != "F1\n" {
			t.Fatalf("write %d = %q", i, w.data)
		}
		want := ready.Add(time.Duration(i+1) * time.Second)
		if d := w.at.Sub(want); d < 0 || d > cfg.Tick {
			t.Fatalf("write %d at +%s, want ≈ +%s", i, w.at.Sub(ready), want.Sub(ready))
		}
	}
	if !st.Running() {
		t.Fatalf("context stop must not flip running")
	}
}

func TestDisabledKeyNeverFires(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{
		keys.F1: schedule.Disabled(),
		keys.F2: fixed(t, time.Second),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(10*time.Second), cancel)

	if err := newScheduler(quietConfig(), st, tr, clk).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tr.writes) == 0 {
		t.Fatalf("F2 never fired")
	}
	for _, w := range tr.writes {
		if w.data != "F2\n" {
			t.Fatalf("unexpected frame %q", w.data)
		}
	}
	tm, _ := st.Timer(keys.F1)
	if tm.Armed() || !tm.PreviousDue.IsZero() || tm.LastInterval != 0 {
		t.Fatalf("disabled timer touched: %+v", tm)
	}
}

func TestFixedSpacing(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F3: fixed(t, 700*time.Millisecond)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(30*time.Second), cancel)

	if err := newScheduler(quietConfig(), st, tr, clk).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tr.writes) < 10 {
		t.Fatalf("only %d writes", len(tr.writes))
	}
	for i := 1; i < len(tr.writes); i++ {
		gap := tr.writes[i].at.Sub(tr.writes[i-1].at)
		if gap < 700*time.Millisecond || gap > 710*time.Millisecond {
			t.Fatalf("gap %d = %s, want 700ms within one tick", i, gap)
		}
	}
}

func TestSameTickFiresInEnumerationOrder(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{
		keys.F4: fixed(t, time.Second),
		keys.F3: fixed(t, time.Second),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(3500*time.Millisecond), cancel)

	if err := newScheduler(quietConfig(), st, tr, clk).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tr.writes) != 2 || tr.writes[0].data != "F3\n" || tr.writes[1].data != "F4\n" {
		t.Fatalf("writes = %v, want F3 then F4", tr.writes)
	}
	if snap := st.Snapshot(clk.Now()); snap.LastAction != keys.F4 {
		t.Fatalf("lastAction = %q, want F4", snap.LastAction)
	}
}

func TestReconnectAfterTwoBackoffs(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk, openErrs: []error{linkErr("busy"), linkErr("not found")}}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Minute)})
	bus := eventbus.New()
	events, unsub := bus.Subscribe(64)
	defer unsub()

	cfg := Config{Settle: time.Second, Backoff: 3 * time.Second, Tick: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(7500*time.Millisecond), cancel)

	if err := newScheduler(cfg, st, tr, clk, WithBus(bus)).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tr.opens != 3 {
		t.Fatalf("opens = %d, want 3", tr.opens)
	}
	want := []time.Duration{3 * time.Second, 3 * time.Second, time.Second}
	for i, d := range want {
		if clk.sleeps[i] != d {
			t.Fatalf("sleep %d = %s, want %s (all: %v)", i, clk.sleeps[i], d, clk.sleeps[:3])
		}
	}
	if !st.Running() {
		t.Fatalf("running flipped to false on transient errors")
	}

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	wantTypes := []string{eventbus.LinkDisconnected, eventbus.LinkDisconnected, eventbus.LinkConnected, eventbus.SchedulerStopped}
	if strings.Join(types, ",") != strings.Join(wantTypes, ",") {
		t.Fatalf("events = %v, want %v", types, wantTypes)
	}
}

func TestWriteFailureReconnectsAndRearms(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk, writeErrs: map[int]error{
		2: &transport.Error{Op: "write", Port: "COM17", Err: errors.New("unplugged")},
	}}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Second)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// connect(2s) + fire@3s + fail@4s + backoff(2s) + settle(2s) => re-armed at 8s, fires at 9s.
	clk.stopAt(epoch.Add(9500*time.Millisecond), cancel)

	if err := newScheduler(quietConfig(), st, tr, clk).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.opens != 2 || tr.closes < 1 {
		t.Fatalf("opens=%d closes=%d", tr.opens, tr.closes)
	}
	if len(tr.writes) != 2 {
		t.Fatalf("writes = %v, want 2 successful", tr.writes)
	}
	if got := tr.writes[1].at; !got.Equal(epoch.Add(9 * time.Second)) {
		t.Fatalf("second write at %v, want +9s", got.Sub(epoch))
	}
}

func TestFatalErrorStopsPermanently(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk, openErrs: []error{errors.New("kaboom")}}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Second)})
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	err := newScheduler(quietConfig(), st, tr, clk, WithBus(bus)).Run(context.Background())
	if !errors.Is(err, ErrFatal) || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Run err = %v, want ErrFatal wrapping kaboom", err)
	}
	if st.Running() {
		t.Fatalf("running should be false after a fatal error")
	}
	if tr.opens != 1 {
		t.Fatalf("opens = %d, want no retry", tr.opens)
	}
	snap := st.Snapshot(clk.Now())
	if snap.Connected || !strings.HasPrefix(snap.Status, "unexpected error: kaboom") {
		t.Fatalf("snapshot = %+v", snap)
	}
	if ev := <-events; ev.Type != eventbus.SchedulerFatal {
		t.Fatalf("first event = %s, want %s", ev.Type, eventbus.SchedulerFatal)
	}
}

func TestPanicDuringPressIsFatal(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk, onWrite: func(int) { panic("driver bug") }}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Second)})

	err := newScheduler(quietConfig(), st, tr, clk).Run(context.Background())
	if !errors.Is(err, ErrFatal) || !strings.Contains(err.Error(), "driver bug") {
		t.Fatalf("Run err = %v", err)
	}
	if st.Running() {
		t.Fatalf("running should be false")
	}
}

func TestRequestStopEndsLoop(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F1: fixed(t, time.Second)})
	clk.stopAt(epoch.Add(5*time.Second), func() { st.RequestStop() })

	if err := newScheduler(quietConfig(), st, tr, clk).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tr.open {
		t.Fatalf("transport left open")
	}
	if snap := st.Snapshot(clk.Now()); snap.Connected || snap.Status != "stopped" {
		t.Fatalf("snapshot after stop = %+v", snap)
	}
	if tm, _ := st.Timer(keys.F1); tm.Armed() {
		t.Fatalf("timer still armed after stop: %+v", tm)
	}
	// Fired at +3s and +4s; the stop lands on the tick that reaches +5s.
	if len(tr.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(tr.writes))
	}
}

func TestPressPausesAndLogsLoggableKeys(t *testing.T) {
	clk := newFakeClock()
	tr := &fakeTransport{clock: clk}
	st := newShared(t, map[keys.Key]schedule.Policy{
		keys.F10: fixed(t, 120*time.Second),
		keys.F3:  fixed(t, 120*time.Second),
	})
	var buf bytes.Buffer
	cfg := quietConfig()
	cfg.HumanDelayMin = 40 * time.Millisecond
	cfg.HumanDelayMax = 120 * time.Millisecond
	cfg.Loggable = []keys.Key{keys.F10}
	cfg.ExtraBlock = map[keys.Key]time.Duration{keys.F10: 6 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(125*time.Second), cancel)

	err := newScheduler(cfg, st, tr, clk, WithLogger(logx.NewWriter(&buf, "info"))).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.writes) != 2 {
		t.Fatalf("writes = %v", tr.writes)
	}

	var human, extra int
	for _, d := range clk.sleeps {
		switch {
		case d == 6*time.Second:
			extra++
		case d >= 40*time.Millisecond && d < 120*time.Millisecond:
			human++
		}
	}
	if extra != 1 || human != 2 {
		t.Fatalf("extra=%d human=%d, want 1 and 2 (sleeps %v)", extra, human, clk.sleeps)
	}

	logs := buf.String()
	if strings.Count(logs, `"message":"action"`) != 1 || !strings.Contains(logs, `"key":"F10"`) {
		t.Fatalf("action log lines:\n%s", logs)
	}
}

func TestDryTransportRuns(t *testing.T) {
	clk := newFakeClock()
	dry := transport.NewDry("COM17", logx.Nop())
	st := newShared(t, map[keys.Key]schedule.Policy{keys.F7: fixed(t, time.Second)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.stopAt(epoch.Add(4500*time.Millisecond), cancel)

	if err := newScheduler(quietConfig(), st, dry, clk).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if dry.Frames() != 2 {
		t.Fatalf("frames = %d, want 2", dry.Frames())
	}
}
