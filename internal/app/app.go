package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"afkbot/internal/config"
	"afkbot/internal/engine"
	"afkbot/internal/eventbus"
	"afkbot/internal/observer/console"
	"afkbot/internal/observer/tui"
	"afkbot/internal/runtime/supervisor"
	"afkbot/internal/schedule"
	"afkbot/internal/state"
	"afkbot/internal/transport"
	"afkbot/internal/transport/serialport"
	logx "afkbot/pkg/logx"
	"afkbot/pkg/systemd"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	root logx.Logger
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	st     *state.Shared
	tr     transport.Transport
	sched  *engine.Scheduler
	notify *systemd.Notifier

	override func(*config.Config)
	ui       string
	refresh  time.Duration
	out      io.Writer

	stopOnce sync.Once
}

// New loads the config, validates it and builds every component. Nothing
// runs until Start.
func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if o.override != nil {
		o.override(cfg)
	}
	set, err := config.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ui := resolveUI(set.UI.Mode, o.terminal)
	logCfg := set.Logging
	if ui == config.UITUI {
		// The TUI owns the terminal; only the file sink stays on.
		logCfg.Console = false
	}
	logSvc, root := logx.New(logCfg)
	log := root.With(logx.String("comp", "app"))

	table, err := schedule.NewTable(set.Policies)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	st := state.New(table)

	tr := o.transport
	if tr == nil {
		switch set.Driver {
		case config.DriverDry:
			tr = transport.NewDry(set.Serial.Port, root.With(logx.String("comp", "transport")))
		default:
			tr = serialport.New(set.Serial, root.With(logx.String("comp", "transport")))
		}
	}

	bus := eventbus.New()
	engOpts := append([]engine.Option{engine.WithBus(bus), engine.WithLogger(root)}, o.engine...)
	sched := engine.New(set.Engine, st, tr, engOpts...)

	return &App{
		cfgm:     cfgm,
		root:     root,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		st:       st,
		tr:       tr,
		sched:    sched,
		notify:   systemd.NewNotifier(root.With(logx.String("comp", "systemd"))),
		override: o.override,
		ui:       ui,
		refresh:  set.UI.Refresh,
		out:      o.out,
	}, nil
}

func resolveUI(mode string, isTTY bool) string {
	if mode != config.UIAuto {
		return mode
	}
	if isTTY {
		return config.UITUI
	}
	return config.UIConsole
}

// State exposes the shared scheduler state.
func (a *App) State() *state.Shared { return a.st }

// UIMode is the resolved observer mode (tui, console or none).
func (a *App) UIMode() string { return a.ui }

// Subscribe returns a feed of scheduler events, optionally limited to types.
func (a *App) Subscribe(buffer int, types ...string) (<-chan eventbus.Event, func()) {
	return a.bus.Subscribe(buffer, types...)
}

// Done is closed when the app supervisor context is canceled (scheduler
// exit, fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// ExitCode maps Err onto a process exit status.
func (a *App) ExitCode() int {
	if a.Err() != nil {
		return 1
	}
	return 0
}

// effective returns cfg with command-line overrides applied, leaving cfg
// untouched.
func (a *App) effective(cfg *config.Config) *config.Config {
	if cfg == nil || a.override == nil {
		return cfg
	}
	cp := *cfg
	a.override(&cp)
	return &cp
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.root.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.root.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(a.effective(cfg))
	})

	// Subscribe before the scheduler starts so the first connect is seen.
	// key.fired stays off this feed; the scheduler logs presses itself.
	events, unsub := a.bus.Subscribe(16,
		eventbus.LinkConnected, eventbus.LinkDisconnected,
		eventbus.SchedulerFatal, eventbus.SchedulerStopped,
	)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.onEvent(e)
			}
		}
	})

	var (
		uiEvents <-chan eventbus.Event
		uiUnsub  = func() {}
	)
	if a.ui == config.UITUI {
		uiEvents, uiUnsub = a.bus.Subscribe(64)
	}

	a.sup.Go("engine", func(c context.Context) error {
		err := a.sched.Run(c)
		if err == nil {
			// Stop requested; unwind everything else.
			a.sup.Cancel()
		}
		return err
	})

	a.sup.Go0("state.stop", func(c context.Context) {
		<-c.Done()
		a.st.RequestStop()
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.effective(a.cfgm.Get())
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				newCfg = a.effective(newCfg)
				lastApplied = a.applyConfig(lastApplied, newCfg)
			}
		}
	})

	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))

	switch a.ui {
	case config.UITUI:
		a.sup.Go("observer.tui", func(c context.Context) error {
			defer uiUnsub()
			return tui.Run(c, a.st, uiEvents, tui.Options{Title: "afkbot", Refresh: a.refresh, Dropped: a.bus.Dropped})
		})
	case config.UIConsole:
		a.sup.Go("observer.console", func(c context.Context) error {
			return console.Run(c, a.st, a.root, console.Options{Out: a.out})
		})
	}

	a.log.Info("app started",
		logx.String("link", a.tr.Describe()),
		logx.String("ui", a.ui),
		logx.String("config", a.cfgm.Path()),
	)
	return nil
}

// applyConfig handles a hot-reloaded config. Logging is applied live; any
// other change is reported as needing a restart.
func (a *App) applyConfig(prev, next *config.Config) *config.Config {
	sections, attrs, restart := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return next
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	logCfg := config.ToLogConfig(next.Logging)
	if a.ui == config.UITUI {
		logCfg.Console = false
	}
	if logCfg != a.logs.Config() {
		a.logs.Apply(logCfg)
	}

	if len(restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
	return next
}

// logRunSummary reports goroutines that panicked, restarted, failed or are
// still running, and events lost to slow subscribers.
func (a *App) logRunSummary() {
	for _, st := range a.sup.Snapshot() {
		if st.Panics == 0 && st.Restarts == 0 && st.LastErr == "" && st.Active == 0 {
			continue
		}
		a.log.Warn("goroutine summary",
			logx.String("name", st.Name),
			logx.Int("active", int(st.Active)),
			logx.Uint64("panics", st.Panics),
			logx.Uint64("restarts", st.Restarts),
			logx.String("last_err", st.LastErr),
			logx.Duration("runtime", st.Runtime),
		)
	}
	if n := a.bus.Dropped(); n > 0 {
		a.log.Warn("events dropped by slow subscribers", logx.Uint64("dropped", n))
	}
}

func (a *App) onEvent(e eventbus.Event) {
	// Link and stop events only; presses never reach this feed.
	a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))

	switch d := e.Data.(type) {
	case eventbus.LinkData:
		switch e.Type {
		case eventbus.LinkConnected:
			a.notify.Ready()
			a.notify.Status("connected to " + d.Link)
		case eventbus.LinkDisconnected:
			a.notify.Status("reconnecting to " + d.Link + ": " + d.Err)
		}
	case eventbus.StopData:
		switch e.Type {
		case eventbus.SchedulerFatal:
			a.notify.Status("failed: " + d.Reason)
		case eventbus.SchedulerStopped:
			a.notify.Stopping()
		}
	}
}

// Stop shuts the app down. Each step is bounded so one component cannot
// stall the whole stop.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		_ = a.logs.Close()
		return nil
	}
	a.stopOnce.Do(func() { a.stop(ctx, reason) })
	return nil
}

func (a *App) stop(ctx context.Context, reason StopReason) {
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.st.RequestStop()
	a.sup.Cancel()

	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

		stepCtx := ctx
		if limit > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				limit = min(limit, max(time.Until(dl), 0))
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// The scheduler, observer and config goroutines all watch the supervisor context.
	step("supervisor", 3*time.Second, func(c context.Context) error {
		if err := a.sup.Stop(c); c.Err() != nil {
			return err
		}
		return nil
	})
	step("transport", time.Second, func(context.Context) error { return a.tr.Close() })

	a.logRunSummary()

	a.notify.Stopping()
	if err := a.sup.Err(); err != nil {
		a.log.Error("stopped with error", logx.Err(err))
	} else {
		a.log.Info("stopped")
	}
	_ = a.logs.Close()
}
