package app

import (
	"io"

	"afkbot/internal/config"
	"afkbot/internal/engine"
	"afkbot/internal/transport"
)

type Option func(*options)

type options struct {
	override  func(*config.Config)
	transport transport.Transport
	terminal  bool
	out       io.Writer
	engine    []engine.Option
}

// WithOverrides applies fn to every loaded config, including hot reloads.
// Command-line flags use it to win over file values.
func WithOverrides(fn func(*config.Config)) Option {
	return func(o *options) { o.override = fn }
}

// WithTransport replaces the transport built from the serial section.
func WithTransport(tr transport.Transport) Option {
	return func(o *options) { o.transport = tr }
}

// WithTerminal tells the app that stdout is an interactive terminal, which
// makes ui.mode=auto pick the TUI.
func WithTerminal(isTTY bool) Option {
	return func(o *options) { o.terminal = isTTY }
}

// WithOutput sets where the console observer prints counters.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithEngineOptions passes extra options to the scheduler.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}
