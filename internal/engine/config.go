package engine

import (
	"time"

	"afkbot/internal/keys"
)

const (
	DefaultSettle  = 2 * time.Second
	DefaultBackoff = 2 * time.Second
	DefaultTick    = 10 * time.Millisecond
)

// Config is the scheduler's static timing and press behaviour.
type Config struct {
	// HumanDelayMin/Max bound the pause after each write. Max <= Min means a
	// fixed pause of Min; both zero disables it.
	HumanDelayMin time.Duration
	HumanDelayMax time.Duration

	// Loggable keys get an "action" log line per press.
	Loggable []keys.Key
	// ExtraBlock is an extra pause after pressing a key.
	ExtraBlock map[keys.Key]time.Duration

	Settle  time.Duration
	Backoff time.Duration
	Tick    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.HumanDelayMin < 0 {
		c.HumanDelayMin = 0
	}
	return c
}
