package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"afkbot/internal/engine"
	"afkbot/internal/keys"
	"afkbot/internal/schedule"
	"afkbot/internal/transport/serialport"
	logx "afkbot/pkg/logx"
)

// Settings is the typed runtime form of a Config.
type Settings struct {
	Driver   string
	Serial   serialport.Config
	Policies map[keys.Key]schedule.Policy
	Engine   engine.Config
	UI       UISettings
	Logging  logx.Config
}

type UISettings struct {
	Mode    string
	Refresh time.Duration
}

const defaultRefresh = 150 * time.Millisecond

// Build validates cfg and maps it onto runtime settings. Every problem found
// is reported, joined into one error.
func Build(cfg *Config) (*Settings, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var errs []error
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	s := &Settings{
		Policies: make(map[keys.Key]schedule.Policy, len(cfg.Keys)),
		Engine:   engine.Config{ExtraBlock: map[keys.Key]time.Duration{}},
	}

	// serial
	s.Driver = strings.ToLower(strings.TrimSpace(cfg.Serial.Driver))
	switch s.Driver {
	case "":
		s.Driver = DriverSerial
	case DriverSerial, DriverDry:
	default:
		fail(fmt.Errorf("serial.driver: unknown driver %q (expected serial|dry)", cfg.Serial.Driver))
	}
	s.Serial.Port = strings.TrimSpace(cfg.Serial.Port)
	if s.Serial.Port == "" && s.Driver == DriverSerial {
		fail(errors.New("serial.port: required"))
	}
	s.Serial.Baud = cfg.Serial.Baud
	if s.Serial.Baud < 0 {
		fail(fmt.Errorf("serial.baud: must be > 0, got %d", cfg.Serial.Baud))
	}
	rt, err := ParseDurationField("serial.read_timeout", cfg.Serial.ReadTimeout)
	fail(err)
	s.Serial.ReadTimeout = rt

	// keys, in a stable order so error messages are deterministic
	names := make([]string, 0, len(cfg.Keys))
	for name := range cfg.Keys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		k, err := keys.Parse(name)
		if err != nil {
			fail(fmt.Errorf("keys.%s: %w", name, err))
			continue
		}
		if _, dup := s.Policies[k]; dup {
			fail(fmt.Errorf("keys.%s: duplicate key %s", name, k))
			continue
		}
		p, err := schedule.Parse(string(cfg.Keys[name]))
		if err != nil {
			fail(fmt.Errorf("keys.%s: %w", name, err))
			continue
		}
		s.Policies[k] = p
	}
	if len(s.Policies) == 0 && len(errs) == 0 {
		fail(errors.New("keys: at least one key is required"))
	}

	for i, name := range cfg.Loggable {
		k, err := keys.Parse(name)
		if err != nil {
			fail(fmt.Errorf("loggable[%d]: %w", i, err))
			continue
		}
		s.Engine.Loggable = append(s.Engine.Loggable, k)
	}
	keys.Sort(s.Engine.Loggable)

	for name, raw := range cfg.ExtraBlock {
		k, err := keys.Parse(name)
		if err != nil {
			fail(fmt.Errorf("extra_block.%s: %w", name, err))
			continue
		}
		d, err := ParseDurationField("extra_block."+name, raw)
		if err != nil {
			fail(err)
			continue
		}
		if d > 0 {
			s.Engine.ExtraBlock[k] = d
		}
	}

	// timing
	lo, hi, err := parseBounds("timing.human_delay", cfg.Timing.HumanDelay)
	fail(err)
	s.Engine.HumanDelayMin, s.Engine.HumanDelayMax = lo, hi

	settle, err := ParseDurationField("timing.settle", cfg.Timing.Settle)
	fail(err)
	s.Engine.Settle = settle
	s.Engine.Backoff, err = ParseDurationOrDefault("timing.backoff", cfg.Timing.Backoff, engine.DefaultBackoff)
	fail(err)
	s.Engine.Tick, err = ParseDurationOrDefault("timing.tick", cfg.Timing.Tick, engine.DefaultTick)
	fail(err)

	// ui
	s.UI.Mode = strings.ToLower(strings.TrimSpace(cfg.UI.Mode))
	switch s.UI.Mode {
	case "":
		s.UI.Mode = UIAuto
	case UIAuto, UITUI, UIConsole, UINone:
	default:
		fail(fmt.Errorf("ui.mode: unknown mode %q (expected auto|tui|console|none)", cfg.UI.Mode))
	}
	s.UI.Refresh, err = ParseDurationOrDefault("ui.refresh", cfg.UI.Refresh, defaultRefresh)
	fail(err)

	// logging
	if _, err := logx.ParseLevel(cfg.Logging.Level); err != nil {
		fail(fmt.Errorf("logging.level: %w", err))
	}
	s.Logging = ToLogConfig(cfg.Logging)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports whether cfg would Build.
func Validate(cfg *Config) error {
	_, err := Build(cfg)
	return err
}

// ToLogConfig maps the logging section onto logx.
func ToLogConfig(lc LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}
