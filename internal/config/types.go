package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Config is the file model. JSON, YAML and TOML files share it; YAML and
// TOML are coerced to JSON and decoded strictly.
//
// Durations accept a number of seconds (2, 0.5) or a Go duration string
// ("2s", "500ms"). Zero or omitted fields fall back to Default().
type Config struct {
	Serial SerialConfig `json:"serial"`

	// Keys maps a key name (F1..F12, ESC) to its interval. See Interval.
	// When omitted, the default key table is used.
	Keys map[string]Interval `json:"keys,omitempty"`

	// Loggable keys emit an "action" log line per press.
	Loggable []string `json:"loggable,omitempty"`

	// ExtraBlock is an extra blocking pause after a key press.
	ExtraBlock map[string]Duration `json:"extra_block,omitempty"`

	Timing  TimingConfig  `json:"timing"`
	UI      UIConfig      `json:"ui"`
	Logging LoggingConfig `json:"logging"`
}

const (
	DriverSerial = "serial"
	DriverDry    = "dry"
)

type SerialConfig struct {
	// Driver is "serial" (default) or "dry" (log frames, no device).
	Driver      string   `json:"driver,omitempty"`
	Port        string   `json:"port,omitempty"`
	Baud        int      `json:"baud,omitempty"`
	ReadTimeout Duration `json:"read_timeout,omitempty"`
}

type TimingConfig struct {
	// HumanDelay is the pause after each write: [lo, hi], "lo-hi", a single
	// value, or 0/"off".
	HumanDelay Interval `json:"human_delay,omitempty"`
	Settle     Duration `json:"settle,omitempty"`
	Backoff    Duration `json:"backoff,omitempty"`
	Tick       Duration `json:"tick,omitempty"`
}

const (
	UIAuto    = "auto"
	UITUI     = "tui"
	UIConsole = "console"
	UINone    = "none"
)

type UIConfig struct {
	// Mode is auto|tui|console|none. auto picks tui on a terminal.
	Mode    string   `json:"mode,omitempty"`
	Refresh Duration `json:"refresh,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// Interval is the textual form of a key policy, normalised from any of:
//
//	0, null, "off"          disabled
//	120, "2m"               fixed
//	[0.8, 2], "0.8-2"       range
//	"cron:*/30 * * * * *"   cron
type Interval string

func (iv *Interval) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*iv = "off"
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*iv = Interval(strings.TrimSpace(s))
		return nil
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		if len(parts) != 2 {
			return fmt.Errorf("range must have exactly 2 bounds, got %d", len(parts))
		}
		lo, err := scalarText(parts[0])
		if err != nil {
			return err
		}
		hi, err := scalarText(parts[1])
		if err != nil {
			return err
		}
		*iv = Interval(lo + "-" + hi)
		return nil
	default:
		s, err := scalarText(b)
		if err != nil {
			return err
		}
		*iv = Interval(s)
		return nil
	}
}

// Duration is a number of seconds or a Go duration string.
type Duration string

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*d = Duration(s)
	return nil
}

// scalarText renders a JSON number or string as text.
func scalarText(b json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		return strings.TrimSpace(x), nil
	default:
		return "", fmt.Errorf("expected number or string, got %s", string(b))
	}
}

// Default reproduces the stock setup: COM17 @ 9600, attack/pickup every
// 0.8–2s, combat every 15–20s, buffs every 120s (plus a 6s dance), potions
// every 180s.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{Driver: DriverSerial, Port: "COM17", Baud: 9600, ReadTimeout: "1s"},
		Keys: map[string]Interval{
			"F1": "off", "F2": "off",
			"F3": "0.8-2", "F4": "0.8-2",
			"F5": "off", "F6": "off",
			"F7": "15-20",
			"F8": "off", "F9": "off",
			"F10": "120",
			"F11": "off",
			"F12": "180",
		},
		Loggable:   []string{"F7", "F10", "F12"},
		ExtraBlock: map[string]Duration{"F10": "6"},
		Timing: TimingConfig{
			HumanDelay: "0.04-0.12",
			Settle:     "2s",
			Backoff:    "2s",
			Tick:       "10ms",
		},
		UI:      UIConfig{Mode: UIAuto, Refresh: "150ms"},
		Logging: LoggingConfig{Level: "info", Console: true, File: FileLogConfig{Path: "./afkbot.log"}},
	}
}

// ApplyDefaults fills omitted fields from Default(). Keys, Loggable and
// ExtraBlock are taken from the defaults only when Keys is omitted entirely.
func (c *Config) ApplyDefaults() {
	def := Default()
	if strings.TrimSpace(c.Serial.Driver) == "" {
		c.Serial.Driver = def.Serial.Driver
	}
	if strings.TrimSpace(c.Serial.Port) == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.ReadTimeout == "" {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}
	if len(c.Keys) == 0 {
		c.Keys = def.Keys
		if c.Loggable == nil {
			c.Loggable = def.Loggable
		}
		if c.ExtraBlock == nil {
			c.ExtraBlock = def.ExtraBlock
		}
	}
	if c.Timing.HumanDelay == "" {
		c.Timing.HumanDelay = def.Timing.HumanDelay
	}
	if c.Timing.Settle == "" {
		c.Timing.Settle = def.Timing.Settle
	}
	if c.Timing.Backoff == "" {
		c.Timing.Backoff = def.Timing.Backoff
	}
	if c.Timing.Tick == "" {
		c.Timing.Tick = def.Timing.Tick
	}
	if strings.TrimSpace(c.UI.Mode) == "" {
		c.UI.Mode = def.UI.Mode
	}
	if c.UI.Refresh == "" {
		c.UI.Refresh = def.UI.Refresh
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		c.Logging.File.Path = def.Logging.File.Path
	}
}
