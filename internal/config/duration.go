package config

import (
	"fmt"
	"strings"
	"time"

	"afkbot/internal/schedule"
)

// ParseDurationField parses a Duration for the field at path. Empty means 0.
func ParseDurationField(path string, raw Duration) (time.Duration, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, nil
	}
	d, err := schedule.ParseSeconds(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for zero.
func ParseDurationOrDefault(path string, raw Duration, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// parseBounds parses a [lo, hi] pause such as the human delay. Unlike a key
// interval it allows zero: "off", "0" and "0-0" all mean no pause.
func parseBounds(path string, raw Interval) (time.Duration, time.Duration, error) {
	s := strings.TrimSpace(string(raw))
	switch strings.ToLower(s) {
	case "", "0", "off", "none", "disabled", "-":
		return 0, 0, nil
	}
	if d, err := schedule.ParseSeconds(s); err == nil {
		return d, d, nil
	}
	lo, hi, ok := schedule.SplitRange(s)
	if !ok {
		return 0, 0, fmt.Errorf("%s: invalid range %q", path, s)
	}
	l, err := schedule.ParseSeconds(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: low: %w", path, err)
	}
	h, err := schedule.ParseSeconds(hi)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: high: %w", path, err)
	}
	if l > h {
		return 0, 0, fmt.Errorf("%s: %w", path, schedule.ErrInvertedRange)
	}
	return l, h, nil
}
