package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse parses the textual form of a policy.
//
// Supported forms:
//   - Disabled: "", "0", "off", "none", "disabled", "-"
//   - Fixed: seconds ("120", "0.8") or a Go duration ("2m", "1500ms")
//   - Range: "lo-hi" where each bound is seconds or a duration ("0.8-2", "15s-20s")
//   - Cron: "cron:<expr>", or anything starting with '@' or containing whitespace
func Parse(raw string) (Policy, error) {
	s := strings.TrimSpace(raw)
	low := strings.ToLower(s)
	switch low {
	case "", "0", "off", "none", "disabled", "-":
		return Disabled(), nil
	}

	if strings.HasPrefix(low, "cron:") {
		return Cron(s[len("cron:"):])
	}
	if strings.HasPrefix(s, "@") || strings.ContainsAny(s, " \t") {
		return Cron(s)
	}

	d, err := ParseSeconds(s)
	if err == nil {
		if d == 0 {
			return Disabled(), nil
		}
		return Fixed(d)
	}

	lo, hi, ok := SplitRange(s)
	if !ok {
		return Policy{}, err
	}
	l, err := ParseSeconds(lo)
	if err != nil {
		return Policy{}, fmt.Errorf("range low: %w", err)
	}
	h, err := ParseSeconds(hi)
	if err != nil {
		return Policy{}, fmt.Errorf("range high: %w", err)
	}
	return Range(l, h)
}

// SplitRange splits "lo-hi" (or "lo–hi") into its bounds. A leading '-' is a sign, not a separator.
func SplitRange(s string) (string, string, bool) {
	if s == "" {
		return "", "", false
	}
	if i := strings.Index(s, "–"); i > 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len("–"):]), true
	}
	if i := strings.Index(s[1:], "-"); i >= 0 {
		i++
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
	}
	return "", "", false
}

// ParseSeconds parses a non-negative delay given either as a plain number of
// seconds ("1.5") or as a Go duration ("1500ms").
func ParseSeconds(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromSeconds(f)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (expected seconds or duration)", raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("interval %q must be >= 0", raw)
	}
	return d, nil
}

// FromSeconds converts a float number of seconds into a Duration.
func FromSeconds(f float64) (time.Duration, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid interval %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("interval %v must be >= 0", f)
	}
	if f > float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("interval %v too large", f)
	}
	d := time.Duration(math.Round(f * float64(time.Second)))
	if f > 0 && d == 0 {
		return 0, fmt.Errorf("interval %v rounds to zero", f)
	}
	return d, nil
}
