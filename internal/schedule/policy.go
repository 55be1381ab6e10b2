package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind tags a Policy.
type Kind int

const (
	KindDisabled Kind = iota
	KindFixed
	KindRange
	KindCron
)

func (k Kind) String() string {
	switch k {
	case KindDisabled:
		return "disabled"
	case KindFixed:
		return "fixed"
	case KindRange:
		return "range"
	case KindCron:
		return "cron"
	default:
		return "unknown"
	}
}

// Source is the random source used for Range draws. *math/rand.Rand satisfies it.
type Source interface {
	Int63n(n int64) int64
}

// Policy is one key's timing rule. The zero value is Disabled.
type Policy struct {
	Kind  Kind
	Every time.Duration // KindFixed
	Low   time.Duration // KindRange
	High  time.Duration // KindRange
	Expr  string        // KindCron (source text)

	sched cron.Schedule
}

var (
	ErrNonPositive   = errors.New("interval must be > 0")
	ErrInvertedRange = errors.New("range low must be <= high")
)

// cronParser accepts both 5-field and 6-field (with seconds) specs plus descriptors.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Disabled returns the policy of a key that never fires.
func Disabled() Policy { return Policy{} }

// Fixed returns a constant-delay policy.
func Fixed(every time.Duration) (Policy, error) {
	if every <= 0 {
		return Policy{}, fmt.Errorf("fixed %s: %w", every, ErrNonPositive)
	}
	return Policy{Kind: KindFixed, Every: every}, nil
}

// Range returns a policy that resamples uniformly from [low, high) on every re-arm.
func Range(low, high time.Duration) (Policy, error) {
	if low <= 0 || high <= 0 {
		return Policy{}, fmt.Errorf("range %s-%s: %w", low, high, ErrNonPositive)
	}
	if low > high {
		return Policy{}, fmt.Errorf("range %s-%s: %w", low, high, ErrInvertedRange)
	}
	return Policy{Kind: KindRange, Low: low, High: high}, nil
}

// Cron returns a policy that fires at the instants of a cron expression.
func Cron(expr string) (Policy, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Policy{}, fmt.Errorf("cron expression required")
	}
	s, err := cronParser.Parse(expr)
	if err != nil {
		return Policy{}, fmt.Errorf("cron %q: %w", expr, err)
	}
	return Policy{Kind: KindCron, Expr: expr, sched: s}, nil
}

// Enabled reports whether the policy ever schedules its key.
func (p Policy) Enabled() bool { return p.Kind != KindDisabled }

// Sample returns the next concrete delay. Zero means "do not arm".
// Range policies draw independently on every call.
func (p Policy) Sample(now time.Time, rng Source) time.Duration {
	switch p.Kind {
	case KindFixed:
		return p.Every
	case KindRange:
		span := int64(p.High - p.Low)
		if span <= 0 || rng == nil {
			return p.Low
		}
		return p.Low + time.Duration(rng.Int63n(span))
	case KindCron:
		if p.sched == nil {
			return 0
		}
		next := p.sched.Next(now)
		if next.IsZero() {
			return 0
		}
		d := next.Sub(now)
		if d <= 0 {
			return 0
		}
		return d
	default:
		return 0
	}
}

// String renders the configured interval for display: "-" when disabled,
// "120s" fixed, "0.8–2s" range, "cron:<expr>" cron.
func (p Policy) String() string {
	switch p.Kind {
	case KindFixed:
		return formatSeconds(p.Every) + "s"
	case KindRange:
		return formatSeconds(p.Low) + "–" + formatSeconds(p.High) + "s"
	case KindCron:
		return "cron:" + p.Expr
	default:
		return "-"
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
