package schedule

import "time"

// Timer is the timing state of one key. Zero Due means INACTIVE.
type Timer struct {
	Policy       Policy
	Due          time.Time
	PreviousDue  time.Time
	LastInterval time.Duration
}

// Armed reports whether the timer is counting down.
func (t Timer) Armed() bool { return !t.Due.IsZero() }

// IsDue reports whether an armed timer has reached its due instant.
func (t Timer) IsDue(now time.Time) bool {
	return t.Armed() && !now.Before(t.Due)
}

// arm samples the policy and either arms the timer from now or clears it.
func (t *Timer) arm(now time.Time, rng Source) bool {
	d := t.Policy.Sample(now, rng)
	if d <= 0 {
		t.clear()
		return false
	}
	t.Due = now.Add(d)
	t.PreviousDue = now
	t.LastInterval = d
	return true
}

func (t *Timer) clear() {
	t.Due = time.Time{}
	t.PreviousDue = time.Time{}
	t.LastInterval = 0
}

// Progress returns how far the timer is towards Due, in [0, 100].
func (t Timer) Progress(now time.Time) float64 {
	if !t.Armed() || t.LastInterval <= 0 {
		return 0
	}
	p := float64(now.Sub(t.PreviousDue)) / float64(t.LastInterval) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Remaining returns the time left until Due; zero when overdue or inactive.
func (t Timer) Remaining(now time.Time) time.Duration {
	if !t.Armed() {
		return 0
	}
	if r := t.Due.Sub(now); r > 0 {
		return r
	}
	return 0
}
