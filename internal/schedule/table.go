package schedule

import (
	"fmt"
	"time"

	"afkbot/internal/keys"
)

// Table maps every configured key to its Timer. The key set is fixed at
// construction and iterated in enumeration order.
type Table struct {
	order  []keys.Key
	timers map[keys.Key]*Timer
}

// NewTable builds a table with one INACTIVE timer per key in policies.
func NewTable(policies map[keys.Key]Policy) (*Table, error) {
	t := &Table{timers: make(map[keys.Key]*Timer, len(policies))}
	for k, p := range policies {
		if !k.Valid() {
			return nil, fmt.Errorf("schedule: unknown key %q", k)
		}
		t.timers[k] = &Timer{Policy: p}
		t.order = append(t.order, k)
	}
	keys.Sort(t.order)
	return t, nil
}

// Keys returns the table's keys in enumeration order.
func (t *Table) Keys() []keys.Key {
	return append([]keys.Key(nil), t.order...)
}

// Len returns the number of keys in the table.
func (t *Table) Len() int { return len(t.order) }

// Timer returns a copy of the timer for k.
func (t *Table) Timer(k keys.Key) (Timer, bool) {
	tm, ok := t.timers[k]
	if !ok {
		return Timer{}, false
	}
	return *tm, true
}

// ArmAll arms every key from now. Keys whose policy yields no delay are cleared.
func (t *Table) ArmAll(now time.Time, rng Source) {
	for _, k := range t.order {
		t.timers[k].arm(now, rng)
	}
}

// Rearm re-evaluates one key's policy after a firing. It reports whether the
// key is ARMED afterwards.
func (t *Table) Rearm(k keys.Key, now time.Time, rng Source) bool {
	tm, ok := t.timers[k]
	if !ok {
		return false
	}
	return tm.arm(now, rng)
}

// DisarmAll clears every timer; nothing is due until the next ArmAll.
func (t *Table) DisarmAll() {
	for _, tm := range t.timers {
		tm.clear()
	}
}

// DueKeys returns the keys due at now, in enumeration order.
func (t *Table) DueKeys(now time.Time) []keys.Key {
	var out []keys.Key
	for _, k := range t.order {
		if t.timers[k].IsDue(now) {
			out = append(out, k)
		}
	}
	return out
}
