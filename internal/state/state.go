// Package state holds the aggregate shared between the scheduler and the
// status observer. A single mutex guards every field; callers never hold it
// across I/O, sleeps or rendering.
package state

import (
	"strconv"
	"sync"
	"time"

	"afkbot/internal/keys"
	"afkbot/internal/schedule"
)

const initialStatus = "starting"

// Shared is the process-wide state. Build one with New and pass it to both
// the scheduler and the observer.
type Shared struct {
	mu sync.Mutex

	running     bool
	connected   bool
	status      string
	lastAction  keys.Key
	lastPressed map[keys.Key]time.Time
	table       *schedule.Table
}

// New returns state with running=true, connected=false.
func New(table *schedule.Table) *Shared {
	return &Shared{
		running:     true,
		status:      initialStatus,
		lastAction:  keys.None,
		lastPressed: make(map[keys.Key]time.Time),
		table:       table,
	}
}

func (s *Shared) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RequestStop flips running to false. It reports whether this call changed it.
func (s *Shared) RequestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.running
	s.running = false
	return was
}

func (s *Shared) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// Connected marks the link up and arms every timer from now, in one update.
func (s *Shared) Connected(status string, now time.Time, rng schedule.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.status = status
	s.table.ArmAll(now, rng)
}

// Disconnected marks the link down and disarms every timer, in one update.
// The next Connected re-arms them.
func (s *Shared) Disconnected(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.status = status
	s.table.DisarmAll()
}

// Fail marks the link down and stops the process permanently.
func (s *Shared) Fail(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.running = false
	s.status = status
	s.table.DisarmAll()
}

// DueKeys returns the keys due at now in enumeration order.
func (s *Shared) DueKeys(now time.Time) []keys.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.DueKeys(now)
}

// Fired re-arms k from now and records it as the last action, in one update.
// wall is the wall-clock time of the press shown to observers.
func (s *Shared) Fired(k keys.Key, now, wall time.Time, rng schedule.Source) schedule.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Rearm(k, now, rng)
	s.lastAction = k
	s.lastPressed[k] = wall
	tm, _ := s.table.Timer(k)
	return tm
}

// Row is one key as seen by an observer.
type Row struct {
	Key         keys.Key
	Enabled     bool
	Interval    string
	Armed       bool
	LastPressed time.Time
	Progress    float64
	Remaining   time.Duration
}

// Cooldown renders the remaining time as whole seconds, "0" when overdue and
// "-" when the key is not armed.
func (r Row) Cooldown() string {
	if !r.Armed {
		return "-"
	}
	return strconv.Itoa(int(r.Remaining / time.Second))
}

// LastPressedText renders the last press as HH:MM:SS, or "-".
func (r Row) LastPressedText() string {
	if r.LastPressed.IsZero() {
		return "-"
	}
	return r.LastPressed.Format("15:04:05")
}

// Snapshot is a copy of the shared state taken under the lock.
type Snapshot struct {
	Running    bool
	Connected  bool
	Status     string
	LastAction keys.Key
	Rows       []Row
}

// Row returns the row for k.
func (s Snapshot) Row(k keys.Key) (Row, bool) {
	for _, r := range s.Rows {
		if r.Key == k {
			return r, true
		}
	}
	return Row{}, false
}

// Snapshot copies everything an observer renders. Progress and remaining are
// evaluated at now.
func (s *Shared) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Running:    s.running,
		Connected:  s.connected,
		Status:     s.status,
		LastAction: s.lastAction,
		Rows:       make([]Row, 0, s.table.Len()),
	}
	for _, k := range s.table.Keys() {
		tm, _ := s.table.Timer(k)
		snap.Rows = append(snap.Rows, Row{
			Key:         k,
			Enabled:     tm.Policy.Enabled(),
			Interval:    tm.Policy.String(),
			Armed:       tm.Armed(),
			LastPressed: s.lastPressed[k],
			Progress:    tm.Progress(now),
			Remaining:   tm.Remaining(now),
		})
	}
	return snap
}

// Timer returns a copy of k's timer.
func (s *Shared) Timer(k keys.Key) (schedule.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Timer(k)
}
