// Package eventbus carries scheduler events (link changes, key presses,
// stops) to the log, the systemd notifier and the TUI.
package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one scheduler signal. Publish never blocks the scheduler: a
// subscriber whose buffer is full misses the event and the bus counts it.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a buffered feed. With types given, only those event
	// types are delivered; otherwise every event is.
	Subscribe(buffer int, types ...string) (ch <-chan Event, unsubscribe func())
	// Dropped counts deliveries skipped because a subscriber was full.
	Dropped() uint64
}

// New returns a bus with no goroutines of its own.
func New() Bus {
	return &bus{}
}

type subscriber struct {
	ch    chan Event
	types []string
}

func (s *subscriber) wants(typ string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, typ)
}

type bus struct {
	// mu is held across the fan-out so unsubscribe never closes a channel
	// mid-send. Sends are non-blocking, so the hold is short.
	mu      sync.Mutex
	subs    []*subscriber
	dropped atomic.Uint64
}

func (b *bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if !s.wants(e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *bus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan Event, buffer), types: slices.Clone(types)}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			b.subs = slices.DeleteFunc(b.subs, func(x *subscriber) bool { return x == s })
			close(s.ch)
			b.mu.Unlock()
		})
	}
	return s.ch, unsub
}

func (b *bus) Dropped() uint64 { return b.dropped.Load() }
