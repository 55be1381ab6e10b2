// Package observer holds what the status observers share: the view of the
// shared state they read, and the stop request they may issue.
package observer

import (
	"time"

	"afkbot/internal/state"
)

// Source is the observer's window on the shared state. *state.Shared
// satisfies it.
type Source interface {
	Snapshot(now time.Time) state.Snapshot
	RequestStop() bool
}

var _ Source = (*state.Shared)(nil)
