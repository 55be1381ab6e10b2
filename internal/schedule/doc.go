// Package schedule holds the per-key timing model: interval policies, the
// timer state of one key, and the table of timers covering every key.
//
// # Policies
//
// A Policy is one of:
//
//   - Disabled: the key is never scheduled.
//   - Fixed: a constant delay.
//   - Range: a delay drawn uniformly from [low, high) on every re-arm.
//   - Cron: the delay until the next instant of a cron expression
//     (robfig/cron syntax, seconds optional).
//
// Policies are immutable once built.
//
// # Timers
//
// A Timer is INACTIVE (zero Due) or ARMED. Arming from instant now with delay d
// sets Due = now+d, PreviousDue = now and LastInterval = d, so the invariant
// Due == PreviousDue + LastInterval holds whenever the timer is armed.
//
// Table does no locking of its own; callers serialize access (see
// internal/state).
package schedule
