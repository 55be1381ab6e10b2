// Package engine runs the key scheduler.
//
// The Scheduler owns the transport. It keeps the link open, polls the
// schedule table on a fixed tick, presses due keys in enumeration order and
// re-arms them. Link failures (*transport.Error) are retried forever after a
// fixed backoff; any other error stops the scheduler permanently and is
// returned wrapped in ErrFatal.
//
// Stopping is cooperative: the running flag in state.Shared and the context
// are checked before every connection attempt and at the top of every tick.
// A press in progress always completes.
package engine
