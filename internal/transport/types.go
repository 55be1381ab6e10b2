// Package transport is the link to the keyboard-emulating microcontroller.
//
// A Transport carries line-delimited key frames. It never reads: the device
// sends no acknowledgement. Every I/O failure is reported as *Error, which
// the scheduler treats as transient (close, back off, reconnect).
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Transport is one serial-like link. Implementations need not be safe for
// concurrent use; the scheduler owns the handle.
type Transport interface {
	// Open establishes the link. Calling Open on an open transport reopens it.
	Open(ctx context.Context) error
	// Write sends p in full.
	Write(p []byte) error
	// Close releases the link. Closing a closed transport is a no-op.
	Close() error
	// Describe names the link for status lines, e.g. "COM17 @ 9600".
	Describe() string
}

// Error is a transient link failure.
type Error struct {
	Op   string // "open" | "write" | "close"
	Port string
	Err  error
}

func (e *Error) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as *Error, or nil when err is nil.
func Wrap(op, port string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Port: port, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a link failure.
func IsTransient(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// ErrClosed is returned by Write on a transport that is not open.
var ErrClosed = errors.New("port not open")
