// Package keys defines the fixed set of key identifiers the microcontroller
// understands and their line-delimited wire framing.
package keys

import (
	"fmt"
	"strings"
)

// Key is one simulated input action. The zero value is not a valid key.
type Key string

// None is the sentinel used when no key has been pressed yet.
const None Key = "-"

const (
	F1  Key = "F1"
	F2  Key = "F2"
	F3  Key = "F3"
	F4  Key = "F4"
	F5  Key = "F5"
	F6  Key = "F6"
	F7  Key = "F7"
	F8  Key = "F8"
	F9  Key = "F9"
	F10 Key = "F10"
	F11 Key = "F11"
	F12 Key = "F12"
	ESC Key = "ESC"
)

// all is the enumeration order. Firing order within a tick follows it.
var all = [...]Key{F1, F2, F3, F4, F5, F6, F7, F8, F9, F10, F11, F12, ESC}

// All returns every key identifier in enumeration order.
func All() []Key {
	out := make([]Key, len(all))
	copy(out, all[:])
	return out
}

// Index returns the position of k in the enumeration order, or -1.
func Index(k Key) int {
	for i, v := range all {
		if v == k {
			return i
		}
	}
	return -1
}

func (k Key) Valid() bool { return Index(k) >= 0 }

func (k Key) String() string { return string(k) }

// Parse accepts a key name case-insensitively ("f3", "Esc").
func Parse(raw string) (Key, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "ESCAPE" {
		s = string(ESC)
	}
	k := Key(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown key %q (expected F1..F12 or ESC)", raw)
	}
	return k, nil
}

// Frame encodes k as a wire frame: the identifier followed by '\n'.
func Frame(k Key) []byte {
	b := make([]byte, 0, len(k)+1)
	b = append(b, k...)
	return append(b, '\n')
}

// Sort orders ks in enumeration order, in place.
func Sort(ks []Key) {
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0 && Index(ks[j]) < Index(ks[j-1]); j-- {
			ks[j], ks[j-1] = ks[j-1], ks[j]
		}
	}
}
