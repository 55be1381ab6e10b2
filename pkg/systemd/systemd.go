// Package systemd reports service state to systemd via sd_notify. Outside a
// Type=notify unit every call is a cheap no-op.
package systemd

import (
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "afkbot/pkg/logx"
)

// Notifier sends READY / STATUS / STOPPING notifications.
type Notifier struct {
	log  logx.Logger
	send func(state string) (bool, error)

	mu         sync.Mutex
	lastStatus string
}

func NewNotifier(log logx.Logger) *Notifier {
	return &Notifier{
		log:  log,
		send: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
}

func (n *Notifier) notify(state string) bool {
	ok, err := n.send(state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return false
	}
	return ok
}

// Ready reports startup completion. It returns false when not under systemd.
func (n *Notifier) Ready() bool { return n.notify(daemon.SdNotifyReady) }

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() bool { return n.notify(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by `systemctl status`.
// Repeated identical statuses are not resent.
func (n *Notifier) Status(msg string) bool {
	msg = strings.ReplaceAll(strings.TrimSpace(msg), "\n", " ")
	n.mu.Lock()
	if msg == n.lastStatus {
		n.mu.Unlock()
		return false
	}
	n.lastStatus = msg
	n.mu.Unlock()
	return n.notify("STATUS=" + msg)
}
