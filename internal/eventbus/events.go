package eventbus

import "time"

// Event types published by the scheduler.
const (
	LinkConnected    = "link.connected"
	LinkDisconnected = "link.disconnected"
	KeyFired         = "key.fired"
	SchedulerFatal   = "scheduler.fatal"
	SchedulerStopped = "scheduler.stopped"
)

// LinkData accompanies link.* events.
type LinkData struct {
	Session string
	Link    string
	Err     string
}

// FireData accompanies key.fired.
type FireData struct {
	Session string
	Key     string
	Next    time.Duration // 0 when the key is no longer armed
}

// StopData accompanies scheduler.fatal and scheduler.stopped.
type StopData struct {
	Reason string
}
