package process

import "time"

// Timer is a one-shot timer handle.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates timers. Tests inject a fake to control the restart delay.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }

func (r realTimer) Stop() bool { return r.t.Stop() }
