// Package clock implements the event-time clock and timer wheel of spec
// §4.1: a real-time realization backed by the host scheduler and a test
// realization driven by explicit advance_to calls, both behind the Clock
// contract so the rest of the kernel is agnostic to backtest vs live.
package clock

// Handler is invoked when a time alert or timer fires. name is the
// alert/timer name, atNs is its scheduled fire time.
type Handler func(name string, atNs int64)

// Clock is the contract both LiveClock and TestClock satisfy.
type Clock interface {
	// NowNs returns the current event-time in UNIX nanoseconds.
	NowNs() int64

	// SetTimeAlert schedules handler to fire once at atNs.
	SetTimeAlert(name string, atNs int64, handler Handler) error

	// SetTimer schedules handler to fire every intervalNs, first at
	// startNs+intervalNs (startNs defaults to NowNs() when nil). If stopNs
	// is non-nil, a fire at exactly stopNs still happens and the timer is
	// removed once its next fire time would pass stopNs.
	SetTimer(name string, intervalNs int64, startNs, stopNs *int64, handler Handler) error

	// CancelTimer removes a previously scheduled timer or alert by name.
	// It is a no-op if name is unknown (mirrors the source's lazy-filter
	// semantics: cancellation never errors on an already-fired one-shot).
	CancelTimer(name string)

	// NextEventTimeNs returns the fire time of the earliest pending timer,
	// or (0, false) if none are scheduled.
	NextEventTimeNs() (int64, bool)

	// TimerNames returns the names of all currently scheduled timers, for
	// introspection/testing.
	TimerNames() []string

	// TimerCount returns the number of currently scheduled timers.
	TimerCount() int
}

// timer is the shared scheduling record for both clock realizations.
type timer struct {
	name        string
	handler     Handler
	nextFireNs  int64
	intervalNs  int64 // 0 for a one-shot alert
	stopNs      *int64
	insertOrder uint64
	cancelled   bool
}

func (t *timer) isAlert() bool { return t.intervalNs == 0 }

// advance returns the timer's next fire time after firing once, or
// false if the timer has no further fires (one-shot, or past its stop).
func (t *timer) advance() (next int64, ok bool) {
	if t.isAlert() {
		return 0, false
	}
	next = t.nextFireNs + t.intervalNs
	if t.stopNs != nil && next > *t.stopNs {
		return 0, false
	}
	return next, true
}
