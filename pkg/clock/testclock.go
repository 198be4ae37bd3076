package clock

import (
	"sort"
	"sync"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// TimeEvent is one drainable handler invocation produced by AdvanceTo.
type TimeEvent struct {
	Name    string
	AtNs    int64
	Handler Handler
}

// Fire invokes the handler; split out from AdvanceTo so a backtest driver
// can interleave TimeEvents with data events before firing any of them.
func (e TimeEvent) Fire() { e.Handler(e.Name, e.AtNs) }

// TestClock advances only via AdvanceTo; it never reads wall-clock time.
// This is the deterministic time source for backtests.
type TestClock struct {
	mu      sync.Mutex
	nowNs   int64
	timers  map[string]*timer
	counter uint64
}

func NewTestClock() *TestClock {
	return &TestClock{timers: make(map[string]*timer)}
}

func (c *TestClock) NowNs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowNs
}

func (c *TestClock) SetTimeAlert(name string, atNs int64, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.timers[name]; exists {
		return kernerr.New(kernerr.InvalidInput, "clock: timer %q already exists", name)
	}
	c.counter++
	c.timers[name] = &timer{name: name, handler: handler, nextFireNs: atNs, insertOrder: c.counter}
	return nil
}

func (c *TestClock) SetTimer(name string, intervalNs int64, startNs, stopNs *int64, handler Handler) error {
	if intervalNs <= 0 {
		return kernerr.New(kernerr.InvalidInput, "clock: timer %q interval must be positive", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.timers[name]; exists {
		return kernerr.New(kernerr.InvalidInput, "clock: timer %q already exists", name)
	}
	start := c.nowNs
	if startNs != nil {
		start = *startNs
	}
	c.counter++
	c.timers[name] = &timer{
		name:        name,
		handler:     handler,
		nextFireNs:  start + intervalNs,
		intervalNs:  intervalNs,
		stopNs:      stopNs,
		insertOrder: c.counter,
	}
	return nil
}

func (c *TestClock) CancelTimer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.timers, name)
}

func (c *TestClock) NextEventTimeNs() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var best int64
	found := false
	for _, t := range c.timers {
		if !found || t.nextFireNs < best {
			best = t.nextFireNs
			found = true
		}
	}
	return best, found
}

func (c *TestClock) TimerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.timers))
	for name := range c.timers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *TestClock) TimerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// AdvanceTo collects every timer whose next fire time is <= targetNs,
// sorted stably by (fire time, insertion order), advancing repeating
// timers to their next fire (dropping them if that is past any
// configured stop) and removing one-shot alerts. If setTime, the clock's
// NowNs becomes targetNs; otherwise the clock's time is left untouched so
// a backtest driver can interleave timer events with data events that
// share the same timestamp before committing the clock forward.
//
// The returned events are not yet fired: call TimeEvent.Fire() on each,
// in order, once the caller has decided how to interleave them with any
// data event at the same ts_event.
func (c *TestClock) AdvanceTo(targetNs int64, setTime bool) []TimeEvent {
	c.mu.Lock()

	type due struct {
		t    *timer
		atNs int64
	}
	var fires []due

	for _, t := range c.timers {
		for t.nextFireNs <= targetNs {
			fires = append(fires, due{t: t, atNs: t.nextFireNs})
			if next, ok := t.advance(); ok {
				t.nextFireNs = next
			} else {
				delete(c.timers, t.name)
				break
			}
		}
	}

	sort.SliceStable(fires, func(i, j int) bool {
		if fires[i].atNs != fires[j].atNs {
			return fires[i].atNs < fires[j].atNs
		}
		return fires[i].t.insertOrder < fires[j].t.insertOrder
	})

	events := make([]TimeEvent, 0, len(fires))
	for _, d := range fires {
		events = append(events, TimeEvent{Name: d.t.name, AtNs: d.atNs, Handler: d.t.handler})
	}
	if setTime {
		c.nowNs = targetNs
	}
	c.mu.Unlock()
	return events
}
