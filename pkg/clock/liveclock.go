package clock

import (
	"container/heap"
	"sync"
	"time"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// LiveClock is backed by the host's monotonic wall-clock and a min-heap
// of pending timers driven by a single background goroutine.
type LiveClock struct {
	mu       sync.Mutex
	timers   map[string]*timer
	heap     timerHeap
	counter  uint64
	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLiveClock() *LiveClock {
	c := &LiveClock{
		timers: make(map[string]*timer),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *LiveClock) NowNs() int64 { return time.Now().UnixNano() }

func (c *LiveClock) SetTimeAlert(name string, atNs int64, handler Handler) error {
	return c.schedule(name, &timer{name: name, handler: handler, nextFireNs: atNs})
}

func (c *LiveClock) SetTimer(name string, intervalNs int64, startNs, stopNs *int64, handler Handler) error {
	if intervalNs <= 0 {
		return kernerr.New(kernerr.InvalidInput, "clock: timer %q interval must be positive", name)
	}
	start := c.NowNs()
	if startNs != nil {
		start = *startNs
	}
	return c.schedule(name, &timer{
		name:       name,
		handler:    handler,
		nextFireNs: start + intervalNs,
		intervalNs: intervalNs,
		stopNs:     stopNs,
	})
}

func (c *LiveClock) schedule(name string, t *timer) error {
	c.mu.Lock()
	if _, exists := c.timers[name]; exists {
		c.mu.Unlock()
		return kernerr.New(kernerr.InvalidInput, "clock: timer %q already exists", name)
	}
	c.counter++
	t.insertOrder = c.counter
	c.timers[name] = t
	heap.Push(&c.heap, t)
	c.mu.Unlock()
	c.nudge()
	return nil
}

func (c *LiveClock) CancelTimer(name string) {
	c.mu.Lock()
	if t, ok := c.timers[name]; ok {
		t.cancelled = true
		delete(c.timers, name)
	}
	c.mu.Unlock()
}

func (c *LiveClock) NextEventTimeNs() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.heap.Len() > 0 && c.heap[0].cancelled {
		heap.Pop(&c.heap)
	}
	if c.heap.Len() == 0 {
		return 0, false
	}
	return c.heap[0].nextFireNs, true
}

func (c *LiveClock) TimerNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.timers))
	for name := range c.timers {
		names = append(names, name)
	}
	return names
}

func (c *LiveClock) TimerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Close stops the background driver goroutine; pending timers are
// abandoned (not fired).
func (c *LiveClock) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *LiveClock) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run is the cooperative driver: sleep until the next fire time (or
// forever if idle), firing every due timer in (fire_ts, insertion_order)
// order before re-computing the next sleep.
func (c *LiveClock) run() {
	for {
		c.mu.Lock()
		for c.heap.Len() > 0 && c.heap[0].cancelled {
			heap.Pop(&c.heap)
		}
		var wait time.Duration
		hasNext := c.heap.Len() > 0
		if hasNext {
			wait = time.Duration(c.heap[0].nextFireNs-c.NowNs()) * time.Nanosecond
			if wait < 0 {
				wait = 0
			}
		}
		c.mu.Unlock()

		var timerCh <-chan time.Time
		if hasNext {
			timerCh = time.After(wait)
		}

		select {
		case <-c.stopCh:
			return
		case <-c.wake:
			continue
		case <-timerCh:
			c.fireDue()
		}
	}
}

func (c *LiveClock) fireDue() {
	now := c.NowNs()
	type firing struct {
		t    *timer
		atNs int64
	}
	var due []firing
	c.mu.Lock()
	for c.heap.Len() > 0 && c.heap[0].nextFireNs <= now {
		t := heap.Pop(&c.heap).(*timer)
		if t.cancelled {
			continue
		}
		due = append(due, firing{t: t, atNs: t.nextFireNs})
		if next, ok := t.advance(); ok {
			t.nextFireNs = next
			heap.Push(&c.heap, t)
		} else {
			delete(c.timers, t.name)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f.t.handler(f.t.name, f.atNs)
	}
}

// timerHeap orders pending timers by (nextFireNs, insertOrder).
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].nextFireNs != h[j].nextFireNs {
		return h[i].nextFireNs < h[j].nextFireNs
	}
	return h[i].insertOrder < h[j].insertOrder
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}
