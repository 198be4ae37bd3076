package metrics

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/order"
)

// Sink subscribes to integrity.> and order.denied.*/order.rejected.*
// and counts what it sees into the package's Prometheus vectors. It has
// no cache access, same as adapter/notify: every field it counts comes
// off the published payload.
type Sink struct {
	mu   sync.Mutex
	bus  *bus.Bus
	subs []uuid.UUID
}

func NewSink(b *bus.Bus) *Sink {
	return &Sink{bus: b}
}

// Start subscribes to the bus. Calling Start twice is a no-op.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs) > 0 {
		return
	}

	s.subs = append(s.subs,
		s.bus.Subscribe("integrity.>", s.handleIntegrity, 0),
		s.bus.Subscribe("order.denied.*", s.handleDenied, 0),
		s.bus.Subscribe("order.rejected.*", s.handleRejected, 0),
	)
}

func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.subs = nil
}

func (s *Sink) handleIntegrity(topic string, _ any) {
	integrityWarnings.WithLabelValues(topic).Inc()
}

func (s *Sink) handleDenied(topic string, message any) {
	ordersDenied.WithLabelValues(reasonOf(message)).Inc()
}

func (s *Sink) handleRejected(topic string, message any) {
	ordersRejected.WithLabelValues(reasonOf(message)).Inc()
}

// reasonOf pulls the denial/rejection reason off an order.Order's last
// event, falling back to "unknown" for any payload shape it doesn't
// recognize (a bus subscriber degrades gracefully rather than panicking
// on an unexpected publisher).
func reasonOf(message any) string {
	o, ok := message.(order.Order)
	if !ok {
		return "unknown"
	}
	events := o.Common().Events
	if len(events) == 0 {
		return "unknown"
	}
	reason := events[len(events)-1].Reason
	if reason == "" {
		return "unknown"
	}
	return reason
}
