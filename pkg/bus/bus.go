// Package bus implements the in-process topic-routed message bus of spec
// §4.6: dot-separated topic patterns with `*`/`>` wildcards, priority-
// then-insertion-order synchronous delivery, re-entrancy detection, and
// UUID-correlated request/response with timeout-based unmatched-response
// dropping.
package bus

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// Handler receives a delivered message along with the topic it matched.
type Handler func(topic string, message any)

// EndpointHandler services a Request; it completes asynchronously by
// calling Bus.Respond with the same correlation id.
type EndpointHandler func(correlationId uuid.UUID, payload any)

// OnResponse is invoked exactly once per Request: either with the
// endpoint's response, or with ErrRequestTimeout once the caller's
// deadline passes unanswered.
type OnResponse func(response any, err error)

type subscription struct {
	id       uuid.UUID
	segments []string
	handler  Handler
	priority int
}

type pendingRequest struct {
	onResponse      OnResponse
	deadlineTsEvent int64
}

// Bus is single-address-space, in-process, and synchronous: Publish
// calls every matching handler inline, in descending priority then
// subscribe order, before returning.
type Bus struct {
	mu   sync.Mutex
	subs []*subscription

	activeTopics map[string]bool // re-entrancy guard: topics currently mid-Publish

	endpoints map[string]EndpointHandler
	pending   map[uuid.UUID]*pendingRequest
}

func New() *Bus {
	return &Bus{
		activeTopics: make(map[string]bool),
		endpoints:    make(map[string]EndpointHandler),
		pending:      make(map[uuid.UUID]*pendingRequest),
	}
}

func splitTopic(topic string) []string { return strings.Split(topic, ".") }

// matches reports whether a subscription pattern's segments match a
// published topic's segments. `*` matches exactly one segment; `>`
// matches one or more trailing segments and must be the pattern's last.
func matches(pattern, topic []string) bool {
	i := 0
	for i < len(pattern) {
		seg := pattern[i]
		if seg == ">" {
			return i < len(topic)
		}
		if i >= len(topic) {
			return false
		}
		if seg != "*" && seg != topic[i] {
			return false
		}
		i++
	}
	return i == len(topic)
}

// Subscribe registers handler for every topic matching pattern, at the
// given priority, returning a handle for Unsubscribe. Go func values
// aren't comparable, so unsubscribing by (pattern, handler) isn't an
// option here; identity is the handle Subscribe hands back instead.
func (b *Bus) Subscribe(pattern string, handler Handler, priority int) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.subs = append(b.subs, &subscription{id: id, segments: splitTopic(pattern), handler: handler, priority: priority})
	return id
}

func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers message to every subscription whose pattern matches
// topic, in descending priority then subscribe order. Re-entrant
// publication of the same topic from within one of its own handlers is
// rejected rather than allowed to recurse.
func (b *Bus) Publish(topic string, message any) error {
	b.mu.Lock()
	if b.activeTopics[topic] {
		b.mu.Unlock()
		return kernerr.New(kernerr.InvariantViolation, "bus: re-entrant publish of topic %q", topic)
	}
	b.activeTopics[topic] = true

	topicSegs := splitTopic(topic)
	matched := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if matches(s.segments, topicSegs) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].priority > matched[j].priority })
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.activeTopics, topic)
		b.mu.Unlock()
	}()

	for _, s := range matched {
		s.handler(topic, message)
	}
	return nil
}

func (b *Bus) RegisterEndpoint(name string, handler EndpointHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[name] = handler
}

func (b *Bus) DeregisterEndpoint(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.endpoints, name)
}

// Request dispatches payload to endpoint's handler under a fresh
// correlation id and tracks it until onResponse fires via Respond, or
// until ExpirePendingRequests observes tsNow+timeoutNs has passed.
func (b *Bus) Request(endpoint string, payload any, tsNow, timeoutNs int64, onResponse OnResponse) (uuid.UUID, error) {
	b.mu.Lock()
	handler, ok := b.endpoints[endpoint]
	if !ok {
		b.mu.Unlock()
		return uuid.Nil, kernerr.New(kernerr.NotFound, "bus: no endpoint registered for %q", endpoint)
	}
	correlationId := uuid.New()
	b.pending[correlationId] = &pendingRequest{onResponse: onResponse, deadlineTsEvent: tsNow + timeoutNs}
	b.mu.Unlock()

	handler(correlationId, payload)
	return correlationId, nil
}

// Respond routes an endpoint's response back to the originating
// Request's onResponse. A correlation id that isn't pending (already
// answered, or expired) is logged and dropped.
func (b *Bus) Respond(correlationId uuid.UUID, response any, err error) {
	b.mu.Lock()
	p, ok := b.pending[correlationId]
	if ok {
		delete(b.pending, correlationId)
	}
	b.mu.Unlock()

	if !ok {
		log.Warn().Str("correlation_id", correlationId.String()).Msg("bus: response for unknown or expired correlation id dropped")
		return
	}
	p.onResponse(response, err)
}

// ErrRequestTimeout is passed to onResponse when a request's deadline
// passes with no matching Respond call.
var ErrRequestTimeout = kernerr.New(kernerr.Transport, "bus: request timed out with no response")

// ExpirePendingRequests drops every pending request whose deadline is at
// or before nowTsEvent, calling its onResponse with ErrRequestTimeout.
// The bus never calls it itself: expiry happens only when a caller
// passes in the current event time.
func (b *Bus) ExpirePendingRequests(nowTsEvent int64) {
	b.mu.Lock()
	var expired []*pendingRequest
	for id, p := range b.pending {
		if p.deadlineTsEvent <= nowTsEvent {
			expired = append(expired, p)
			delete(b.pending, id)
		}
	}
	b.mu.Unlock()

	for _, p := range expired {
		log.Error().Msg("bus: request timed out with no response")
		p.onResponse(nil, ErrRequestTimeout)
	}
}
