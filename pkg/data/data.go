// Package data implements the data engine core: subscription
// multiplexing with refcounted upstream teardown, time/tick/volume bar
// aggregation in event time, and backfill-on-subscribe with monotonic
// dedup by (ts_event, sequence).
package data

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/marketdata"
)

// Kind names one of the data streams the data client boundary lists.
type Kind int

const (
	KindInstrument Kind = iota
	KindQuote
	KindTrade
	KindBar
	KindOrderBookDelta
	KindDepth10
	KindMarkPrice
	KindIndexPrice
	KindInstrumentClose
)

// SubscriptionKey identifies one upstream stream. BarSpec is only
// meaningful when Kind is KindBar.
type SubscriptionKey struct {
	InstrumentId ident.InstrumentId
	Kind         Kind
	BarSpec      marketdata.BarSpecification
}

// Client is the adapter boundary: the engine subscribes/unsubscribes by
// kind and may request a bounded historical backfill. Actual network I/O
// lives in the adapter; these calls return once the adapter has queued
// (Subscribe/Unsubscribe) or fetched (RequestHistorical) the work, so
// the core never holds an adapter lock.
type Client interface {
	Subscribe(key SubscriptionKey) error
	Unsubscribe(key SubscriptionKey) error
	RequestHistorical(key SubscriptionKey, fromTsEvent, toTsEvent int64) ([]any, error)
}

type dedupKey struct {
	instrumentId ident.InstrumentId
	kind         Kind
}

type dedupState struct {
	tsEvent  int64
	sequence uint64
}

// Engine owns upstream subscriptions on behalf of however many local
// consumers want the same stream, fans each update out to the bus and
// the cache, and builds bars from the trade stream it ingests.
type Engine struct {
	mu     sync.Mutex
	client Client
	bus    *bus.Bus
	cache  *cache.Cache

	refcounts   map[SubscriptionKey]int
	dedup       map[dedupKey]dedupState
	barBuilders map[SubscriptionKey]*barBuilder
}

func New(client Client, b *bus.Bus, c *cache.Cache) *Engine {
	return &Engine{
		client:      client,
		bus:         b,
		cache:       c,
		refcounts:   make(map[SubscriptionKey]int),
		dedup:       make(map[dedupKey]dedupState),
		barBuilders: make(map[SubscriptionKey]*barBuilder),
	}
}

// Subscribe registers interest in key. Only the first subscriber for a
// given key triggers an upstream Subscribe call; if backfill is
// requested, the historical response is stitched in ahead of the live
// stream via the same dedup path.
func (e *Engine) Subscribe(key SubscriptionKey, backfill bool, fromTsEvent, toTsEvent int64) error {
	e.mu.Lock()
	count := e.refcounts[key]
	e.refcounts[key] = count + 1
	if key.Kind == KindBar {
		if _, ok := e.barBuilders[key]; !ok {
			e.barBuilders[key] = newBarBuilder(key.InstrumentId, key.BarSpec)
		}
	}
	e.mu.Unlock()

	if count == 0 {
		if err := e.client.Subscribe(key); err != nil {
			e.mu.Lock()
			e.refcounts[key]--
			e.mu.Unlock()
			return kernerr.New(kernerr.Transport, "data: upstream subscribe failed for %v: %v", key, err)
		}
	}

	if !backfill {
		return nil
	}
	items, err := e.client.RequestHistorical(key, fromTsEvent, toTsEvent)
	if err != nil {
		return kernerr.New(kernerr.Transport, "data: historical request failed for %v: %v", key, err)
	}
	for _, item := range items {
		e.ingest(key.InstrumentId, key.Kind, item)
	}
	return nil
}

// Unsubscribe releases one reference to key; the upstream Unsubscribe
// fires only when the last local subscriber drops off.
func (e *Engine) Unsubscribe(key SubscriptionKey) error {
	e.mu.Lock()
	count, ok := e.refcounts[key]
	if !ok {
		e.mu.Unlock()
		return kernerr.New(kernerr.InvalidInput, "data: unsubscribe of key %v with no active subscription", key)
	}
	count--
	if count <= 0 {
		delete(e.refcounts, key)
		delete(e.barBuilders, key)
	} else {
		e.refcounts[key] = count
	}
	e.mu.Unlock()

	if count <= 0 {
		return e.client.Unsubscribe(key)
	}
	return nil
}

// dedupAllow reports whether (tsEvent, sequence) is newer than the last
// one seen for this stream, advancing the high-water mark if so. This is
// what lets a backfill response and the live stream that follows it
// overlap without reprocessing the same event twice.
func (e *Engine) dedupAllow(instrumentId ident.InstrumentId, kind Kind, tsEvent int64, sequence uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := dedupKey{instrumentId: instrumentId, kind: kind}
	last, seen := e.dedup[k]
	if seen && (tsEvent < last.tsEvent || (tsEvent == last.tsEvent && sequence <= last.sequence)) {
		return false
	}
	e.dedup[k] = dedupState{tsEvent: tsEvent, sequence: sequence}
	return true
}

func (e *Engine) ingest(instrumentId ident.InstrumentId, kind Kind, item any) {
	switch v := item.(type) {
	case marketdata.Quote:
		e.OnQuote(v)
	case marketdata.Trade:
		e.OnTrade(v)
	default:
		log.Warn().Str("instrument_id", instrumentId.String()).Msg("data: historical item of unrecognized type dropped")
	}
}

// OnQuote ingests one top-of-book quote: dedups, updates the cache, and
// republishes on the bus for strategies subscribed to the raw stream.
func (e *Engine) OnQuote(q marketdata.Quote) {
	if !e.dedupAllow(q.InstrumentId, KindQuote, q.TsEvent, q.Sequence) {
		return
	}
	e.cache.UpdateQuote(q)
	_ = e.bus.Publish("data.quote."+q.InstrumentId.String(), q)
}

// OnTrade ingests one executed trade: dedups, updates the cache, drives
// bar aggregation, and republishes on the bus.
func (e *Engine) OnTrade(t marketdata.Trade) {
	if !e.dedupAllow(t.InstrumentId, KindTrade, t.TsEvent, t.Sequence) {
		return
	}
	e.cache.UpdateTrade(t)
	e.feedBars(t.InstrumentId, t)
	_ = e.bus.Publish("data.trade."+t.InstrumentId.String(), t)
}

func (e *Engine) feedBars(instrumentId ident.InstrumentId, t marketdata.Trade) {
	e.mu.Lock()
	builders := make([]*barBuilder, 0)
	for key, bb := range e.barBuilders {
		if key.InstrumentId == instrumentId {
			builders = append(builders, bb)
		}
	}
	e.mu.Unlock()

	for _, bb := range builders {
		if bar, closed := bb.onTrade(t); closed {
			e.cache.AddBar(bar)
			_ = e.bus.Publish("data.bar."+bar.InstrumentId.String()+"."+bar.Spec.String(), bar)
		}
	}
}
