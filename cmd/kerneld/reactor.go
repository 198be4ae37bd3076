package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/clock"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/order"
)

// execMsg is either an order.Event from a venue's live stream or a
// MassStatus snapshot from a reconciliation poll; both drive the
// execution engine but through different entry points, so the reactor's
// single "inbound execution-report channel" carries either shape (spec
// §5).
type execMsg struct {
	event  *order.Event
	status *execution.MassStatus
	venue  ident.Venue
}

// dataMsg is one live market data event queued from an adapter goroutine
// for the reactor to apply, rather than the adapter mutating the data
// engine itself.
type dataMsg struct {
	quote *marketdata.Quote
	trade *marketdata.Trade
}

// Reactor is the single-threaded core loop: it owns every cache
// read/write, bus publication, and engine mutation, draining
// whichever of its four inbound sources is ready. It reads the clock
// but never advances it.
type Reactor struct {
	Clock      clock.Clock
	DataEngine *data.Engine
	Exec       *execution.Engine

	DataCh   chan dataMsg
	ReportCh chan execMsg
	CmdCh    chan Command
}

func NewReactor(c clock.Clock, de *data.Engine, ee *execution.Engine) *Reactor {
	return &Reactor{
		Clock:      c,
		DataEngine: de,
		Exec:       ee,
		DataCh:     make(chan dataMsg, 256),
		ReportCh:   make(chan execMsg, 256),
		CmdCh:      make(chan Command, 64),
	}
}

// Run blocks until ctx is cancelled. It is meant to run on its own
// goroutine with every adapter task (websocket reader, Telegram sender,
// persistence writer) on goroutines of their own, communicating with the
// reactor only through DataCh/ReportCh/CmdCh.
func (r *Reactor) Run(ctx context.Context) {
	for {
		var wake <-chan time.Time
		if atNs, ok := r.Clock.NextEventTimeNs(); ok {
			d := time.Duration(atNs-r.Clock.NowNs()) * time.Nanosecond
			if d < 0 {
				d = 0
			}
			wake = time.After(d)
		}

		select {
		case <-ctx.Done():
			return

		case m := <-r.DataCh:
			r.handleData(m)

		case m := <-r.ReportCh:
			r.handleReport(m)

		case cmd := <-r.CmdCh:
			if err := cmd.Apply(r.Exec, r.Clock.NowNs()); err != nil {
				log.Error().Err(err).Msg("kerneld: command rejected")
			}

		case <-wake:
			// Nothing to drain here directly: LiveClock fires its own
			// timers on its own goroutine via the Handler callbacks
			// registered with SetTimer/SetTimeAlert, which themselves
			// enqueue onto DataCh/ReportCh/CmdCh to stay on the reactor
			// thread. This case exists purely to re-evaluate the next
			// deadline after a timer firing changes it.
		}
	}
}

func (r *Reactor) handleData(m dataMsg) {
	switch {
	case m.quote != nil:
		r.DataEngine.OnQuote(*m.quote)
	case m.trade != nil:
		r.DataEngine.OnTrade(*m.trade)
	}
}

func (r *Reactor) handleReport(m execMsg) {
	switch {
	case m.event != nil:
		r.Exec.OnOrderEvent(*m.event)
	case m.status != nil:
		if err := r.Exec.Reconcile(m.venue, *m.status, r.Clock.NowNs()); err != nil {
			log.Error().Err(err).Str("venue", m.venue.String()).Msg("kerneld: reconciliation failed")
		}
	}
}
