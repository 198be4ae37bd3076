package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/clock"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"

	"github.com/gotradekernel/kernel/adapter/dataclient"
	"github.com/gotradekernel/kernel/adapter/execclient"
	"github.com/gotradekernel/kernel/adapter/metrics"
	"github.com/gotradekernel/kernel/adapter/notify"
	"github.com/gotradekernel/kernel/adapter/persistence"
)

const reconcileTimer = "reconcile"

// runLive wires every core package and adapter against a real Polymarket
// CLOB venue and runs the reactor until ctx is cancelled. Unlike demo
// mode it uses LiveClock, so timer firings happen on the clock's own
// background goroutine (pkg/clock/liveclock.go); the reconciliation
// handler registered below only ever enqueues onto the reactor's
// channels, never touching the cache itself, to preserve the core's
// single-writer rule.
func runLive(ctx context.Context, cfg Config) error {
	lc := clock.NewLiveClock()
	defer lc.Close()

	b := bus.New()
	c := cache.New()

	venue := ident.NewVenue(cfg.Venue)
	instrumentId := ident.NewInstrumentId(cfg.InstrumentId, venue)
	traderId := ident.NewTraderId(cfg.TraderId)
	accountId := ident.NewAccountId(cfg.Venue, cfg.TraderId)
	quoteCcy := num.MustCurrency("USD")

	c.AddInstrument(instrument.Spot{Base: instrument.Base{
		ID:             instrumentId,
		Class:          instrument.AssetClassAlternative,
		PricePrecision: 4,
		SizePrecision:  2,
		PriceIncrement: num.NewPriceRaw(1, 4),
		SizeIncrement:  num.NewQuantityRaw(1, 2),
		Multiplier:     num.NewQuantityRaw(1, 0),
		QuoteCurrency:  quoteCcy,
		SettlementCcy:  quoteCcy,
	}})
	c.AddAccount(account.NewCashAccount(accountId))

	clientOrderIds := ident.NewClientOrderIdGenerator(traderId, ident.NewStrategyId(cfg.StrategyName, "live"), 0, lc.NowNs)
	positionIds := ident.NewPositionIdGenerator()

	exec := execution.New(b, c, clientOrderIds, positionIds)
	dataEngine := data.New(nil, b, c)

	execClient, err := execclient.New(execclient.ConfigFromEnv())
	if err != nil {
		return err
	}
	exec.RegisterClient(venue, execClient)

	dc := dataclient.New(dataclient.ConfigFromEnv(), b, c)
	dc.SetEngine(dataEngine)
	dc.Start()
	defer dc.Stop()

	var eventLog *persistence.EventLog
	if cfg.EnablePersist {
		eventLog, err = persistence.NewEventLog()
		if err != nil {
			log.Warn().Err(err).Msg("kerneld: persistence disabled for this run")
		}
	}

	sink := metrics.NewSink(b)
	sink.Start()
	defer sink.Stop()

	var notifier *notify.Notifier
	if cfg.EnableNotify {
		ncfg, nerr := notify.ConfigFromEnv()
		if nerr != nil {
			log.Warn().Err(nerr).Msg("kerneld: notify disabled for this run")
		} else if n, nerr := notify.New(ncfg, b); nerr == nil {
			notifier = n
			notifier.Start()
			defer notifier.Stop()
		}
	}

	reactor := NewReactor(lc, dataEngine, exec)
	if eventLog != nil {
		subscribeEventLog(b, eventLog)
	}

	// Reconciliation runs on its own timer-fired goroutine (the blocking
	// HTTP call never happens on the clock's driver goroutine) and hands
	// the fetched MassStatus to the reactor over ReportCh.
	if err := lc.SetTimer(reconcileTimer, 30*time.Second, nil, nil, func(string, int64) {
		go func() {
			status, err := execClient.GenerateMassStatus()
			if err != nil {
				log.Error().Err(err).Msg("kerneld: mass-status reconciliation fetch failed")
				return
			}
			reactor.ReportCh <- execMsg{status: &status, venue: venue}
		}()
	}); err != nil {
		return err
	}

	reactor.Run(ctx)
	return nil
}

// subscribeEventLog appends every order.Event published on the bus to
// the append-only persistence log, the same bus-driven observer shape
// adapter/notify and adapter/metrics use rather than a direct call from
// inside pkg/execution. order.denied.*/order.rejected.* also carry a
// bare order.Order from SubmitOrder's own pre-flight checks; those are
// skipped here since they aren't an order.Event to append.
func subscribeEventLog(b *bus.Bus, el *persistence.EventLog) {
	b.Subscribe("order.>", func(_ string, message any) {
		ev, ok := message.(order.Event)
		if !ok {
			return
		}
		if err := el.Append(ev); err != nil {
			log.Error().Err(err).Msg("kerneld: persistence append failed")
		}
	}, 0)
}
