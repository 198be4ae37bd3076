package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/clock"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"

	"github.com/gotradekernel/kernel/adapter/metrics"
	"github.com/gotradekernel/kernel/adapter/notify"
	"github.com/gotradekernel/kernel/adapter/riskengine"
)

// demoEvent is one line of the canned backtest-style event file: data
// events and timer fires merged by ts_event.
type demoEvent struct {
	TsEventNs int64  `json:"ts_event_ns"`
	Type      string `json:"type"` // "trade" or "submit_order"
	Price     string `json:"price,omitempty"`
	Size      string `json:"size,omitempty"`
	Side      string `json:"side,omitempty"` // submit_order only: "buy"/"sell"
	StopLoss  string `json:"stop_loss,omitempty"`
}

func loadDemoEvents(path string) ([]demoEvent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var events []demoEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].TsEventNs < events[j].TsEventNs })
	return events, nil
}

// runDemo replays a canned event file through the whole kernel on a
// TestClock: the driver advances
// the clock to each event's ts_event (firing any timers due at or
// before that time first, in order), then applies the event. Everything
// runs on this single goroutine, so no adapter synchronization is
// needed the way the live reactor's channels provide it.
func runDemo(cfg Config) error {
	events, err := loadDemoEvents(cfg.DemoEventsPath)
	if err != nil {
		return err
	}

	tc := clock.NewTestClock()
	b := bus.New()
	c := cache.New()

	venue := ident.NewVenue(cfg.Venue)
	instrumentId := ident.NewInstrumentId(cfg.InstrumentId, venue)
	traderId := ident.NewTraderId(cfg.TraderId)
	strategyId := ident.NewStrategyId(cfg.StrategyName, "demo")
	accountId := ident.NewAccountId(cfg.Venue, cfg.TraderId)
	quoteCcy := num.MustCurrency("USD")

	inst := instrument.Spot{Base: instrument.Base{
		ID:             instrumentId,
		Class:          instrument.AssetClassAlternative,
		PricePrecision: 4,
		SizePrecision:  2,
		PriceIncrement: num.NewPriceRaw(1, 4),
		SizeIncrement:  num.NewQuantityRaw(1, 2),
		Multiplier:     num.NewQuantityRaw(1, 0),
		QuoteCurrency:  quoteCcy,
		SettlementCcy:  quoteCcy,
	}}
	c.AddInstrument(inst)

	acct := account.NewCashAccount(accountId)
	startEquity := num.NewMoneyRaw(1_000_000, quoteCcy) // $10,000.00
	bal, err := account.NewBalance(startEquity, num.NewMoneyRaw(0, quoteCcy), startEquity)
	if err != nil {
		return err
	}
	acct.UpdateBalance(quoteCcy.Code, bal, 0)
	c.AddAccount(acct)

	clientOrderIds := ident.NewClientOrderIdGenerator(traderId, strategyId, 0, tc.NowNs)
	positionIds := ident.NewPositionIdGenerator()

	exec := execution.New(b, c, clientOrderIds, positionIds)
	reportCh := make(chan order.Event, 64)
	sim := newSimVenue(reportCh, quoteCcy)
	exec.RegisterClient(venue, sim)

	dataEngine := data.New(nil, b, c)
	risk := riskengine.NewEngine(riskengine.DefaultConfig())

	notifier, notifyErr := startNotifier(cfg, b)
	if notifyErr != nil {
		log.Warn().Err(notifyErr).Msg("kerneld: notify disabled for this demo run")
	}
	sink := metrics.NewSink(b)
	sink.Start()
	defer sink.Stop()
	if notifier != nil {
		defer notifier.Stop()
	}

	openPositions := 0

	for _, ev := range events {
		for _, fired := range tc.AdvanceTo(ev.TsEventNs, true) {
			fired.Fire()
		}

		switch ev.Type {
		case "trade":
			price, perr := num.NewPriceFromString(ev.Price, inst.PricePrecision)
			size, serr := num.NewQuantityFromString(ev.Size, inst.SizePrecision)
			if perr != nil || serr != nil {
				log.Warn().Str("event", ev.Type).Msg("kerneld: dropping malformed demo trade event")
				continue
			}
			sim.setLastPrice(instrumentId, price)
			trade := marketdata.Trade{
				InstrumentId:  instrumentId,
				TradeId:       ident.NewTradeId(fmt.Sprintf("DEMO-%d", ev.TsEventNs)),
				Price:         price,
				Size:          size,
				AggressorSide: aggressorFromSide(ev.Side),
				TsEvent:       ev.TsEventNs,
				TsInit:        ev.TsEventNs,
			}
			dataEngine.OnTrade(trade)

		case "submit_order":
			side := enum.SideBuy
			if ev.Side == "sell" {
				side = enum.SideSell
			}
			entry, perr := num.NewPriceFromString(ev.Price, inst.PricePrecision)
			if perr != nil {
				log.Warn().Msg("kerneld: submit_order event missing a price, skipping")
				continue
			}
			var stop *num.Price
			if ev.StopLoss != "" {
				if sl, serr := num.NewPriceFromString(ev.StopLoss, inst.PricePrecision); serr == nil {
					stop = &sl
				}
			}

			clientOrderId := clientOrderIds.Generate()
			balance, _ := acct.Balance(quoteCcy.Code)
			decision := risk.Evaluate(riskengine.Request{
				ClientOrderId:            clientOrderId,
				InstrumentId:             instrumentId,
				Entry:                    entry,
				StopLoss:                 stop,
				Equity:                   balance.Free,
				OpenPositions:            openPositions,
				HasOpenForSameInstrument: false,
				QuantityPrecision:        inst.SizePrecision,
				TsEvent:                  ev.TsEventNs,
			})
			if !decision.Approved {
				log.Info().Str("reason", decision.Reason).Msg("kerneld: demo order denied by risk engine")
				continue
			}

			o := order.NewMarketOrder(clientOrderId, strategyId, instrumentId, side, decision.Size, ev.TsEventNs)
			if err := exec.SubmitOrder(o, accountId, ev.TsEventNs); err != nil {
				log.Error().Err(err).Msg("kerneld: demo order submission failed")
				continue
			}
			openPositions++

		default:
			log.Warn().Str("type", ev.Type).Msg("kerneld: unrecognized demo event type")
		}

		drainReports(reportCh, exec)
	}
	drainReports(reportCh, exec)

	for _, id := range c.PositionsOpen() {
		if p, ok := c.Position(id); ok {
			log.Info().Str("position_id", id.String()).Str("side", p.Side.String()).Msg("kerneld: open position at end of demo run")
		}
	}
	return nil
}

// drainReports applies every report the simulated venue has queued so
// far. It is called from the same single goroutine that submitted the
// orders, so this mirrors the live reactor's ReportCh drain without
// needing an actual second goroutine in backtest mode.
func drainReports(reportCh chan order.Event, exec *execution.Engine) {
	for {
		select {
		case ev := <-reportCh:
			exec.OnOrderEvent(ev)
		default:
			return
		}
	}
}

func aggressorFromSide(side string) enum.AggressorSide {
	if side == "sell" {
		return enum.AggressorSeller
	}
	return enum.AggressorBuyer
}

func startNotifier(cfg Config, b *bus.Bus) (*notify.Notifier, error) {
	if !cfg.EnableNotify {
		return nil, nil
	}
	ncfg, err := notify.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	n, err := notify.New(ncfg, b)
	if err != nil {
		return nil, err
	}
	n.Start()
	return n, nil
}
