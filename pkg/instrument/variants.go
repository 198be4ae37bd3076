package instrument

import (
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
)

// Spot is a simple cash-settled spot instrument (e.g. an exchange spot pair).
type Spot struct{ Base }

func (s Spot) Kind() Kind { return KindSpot }
func (s Spot) sealed()    {}
func (s Spot) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(s.Base, qty, price, useQuoteForInverse)
}
func (s Spot) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(s.Base, qty, lastPx)
}

// CurrencyPair is an FX spot pair (e.g. EUR/USD).
type CurrencyPair struct{ Base }

func (c CurrencyPair) Kind() Kind { return KindCurrencyPair }
func (c CurrencyPair) sealed()    {}
func (c CurrencyPair) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(c.Base, qty, price, useQuoteForInverse)
}
func (c CurrencyPair) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(c.Base, qty, lastPx)
}

// CryptoPerpetual is a perpetual swap with a funding mechanism external to
// the core (funding payments are adapter-side execution reports).
type CryptoPerpetual struct {
	Base
}

func (c CryptoPerpetual) Kind() Kind { return KindCryptoPerpetual }
func (c CryptoPerpetual) sealed()    {}
func (c CryptoPerpetual) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(c.Base, qty, price, useQuoteForInverse)
}
func (c CryptoPerpetual) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(c.Base, qty, lastPx)
}

// CryptoFuture is a dated, deliverable or cash-settled crypto future.
type CryptoFuture struct {
	Base
	ExpirationNs int64
	ActivationNs int64
}

func (c CryptoFuture) Kind() Kind { return KindCryptoFuture }
func (c CryptoFuture) sealed()    {}
func (c CryptoFuture) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(c.Base, qty, price, useQuoteForInverse)
}
func (c CryptoFuture) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(c.Base, qty, lastPx)
}

// FuturesContract is a traditional (non-crypto) dated futures contract.
type FuturesContract struct {
	Base
	ExpirationNs int64
	ActivationNs int64
	Underlying   string
}

func (f FuturesContract) Kind() Kind { return KindFuturesContract }
func (f FuturesContract) sealed()    {}
func (f FuturesContract) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(f.Base, qty, price, useQuoteForInverse)
}
func (f FuturesContract) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(f.Base, qty, lastPx)
}

// SpreadLeg is one leg of a calendar/inter-product spread: a ratio of 1
// means buy the spread buys one unit of Instrument, -1 means it sells it.
type SpreadLeg struct {
	Instrument ident.InstrumentId
	Ratio      int
}

// FuturesSpread combines two or more FuturesContract legs into one
// tradable instrument; notional is computed against the spread's own
// synthetic multiplier/quote currency, legs are informational for order
// routing by the execution engine, not reaggregated here.
type FuturesSpread struct {
	Base
	Legs []SpreadLeg
}

func (f FuturesSpread) Kind() Kind { return KindFuturesSpread }
func (f FuturesSpread) sealed()    {}
func (f FuturesSpread) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(f.Base, qty, price, useQuoteForInverse)
}
func (f FuturesSpread) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(f.Base, qty, lastPx)
}

type OptionKind int

const (
	OptionKindCall OptionKind = iota
	OptionKindPut
)

// OptionsContract is a single-leg option.
type OptionsContract struct {
	Base
	Strike       num.Price
	OptionKind   OptionKind
	ExpirationNs int64
	ActivationNs int64
	Underlying   string
}

func (o OptionsContract) Kind() Kind { return KindOptionsContract }
func (o OptionsContract) sealed()    {}
func (o OptionsContract) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(o.Base, qty, price, useQuoteForInverse)
}
func (o OptionsContract) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(o.Base, qty, lastPx)
}

// OptionsSpread is a multi-leg option combination (vertical, straddle, …).
type OptionsSpread struct {
	Base
	Legs []SpreadLeg
}

func (o OptionsSpread) Kind() Kind { return KindOptionsSpread }
func (o OptionsSpread) sealed()    {}
func (o OptionsSpread) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(o.Base, qty, price, useQuoteForInverse)
}
func (o OptionsSpread) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(o.Base, qty, lastPx)
}

// Equity is a listed equity/ETF share.
type Equity struct {
	Base
	ISIN string
}

func (e Equity) Kind() Kind { return KindEquity }
func (e Equity) sealed()    {}
func (e Equity) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(e.Base, qty, price, useQuoteForInverse)
}
func (e Equity) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(e.Base, qty, lastPx)
}

// SyntheticComponent weights one leg of a Synthetic instrument's formula.
type SyntheticComponent struct {
	Instrument ident.InstrumentId
	Weight     int // signed ratio; a basket of 2 BTC - 1 ETH is {BTC:2, ETH:-1}
}

// Synthetic is a locally-defined instrument computed from component
// instruments (no venue order routing; useful as a strategy-internal
// pricing construct). It still satisfies Instrument so it can live in the
// same cache maps and order books as venue instruments.
type Synthetic struct {
	Base
	Components []SyntheticComponent
	Formula    string
}

func (s Synthetic) Kind() Kind { return KindSynthetic }
func (s Synthetic) sealed()    {}
func (s Synthetic) CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	return calculateNotionalValue(s.Base, qty, price, useQuoteForInverse)
}
func (s Synthetic) CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity {
	return calculateBaseQuantity(s.Base, qty, lastPx)
}
