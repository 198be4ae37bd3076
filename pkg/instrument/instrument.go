// Package instrument implements the polymorphic instrument variants:
// Spot, CurrencyPair, CryptoPerpetual, CryptoFuture, FuturesContract,
// FuturesSpread, OptionsContract, OptionsSpread, Equity, Synthetic.
// Each variant is a distinct Go type embedding Base and
// implementing the Instrument interface; the interface's unexported
// sealing method keeps the variant set closed to this package, so a
// switch over Kind() that ends in a default panic is exhaustive in
// practice the way a Rust match over a closed enum would be.
package instrument

import (
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

type AssetClass int

const (
	AssetClassFX AssetClass = iota
	AssetClassEquity
	AssetClassCommodity
	AssetClassMetal
	AssetClassEnergy
	AssetClassBond
	AssetClassIndex
	AssetClassCrypto
	AssetClassAlternative
)

type Kind int

const (
	KindSpot Kind = iota
	KindCurrencyPair
	KindCryptoPerpetual
	KindCryptoFuture
	KindFuturesContract
	KindFuturesSpread
	KindOptionsContract
	KindOptionsSpread
	KindEquity
	KindSynthetic
)

func (k Kind) String() string {
	switch k {
	case KindSpot:
		return "Spot"
	case KindCurrencyPair:
		return "CurrencyPair"
	case KindCryptoPerpetual:
		return "CryptoPerpetual"
	case KindCryptoFuture:
		return "CryptoFuture"
	case KindFuturesContract:
		return "FuturesContract"
	case KindFuturesSpread:
		return "FuturesSpread"
	case KindOptionsContract:
		return "OptionsContract"
	case KindOptionsSpread:
		return "OptionsSpread"
	case KindEquity:
		return "Equity"
	case KindSynthetic:
		return "Synthetic"
	default:
		return "Unknown"
	}
}

// Base carries the attributes common to every instrument variant.
type Base struct {
	ID               ident.InstrumentId
	Class            AssetClass
	PricePrecision   uint8
	SizePrecision    uint8
	PriceIncrement   num.Price
	SizeIncrement    num.Quantity
	Multiplier       num.Quantity
	LotSize          *num.Quantity
	MinQuantity      *num.Quantity
	MaxQuantity      *num.Quantity
	MinPrice         *num.Price
	MaxPrice         *num.Price
	QuoteCurrency    num.Currency
	BaseCcy          *num.Currency // nil for non-inverse-capable/settled-in-quote instruments
	SettlementCcy    num.Currency
	Inverse          bool
	MakerFee         decimal.Decimal
	TakerFee         decimal.Decimal
	MarginInit       decimal.Decimal
	MarginMaint      decimal.Decimal
	TsEvent          int64
	TsInit           int64
}

// Instrument is the closed set of variant behaviors. The unexported
// method seals the interface to this package.
type Instrument interface {
	Kind() Kind
	Common() Base
	IsInverse() bool
	CalculateNotionalValue(qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money
	CalculateBaseQuantity(qty num.Quantity, lastPx num.Price) num.Quantity
	sealed()
}

func (b Base) Common() Base     { return b }
func (b Base) IsInverse() bool  { return b.Inverse }

// calculateNotionalValue is shared by every variant; grounded on the
// source instrument trait's default (see original_source instruments/mod.rs).
func calculateNotionalValue(b Base, qty num.Quantity, price num.Price, useQuoteForInverse bool) num.Money {
	if b.Inverse {
		if useQuoteForInverse {
			return num.NewMoneyRaw(num.QuantityFromDecimal(qty.Decimal(), b.QuoteCurrency.Precision).Raw(), b.QuoteCurrency)
		}
		if b.BaseCcy == nil {
			panic(kernerr.New(kernerr.InvariantViolation, "instrument: %s is inverse but has no base currency", b.ID.String()))
		}
		amount := qty.Decimal().Mul(b.Multiplier.Decimal()).Div(price.Decimal())
		return num.NewMoneyRaw(num.QuantityFromDecimal(amount, b.BaseCcy.Precision).Raw(), *b.BaseCcy)
	}
	amount := qty.Decimal().Mul(b.Multiplier.Decimal()).Mul(price.Decimal())
	return num.NewMoneyRaw(num.QuantityFromDecimal(amount, b.QuoteCurrency.Precision).Raw(), b.QuoteCurrency)
}

// calculateBaseQuantity returns the equivalent base-asset quantity.
func calculateBaseQuantity(b Base, qty num.Quantity, lastPx num.Price) num.Quantity {
	value := qty.Decimal().Div(lastPx.Decimal())
	return num.QuantityFromDecimal(value, b.SizePrecision)
}

