package ident

import (
	"fmt"
	"strings"
)

// Venue is an interned market/exchange code, e.g. "BINANCE".
type Venue struct{ Symbol }

func NewVenue(code string) Venue { return Venue{Intern(code)} }

// InstrumentId is SYMBOL.VENUE: parsing requires exactly one '.'
// separator with non-empty sides.
type InstrumentId struct{ Symbol }

func NewInstrumentId(symbol string, venue Venue) InstrumentId {
	return InstrumentId{Intern(symbol + "." + venue.String())}
}

// ParseInstrumentId parses "SYMBOL.VENUE".
func ParseInstrumentId(s string) (InstrumentId, error) {
	i := strings.IndexByte(s, '.')
	if i <= 0 || i == len(s)-1 || strings.IndexByte(s[i+1:], '.') >= 0 {
		return InstrumentId{}, fmt.Errorf("ident: invalid instrument id %q: want exactly one non-empty '.' separated SYMBOL.VENUE", s)
	}
	return InstrumentId{Intern(s)}, nil
}

// Parts splits back into symbol and venue.
func (id InstrumentId) Parts() (symbol string, venue Venue) {
	s := id.String()
	i := strings.IndexByte(s, '.')
	return s[:i], NewVenue(s[i+1:])
}

// AccountId is ISSUER-ACCT: parsing requires exactly one '-' separator.
type AccountId struct{ Symbol }

func NewAccountId(issuer, issuerAccount string) AccountId {
	return AccountId{Intern(issuer + "-" + issuerAccount)}
}

func ParseAccountId(s string) (AccountId, error) {
	i := strings.IndexByte(s, '-')
	if i <= 0 || i == len(s)-1 || strings.IndexByte(s[i+1:], '-') >= 0 {
		return AccountId{}, fmt.Errorf("ident: invalid account id %q: want exactly one non-empty '-' separated ISSUER-ACCT", s)
	}
	return AccountId{Intern(s)}, nil
}

// StrategyId is NAME-TAG or the literal EXTERNAL.
type StrategyId struct{ Symbol }

const externalStrategyText = "EXTERNAL"

func NewStrategyId(name, tag string) StrategyId {
	return StrategyId{Intern(name + "-" + tag)}
}

// ExternalStrategyId marks orders synthesized by reconciliation rather
// than submitted by a known strategy.
func ExternalStrategyId() StrategyId {
	return StrategyId{Intern(externalStrategyText)}
}

func (id StrategyId) IsExternal() bool {
	return id.String() == externalStrategyText
}

func ParseStrategyId(s string) (StrategyId, error) {
	if s == externalStrategyText {
		return StrategyId{Intern(s)}, nil
	}
	i := strings.IndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return StrategyId{}, fmt.Errorf("ident: invalid strategy id %q: want NAME-TAG or %q", s, externalStrategyText)
	}
	return StrategyId{Intern(s)}, nil
}

// TraderId identifies the trader/node running the kernel.
type TraderId struct{ Symbol }

func NewTraderId(s string) TraderId { return TraderId{Intern(s)} }

// ClientOrderId is assigned locally by the order id generator.
type ClientOrderId struct{ Symbol }

func NewClientOrderId(s string) ClientOrderId { return ClientOrderId{Intern(s)} }

// VenueOrderId is assigned by the venue and captured on first Accepted.
type VenueOrderId struct{ Symbol }

func NewVenueOrderId(s string) VenueOrderId { return VenueOrderId{Intern(s)} }

// TradeId identifies one execution/fill.
type TradeId struct{ Symbol }

func NewTradeId(s string) TradeId { return TradeId{Intern(s)} }

// PositionId identifies one position, e.g. "P-BTCUSDT.BINANCE-1" or its
// flipped continuation "P-BTCUSDT.BINANCE-2F".
type PositionId struct{ Symbol }

func NewPositionId(s string) PositionId { return PositionId{Intern(s)} }

// ExecAlgorithmId names a registered execution algorithm (TWAP, etc.).
type ExecAlgorithmId struct{ Symbol }

func NewExecAlgorithmId(s string) ExecAlgorithmId { return ExecAlgorithmId{Intern(s)} }

// ClientId names a registered data/execution client (venue adapter).
type ClientId struct{ Symbol }

func NewClientId(s string) ClientId { return ClientId{Intern(s)} }
