package num

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// Money is a (Quantity-like signed amount, Currency) pair. Arithmetic
// requires identical currency.
type Money struct {
	raw      int64
	Currency Currency
}

func NewMoneyFromString(s string, currency Currency) (Money, error) {
	raw, err := parseRaw(s, currency.Precision)
	if err != nil {
		return Money{}, err
	}
	return Money{raw: raw, Currency: currency}, nil
}

func NewMoneyRaw(raw int64, currency Currency) Money { return Money{raw: raw, Currency: currency} }

func ZeroMoney(currency Currency) Money { return Money{Currency: currency} }

func (m Money) Raw() int64     { return m.raw }
func (m Money) IsZero() bool   { return m.raw == 0 }
func (m Money) String() string { return formatRaw(m.raw, m.Currency.Precision) + " " + m.Currency.Code }
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.raw, -int32(m.Currency.Precision))
}

type moneyWire struct {
	Raw      int64    `json:"raw"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyWire{Raw: m.raw, Currency: m.Currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var w moneyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.raw, m.Currency = w.Raw, w.Currency
	return nil
}

func (m Money) mustMatch(o Money) {
	if m.Currency.Code != o.Currency.Code {
		panic(kernerr.New(kernerr.InvariantViolation, "num: currency mismatch %s vs %s", m.Currency.Code, o.Currency.Code))
	}
}

func (m Money) Add(o Money) Money { m.mustMatch(o); return Money{raw: m.raw + o.raw, Currency: m.Currency} }
func (m Money) Sub(o Money) Money { m.mustMatch(o); return Money{raw: m.raw - o.raw, Currency: m.Currency} }
func (m Money) Neg() Money        { return Money{raw: -m.raw, Currency: m.Currency} }

func (m Money) Compare(o Money) int {
	m.mustMatch(o)
	switch {
	case m.raw < o.raw:
		return -1
	case m.raw > o.raw:
		return 1
	default:
		return 0
	}
}

func (m Money) GreaterThan(o Money) bool { return m.Compare(o) > 0 }
func (m Money) LessThan(o Money) bool    { return m.Compare(o) < 0 }
func (m Money) Equal(o Money) bool       { return m.Currency.Code == o.Currency.Code && m.raw == o.raw }

// MoneyFromDecimal is the Money analog of PriceFromDecimal/
// QuantityFromDecimal, for amounts computed in decimal space (equity
// fractions, percentage thresholds) that need to come back into
// fixed-point Money.
func MoneyFromDecimal(d decimal.Decimal, currency Currency) Money {
	return Money{raw: d.Shift(int32(currency.Precision)).Round(0).IntPart(), Currency: currency}
}
