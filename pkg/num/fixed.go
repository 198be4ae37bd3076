package num

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/kernerr"
)

// MaxPrecision is the compile-time precision budget.
const MaxPrecision uint8 = 9

var pow10 = [MaxPrecision + 1]int64{
	1, 10, 100, 1_000, 10_000, 100_000,
	1_000_000, 10_000_000, 100_000_000, 1_000_000_000,
}

func scale(precision uint8) int64 {
	if precision > MaxPrecision {
		panic(fmt.Sprintf("num: precision %d exceeds budget of %d", precision, MaxPrecision))
	}
	return pow10[precision]
}

// parseRaw converts a canonical decimal string (no hex/scientific forms)
// into raw integer ticks at the given precision without ever going
// through float64.
func parseRaw(s string, precision uint8) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, kernerr.New(kernerr.InvalidInput, "num: empty numeric string")
	}
	if strings.ContainsAny(s, "xXeE") {
		return 0, kernerr.New(kernerr.InvalidInput, "num: hex/scientific notation forbidden: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, kernerr.Wrap(kernerr.InvalidInput, err, "num: invalid decimal %q", s)
	}
	shifted := d.Shift(int32(precision))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, kernerr.New(kernerr.InvalidInput, "num: %q has more than %d fractional digits", s, precision)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, kernerr.New(kernerr.InvalidInput, "num: %q overflows int64 at precision %d", s, precision)
	}
	return shifted.IntPart(), nil
}

func formatRaw(raw int64, precision uint8) string {
	return decimal.New(raw, -int32(precision)).StringFixed(int32(precision))
}

// Price is an integer-backed fixed-point price at a per-instance decimal
// precision. The zero value is 0 at precision 0.
type Price struct {
	raw       int64
	precision uint8
}

func NewPriceFromString(s string, precision uint8) (Price, error) {
	raw, err := parseRaw(s, precision)
	if err != nil {
		return Price{}, err
	}
	return Price{raw: raw, precision: precision}, nil
}

// NewPriceRaw constructs a Price directly from raw ticks; used internally
// where the value is already known to be exact (e.g. book re-normalization).
func NewPriceRaw(raw int64, precision uint8) Price { return Price{raw: raw, precision: precision} }

func (p Price) Raw() int64        { return p.raw }
func (p Price) Precision() uint8  { return p.precision }
func (p Price) IsZero() bool      { return p.raw == 0 }
func (p Price) String() string    { return formatRaw(p.raw, p.precision) }
func (p Price) Decimal() decimal.Decimal { return decimal.New(p.raw, -int32(p.precision)) }

type fixedWire struct {
	Raw       int64 `json:"raw"`
	Precision uint8 `json:"precision"`
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(fixedWire{Raw: p.raw, Precision: p.precision})
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var w fixedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.raw, p.precision = w.Raw, w.Precision
	return nil
}

func (p Price) mustMatch(o Price) {
	if p.precision != o.precision {
		panic(kernerr.New(kernerr.InvariantViolation, "num: price precision mismatch %d vs %d", p.precision, o.precision))
	}
}

func (p Price) Add(o Price) Price { p.mustMatch(o); return Price{raw: p.raw + o.raw, precision: p.precision} }
func (p Price) Sub(o Price) Price { p.mustMatch(o); return Price{raw: p.raw - o.raw, precision: p.precision} }
func (p Price) Neg() Price         { return Price{raw: -p.raw, precision: p.precision} }
func (p Price) Abs() Price {
	if p.raw < 0 {
		return p.Neg()
	}
	return p
}

func (p Price) Compare(o Price) int {
	p.mustMatch(o)
	switch {
	case p.raw < o.raw:
		return -1
	case p.raw > o.raw:
		return 1
	default:
		return 0
	}
}

func (p Price) Less(o Price) bool         { return p.Compare(o) < 0 }
func (p Price) LessEq(o Price) bool       { return p.Compare(o) <= 0 }
func (p Price) Greater(o Price) bool      { return p.Compare(o) > 0 }
func (p Price) GreaterEq(o Price) bool    { return p.Compare(o) >= 0 }
func (p Price) Equal(o Price) bool        { return p.precision == o.precision && p.raw == o.raw }

// MulRaw multiplies two fixed-point raw values. The result's precision is
// the sum of both inputs' precisions and MUST be re-normalized by the
// caller via Renormalize before further use.
type RawProduct struct {
	Raw       int64
	Precision uint8
}

func (p Price) MulRaw(q Quantity) RawProduct {
	hi, lo := bitsMul64(p.raw, q.raw)
	if hi != 0 && hi != -1 {
		panic(kernerr.New(kernerr.InvariantViolation, "num: price*quantity overflow"))
	}
	return RawProduct{Raw: lo, Precision: p.precision + q.precision}
}

// Renormalize rescales a raw product down to targetPrecision, truncating
// any excess fractional ticks; callers needing rounding should round
// before constructing.
func (rp RawProduct) Renormalize(targetPrecision uint8) int64 {
	if rp.Precision == targetPrecision {
		return rp.Raw
	}
	if rp.Precision < targetPrecision {
		return rp.Raw * scale(targetPrecision-rp.Precision)
	}
	return rp.Raw / scale(rp.Precision-targetPrecision)
}

// bitsMul64 returns the signed 128-bit product of a*b as (hi, lo) using
// unsigned multiplication plus sign correction, avoiding float64 entirely.
func bitsMul64(a, b int64) (hi, lo int64) {
	negative := (a < 0) != (b < 0)
	hiU, loU := bits.Mul64(absU64(a), absU64(b))
	if negative {
		// two's complement negate the 128-bit (hiU, loU) pair.
		loU = ^loU + 1
		hiU = ^hiU
		if loU == 0 {
			hiU++
		}
	}
	return int64(hiU), int64(loU)
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// Quantity is an integer-backed fixed-point size.
type Quantity struct {
	raw       int64
	precision uint8
}

func NewQuantityFromString(s string, precision uint8) (Quantity, error) {
	raw, err := parseRaw(s, precision)
	if err != nil {
		return Quantity{}, err
	}
	if raw < 0 {
		return Quantity{}, kernerr.New(kernerr.InvalidInput, "num: quantity %q must be non-negative", s)
	}
	return Quantity{raw: raw, precision: precision}, nil
}

func NewQuantityRaw(raw int64, precision uint8) Quantity { return Quantity{raw: raw, precision: precision} }

func (q Quantity) Raw() int64       { return q.raw }
func (q Quantity) Precision() uint8 { return q.precision }
func (q Quantity) IsZero() bool     { return q.raw == 0 }
func (q Quantity) String() string   { return formatRaw(q.raw, q.precision) }
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(q.raw, -int32(q.precision)) }

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(fixedWire{Raw: q.raw, Precision: q.precision})
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var w fixedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	q.raw, q.precision = w.Raw, w.Precision
	return nil
}

func (q Quantity) mustMatch(o Quantity) {
	if q.precision != o.precision {
		panic(kernerr.New(kernerr.InvariantViolation, "num: quantity precision mismatch %d vs %d", q.precision, o.precision))
	}
}

func (q Quantity) Add(o Quantity) Quantity { q.mustMatch(o); return Quantity{raw: q.raw + o.raw, precision: q.precision} }
func (q Quantity) Sub(o Quantity) Quantity { q.mustMatch(o); return Quantity{raw: q.raw - o.raw, precision: q.precision} }

// Abs returns the absolute value. Quantity is normally non-negative, but
// callers that use it to hold a signed position size (e.g. pkg/position)
// need this to recover the unsigned magnitude.
func (q Quantity) Abs() Quantity {
	if q.raw < 0 {
		return Quantity{raw: -q.raw, precision: q.precision}
	}
	return q
}

func (q Quantity) Compare(o Quantity) int {
	q.mustMatch(o)
	switch {
	case q.raw < o.raw:
		return -1
	case q.raw > o.raw:
		return 1
	default:
		return 0
	}
}

func (q Quantity) Less(o Quantity) bool      { return q.Compare(o) < 0 }
func (q Quantity) LessEq(o Quantity) bool    { return q.Compare(o) <= 0 }
func (q Quantity) Greater(o Quantity) bool   { return q.Compare(o) > 0 }
func (q Quantity) GreaterEq(o Quantity) bool { return q.Compare(o) >= 0 }
func (q Quantity) Equal(o Quantity) bool     { return q.precision == o.precision && q.raw == o.raw }

// PriceFromDecimal rounds d to precision and constructs a Price. Used for
// derived values (VWAP, average price) that are computed in decimal space
// because they involve division, which fixed-point integers cannot
// represent exactly.
func PriceFromDecimal(d decimal.Decimal, precision uint8) Price {
	return Price{raw: d.Shift(int32(precision)).Round(0).IntPart(), precision: precision}
}

// QuantityFromDecimal is the Quantity analog of PriceFromDecimal.
func QuantityFromDecimal(d decimal.Decimal, precision uint8) Quantity {
	return Quantity{raw: d.Shift(int32(precision)).Round(0).IntPart(), precision: precision}
}

// Min returns the smaller of q and o.
func (q Quantity) Min(o Quantity) Quantity {
	if q.Compare(o) <= 0 {
		return q
	}
	return o
}
