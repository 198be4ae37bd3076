// Package account implements the two account variants, Cash and Margin,
// each carrying an append-only state event log and per-currency
// balances under the invariant total = locked + free.
package account

import (
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

type Variant int

const (
	VariantCash Variant = iota
	VariantMargin
)

// Balance is one currency's total/locked/free triple. Total must always
// equal locked+free; NewBalance is the only constructor so that invariant
// cannot be bypassed.
type Balance struct {
	Total  num.Money
	Locked num.Money
	Free   num.Money
}

func NewBalance(total, locked, free num.Money) (Balance, error) {
	if !total.Equal(locked.Add(free)) {
		return Balance{}, kernerr.New(kernerr.InvariantViolation, "account: balance invariant violated: total %s != locked %s + free %s", total.String(), locked.String(), free.String())
	}
	return Balance{Total: total, Locked: locked, Free: free}, nil
}

// MarginBalance is a per-instrument initial/maintenance margin pair,
// carried only on Margin accounts.
type MarginBalance struct {
	InstrumentId ident.InstrumentId
	Initial      num.Money
	Maintenance  num.Money
}

// StateEvent is one snapshot appended to an account's event log whenever
// its balances change.
type StateEvent struct {
	TsEvent  int64
	Balances map[string]Balance // by currency code, as of this event
}

// Account is the authoritative balance-and-margin record for one venue
// relationship.
type Account struct {
	Id      ident.AccountId
	Variant Variant

	balances       map[string]Balance
	marginBalances map[ident.InstrumentId]MarginBalance

	Events []StateEvent
}

func NewCashAccount(id ident.AccountId) *Account {
	return &Account{Id: id, Variant: VariantCash, balances: make(map[string]Balance)}
}

func NewMarginAccount(id ident.AccountId) *Account {
	return &Account{
		Id:             id,
		Variant:        VariantMargin,
		balances:       make(map[string]Balance),
		marginBalances: make(map[ident.InstrumentId]MarginBalance),
	}
}

// UpdateBalance replaces the balance for currency code and appends a
// state event capturing the account's full balance set at that instant.
func (a *Account) UpdateBalance(code string, balance Balance, tsEvent int64) {
	a.balances[code] = balance
	a.appendState(tsEvent)
}

func (a *Account) Balance(code string) (Balance, bool) {
	b, ok := a.balances[code]
	return b, ok
}

func (a *Account) Balances() map[string]Balance {
	out := make(map[string]Balance, len(a.balances))
	for k, v := range a.balances {
		out[k] = v
	}
	return out
}

// UpdateMarginBalance sets the initial/maintenance margin for instrumentId.
// On a Cash account it returns an InvalidInput error and changes nothing
// (margin is a Margin-only concept).
func (a *Account) UpdateMarginBalance(instrumentId ident.InstrumentId, initial, maintenance num.Money, tsEvent int64) error {
	if a.Variant != VariantMargin {
		return kernerr.New(kernerr.InvalidInput, "account: %s is a Cash account, has no margin balances", a.Id.String())
	}
	a.marginBalances[instrumentId] = MarginBalance{InstrumentId: instrumentId, Initial: initial, Maintenance: maintenance}
	a.appendState(tsEvent)
	return nil
}

func (a *Account) MarginBalance(instrumentId ident.InstrumentId) (MarginBalance, bool) {
	mb, ok := a.marginBalances[instrumentId]
	return mb, ok
}

func (a *Account) appendState(tsEvent int64) {
	snapshot := make(map[string]Balance, len(a.balances))
	for k, v := range a.balances {
		snapshot[k] = v
	}
	a.Events = append(a.Events, StateEvent{TsEvent: tsEvent, Balances: snapshot})
}
