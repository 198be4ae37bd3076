package main

import (
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

// Command is one inbound strategy instruction routed through the
// reactor's command channel. Apply performs the corresponding
// execution.Engine call; keeping the
// variants closed behind an interface mirrors the order.Order/
// instrument.Instrument pattern elsewhere in the kernel rather than a
// type-switch over an open struct.
type Command interface {
	Apply(e *execution.Engine, tsEvent int64) error
	sealed()
}

type SubmitOrderCommand struct {
	Order     order.Order
	AccountId ident.AccountId
}

func (c SubmitOrderCommand) Apply(e *execution.Engine, tsEvent int64) error {
	return e.SubmitOrder(c.Order, c.AccountId, tsEvent)
}
func (SubmitOrderCommand) sealed() {}

type CancelOrderCommand struct {
	ClientOrderId ident.ClientOrderId
}

func (c CancelOrderCommand) Apply(e *execution.Engine, tsEvent int64) error {
	return e.CancelOrder(c.ClientOrderId, tsEvent)
}
func (CancelOrderCommand) sealed() {}

type CancelAllOrdersCommand struct {
	InstrumentId ident.InstrumentId
}

func (c CancelAllOrdersCommand) Apply(e *execution.Engine, tsEvent int64) error {
	return e.CancelAllOrders(c.InstrumentId, tsEvent)
}
func (CancelAllOrdersCommand) sealed() {}

type BatchCancelOrdersCommand struct {
	ClientOrderIds []ident.ClientOrderId
}

func (c BatchCancelOrdersCommand) Apply(e *execution.Engine, tsEvent int64) error {
	return e.BatchCancelOrders(c.ClientOrderIds, tsEvent)
}
func (BatchCancelOrdersCommand) sealed() {}

type ModifyOrderCommand struct {
	ClientOrderId ident.ClientOrderId
	NewQuantity   *num.Quantity
	NewPrice      *num.Price
	NewTrigger    *num.Price
}

func (c ModifyOrderCommand) Apply(e *execution.Engine, tsEvent int64) error {
	return e.ModifyOrder(c.ClientOrderId, c.NewQuantity, c.NewPrice, c.NewTrigger, tsEvent)
}
func (ModifyOrderCommand) sealed() {}
