package order

import (
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// legalEvents names which event kinds are valid from each status. Any
// event kind absent from the current status's set is an invalid
// transition. Filled is legal from every open status and its resulting
// status (PartiallyFilled vs Filled) is computed from the fill
// arithmetic, not looked up here.
var legalEvents = map[enum.OrderStatus]map[EventKind]bool{
	enum.OrderStatusInitialized: {
		EventDenied:   true,
		EventEmulated: true,
		EventReleased: true,
	},
	enum.OrderStatusEmulated: {
		EventDenied:   true,
		EventReleased: true,
		EventSubmitted: true,
	},
	enum.OrderStatusReleased: {
		EventDenied:    true,
		EventSubmitted: true,
	},
	enum.OrderStatusSubmitted: {
		EventRejected: true,
		EventAccepted: true,
		EventCanceled: true,
	},
	enum.OrderStatusAccepted: {
		EventPendingUpdate: true,
		EventPendingCancel: true,
		EventTriggered:     true,
		EventFilled:        true,
		EventExpired:       true,
		EventCanceled:      true,
	},
	enum.OrderStatusPendingUpdate: {
		EventUpdated:        true,
		EventModifyRejected: true,
		EventFilled:         true,
		EventExpired:        true,
		EventCanceled:       true,
	},
	enum.OrderStatusUpdated: {
		EventPendingUpdate: true,
		EventPendingCancel: true,
		EventTriggered:     true,
		EventFilled:        true,
		EventExpired:       true,
		EventCanceled:      true,
	},
	enum.OrderStatusTriggered: {
		EventAccepted: true,
		EventRejected: true,
		EventFilled:   true,
		EventExpired:  true,
		EventCanceled: true,
	},
	enum.OrderStatusPartiallyFilled: {
		EventPendingUpdate: true,
		EventPendingCancel: true,
		EventFilled:        true,
		EventExpired:       true,
		EventCanceled:      true,
	},
	enum.OrderStatusPendingCancel: {
		EventCancelRejected: true,
		EventFilled:         true,
		EventCanceled:       true,
	},
	// Denied, Rejected, Canceled, Expired, Filled are terminal: no legal events.
}

// applyEvent validates and applies one event to an order's state.
func applyEvent(b *Base, e Event) error {
	if e.ClientOrderId != b.ClientOrderId {
		return kernerr.New(kernerr.InvalidInput, "order: event client_order_id %s does not match order %s", e.ClientOrderId.String(), b.ClientOrderId.String())
	}

	allowed := legalEvents[b.Status]
	if !allowed[e.Kind] {
		return kernerr.New(kernerr.InvariantViolation, "order: event %s is not legal from status %s", e.Kind.String(), b.Status.String())
	}

	switch e.Kind {
	case EventDenied:
		b.Status = enum.OrderStatusDenied
	case EventEmulated:
		b.Status = enum.OrderStatusEmulated
	case EventReleased:
		b.Status = enum.OrderStatusReleased
	case EventSubmitted:
		b.Status = enum.OrderStatusSubmitted
	case EventAccepted:
		b.VenueOrderId = e.VenueOrderId
		b.Status = enum.OrderStatusAccepted
	case EventRejected:
		b.Status = enum.OrderStatusRejected
	case EventPendingUpdate:
		b.preAmendStatus = b.Status
		b.Status = enum.OrderStatusPendingUpdate
	case EventPendingCancel:
		b.preAmendStatus = b.Status
		b.Status = enum.OrderStatusPendingCancel
	case EventUpdated:
		if e.NewPrice != nil {
			b.Price = e.NewPrice
		}
		if e.NewTriggerPrice != nil {
			b.TriggerPrice = e.NewTriggerPrice
		}
		if e.NewQuantity != nil {
			b.Quantity = *e.NewQuantity
		}
		b.Status = enum.OrderStatusUpdated
	case EventModifyRejected:
		b.Status = b.preAmendStatus
	case EventCancelRejected:
		b.Status = b.preAmendStatus
	case EventTriggered:
		b.Status = enum.OrderStatusTriggered
	case EventExpired:
		b.Status = enum.OrderStatusExpired
	case EventCanceled:
		b.Status = enum.OrderStatusCanceled
	case EventFilled:
		applyFill(b, e)
	default:
		return kernerr.New(kernerr.InvalidInput, "order: unknown event kind %d", e.Kind)
	}

	b.TsLastEvent = e.TsEvent
	b.Events = append(b.Events, e)
	return nil
}

// applyFill runs the partial-fill arithmetic: new_avg_px is computed as
// an integer-scaled weighted average via decimal division (fixed-point
// multiplication alone cannot represent it exactly).
func applyFill(b *Base, e Event) {
	prevFilled := b.FilledQty
	newFilled := prevFilled.Add(e.FillQty)

	if b.AvgPx == nil {
		avg := e.FillPrice
		b.AvgPx = &avg
	} else {
		weighted := b.AvgPx.Decimal().Mul(prevFilled.Decimal()).Add(e.FillPrice.Decimal().Mul(e.FillQty.Decimal()))
		newAvg := num.PriceFromDecimal(weighted.Div(newFilled.Decimal()), b.AvgPx.Precision())
		b.AvgPx = &newAvg
	}

	b.FilledQty = newFilled

	code := e.Commission.Currency.Code
	if existing, ok := b.Commissions[code]; ok {
		b.Commissions[code] = existing.Add(e.Commission)
	} else {
		b.Commissions[code] = e.Commission
	}

	if b.LeavesQty().IsZero() {
		b.Status = enum.OrderStatusFilled
	} else {
		b.Status = enum.OrderStatusPartiallyFilled
	}
}
