package order

import (
	"github.com/google/uuid"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
)

// EventKind enumerates the order event variants.
type EventKind int

const (
	EventInitialized EventKind = iota
	EventDenied
	EventEmulated
	EventReleased
	EventSubmitted
	EventAccepted
	EventRejected
	EventPendingUpdate
	EventPendingCancel
	EventUpdated
	EventTriggered
	EventExpired
	EventModifyRejected
	EventCancelRejected
	EventFilled
	EventCanceled
)

func (k EventKind) String() string {
	switch k {
	case EventInitialized:
		return "INITIALIZED"
	case EventDenied:
		return "DENIED"
	case EventEmulated:
		return "EMULATED"
	case EventReleased:
		return "RELEASED"
	case EventSubmitted:
		return "SUBMITTED"
	case EventAccepted:
		return "ACCEPTED"
	case EventRejected:
		return "REJECTED"
	case EventPendingUpdate:
		return "PENDING_UPDATE"
	case EventPendingCancel:
		return "PENDING_CANCEL"
	case EventUpdated:
		return "UPDATED"
	case EventTriggered:
		return "TRIGGERED"
	case EventExpired:
		return "EXPIRED"
	case EventModifyRejected:
		return "MODIFY_REJECTED"
	case EventCancelRejected:
		return "CANCEL_REJECTED"
	case EventFilled:
		return "FILLED"
	case EventCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Event is one order lifecycle event. Only the fields relevant to Kind
// are populated by the caller; applyEvent ignores the rest.
type Event struct {
	EventId       uuid.UUID
	Kind          EventKind
	ClientOrderId ident.ClientOrderId
	TsEvent       int64

	Reason string // Denied, Rejected, ModifyRejected, CancelRejected

	VenueOrderId *ident.VenueOrderId // Accepted

	NewPrice        *num.Price // Updated
	NewQuantity     *num.Quantity
	NewTriggerPrice *num.Price

	TriggerPrice *num.Price // Triggered

	ExpireTimeNs int64 // Expired

	FillPrice     num.Price // Filled
	FillQty       num.Quantity
	LiquiditySide enum.LiquiditySide
	Commission    num.Money
	TradeId       ident.TradeId
}

func newEvent(kind EventKind, clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return Event{EventId: uuid.New(), Kind: kind, ClientOrderId: clientOrderId, TsEvent: tsEvent}
}

func NewDeniedEvent(clientOrderId ident.ClientOrderId, reason string, tsEvent int64) Event {
	e := newEvent(EventDenied, clientOrderId, tsEvent)
	e.Reason = reason
	return e
}

func NewEmulatedEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventEmulated, clientOrderId, tsEvent)
}

func NewReleasedEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventReleased, clientOrderId, tsEvent)
}

func NewSubmittedEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventSubmitted, clientOrderId, tsEvent)
}

func NewAcceptedEvent(clientOrderId ident.ClientOrderId, venueOrderId ident.VenueOrderId, tsEvent int64) Event {
	e := newEvent(EventAccepted, clientOrderId, tsEvent)
	e.VenueOrderId = &venueOrderId
	return e
}

func NewRejectedEvent(clientOrderId ident.ClientOrderId, reason string, tsEvent int64) Event {
	e := newEvent(EventRejected, clientOrderId, tsEvent)
	e.Reason = reason
	return e
}

func NewPendingUpdateEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventPendingUpdate, clientOrderId, tsEvent)
}

func NewPendingCancelEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventPendingCancel, clientOrderId, tsEvent)
}

func NewUpdatedEvent(clientOrderId ident.ClientOrderId, newPrice, newTrigger *num.Price, newQuantity *num.Quantity, tsEvent int64) Event {
	e := newEvent(EventUpdated, clientOrderId, tsEvent)
	e.NewPrice = newPrice
	e.NewTriggerPrice = newTrigger
	e.NewQuantity = newQuantity
	return e
}

func NewTriggeredEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventTriggered, clientOrderId, tsEvent)
}

func NewExpiredEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventExpired, clientOrderId, tsEvent)
}

func NewModifyRejectedEvent(clientOrderId ident.ClientOrderId, reason string, tsEvent int64) Event {
	e := newEvent(EventModifyRejected, clientOrderId, tsEvent)
	e.Reason = reason
	return e
}

func NewCancelRejectedEvent(clientOrderId ident.ClientOrderId, reason string, tsEvent int64) Event {
	e := newEvent(EventCancelRejected, clientOrderId, tsEvent)
	e.Reason = reason
	return e
}

func NewFilledEvent(clientOrderId ident.ClientOrderId, tradeId ident.TradeId, fillPrice num.Price, fillQty num.Quantity, liquiditySide enum.LiquiditySide, commission num.Money, tsEvent int64) Event {
	e := newEvent(EventFilled, clientOrderId, tsEvent)
	e.TradeId = tradeId
	e.FillPrice = fillPrice
	e.FillQty = fillQty
	e.LiquiditySide = liquiditySide
	e.Commission = commission
	return e
}

func NewCanceledEvent(clientOrderId ident.ClientOrderId, tsEvent int64) Event {
	return newEvent(EventCanceled, clientOrderId, tsEvent)
}

// PostOnlyRejectReason is the canonical reason string the state machine
// maps a venue post-only-cross rejection to.
const PostOnlyRejectReason = "POST_ONLY_WOULD_CROSS"
