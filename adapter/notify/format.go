package notify

import (
	"fmt"

	"github.com/gotradekernel/kernel/pkg/order"
	"github.com/gotradekernel/kernel/pkg/position"
)

// format renders one bus message into a Telegram-ready string, mirroring
// the emoji/markdown style of bot/telegram.go's NotifyTrade/NotifyPnL.
// Unrecognized payloads render nothing rather than erroring: the
// notifier is a best-effort bus subscriber, not a required consumer.
func format(topic string, message any) string {
	switch m := message.(type) {
	case order.Order:
		return formatOrder(m)
	case order.Event:
		return formatEvent(m)
	case *position.Position:
		return formatPosition(m)
	case *position.FlipResult:
		return formatFlip(m)
	default:
		return ""
	}
}

func formatOrder(o order.Order) string {
	base := o.Common()
	if len(base.Events) == 0 {
		return ""
	}
	last := base.Events[len(base.Events)-1]
	return formatEventFor(base.ClientOrderId.String(), base.InstrumentId.String(), last)
}

func formatEvent(ev order.Event) string {
	return formatEventFor(ev.ClientOrderId.String(), "", ev)
}

func formatEventFor(clientOrderId, instrumentId string, ev order.Event) string {
	emoji := "📌"
	switch ev.Kind {
	case order.EventDenied, order.EventRejected, order.EventModifyRejected, order.EventCancelRejected:
		emoji = "⛔"
	case order.EventFilled:
		emoji = "✅"
	case order.EventCanceled, order.EventExpired:
		emoji = "🚫"
	}

	msg := fmt.Sprintf("%s *%s*\n\nOrder: `%s`", emoji, ev.Kind.String(), clientOrderId)
	if instrumentId != "" {
		msg += fmt.Sprintf("\nInstrument: `%s`", instrumentId)
	}
	if ev.Reason != "" {
		msg += fmt.Sprintf("\nReason: %s", ev.Reason)
	}
	return msg
}

func formatPosition(p *position.Position) string {
	emoji := "📊"
	if p.IsFlat() {
		emoji = "🔚"
	}

	msg := fmt.Sprintf("%s *POSITION %s*\n\nInstrument: `%s`\nSide: %s\nQty: %s",
		emoji, p.Side.String(), p.InstrumentId.String(), p.Side.String(), p.SignedQty.String())

	if p.TsClosed != nil {
		sign := "+"
		if p.RealizedPnl.Raw() < 0 {
			sign = ""
		}
		msg += fmt.Sprintf("\nRealized PnL: %s%s", sign, p.RealizedPnl.String())
	}
	return msg
}

func formatFlip(fr *position.FlipResult) string {
	msg := fmt.Sprintf("🔄 *POSITION FLIPPED*\n\nInstrument: `%s`", fr.Closed.InstrumentId.String())
	sign := "+"
	if fr.Closed.RealizedPnl.Raw() < 0 {
		sign = ""
	}
	msg += fmt.Sprintf("\nClosed PnL: %s%s\nNew side: %s", sign, fr.Closed.RealizedPnl.String(), fr.Opened.Side.String())
	return msg
}
