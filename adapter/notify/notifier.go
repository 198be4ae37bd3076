package notify

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/bus"
)

// sender abstracts the Telegram send call so Notifier can be exercised
// without a live bot token; *tgbotapi.BotAPI satisfies it through
// botSender below.
type sender interface {
	Send(text string, markdown bool) error
}

type botSender struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func (s *botSender) Send(text string, markdown bool) error {
	msg := tgbotapi.NewMessage(s.chatID, text)
	if markdown {
		msg.ParseMode = "Markdown"
	}
	_, err := s.api.Send(msg)
	return err
}

// Notifier subscribes to the bus's order and position topics and
// forwards a human-readable message for each to Telegram.
type Notifier struct {
	mu   sync.Mutex
	bus  *bus.Bus
	snd  sender
	subs []uuid.UUID
}

// New dials the Telegram bot API and wires a Notifier against b.
func New(cfg Config, b *bus.Bus) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", api.Self.UserName).Msg("notify: telegram bot initialized")
	return newWithSender(&botSender{api: api, chatID: cfg.ChatID}, b), nil
}

func newWithSender(snd sender, b *bus.Bus) *Notifier {
	return &Notifier{bus: b, snd: snd}
}

// Start subscribes to every order and position lifecycle topic
// pkg/execution publishes (order.>, position.>) and begins forwarding
// messages. Calling Start twice is a no-op.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.subs) > 0 {
		return
	}

	n.subs = append(n.subs,
		n.bus.Subscribe("order.>", n.handle, 0),
		n.bus.Subscribe("position.>", n.handle, 0),
	)
	log.Info().Msg("notify: subscribed to order.> and position.>")
}

// Stop unsubscribes from the bus.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, id := range n.subs {
		n.bus.Unsubscribe(id)
	}
	n.subs = nil
}

func (n *Notifier) handle(topic string, message any) {
	text := format(topic, message)
	if text == "" {
		return
	}
	if err := n.snd.Send(text, true); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("notify: failed to send telegram message")
	}
}
