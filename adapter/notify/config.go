// Package notify forwards order and position lifecycle events to
// Telegram, grounded on bot/telegram.go's TelegramBot. It has no
// special access to the cache: it is a bus subscriber like any
// strategy, reading order.Order/order.Event/*position.Position/
// *position.FlipResult payloads straight off the topics pkg/execution
// already publishes.
package notify

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	BotToken string
	ChatID   int64
}

func ConfigFromEnv() (Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("notify: TELEGRAM_BOT_TOKEN not set")
	}

	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if chatIDStr == "" {
		return Config{}, fmt.Errorf("notify: TELEGRAM_CHAT_ID not set")
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("notify: invalid TELEGRAM_CHAT_ID: %w", err)
	}

	return Config{BotToken: token, ChatID: chatID}, nil
}
