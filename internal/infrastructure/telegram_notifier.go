package infrastructure

import (
	"context"
	"fmt"
	"net/http"

	"viloai/internal/entities"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier pings a business owner's Telegram chat when a drafted
// reply is waiting for approval.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, logger)
}

// NewTelegramNotifierWithEndpoint uses a custom Bot API endpoint of the form
// "https://host/bot%s/%s".
func NewTelegramNotifierWithEndpoint(token, endpoint string, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Telegram notifier connected", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, logger: logger.With(zap.String("component", "telegram"))}, nil
}

func (n *TelegramNotifier) NotifyPendingApproval(ctx context.Context, user *entities.User, entry *entities.ReplyQueueEntry) error {
	if user.TelegramChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(user.TelegramChatID, pendingApprovalText(entry))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func pendingApprovalText(entry *entities.ReplyQueueEntry) string {
	where := "DM"
	if entry.Channel == entities.ChannelComment {
		where = "comment"
	}
	return fmt.Sprintf("📩 New %s waiting for approval\n\nCustomer: %s\n\nSuggested reply (%s):\n%s",
		where, entry.OriginalText, entry.DetectedLanguage, entry.SuggestedReply)
}
