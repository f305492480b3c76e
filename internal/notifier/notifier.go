// Package notifier delivers a command's outbound intents: chat messages and
// platform-level restrictions. Delivery is best-effort; the committed database
// state is the moderation decision of record, so failures here are logged and
// swallowed, never propagated back.
package notifier

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/moderation"
	"github.com/barsik-modbot-go/pkg/markdown"
)

// Notifier sends outbound intents through the Telegram Bot API.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// New creates a new notifier.
func New(bot *tgbotapi.BotAPI, metrics *middleware.Metrics, logger *logrus.Logger) *Notifier {
	return &Notifier{bot: bot, metrics: metrics, logger: logger}
}

// Dispatch delivers everything a committed command produced.
func (n *Notifier) Dispatch(outcome *moderation.Outcome) {
	if outcome == nil {
		return
	}
	for _, note := range outcome.Notifications {
		n.Notify(note.ChatID, note.Text)
	}
	for _, restriction := range outcome.Restrictions {
		n.Restrict(restriction)
	}
}

// Notify posts a chat message. Texts are authored in markdown and rendered to
// the HTML subset Telegram accepts.
func (n *Notifier) Notify(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to send notification")
		n.metrics.RecordNotificationFailure("message")
	}
}

// Restrict applies a platform-level enforcement call.
func (n *Notifier) Restrict(r moderation.Restriction) {
	member := tgbotapi.ChatMemberConfig{ChatID: r.ChatID, UserID: r.UserID}

	var err error
	switch r.Kind {
	case moderation.RestrictBan:
		_, err = n.bot.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member})
	case moderation.RestrictMute:
		cfg := tgbotapi.RestrictChatMemberConfig{
			ChatMemberConfig: member,
			Permissions:      &tgbotapi.ChatPermissions{CanSendMessages: false},
		}
		if r.Until != nil {
			cfg.UntilDate = r.Until.Unix()
		}
		_, err = n.bot.Request(cfg)
	default:
		n.logger.WithField("kind", r.Kind).Warn("Unknown restriction kind")
		return
	}

	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": r.ChatID,
			"user_id": r.UserID,
			"kind":    r.Kind,
		}).Warn("Failed to apply restriction")
		n.metrics.RecordNotificationFailure("restriction")
	}
}
