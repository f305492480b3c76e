// Package handlers is the Telegram transport: it parses inbound messages into
// command intents and hands committed outcomes to the notifier.
package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/barsik-modbot-go/internal/config"
	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/moderation"
	"github.com/barsik-modbot-go/internal/notifier"
)

// CommandHandler handles telegram moderation commands
type CommandHandler struct {
	bot       *tgbotapi.BotAPI
	config    *config.Config
	processor *moderation.Processor
	notifier  *notifier.Notifier
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	processor *moderation.Processor,
	n *notifier.Notifier,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:       bot,
		config:    cfg,
		processor: processor,
		notifier:  n,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleCommand processes one telegram command message end to end.
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	intent, ok := ParseCommand(message)
	if !ok {
		return nil
	}

	h.metrics.RecordCommandExecuted(string(intent.Type))

	outcome, err := h.processor.Process(ctx, intent)
	if err != nil {
		h.metrics.RecordCommandProcessed("error")
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":      intent.ChatID,
			"moderator_id": intent.ModeratorID,
			"command":      intent.Type,
		}).Error("Failed to process command")
		return err
	}

	h.metrics.RecordCommandProcessed("success")
	h.notifier.Dispatch(outcome)
	return nil
}

// ParseCommand turns a command message into a CommandIntent. The second
// return value is false for commands this bot does not handle, and for
// enforcement commands that were not sent as a reply to the target's message.
func ParseCommand(message *tgbotapi.Message) (moderation.CommandIntent, bool) {
	intent := moderation.CommandIntent{
		ChatID: message.Chat.ID,
	}
	if message.From != nil {
		intent.ModeratorID = message.From.ID
		intent.ModeratorUsername = message.From.UserName
		intent.ModeratorFirstName = message.From.FirstName
		intent.ModeratorLastName = message.From.LastName
	}

	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "ban":
		intent.Type = moderation.CmdBan
		intent.Reason = args
	case "mute":
		intent.Type = moderation.CmdMute
		intent.DurationMinutes, intent.Reason = parseMuteArgs(args)
	case "warn":
		intent.Type = moderation.CmdWarn
		intent.Reason = args
	case "stats":
		intent.Type = moderation.CmdStats
		return intent, true
	case "help":
		intent.Type = moderation.CmdHelp
		return intent, true
	default:
		return moderation.CommandIntent{}, false
	}

	// Enforcement commands take their target from the replied-to message.
	reply := message.ReplyToMessage
	if reply == nil || reply.From == nil {
		return moderation.CommandIntent{}, false
	}
	intent.TargetID = reply.From.ID
	intent.TargetUsername = reply.From.UserName
	intent.TargetFirstName = reply.From.FirstName
	intent.TargetLastName = reply.From.LastName

	return intent, true
}

// parseMuteArgs splits "/mute [minutes] [reason]" arguments. A non-numeric
// first token is treated as part of the reason, falling back to the default
// duration.
func parseMuteArgs(args string) (minutes int, reason string) {
	if args == "" {
		return 0, ""
	}
	fields := strings.Fields(args)
	if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
		return n, strings.Join(fields[1:], " ")
	}
	return 0, args
}
