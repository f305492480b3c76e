package handlers

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsik-modbot-go/internal/moderation"
)

func commandMessage(text string, reply *tgbotapi.Message) *tgbotapi.Message {
	command := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(command)},
		},
		Chat:           &tgbotapi.Chat{ID: -42},
		From:           &tgbotapi.User{ID: 10, UserName: "mod", FirstName: "Mona"},
		ReplyToMessage: reply,
	}
}

func replyFrom(id int64, username string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: id, UserName: username, FirstName: "Oscar"},
	}
}

func TestParseCommand(t *testing.T) {
	reply := replyFrom(20, "offender")

	tests := []struct {
		name   string
		msg    *tgbotapi.Message
		want   moderation.CommandIntent
		wantOK bool
	}{
		{
			name:   "ban with reason",
			msg:    commandMessage("/ban posting scam links", reply),
			wantOK: true,
			want: moderation.CommandIntent{
				Type:   moderation.CmdBan,
				Reason: "posting scam links",
			},
		},
		{
			name:   "ban without reason",
			msg:    commandMessage("/ban", reply),
			wantOK: true,
			want:   moderation.CommandIntent{Type: moderation.CmdBan},
		},
		{
			name:   "mute with duration and reason",
			msg:    commandMessage("/mute 30 stop flooding", reply),
			wantOK: true,
			want: moderation.CommandIntent{
				Type:            moderation.CmdMute,
				DurationMinutes: 30,
				Reason:          "stop flooding",
			},
		},
		{
			name:   "mute with non-numeric first token",
			msg:    commandMessage("/mute stop flooding", reply),
			wantOK: true,
			want: moderation.CommandIntent{
				Type:   moderation.CmdMute,
				Reason: "stop flooding",
			},
		},
		{
			name:   "warn with reason",
			msg:    commandMessage("/warn language", reply),
			wantOK: true,
			want: moderation.CommandIntent{
				Type:   moderation.CmdWarn,
				Reason: "language",
			},
		},
		{
			name:   "ban without reply target is dropped",
			msg:    commandMessage("/ban", nil),
			wantOK: false,
		},
		{
			name:   "warn without reply target is dropped",
			msg:    commandMessage("/warn spam", nil),
			wantOK: false,
		},
		{
			name:   "unknown command is dropped",
			msg:    commandMessage("/kick", reply),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, ok := ParseCommand(tt.msg)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}

			assert.Equal(t, tt.want.Type, intent.Type)
			assert.Equal(t, tt.want.Reason, intent.Reason)
			assert.Equal(t, tt.want.DurationMinutes, intent.DurationMinutes)

			assert.Equal(t, int64(-42), intent.ChatID)
			assert.Equal(t, int64(10), intent.ModeratorID)
			assert.Equal(t, "mod", intent.ModeratorUsername)
			assert.Equal(t, int64(20), intent.TargetID)
			assert.Equal(t, "offender", intent.TargetUsername)
		})
	}
}

func TestParseCommand_StatsAndHelpNeedNoTarget(t *testing.T) {
	for _, text := range []string{"/stats", "/help"} {
		intent, ok := ParseCommand(commandMessage(text, nil))
		require.True(t, ok, text)
		assert.Zero(t, intent.TargetID)
		assert.Equal(t, int64(-42), intent.ChatID)
	}
}
