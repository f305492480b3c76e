// Package moderation turns parsed command intents into committed state
// transitions and the outbound intents that announce them.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/barsik-modbot-go/internal/audit"
	"github.com/barsik-modbot-go/internal/directory"
	"github.com/barsik-modbot-go/internal/i18n"
	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/models"
	"github.com/barsik-modbot-go/internal/policy"
	"github.com/barsik-modbot-go/internal/settings"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Processor is the command state machine. Every mutating transition performs
// its directory update and both audit appends inside one transaction; outbound
// intents are built only after that transaction commits, so a delivery failure
// can never roll back a committed moderation decision.
type Processor struct {
	db        *gorm.DB
	settings  *settings.Provider
	localizer *i18n.Localizer
	lang      string
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

// NewProcessor returns a Processor replying in lang.
func NewProcessor(db *gorm.DB, provider *settings.Provider, localizer *i18n.Localizer, lang string, metrics *middleware.Metrics, logger *logrus.Logger) *Processor {
	return &Processor{
		db:        db,
		settings:  provider,
		localizer: localizer,
		lang:      lang,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Process runs one command to completion. A storage failure aborts the whole
// command with nothing committed; commands against different targets are free
// to run concurrently.
func (p *Processor) Process(ctx context.Context, intent CommandIntent) (*Outcome, error) {
	switch intent.Type {
	case CmdBan, CmdMute, CmdWarn:
		if intent.TargetID == 0 {
			// The transport resolves targets from reply-to messages; a
			// command without one is nothing to act on.
			return &Outcome{}, nil
		}
	}

	switch intent.Type {
	case CmdBan:
		return p.processBan(ctx, intent)
	case CmdMute:
		return p.processMute(ctx, intent)
	case CmdWarn:
		return p.processWarn(ctx, intent)
	case CmdStats:
		return p.processStats(ctx, intent)
	case CmdHelp:
		return p.processHelp(intent), nil
	default:
		return nil, fmt.Errorf("unknown command type %q", intent.Type)
	}
}

func (p *Processor) processBan(ctx context.Context, intent CommandIntent) (*Outcome, error) {
	reason := intent.Reason
	if reason == "" {
		reason = p.text(i18n.MsgDefaultBanReason, nil)
	}

	if err := p.transition(ctx, intent, func(ctx context.Context, dir *directory.Directory, log *audit.Log) error {
		if err := dir.ApplyBan(ctx, intent.TargetID); err != nil {
			return err
		}
		if err := log.RecordAction(ctx, intent.TargetID, intent.ModeratorID, models.ActionBan, reason, nil); err != nil {
			return err
		}
		return log.RecordViolation(ctx, intent.TargetID, models.ViolationManual, models.ActionBan, intent.ModeratorID, reason)
	}); err != nil {
		return nil, err
	}
	p.metrics.RecordModerationAction(string(models.ActionBan))

	return &Outcome{
		Notifications: []Notification{{
			ChatID: intent.ChatID,
			Text:   p.text(i18n.MsgBanned, map[string]interface{}{"User": intent.targetDisplay()}),
		}},
		Restrictions: []Restriction{{
			ChatID: intent.ChatID,
			UserID: intent.TargetID,
			Kind:   RestrictBan,
		}},
	}, nil
}

func (p *Processor) processMute(ctx context.Context, intent CommandIntent) (*Outcome, error) {
	minutes := intent.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultMuteMinutes
	}
	until := p.now().Add(time.Duration(minutes) * time.Minute)

	reason := intent.Reason
	if reason == "" {
		reason = p.text(i18n.MsgDefaultMuteReason, nil)
	}

	if err := p.transition(ctx, intent, func(ctx context.Context, dir *directory.Directory, log *audit.Log) error {
		if err := dir.ApplyMute(ctx, intent.TargetID, until); err != nil {
			return err
		}
		if err := log.RecordAction(ctx, intent.TargetID, intent.ModeratorID, models.ActionMute, reason, &minutes); err != nil {
			return err
		}
		return log.RecordViolation(ctx, intent.TargetID, models.ViolationManual, models.ActionMute, intent.ModeratorID, reason)
	}); err != nil {
		return nil, err
	}
	p.metrics.RecordModerationAction(string(models.ActionMute))

	return &Outcome{
		Notifications: []Notification{{
			ChatID: intent.ChatID,
			Text: p.text(i18n.MsgMuted, map[string]interface{}{
				"User":    intent.targetDisplay(),
				"Minutes": minutes,
			}),
		}},
		Restrictions: []Restriction{{
			ChatID: intent.ChatID,
			UserID: intent.TargetID,
			Kind:   RestrictMute,
			Until:  &until,
		}},
	}, nil
}

func (p *Processor) processWarn(ctx context.Context, intent CommandIntent) (*Outcome, error) {
	reason := intent.Reason
	if reason == "" {
		reason = p.text(i18n.MsgDefaultWarnReason, nil)
	}

	var warnings int
	if err := p.transition(ctx, intent, func(ctx context.Context, dir *directory.Directory, log *audit.Log) error {
		w, err := dir.ApplyWarn(ctx, intent.TargetID)
		if err != nil {
			return err
		}
		warnings = w
		if err := log.RecordAction(ctx, intent.TargetID, intent.ModeratorID, models.ActionWarn, reason, nil); err != nil {
			return err
		}
		return log.RecordViolation(ctx, intent.TargetID, models.ViolationManual, models.ActionWarn, intent.ModeratorID, reason)
	}); err != nil {
		return nil, err
	}
	p.metrics.RecordModerationAction(string(models.ActionWarn))

	// The warn is committed at this point. A missing or malformed limit
	// leaves it standing but makes escalation unevaluable, which has to
	// surface rather than be guessed around.
	limit, err := p.settings.MaxWarnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("warn committed but escalation not evaluated: %w", err)
	}

	if policy.ShouldAutoBan(warnings, limit) {
		banIntent := intent
		banIntent.Reason = p.text(i18n.MsgAutoBanReason, map[string]interface{}{
			"Warnings": warnings,
			"Limit":    limit,
		})
		out, err := p.processBan(ctx, banIntent)
		if err != nil {
			return nil, err
		}
		out.Notifications = []Notification{{
			ChatID: intent.ChatID,
			Text: p.text(i18n.MsgAutoBanned, map[string]interface{}{
				"User":     intent.targetDisplay(),
				"Warnings": warnings,
			}),
		}}
		return out, nil
	}

	return &Outcome{
		Notifications: []Notification{{
			ChatID: intent.ChatID,
			Text: p.text(i18n.MsgWarned, map[string]interface{}{
				"User":     intent.targetDisplay(),
				"Warnings": warnings,
				"Limit":    limit,
			}),
		}},
	}, nil
}

// ChatStats is the aggregate snapshot behind /stats.
type ChatStats struct {
	TotalUsers  int64
	Banned      int64
	Muted       int64
	ActionsLast int64 // actions in the last 24 hours
}

func (p *Processor) processStats(ctx context.Context, intent CommandIntent) (*Outcome, error) {
	stats, err := p.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Notifications: []Notification{{
			ChatID: intent.ChatID,
			Text: p.text(i18n.MsgStats, map[string]interface{}{
				"TotalUsers": stats.TotalUsers,
				"Banned":     stats.Banned,
				"Muted":      stats.Muted,
				"Actions":    stats.ActionsLast,
			}),
		}},
	}, nil
}

// Stats aggregates the counts shown by /stats. Pure read, no mutation.
func (p *Processor) Stats(ctx context.Context) (*ChatStats, error) {
	var stats ChatStats
	db := p.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("status = ?", models.StatusBanned).Count(&stats.Banned).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("status = ?", models.StatusMuted).Count(&stats.Muted).Error; err != nil {
		return nil, err
	}
	dayAgo := p.now().Add(-24 * time.Hour)
	if err := db.Model(&models.ModerationAction{}).Where("created_at > ?", dayAgo).Count(&stats.ActionsLast).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (p *Processor) processHelp(intent CommandIntent) *Outcome {
	return &Outcome{
		Notifications: []Notification{{
			ChatID: intent.ChatID,
			Text:   p.text(i18n.MsgHelp, nil),
		}},
	}
}

// transition wraps one command's writes in a transaction: both participants
// are upserted into the directory, then the mutation and its two audit rows
// are applied through fn. Anything failing rolls the whole unit back.
func (p *Processor) transition(ctx context.Context, intent CommandIntent, fn func(ctx context.Context, dir *directory.Directory, log *audit.Log) error) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		dir := directory.New(tx)
		if _, err := dir.GetOrCreate(ctx, intent.ModeratorID, directory.Hints{
			Username:  intent.ModeratorUsername,
			FirstName: intent.ModeratorFirstName,
			LastName:  intent.ModeratorLastName,
		}); err != nil {
			return err
		}
		if _, err := dir.GetOrCreate(ctx, intent.TargetID, directory.Hints{
			Username:  intent.TargetUsername,
			FirstName: intent.TargetFirstName,
			LastName:  intent.TargetLastName,
		}); err != nil {
			return err
		}
		return fn(ctx, dir, audit.New(tx))
	})
}

func (p *Processor) text(id string, data map[string]interface{}) string {
	return p.localizer.Get(p.lang, id, data)
}
