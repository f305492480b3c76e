// Package audit appends the moderation trail: one action row per enforcement
// and one violation row per infraction. Nothing here ever updates or deletes.
package audit

import (
	"context"

	"github.com/barsik-modbot-go/internal/models"
	"gorm.io/gorm"
)

// Log appends audit rows on the handle it is bound to, which may be a
// transaction shared with the directory update it documents.
type Log struct {
	db *gorm.DB
}

// New returns a Log bound to db.
func New(db *gorm.DB) *Log {
	return &Log{db: db}
}

// RecordAction appends one ModerationAction row. durationMinutes is set for
// mutes only.
func (l *Log) RecordAction(ctx context.Context, target, moderator int64, action models.ActionType, reason string, durationMinutes *int) error {
	rec := models.ModerationAction{
		UserID:          target,
		ModeratorID:     moderator,
		ActionType:      action,
		Reason:          reason,
		DurationMinutes: durationMinutes,
	}
	return l.db.WithContext(ctx).Create(&rec).Error
}

// RecordViolation appends one ViolationRecord row.
func (l *Log) RecordViolation(ctx context.Context, target int64, violationType string, action models.ActionType, moderator int64, reason string) error {
	rec := models.ViolationRecord{
		UserID:        target,
		ViolationType: violationType,
		ActionType:    action,
		ModeratorID:   moderator,
		Reason:        reason,
	}
	return l.db.WithContext(ctx).Create(&rec).Error
}
