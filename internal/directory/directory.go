// Package directory owns reads and writes of a user's moderation state.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/barsik-modbot-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Hints carry the display-name fields known at the time an identity is first
// seen. They are informational only and never drive moderation decisions.
type Hints struct {
	Username  string
	FirstName string
	LastName  string
}

// Directory performs user lookups and state transitions. It operates on
// whatever handle it is constructed with, so callers can scope it to a
// transaction and have a command's updates commit or roll back as one unit.
type Directory struct {
	db *gorm.DB
}

// New returns a Directory bound to db, which may be a transaction handle.
func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// GetOrCreate returns the user with the given Telegram ID, inserting a fresh
// active row if none exists. Concurrent first-sight of the same identity is
// resolved through the unique index: the losing insert affects zero rows and
// falls back to fetching the winner's row.
func (d *Directory) GetOrCreate(ctx context.Context, telegramID int64, hints Hints) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		TelegramID: telegramID,
		Username:   hints.Username,
		FirstName:  hints.FirstName,
		LastName:   hints.LastName,
		Status:     models.StatusActive,
	}
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoNothing: true,
		}).
		Create(&user)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the insert race; the row exists now.
		if err := d.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// ApplyBan marks the user banned. Re-banning an already-banned user is a
// state-wise no-op but still stamps banned_at.
func (d *Directory) ApplyBan(ctx context.Context, telegramID int64) error {
	now := time.Now()
	return d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"status":     models.StatusBanned,
			"banned_at":  now,
			"updated_at": now,
		}).Error
}

// ApplyMute marks the user muted until the given time. A new mute overwrites
// any earlier muted_until.
func (d *Directory) ApplyMute(ctx context.Context, telegramID int64, until time.Time) error {
	return d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"status":      models.StatusMuted,
			"muted_until": until,
			"updated_at":  time.Now(),
		}).Error
}

// ApplyWarn increments the warning and violation counters in a single UPDATE
// and returns the post-increment warning count. The increment happens in the
// database, so concurrent warns against the same user never read the same
// pre-increment value.
func (d *Directory) ApplyWarn(ctx context.Context, telegramID int64) (int, error) {
	var user models.User
	res := d.db.WithContext(ctx).
		Model(&user).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "warnings_count"}}}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"warnings_count":   gorm.Expr("warnings_count + 1"),
			"violations_count": gorm.Expr("violations_count + 1"),
			"status":           models.StatusWarned,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return user.WarningsCount, nil
}
