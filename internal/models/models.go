package models

import (
	"time"
)

// UserStatus is the moderation state of a chat participant.
type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusWarned UserStatus = "warned"
	StatusMuted  UserStatus = "muted"
	StatusBanned UserStatus = "banned"
)

// ActionType identifies an enforcement action taken against a user.
type ActionType string

const (
	ActionBan  ActionType = "ban"
	ActionMute ActionType = "mute"
	ActionWarn ActionType = "warn"
)

// ViolationManual tags violations issued directly by a moderator, as opposed
// to ones raised by automated detectors.
const ViolationManual = "manual"

// User is one chat participant, keyed by their Telegram ID. Rows are created
// lazily the first time an identity is seen and are never deleted; the
// moderation state on them is mutated only through command processing.
type User struct {
	ID              uint       `gorm:"primaryKey"`
	TelegramID      int64      `gorm:"uniqueIndex;not null"`
	Username        string     `gorm:"size:255"`
	FirstName       string     `gorm:"size:255"`
	LastName        string     `gorm:"size:255"`
	Status          UserStatus `gorm:"size:16;default:active;index"`
	ViolationsCount int        `gorm:"not null;default:0"`
	WarningsCount   int        `gorm:"not null;default:0"`
	MutedUntil      *time.Time
	BannedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName returns the best human-readable handle for a user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return ""
}

// ModerationAction is one enforcement action taken by a moderator.
// Append-only; rows are never updated or deleted.
type ModerationAction struct {
	ID              uint       `gorm:"primaryKey"`
	UserID          int64      `gorm:"index;not null"` // Telegram ID of the target
	ModeratorID     int64      `gorm:"not null"`
	ActionType      ActionType `gorm:"size:16;index;not null"`
	Reason          string
	DurationMinutes *int // set for mutes only
	CreatedAt       time.Time `gorm:"index"`
}

// TableName keeps the table name the dashboard queries expect.
func (ModerationAction) TableName() string { return "mod_actions" }

// ViolationRecord is one rule infraction attributed to a user. It is kept
// separate from ModerationAction so that automated detectors can later record
// violations that have no matching enforcement action. Append-only.
type ViolationRecord struct {
	ID            uint       `gorm:"primaryKey"`
	UserID        int64      `gorm:"index;not null"`
	ViolationType string     `gorm:"size:32;not null"`
	ActionType    ActionType `gorm:"size:16;not null"`
	ModeratorID   int64
	Reason        string
	CreatedAt     time.Time
}

func (ViolationRecord) TableName() string { return "violations" }

// AutoModSetting is a keyed configuration entry owned by external tooling.
// The bot only ever reads these rows.
type AutoModSetting struct {
	ID          uint   `gorm:"primaryKey"`
	SettingName string `gorm:"uniqueIndex;size:64;not null"`
	Enabled     bool   `gorm:"not null;default:true"`
	Config      string `gorm:"type:jsonb"`
	UpdatedAt   time.Time
}

func (AutoModSetting) TableName() string { return "auto_mod_settings" }
