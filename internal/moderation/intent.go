package moderation

import (
	"fmt"
	"time"
)

// CommandType identifies a moderator command.
type CommandType string

const (
	CmdBan   CommandType = "ban"
	CmdMute  CommandType = "mute"
	CmdWarn  CommandType = "warn"
	CmdStats CommandType = "stats"
	CmdHelp  CommandType = "help"
)

// DefaultMuteMinutes applies when /mute carries no duration.
const DefaultMuteMinutes = 60

// CommandIntent is one parsed moderator command. The transport layer resolves
// reply-to semantics before building it: TargetID is zero when a command that
// needs a target had none, in which case processing is a no-op.
type CommandIntent struct {
	Type        CommandType
	ChatID      int64
	ModeratorID int64

	ModeratorUsername  string
	ModeratorFirstName string
	ModeratorLastName  string

	TargetID        int64
	TargetUsername  string
	TargetFirstName string
	TargetLastName  string

	Reason          string
	DurationMinutes int
}

// targetDisplay returns the handle used in chat notifications.
func (in CommandIntent) targetDisplay() string {
	if in.TargetUsername != "" {
		return "@" + in.TargetUsername
	}
	if in.TargetFirstName != "" {
		return in.TargetFirstName
	}
	return fmt.Sprintf("user_%d", in.TargetID)
}

// RestrictionKind is the platform-level enforcement a restriction asks for.
type RestrictionKind string

const (
	RestrictBan  RestrictionKind = "ban"
	RestrictMute RestrictionKind = "timed-mute"
)

// Notification asks the outbound channel to post a chat message.
type Notification struct {
	ChatID int64
	Text   string
}

// Restriction asks the outbound channel to apply a platform-level
// enforcement, independent of the committed database state.
type Restriction struct {
	ChatID int64
	UserID int64
	Kind   RestrictionKind
	Until  *time.Time
}

// Outcome is the set of outbound intents a committed command produced.
// Delivery is best-effort and never feeds back into the state transition.
type Outcome struct {
	Notifications []Notification
	Restrictions  []Restriction
}
