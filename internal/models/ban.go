package models

import (
	"time"

	"github.com/google/uuid"
)

// Action is the kind of moderation action being synchronized
type Action string

const (
	ActionBan   Action = "ban"
	ActionUnban Action = "unban"
)

// Origin classifies how a ban event entered the system
type Origin string

const (
	// OriginLocalAdmin means a moderator acted directly in the source guild
	OriginLocalAdmin Origin = "local-admin"
	// OriginSynced means the event was caused by our own dispatched action
	OriginSynced Origin = "synced"
)

// BanEvent is one observed ban or unban in a guild. Immutable once created.
type BanEvent struct {
	SourceGuildID string    `json:"source_guild_id"`
	UserID        string    `json:"user_id"`
	Action        Action    `json:"action"`
	Reason        string    `json:"reason"`
	ModeratorID   string    `json:"moderator_id"`
	Origin        Origin    `json:"origin"`
	ObservedAt    time.Time `json:"observed_at"`
}

// PlannedAction is one remote ban/unban the engine has decided to execute
type PlannedAction struct {
	NetworkID   uuid.UUID `json:"network_id"`
	NetworkName string    `json:"network_name"`
	GuildID     string    `json:"guild_id"` // destination
	UserID      string    `json:"user_id"`
	Action      Action    `json:"action"`
	Reason      string    `json:"reason"`
	ModeratorID string    `json:"moderator_id"`
}

// Result kinds recorded for executed actions
const (
	ResultSuccess          = "success"
	ResultPermissionDenied = "permission_denied"
	ResultGuildNotFound    = "guild_not_found"
	ResultUserNotFound     = "user_not_found"
	ResultRetriesExhausted = "retries_exhausted"
)

// HistoryRecord is one append-only audit entry per terminal dispatch outcome
type HistoryRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	NetworkID   uuid.UUID `json:"network_id" db:"network_id"`
	GuildID     string    `json:"guild_id" db:"guild_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Action      Action    `json:"action" db:"action"`
	Reason      string    `json:"reason" db:"reason"`
	ModeratorID string    `json:"moderator_id" db:"moderator_id"`
	Result      string    `json:"result" db:"result"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Succeeded reports whether the recorded action was applied on the platform
func (h *HistoryRecord) Succeeded() bool {
	return h.Result == ResultSuccess
}
