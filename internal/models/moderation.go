package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ModerationBan         = "ban"
	ModerationUnban       = "unban"
	ModerationWarn        = "warn"
	ModerationReset       = "reset"
	ModerationUnlock      = "unlock"
	ModerationClearPoints = "clear_points"
)

// ModerationAction is an append-only audit row. Never updated.
type ModerationAction struct {
	bun.BaseModel `bun:"table:moderation_action"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Action        string    `bun:"action" json:"action"`
	ActorID       int64     `bun:"actor_id" json:"actor_id"`
	TargetID      int64     `bun:"target_id" json:"target_id"`
	Reason        string    `bun:"reason" json:"reason"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
