package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RaidParticipant struct {
	bun.BaseModel `bun:"table:raid_participant"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	RaidID        string    `bun:"raid_id" json:"raid_id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Username      string    `bun:"username" json:"username"`
	Position      int       `bun:"position" json:"position"`
	Points        int       `bun:"points" json:"points"`
	JoinedAt      time.Time `bun:"joined_at" json:"joined_at"`

	Actions []*RaidAction `bun:"-" json:"actions,omitempty"`
}
