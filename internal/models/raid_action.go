package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ActionType string

const (
	ActionTypeLike    ActionType = "like"
	ActionTypeRetweet ActionType = "retweet"
	ActionTypeReply   ActionType = "reply"
	ActionTypeQuote   ActionType = "quote"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionTypeLike, ActionTypeRetweet, ActionTypeReply, ActionTypeQuote:
		return true
	default:
		return false
	}
}

// Category groups action types into rate-limit buckets. Replies and quotes
// share one bucket.
func (t ActionType) Category() string {
	switch t {
	case ActionTypeReply, ActionTypeQuote:
		return "engagement"
	default:
		return string(t)
	}
}

const (
	VerificationMethodSimulated = "simulated"
	VerificationMethodAPI       = "api"
)

// RaidAction is append-only. One row per verified occurrence.
type RaidAction struct {
	bun.BaseModel `bun:"table:raid_action"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	RaidID        string     `bun:"raid_id" json:"raid_id"`
	UserID        int64      `bun:"user_id" json:"user_id"`
	Type          ActionType `bun:"type" json:"type"`
	Points        int        `bun:"points" json:"points"`
	Multiplier    float64    `bun:"multiplier" json:"multiplier"`
	Method        string     `bun:"method" json:"method"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}
