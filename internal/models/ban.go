package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BanType string

const (
	BanTypePermanent BanType = "permanent"
	BanTypeTemporary BanType = "temporary"
)

type Ban struct {
	bun.BaseModel `bun:"table:ban"`
	UserID        int64      `bun:"user_id,pk" json:"user_id"`
	BannedBy      int64      `bun:"banned_by" json:"banned_by"`
	Reason        string     `bun:"reason" json:"reason"`
	Type          BanType    `bun:"type" json:"type"`
	ExpiresAt     *time.Time `bun:"expires_at" json:"expires_at"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// Active reports whether the ban is still in force. Temporary bans lapse
// once their expiry passes.
func (ban *Ban) Active(now time.Time) bool {
	if ban.Type == BanTypePermanent {
		return true
	}
	return ban.ExpiresAt != nil && now.Before(*ban.ExpiresAt)
}
