package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EngagementCounts struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Comments int `json:"comments"`
	Quotes   int `json:"quotes"`
}

func (c EngagementCounts) Add(delta EngagementCounts) EngagementCounts {
	c.Likes += delta.Likes
	c.Retweets += delta.Retweets
	c.Comments += delta.Comments
	c.Quotes += delta.Quotes
	return c
}

// MetBy reports whether every target is reached. A zero target is trivially
// satisfied.
func (c EngagementCounts) MetBy(progress EngagementCounts) bool {
	return progress.Likes >= c.Likes &&
		progress.Retweets >= c.Retweets &&
		progress.Comments >= c.Comments &&
		progress.Quotes >= c.Quotes
}

func (c EngagementCounts) Zero() bool {
	return c.Likes == 0 && c.Retweets == 0 && c.Comments == 0 && c.Quotes == 0
}

// CountsForAction maps a verified action type onto a progress delta.
func CountsForAction(t ActionType) EngagementCounts {
	switch t {
	case ActionTypeLike:
		return EngagementCounts{Likes: 1}
	case ActionTypeRetweet:
		return EngagementCounts{Retweets: 1}
	case ActionTypeReply:
		return EngagementCounts{Comments: 1}
	case ActionTypeQuote:
		return EngagementCounts{Quotes: 1}
	default:
		return EngagementCounts{}
	}
}

// ChatLock holds at most one lock per chat. Targets are immutable while
// locked; re-locking replaces them.
type ChatLock struct {
	bun.BaseModel `bun:"table:chat_lock"`
	ChatID        int64            `bun:"chat_id,pk" json:"chat_id"`
	RaidID        string           `bun:"raid_id" json:"raid_id"`
	Locked        bool             `bun:"locked" json:"locked"`
	Targets       EngagementCounts `bun:"targets,type:jsonb" json:"targets"`
	Progress      EngagementCounts `bun:"progress,type:jsonb" json:"progress"`
	LockedAt      *time.Time       `bun:"locked_at" json:"locked_at"`
	LockedBy      *int64           `bun:"locked_by" json:"locked_by"`
	UpdatedAt     time.Time        `bun:"updated_at" json:"updated_at"`
}
