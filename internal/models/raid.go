package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RaidStatus string

const (
	RaidStatusActive    RaidStatus = "active"
	RaidStatusCompleted RaidStatus = "completed"
	RaidStatusCancelled RaidStatus = "cancelled"
)

type Raid struct {
	bun.BaseModel    `bun:"table:raid"`
	ID               string     `bun:"id,pk" json:"id"`
	ChatID           int64      `bun:"chat_id" json:"chat_id"`
	TweetID          string     `bun:"tweet_id" json:"tweet_id"`
	TweetURL         string     `bun:"tweet_url" json:"tweet_url"`
	InitiatorID      *int64     `bun:"initiator_id" json:"initiator_id"`
	Status           RaidStatus `bun:"status" json:"status"`
	ParticipantCount int        `bun:"participant_count" json:"participant_count"`
	StartedAt        time.Time  `bun:"started_at" json:"started_at"`
	EndsAt           time.Time  `bun:"ends_at" json:"ends_at"`
	EndedAt          *time.Time `bun:"ended_at" json:"ended_at"`
	CreatedAt        time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at" json:"updated_at"`
}

func (raid *Raid) Active() bool {
	return raid.Status == RaidStatusActive
}

func (raid *Raid) Expired(now time.Time) bool {
	return raid.Status == RaidStatusActive && now.After(raid.EndsAt)
}

func (raid *Raid) IsInitiator(userID int64) bool {
	return raid.InitiatorID != nil && *raid.InitiatorID == userID
}

type RaidStats struct {
	RaidID           string `bun:"raid_id" json:"raid_id"`
	ParticipantCount int    `bun:"participant_count" json:"participant_count"`
	TotalPoints      int    `bun:"total_points" json:"total_points"`
	TopUserID        int64  `bun:"top_user_id" json:"top_user_id"`
	TopUsername      string `bun:"top_username" json:"top_username"`
	TopPoints        int    `bun:"top_points" json:"top_points"`
}
