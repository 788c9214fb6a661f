package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LeaderboardEntry is the global aggregate per user, updated incrementally
// whenever raid points change.
type LeaderboardEntry struct {
	bun.BaseModel     `bun:"table:leaderboard_entry"`
	UserID            int64     `bun:"user_id,pk" json:"user_id"`
	Username          string    `bun:"username" json:"username"`
	TotalPoints       int       `bun:"total_points" json:"total_points"`
	RaidsParticipated int       `bun:"raids_participated" json:"raids_participated"`
	BestRaidScore     int       `bun:"best_raid_score" json:"best_raid_score"`
	LastActive        time.Time `bun:"last_active" json:"last_active"`

	Rank int `bun:"-" json:"rank,omitempty"`
}

// LeaderboardItem is the zset-mirror projection of an entry.
type LeaderboardItem struct {
	Username string  `json:"username"`
	UserId   int64   `json:"user_id"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank,omitempty"`
}
