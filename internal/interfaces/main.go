package interfaces

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"

	"raidbot/internal/models"
)

type Limiter interface {
	// Check peeks at the bucket without consuming.
	Check(ctx context.Context, key string, limit redis_rate.Limit) error
	// Allow consumes one slot from the bucket.
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// ChatTransport is the outbound chat side-effect surface. The core never
// parses chat payloads itself.
type ChatTransport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	RestrictChat(ctx context.Context, chatID int64) error
	RestoreChat(ctx context.Context, chatID int64) error
}

// ConfirmationClient checks a claimed engagement against the target post.
type ConfirmationClient interface {
	ConfirmAction(ctx context.Context, tweetID string, userID int64, actionType models.ActionType) (bool, error)
	// Method names the verification channel recorded on actions.
	Method() string
}

type RaidStore interface {
	CreateRaid(ctx context.Context, raid *models.Raid) error
	GetRaid(ctx context.Context, raidID string) (*models.Raid, error)
	UpdateRaid(ctx context.Context, raid *models.Raid) error
	GetActiveRaidByChat(ctx context.Context, chatID int64) (*models.Raid, error)
	CountActiveRaids(ctx context.Context) (int, error)
	ListExpiredActiveRaids(ctx context.Context, now time.Time) ([]*models.Raid, error)
	ListActiveRaids(ctx context.Context) ([]*models.Raid, error)

	FindParticipant(ctx context.Context, raidID string, userID int64) (*models.RaidParticipant, error)
	CountParticipants(ctx context.Context, raidID string) (int, error)
	AddParticipant(ctx context.Context, participant *models.RaidParticipant) error
	ListParticipants(ctx context.Context, raidID string) ([]*models.RaidParticipant, error)

	FindAction(ctx context.Context, raidID string, userID int64, actionType models.ActionType) (*models.RaidAction, error)
	InsertAction(ctx context.Context, action *models.RaidAction, username string) error

	CompleteRaid(ctx context.Context, raid *models.Raid) error
	RaidStats(ctx context.Context, raidID string) (*models.RaidStats, error)
}

type LockStore interface {
	GetLock(ctx context.Context, chatID int64) (*models.ChatLock, error)
	SaveLock(ctx context.Context, lock *models.ChatLock) error
	ListLocked(ctx context.Context) ([]*models.ChatLock, error)
}

type BanStore interface {
	FindBan(ctx context.Context, userID int64) (*models.Ban, error)
	UpsertBan(ctx context.Context, ban *models.Ban) error
	DeleteBan(ctx context.Context, userID int64) error
}

type ModerationStore interface {
	AppendModeration(ctx context.Context, entry *models.ModerationAction) error
	ListModerationByTarget(ctx context.Context, targetID int64, limit int) ([]*models.ModerationAction, error)
}

type LeaderboardStore interface {
	TopEntries(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	GetEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error)
	EntryRank(ctx context.Context, userID int64) (int, error)
	ClearPoints(ctx context.Context, userID int64) error
	AllEntries(ctx context.Context, limit, offset int) ([]*models.LeaderboardEntry, error)
}

type ConfigStore interface {
	GetConfigByKey(ctx context.Context, key string) (*models.Config, error)
}
