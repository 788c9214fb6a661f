package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"

	"raidbot/internal/datastore/redis_store"
	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/keymutex"
)

// ServiceRaid is the raid ledger. All mutations of one raid are serialized
// behind its key mutex; different raids proceed concurrently.
type ServiceRaid struct {
	container *do.Injector
	store     interfaces.RaidStore
	redisDB   redis.UniversalClient
	locks     *keymutex.KeyMutex
}

func NewServiceRaid(container *do.Injector) (*ServiceRaid, error) {
	store, err := do.Invoke[interfaces.RaidStore](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	return &ServiceRaid{container, store, redisDB, keymutex.New()}, nil
}

func (service *ServiceRaid) CreateRaid(ctx context.Context, chatID int64, tweetID, tweetURL string, initiatorID *int64, duration time.Duration) (*models.Raid, error) {
	now := time.Now()
	raid := &models.Raid{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		TweetID:     tweetID,
		TweetURL:    tweetURL,
		InitiatorID: initiatorID,
		Status:      models.RaidStatusActive,
		StartedAt:   now,
		EndsAt:      now.Add(duration),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := service.store.CreateRaid(ctx, raid); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return raid, nil
}

func (service *ServiceRaid) GetRaid(ctx context.Context, raidID string) (*models.Raid, error) {
	raid, err := service.store.GetRaid(ctx, raidID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(ErrRaidNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return raid, nil
}

// ActiveRaidForChat returns nil without error when the chat has no active
// raid.
func (service *ServiceRaid) ActiveRaidForChat(ctx context.Context, chatID int64) (*models.Raid, error) {
	raid, err := service.store.GetActiveRaidByChat(ctx, chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return raid, nil
}

func (service *ServiceRaid) CountActiveRaids(ctx context.Context) (int, error) {
	count, err := service.store.CountActiveRaids(ctx)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	return count, nil
}

func (service *ServiceRaid) ListActiveRaids(ctx context.Context) ([]*models.Raid, error) {
	raids, err := service.store.ListActiveRaids(ctx)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return raids, nil
}

// JoinRaid admits a user once. A second join returns joined=false with the
// original position. Positions are assigned under the raid mutex so they
// form a contiguous 1..N sequence.
func (service *ServiceRaid) JoinRaid(ctx context.Context, raidID string, userID int64, username string) (bool, int, error) {
	raid, err := service.GetRaid(ctx, raidID)
	if err != nil {
		return false, 0, err
	}
	if !raid.Active() {
		return false, 0, errorx.Wrap(ErrRaidNotActive, errorx.Invalid)
	}

	unlock := service.locks.Lock(LockKeyRaid(raidID))
	defer unlock()

	participant, err := service.store.FindParticipant(ctx, raidID, userID)
	if err != nil && err != sql.ErrNoRows {
		return false, 0, errorx.Wrap(err, errorx.Service)
	}
	if participant != nil {
		return false, participant.Position, nil
	}

	count, err := service.store.CountParticipants(ctx, raidID)
	if err != nil {
		return false, 0, errorx.Wrap(err, errorx.Service)
	}

	participant = &models.RaidParticipant{
		RaidID:   raidID,
		UserID:   userID,
		Username: username,
		Position: count + 1,
		JoinedAt: time.Now(),
	}
	if err := service.store.AddParticipant(ctx, participant); err != nil {
		return false, 0, errorx.Wrap(err, errorx.Service)
	}

	return true, participant.Position, nil
}

func (service *ServiceRaid) GetParticipant(ctx context.Context, raidID string, userID int64) (*models.RaidParticipant, error) {
	participant, err := service.store.FindParticipant(ctx, raidID, userID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(ErrParticipantNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return participant, nil
}

// RecordAction appends one verified action. A duplicate (user, raid, type)
// returns the existing record with appended=false and awards nothing.
func (service *ServiceRaid) RecordAction(ctx context.Context, raidID string, userID int64, username string, actionType models.ActionType, points int, multiplier float64, method string) (*models.RaidAction, bool, error) {
	unlock := service.locks.Lock(LockKeyRaid(raidID))
	defer unlock()

	if _, err := service.store.FindParticipant(ctx, raidID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, errorx.Wrap(ErrParticipantNotFound, errorx.NotExist)
		}
		return nil, false, errorx.Wrap(err, errorx.Service)
	}

	existing, err := service.store.FindAction(ctx, raidID, userID, actionType)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, errorx.Wrap(err, errorx.Service)
	}
	if existing != nil {
		return existing, false, nil
	}

	action := &models.RaidAction{
		RaidID:     raidID,
		UserID:     userID,
		Type:       actionType,
		Points:     points,
		Multiplier: multiplier,
		Method:     method,
		CreatedAt:  time.Now(),
	}
	if err := service.store.InsertAction(ctx, action, username); err != nil {
		return nil, false, errorx.Wrap(err, errorx.Service)
	}

	// zset mirror is best effort, rebuilt by the cron job
	if service.redisDB != nil {
		if err := redis_store.IncrLeaderboardScore(ctx, service.redisDB, userID, points); err != nil {
			log.Println("leaderboard zset incr:", err)
		}
	}

	return action, true, nil
}

// EndRaid completes a raid and credits every participant exactly once.
// Ending a raid that is no longer active is a no-op.
func (service *ServiceRaid) EndRaid(ctx context.Context, raidID string) error {
	return service.finishRaid(ctx, raidID, models.RaidStatusCompleted)
}

func (service *ServiceRaid) CancelRaid(ctx context.Context, raidID string) error {
	return service.finishRaid(ctx, raidID, models.RaidStatusCancelled)
}

func (service *ServiceRaid) finishRaid(ctx context.Context, raidID string, status models.RaidStatus) error {
	unlock := service.locks.Lock(LockKeyRaid(raidID))
	defer unlock()

	raid, err := service.GetRaid(ctx, raidID)
	if err != nil {
		return err
	}
	if !raid.Active() {
		return nil
	}

	now := time.Now()
	raid.Status = status
	raid.EndedAt = &now
	if err := service.store.CompleteRaid(ctx, raid); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	return nil
}

func (service *ServiceRaid) GetRaidStats(ctx context.Context, raidID string) (*models.RaidStats, error) {
	stats, err := service.store.RaidStats(ctx, raidID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return stats, nil
}

func (service *ServiceRaid) ListExpiredActiveRaids(ctx context.Context, now time.Time) ([]*models.Raid, error) {
	raids, err := service.store.ListExpiredActiveRaids(ctx, now)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return raids, nil
}
