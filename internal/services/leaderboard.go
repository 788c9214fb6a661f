package services

import (
	"context"
	"database/sql"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"

	"raidbot/internal/datastore/redis_store"
	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/caching"
)

// ServiceLeaderboard serves the overall standings. Reads come from Postgres
// with a short cache; ranks use the redis zset when available.
type ServiceLeaderboard struct {
	container *do.Injector
	store     interfaces.LeaderboardStore
	redisDB   redis.UniversalClient
	cache     caching.Cache
	config    *ServiceConfig
}

func NewServiceLeaderboard(container *do.Injector) (*ServiceLeaderboard, error) {
	store, err := do.Invoke[interfaces.LeaderboardStore](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLeaderboard{container, store, redisDB, cache, config}, nil
}

// TopN returns the ranked standings, ties broken by user id so the order is
// stable across reads.
func (service *ServiceLeaderboard) TopN(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit, _ = service.config.GetIntConfig(ctx, CONFIG_LEADERBOARD_LIMIT, DEFAULT_LEADERBOARD_LIMIT)
	}

	callback := func() ([]*models.LeaderboardEntry, error) {
		entries, err := service.store.TopEntries(ctx, limit)
		if err != nil {
			return nil, err
		}
		for i, entry := range entries {
			entry.Rank = i + 1
		}
		return entries, nil
	}

	entries, err := caching.UseCache(ctx, service.cache, DBKeyLeaderboardTop(limit), CACHE_TTL_5_SECONDS, callback)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return entries, nil
}

func (service *ServiceLeaderboard) UserStats(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	entry, err := service.store.GetEntry(ctx, userID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(ErrParticipantNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	rank, err := service.UserRank(ctx, userID)
	if err == nil {
		entry.Rank = rank
	}
	return entry, nil
}

// UserRank tries the zset first and falls back to a count query.
func (service *ServiceLeaderboard) UserRank(ctx context.Context, userID int64) (int, error) {
	if service.redisDB != nil {
		rank, err := redis_store.GetLeaderboardRank(ctx, service.redisDB, userID)
		if err == nil {
			return rank, nil
		}
	}

	rank, err := service.store.EntryRank(ctx, userID)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	return rank, nil
}

// ClearPoints zeroes a user's total. Admin gate lives with the caller; the
// action is logged there too.
func (service *ServiceLeaderboard) ClearPoints(ctx context.Context, userID int64) error {
	if err := service.store.ClearPoints(ctx, userID); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	if service.redisDB != nil {
		//nolint:errcheck
		redis_store.SetLeaderboardScore(ctx, service.redisDB, &models.LeaderboardItem{UserId: userID, Score: 0})
	}
	return nil
}

// RebuildMirror repopulates the redis zset from Postgres. Run by the cron
// job so best-effort increments cannot drift forever.
func (service *ServiceLeaderboard) RebuildMirror(ctx context.Context) error {
	if service.redisDB == nil {
		return nil
	}

	if err := redis_store.ClearLeaderboard(ctx, service.redisDB); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		entries, err := service.store.AllEntries(ctx, pageSize, offset)
		if err != nil {
			return errorx.Wrap(err, errorx.Service)
		}
		for _, entry := range entries {
			item := &models.LeaderboardItem{UserId: entry.UserID, Score: float64(entry.TotalPoints)}
			if err := redis_store.SetLeaderboardScore(ctx, service.redisDB, item); err != nil {
				return errorx.Wrap(err, errorx.Service)
			}
		}
		if len(entries) < pageSize {
			return nil
		}
	}
}
