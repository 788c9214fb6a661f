package container

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	tele "gopkg.in/telebot.v3"

	"raidbot/internal/datastore"
	"raidbot/internal/interfaces"
	"raidbot/internal/pkg/caching"
	"raidbot/internal/pkg/limiter"
	"raidbot/internal/services"
)

// New wires the full service graph. Every binary shares this container so
// the bot, cron and api see the same stores and services.
func New(vs map[string]string, b *tele.Bot) *do.Injector {
	injector := do.New()

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_DB"),
		})
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		url := os.Getenv("REDIS_CACHE")
		if url == "" {
			url = os.Getenv("REDIS_DB")
		}
		return db.InitRedis(&db.RedisConfig{URL: url})
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		url := os.Getenv("REDIS_LIMITER")
		if url == "" {
			url = os.Getenv("REDIS_DB")
		}
		return db.InitRedis(&db.RedisConfig{URL: url})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewRedis(dbRedis), nil
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.RaidStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewRaidStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.LockStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewLockStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.BanStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewBanStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ModerationStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewModerationStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.LeaderboardStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewLeaderboardStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ConfigStore, error) {
		postgres, err := do.Invoke[*bun.DB](i)
		if err != nil {
			return nil, err
		}
		return datastore.NewConfigStore(postgres), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ChatTransport, error) {
		return services.NewBotFromTele(b), nil
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.ConfirmationClient, error) {
		apiURL := os.Getenv("ENGAGEMENT_API_URL")
		if apiURL != "" {
			return services.NewHTTPConfirmation(apiURL, os.Getenv("ENGAGEMENT_API_KEY"), 10*time.Second), nil
		}

		successPercent := services.DEFAULT_CONFIRM_SUCCESS_PERCENT
		if raw := os.Getenv("CONFIRM_SUCCESS_PERCENT"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				successPercent = parsed
			}
		}
		return services.NewSimulatedConfirmation(successPercent)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceModeration, error) {
		return services.NewServiceModeration(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceRaid, error) {
		return services.NewServiceRaid(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceVerifier, error) {
		return services.NewServiceVerifier(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLock, error) {
		return services.NewServiceLock(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceCampaign, error) {
		return services.NewServiceCampaign(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLeaderboard, error) {
		return services.NewServiceLeaderboard(injector)
	})

	return injector
}
