package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"raidbot/internal/datastore"
	"raidbot/internal/models"
	"raidbot/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRaid(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRaidParticipant(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRaidAction(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableChatLock(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableLeaderboardEntry(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableBan(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableModerationAction(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// insert default configs to db
func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_ADMIN_USER_IDS, Value: ""},
				{Key: services.CONFIG_RATE_LIMIT_PER_WINDOW, Value: strconv.Itoa(services.DEFAULT_RATE_LIMIT_PER_WINDOW)},
				{Key: services.CONFIG_RATE_WINDOW_MINUTES, Value: strconv.Itoa(services.DEFAULT_RATE_WINDOW_MINUTES)},
				{Key: services.CONFIG_PROPHET_MULTIPLIER_PCT, Value: strconv.Itoa(services.DEFAULT_PROPHET_MULTIPLIER_PCT)},
				{Key: services.CONFIG_MAX_ACTIVE_RAIDS, Value: strconv.Itoa(services.DEFAULT_MAX_ACTIVE_RAIDS)},
				{Key: services.CONFIG_RAID_DURATION_MINUTES, Value: strconv.Itoa(services.DEFAULT_RAID_DURATION_MINUTES)},
				{Key: services.CONFIG_CAMPAIGN_COOLDOWN_MINUTES, Value: strconv.Itoa(services.DEFAULT_CAMPAIGN_COOLDOWN_MINUTES)},
				{Key: services.CONFIG_DAILY_CAMPAIGN_CAP, Value: strconv.Itoa(services.DEFAULT_DAILY_CAMPAIGN_CAP)},
				{Key: services.CONFIG_BROADCAST_INTERVAL_MIN, Value: strconv.Itoa(services.DEFAULT_BROADCAST_INTERVAL_MIN)},
				{Key: services.CONFIG_LOCK_POLL_SECONDS, Value: strconv.Itoa(services.DEFAULT_LOCK_POLL_SECONDS)},
				{Key: services.CONFIG_VERIFY_TIMEOUT_SECONDS, Value: strconv.Itoa(services.DEFAULT_VERIFY_TIMEOUT_SECONDS)},
				{Key: services.CONFIG_CONFIRM_SUCCESS_PERCENT, Value: strconv.Itoa(services.DEFAULT_CONFIRM_SUCCESS_PERCENT)},
				{Key: services.CONFIG_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.DEFAULT_LEADERBOARD_LIMIT)},
				{Key: services.CONFIG_AUTO_RAID_CHAT_ID, Value: ""},
				{Key: services.CONFIG_AUTO_RAID_TWEET_URL, Value: ""},
				{Key: services.CONFIG_CRONJOB_TIME_AUTO_RAID, Value: ""},
				{Key: "CRONJOB_TIME_LEADERBOARD", Value: "@every 1h"},
			}

			for _, config := range configs {
				err = datastore.InsertConfig(ctx, db, config)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
