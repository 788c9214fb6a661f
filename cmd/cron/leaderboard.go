package main

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"

	"raidbot/internal/services"
)

// LeaderboardJob rebuilds the redis zset mirror from Postgres so the
// best-effort increments done on the hot path cannot drift.
type LeaderboardJob struct {
	leaderboard *services.ServiceLeaderboard
	config      *services.ServiceConfig
}

func NewLeaderboardJob(injector *do.Injector) (*LeaderboardJob, error) {
	leaderboard, err := do.Invoke[*services.ServiceLeaderboard](injector)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return nil, err
	}

	return &LeaderboardJob{leaderboard, config}, nil
}

func (j *LeaderboardJob) Start(cronRunner *cron.Cron) {
	ctx := context.Background()

	schedule, err := j.config.GetStringConfig(ctx, "CRONJOB_TIME_LEADERBOARD", "@every 1h")
	if err != nil {
		schedule = "@every 1h"
	}

	if _, err := cronRunner.AddFunc(schedule, j.rebuild); err != nil {
		log.Println("leaderboard schedule:", err)
		return
	}
	log.Println("leaderboard cron:", schedule)

	j.rebuild()
}

func (j *LeaderboardJob) rebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := j.leaderboard.RebuildMirror(ctx); err != nil {
		log.Println("leaderboard rebuild:", err)
		return
	}
	log.Println("leaderboard mirror rebuilt at", time.Now().Format("2006-01-02 15:04:05"))
}
