package main

import (
	"context"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"

	"raidbot/internal/services"
)

// CampaignJob runs the scheduled auto raid and sweeps raids whose deadline
// passed while no bot process was around to complete them.
type CampaignJob struct {
	campaign *services.ServiceCampaign
	config   *services.ServiceConfig
	rs       *redsync.Redsync
}

func NewCampaignJob(injector *do.Injector) (*CampaignJob, error) {
	campaign, err := do.Invoke[*services.ServiceCampaign](injector)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*services.ServiceConfig](injector)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](injector)
	if err != nil {
		return nil, err
	}

	return &CampaignJob{campaign, config, rs}, nil
}

func (j *CampaignJob) Start(cronRunner *cron.Cron) {
	ctx := context.Background()

	schedule, err := j.config.GetStringConfig(ctx, services.CONFIG_CRONJOB_TIME_AUTO_RAID, "")
	if err != nil || schedule == "" {
		log.Println("auto raid schedule not configured, skipping")
	} else {
		if _, err := cronRunner.AddFunc(schedule, j.runAutoRaid); err != nil {
			log.Println("auto raid schedule:", err)
		} else {
			log.Println("auto raid cron:", schedule)
		}
	}

	if _, err := cronRunner.AddFunc("@every 1m", j.sweepExpired); err != nil {
		log.Println("sweep schedule:", err)
	}
}

// runAutoRaid holds a distributed mutex so two cron replicas cannot start
// the same scheduled raid.
func (j *CampaignJob) runAutoRaid() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mutex := j.rs.NewMutex(services.LockKeyAutoCampaign(), redsync.WithExpiry(time.Minute))
	if err := mutex.Lock(); err != nil {
		log.Println("auto raid mutex:", err)
		return
	}
	//nolint:errcheck
	defer mutex.Unlock()

	raid, err := j.campaign.RunScheduled(ctx)
	if err != nil {
		log.Println("auto raid:", err)
		return
	}
	if raid != nil {
		log.Println("auto raid started:", raid.ID)
	}
}

func (j *CampaignJob) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	completed, err := j.campaign.SweepExpired(ctx)
	if err != nil {
		log.Println("sweep expired:", err)
		return
	}
	if completed > 0 {
		log.Println("completed expired raids:", completed)
	}
}
