package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"

	"raidbot/internal/datastore/redis_store"
	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/retry"
)

var reTweetLink = regexp.MustCompile(`^https?://(?:www\.)?(?:twitter\.com|x\.com)/\w+/status/(\d+)`)

// ParseTweetLink extracts the tweet id from a status link.
func ParseTweetLink(link string) (string, bool) {
	m := reTweetLink.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ServiceCampaign orchestrates raid lifecycles: user-initiated campaigns
// with cooldown and daily caps, scheduled auto campaigns, timed completion,
// and periodic status broadcasts.
type ServiceCampaign struct {
	container  *do.Injector
	raid       *ServiceRaid
	verifier   *ServiceVerifier
	lock       *ServiceLock
	moderation *ServiceModeration
	config     *ServiceConfig
	transport  interfaces.ChatTransport
	redisDB    redis.UniversalClient

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewServiceCampaign(container *do.Injector) (*ServiceCampaign, error) {
	raid, err := do.Invoke[*ServiceRaid](container)
	if err != nil {
		return nil, err
	}

	verifier, err := do.Invoke[*ServiceVerifier](container)
	if err != nil {
		return nil, err
	}

	lock, err := do.Invoke[*ServiceLock](container)
	if err != nil {
		return nil, err
	}

	moderation, err := do.Invoke[*ServiceModeration](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	transport, err := do.Invoke[interfaces.ChatTransport](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	service := &ServiceCampaign{
		container:  container,
		raid:       raid,
		verifier:   verifier,
		lock:       lock,
		moderation: moderation,
		config:     config,
		transport:  transport,
		redisDB:    redisDB,
		timers:     map[string]*time.Timer{},
	}
	lock.OnUnlock(service.handleUnlock)
	return service, nil
}

func (service *ServiceCampaign) handleUnlock(chatID int64, raidID string, progress models.EngagementCounts) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text := fmt.Sprintf("Targets met (%d likes, %d retweets, %d comments, %d quotes), chat unlocked. Keep smashing!",
		progress.Likes, progress.Retweets, progress.Comments, progress.Quotes)
	//nolint:errcheck
	service.transport.SendMessage(ctx, chatID, text)
}

// InitiateFromLink starts a user campaign from a tweet link. The initiator
// is recorded on the raid and earns the prophet bonus on their own actions.
func (service *ServiceCampaign) InitiateFromLink(ctx context.Context, chatID, userID int64, username, link string) (*models.Raid, error) {
	tweetID, ok := ParseTweetLink(link)
	if !ok {
		return nil, errorx.Wrap(errors.New("not a tweet link"), errorx.Validation)
	}

	banned, err := service.moderation.IsBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, errorx.Wrap(ErrBanned, errorx.Authn)
	}

	existing, err := service.raid.ActiveRaidForChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errorx.Wrap(ErrRaidInProgress, errorx.Invalid)
	}

	maxActive, _ := service.config.GetIntConfig(ctx, CONFIG_MAX_ACTIVE_RAIDS, DEFAULT_MAX_ACTIVE_RAIDS)
	active, err := service.raid.CountActiveRaids(ctx)
	if err != nil {
		return nil, err
	}
	if active >= maxActive {
		return nil, errorx.Wrap(ErrRaidInProgress, errorx.Invalid)
	}

	if service.redisDB != nil {
		remaining, err := redis_store.CampaignCooldownRemaining(ctx, service.redisDB, userID)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if remaining > 0 {
			return nil, errorx.Wrap(fmt.Errorf("%w: retry in %s", ErrCooldownActive, remaining.Round(time.Second)), errorx.RateLimiting)
		}

		dailyCap, _ := service.config.GetIntConfig(ctx, CONFIG_DAILY_CAMPAIGN_CAP, DEFAULT_DAILY_CAMPAIGN_CAP)
		daily, err := redis_store.CountDailyInitiations(ctx, service.redisDB, userID, time.Now())
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		if daily >= dailyCap {
			return nil, errorx.Wrap(ErrDailyCapReached, errorx.RateLimiting)
		}
	}

	raid, err := service.startRaid(ctx, chatID, tweetID, link, &userID)
	if err != nil {
		return nil, err
	}

	if service.redisDB != nil {
		cooldownMinutes, _ := service.config.GetIntConfig(ctx, CONFIG_CAMPAIGN_COOLDOWN_MINUTES, DEFAULT_CAMPAIGN_COOLDOWN_MINUTES)
		if err := redis_store.SetCampaignCooldown(ctx, service.redisDB, userID, time.Duration(cooldownMinutes)*time.Minute); err != nil {
			log.Println("campaign cooldown:", err)
		}
		if _, err := redis_store.IncrDailyInitiations(ctx, service.redisDB, userID, time.Now()); err != nil {
			log.Println("campaign daily counter:", err)
		}
	}

	// the initiator is participant #1
	if _, _, err := service.raid.JoinRaid(ctx, raid.ID, userID, username); err != nil {
		log.Println("initiator join:", err)
	}

	return raid, nil
}

// RunScheduled starts the configured auto campaign. Used by the cron job;
// a missing or already-raided chat makes it a no-op.
func (service *ServiceCampaign) RunScheduled(ctx context.Context) (*models.Raid, error) {
	chatID, err := service.config.GetIntConfig(ctx, CONFIG_AUTO_RAID_CHAT_ID, 0)
	if err != nil || chatID == 0 {
		return nil, nil
	}
	link, err := service.config.GetStringConfig(ctx, CONFIG_AUTO_RAID_TWEET_URL, "")
	if err != nil || link == "" {
		return nil, nil
	}
	tweetID, ok := ParseTweetLink(link)
	if !ok {
		return nil, errorx.Wrap(errors.New("bad auto raid link"), errorx.Validation)
	}

	existing, err := service.raid.ActiveRaidForChat(ctx, int64(chatID))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	maxActive, _ := service.config.GetIntConfig(ctx, CONFIG_MAX_ACTIVE_RAIDS, DEFAULT_MAX_ACTIVE_RAIDS)
	active, err := service.raid.CountActiveRaids(ctx)
	if err != nil {
		return nil, err
	}
	if active >= maxActive {
		return nil, nil
	}

	return service.startRaid(ctx, int64(chatID), tweetID, link, nil)
}

func (service *ServiceCampaign) startRaid(ctx context.Context, chatID int64, tweetID, link string, initiatorID *int64) (*models.Raid, error) {
	durationMinutes, _ := service.config.GetIntConfig(ctx, CONFIG_RAID_DURATION_MINUTES, DEFAULT_RAID_DURATION_MINUTES)
	duration := time.Duration(durationMinutes) * time.Minute

	raid, err := service.raid.CreateRaid(ctx, chatID, tweetID, link, initiatorID, duration)
	if err != nil {
		return nil, err
	}

	initiator := int64(0)
	if initiatorID != nil {
		initiator = *initiatorID
	}
	if err := service.lock.Lock(ctx, chatID, raid.ID, initiator); err != nil && !errors.Is(err, ErrNoTargets) {
		log.Println("lock chat:", err)
	}

	service.scheduleCompletion(raid.ID, duration)

	//nolint:errcheck
	service.transport.SendMessage(ctx, chatID, fmt.Sprintf("Raid started! Target: %s\nReply with your engagement to earn points. Ends in %s.", link, duration))

	return raid, nil
}

// HandleJoin admits a user into the chat's active raid.
func (service *ServiceCampaign) HandleJoin(ctx context.Context, chatID, userID int64, username string) (bool, int, error) {
	banned, err := service.moderation.IsBanned(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if banned {
		return false, 0, errorx.Wrap(ErrBanned, errorx.Authn)
	}

	raid, err := service.activeRaid(ctx, chatID)
	if err != nil {
		return false, 0, err
	}

	return service.raid.JoinRaid(ctx, raid.ID, userID, username)
}

// HandleAction routes an engagement claim through the verifier and, on a
// newly verified action, advances the chat lock progress.
func (service *ServiceCampaign) HandleAction(ctx context.Context, chatID, userID int64, username string, actionType models.ActionType) (*VerifyResult, error) {
	raid, err := service.activeRaid(ctx, chatID)
	if err != nil {
		return nil, err
	}

	result, err := service.verifier.Verify(ctx, raid.ID, userID, username, actionType)
	if err != nil {
		return result, err
	}

	if result.Verified && !result.Duplicate {
		if _, err := service.lock.UpdateProgress(ctx, chatID, models.CountsForAction(actionType)); err != nil {
			log.Println("lock progress:", err)
		}
	}

	return result, nil
}

// ResetRaid cancels the chat's active raid. Admin only.
func (service *ServiceCampaign) ResetRaid(ctx context.Context, chatID, actorID int64, reason string) error {
	if err := service.moderation.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	raid, err := service.raid.ActiveRaidForChat(ctx, chatID)
	if err != nil {
		return err
	}
	if raid == nil {
		return errorx.Wrap(ErrRaidNotFound, errorx.NotExist)
	}

	if err := service.completeRaid(ctx, raid.ID, true); err != nil {
		return err
	}

	if err := service.moderation.appendLog(ctx, models.ModerationReset, actorID, chatID, reason); err != nil {
		log.Println("moderation log:", err)
	}
	return nil
}

func (service *ServiceCampaign) activeRaid(ctx context.Context, chatID int64) (*models.Raid, error) {
	var raid *models.Raid
	err := retry.Default.Do(ctx, func() error {
		var err error
		raid, err = service.raid.ActiveRaidForChat(ctx, chatID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if raid == nil {
		return nil, errorx.Wrap(ErrRaidNotFound, errorx.NotExist)
	}
	return raid, nil
}

func (service *ServiceCampaign) scheduleCompletion(raidID string, after time.Duration) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if timer, ok := service.timers[raidID]; ok {
		timer.Stop()
	}
	service.timers[raidID] = time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := service.completeRaid(ctx, raidID, false); err != nil {
			log.Println("raid completion:", err)
		}
	})
}

func (service *ServiceCampaign) dropTimer(raidID string) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if timer, ok := service.timers[raidID]; ok {
		timer.Stop()
		delete(service.timers, raidID)
	}
}

func (service *ServiceCampaign) completeRaid(ctx context.Context, raidID string, cancelled bool) error {
	service.dropTimer(raidID)

	raid, err := service.raid.GetRaid(ctx, raidID)
	if err != nil {
		return err
	}
	if !raid.Active() {
		return nil
	}

	if cancelled {
		err = service.raid.CancelRaid(ctx, raidID)
	} else {
		err = service.raid.EndRaid(ctx, raidID)
	}
	if err != nil {
		return err
	}

	if _, err := service.lock.ForceUnlock(ctx, raid.ChatID, raidID); err != nil {
		log.Println("unlock on completion:", err)
	}

	service.announceCompletion(ctx, raid, cancelled)
	return nil
}

func (service *ServiceCampaign) announceCompletion(ctx context.Context, raid *models.Raid, cancelled bool) {
	if cancelled {
		//nolint:errcheck
		service.transport.SendMessage(ctx, raid.ChatID, "Raid cancelled.")
		return
	}

	stats, err := service.raid.GetRaidStats(ctx, raid.ID)
	if err != nil {
		log.Println("raid stats:", err)
		return
	}

	text := fmt.Sprintf("Raid finished! %d raiders, %d points total.", stats.ParticipantCount, stats.TotalPoints)
	if stats.TopUsername != "" {
		text += fmt.Sprintf(" MVP: @%s with %d points.", stats.TopUsername, stats.TopPoints)
	}
	//nolint:errcheck
	service.transport.SendMessage(ctx, raid.ChatID, text)
}

// EnsureCompleted reschedules completion timers for raids that survived a
// restart and sweeps the ones already past their deadline.
func (service *ServiceCampaign) EnsureCompleted(ctx context.Context) error {
	raids, err := service.raid.ListActiveRaids(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, raid := range raids {
		remaining := raid.EndsAt.Sub(now)
		if remaining <= 0 {
			if err := service.completeRaid(ctx, raid.ID, false); err != nil {
				log.Println("expired raid completion:", err)
			}
			continue
		}
		service.scheduleCompletion(raid.ID, remaining)
	}
	return nil
}

// SweepExpired completes raids whose deadline passed. Safety net for the
// cron job; timers handle the common path.
func (service *ServiceCampaign) SweepExpired(ctx context.Context) (int, error) {
	raids, err := service.raid.ListExpiredActiveRaids(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, raid := range raids {
		if err := service.completeRaid(ctx, raid.ID, false); err != nil {
			log.Println("sweep completion:", err)
			continue
		}
		completed++
	}
	return completed, nil
}

// StartBroadcasts sends periodic raid status updates, skipping raids whose
// stats have not changed since the last broadcast. Blocks until ctx is done.
func (service *ServiceCampaign) StartBroadcasts(ctx context.Context) {
	intervalMinutes, _ := service.config.GetIntConfig(ctx, CONFIG_BROADCAST_INTERVAL_MIN, DEFAULT_BROADCAST_INTERVAL_MIN)
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.broadcastOnce(ctx)
		}
	}
}

func (service *ServiceCampaign) broadcastOnce(ctx context.Context) {
	raids, err := service.raid.ListActiveRaids(ctx)
	if err != nil {
		log.Println("broadcast list:", err)
		return
	}

	for _, raid := range raids {
		stats, err := service.raid.GetRaidStats(ctx, raid.ID)
		if err != nil {
			log.Println("broadcast stats:", err)
			continue
		}

		if service.redisDB != nil {
			last, err := redis_store.GetLastBroadcast(ctx, service.redisDB, raid.ID)
			if err == nil && last != nil &&
				last.ParticipantCount == stats.ParticipantCount &&
				last.TotalPoints == stats.TotalPoints {
				continue
			}
		}

		text := fmt.Sprintf("Raid update: %d raiders, %d points. Ends %s.", stats.ParticipantCount, stats.TotalPoints, raid.EndsAt.Format(time.Kitchen))
		if stats.TopUsername != "" {
			text += fmt.Sprintf(" Leading: @%s with %d points.", stats.TopUsername, stats.TopPoints)
		}
		if err := service.transport.SendMessage(ctx, raid.ChatID, text); err != nil {
			log.Println("broadcast send:", err)
			continue
		}

		if service.redisDB != nil {
			snapshot := &redis_store.BroadcastSnapshot{
				ParticipantCount: stats.ParticipantCount,
				TotalPoints:      stats.TotalPoints,
				TopUserID:        stats.TopUserID,
				SentAt:           time.Now(),
			}
			if err := redis_store.SetLastBroadcast(ctx, service.redisDB, raid.ID, snapshot); err != nil {
				log.Println("broadcast snapshot:", err)
			}
		}
	}
}

// Stop cancels pending completion timers. Raids stay active in storage and
// are resumed by EnsureCompleted on the next start.
func (service *ServiceCampaign) Stop() {
	service.mu.Lock()
	defer service.mu.Unlock()

	for id, timer := range service.timers {
		timer.Stop()
		delete(service.timers, id)
	}
}
