package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrRaidNotFound = errors.New("raid not found")
var ErrRaidNotActive = errors.New("raid not active")
var ErrRaidInProgress = errors.New("raid already in progress")
var ErrParticipantNotFound = errors.New("participant not found")
var ErrNoTargets = errors.New("no targets set for raid")
var ErrChatLocked = errors.New("chat is locked")
var ErrNotAdmin = errors.New("admin only")
var ErrBanned = errors.New("user is banned")
var ErrCooldownActive = errors.New("campaign cooldown active")
var ErrDailyCapReached = errors.New("daily campaign cap reached")
var ErrInvalidAction = errors.New("invalid action type")

const (
	CONFIG_ADMIN_USER_IDS            = "ADMIN_USER_IDS"
	CONFIG_RATE_LIMIT_PER_WINDOW     = "RATE_LIMIT_PER_WINDOW"
	CONFIG_RATE_WINDOW_MINUTES       = "RATE_WINDOW_MINUTES"
	CONFIG_PROPHET_MULTIPLIER_PCT    = "PROPHET_MULTIPLIER_PCT"
	CONFIG_MAX_ACTIVE_RAIDS          = "MAX_ACTIVE_RAIDS"
	CONFIG_RAID_DURATION_MINUTES     = "RAID_DURATION_MINUTES"
	CONFIG_CAMPAIGN_COOLDOWN_MINUTES = "CAMPAIGN_COOLDOWN_MINUTES"
	CONFIG_DAILY_CAMPAIGN_CAP        = "DAILY_CAMPAIGN_CAP"
	CONFIG_BROADCAST_INTERVAL_MIN    = "BROADCAST_INTERVAL_MINUTES"
	CONFIG_LOCK_POLL_SECONDS         = "LOCK_POLL_SECONDS"
	CONFIG_VERIFY_TIMEOUT_SECONDS    = "VERIFY_TIMEOUT_SECONDS"
	CONFIG_CONFIRM_SUCCESS_PERCENT   = "CONFIRM_SUCCESS_PERCENT"
	CONFIG_LEADERBOARD_LIMIT         = "LEADERBOARD_LIMIT"
	CONFIG_AUTO_RAID_CHAT_ID         = "AUTO_RAID_CHAT_ID"
	CONFIG_AUTO_RAID_TWEET_URL       = "AUTO_RAID_TWEET_URL"
	CONFIG_CRONJOB_TIME_AUTO_RAID    = "CRONJOB_TIME_AUTO_RAID"

	DEFAULT_RATE_LIMIT_PER_WINDOW     = 5
	DEFAULT_RATE_WINDOW_MINUTES       = 15
	DEFAULT_PROPHET_MULTIPLIER_PCT    = 200
	DEFAULT_MAX_ACTIVE_RAIDS          = 3
	DEFAULT_RAID_DURATION_MINUTES     = 30
	DEFAULT_CAMPAIGN_COOLDOWN_MINUTES = 5
	DEFAULT_DAILY_CAMPAIGN_CAP        = 10
	DEFAULT_BROADCAST_INTERVAL_MIN    = 5
	DEFAULT_LOCK_POLL_SECONDS         = 30
	DEFAULT_VERIFY_TIMEOUT_SECONDS    = 10
	DEFAULT_CONFIRM_SUCCESS_PERCENT   = 80
	DEFAULT_LEADERBOARD_LIMIT         = 20

	LOYALTY_HISTORY_THRESHOLD = 100

	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute
)

func LockKeyRaid(raidID string) string {
	return fmt.Sprintf("raid:%s", strings.ToLower(raidID))
}

func LockKeyChat(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// LockKeyAutoCampaign guards the scheduled campaign across processes.
func LockKeyAutoCampaign() string {
	return "lock:auto-campaign"
}

func LimitKeyAction(userID int64, category string) string {
	return fmt.Sprintf("limit:action:%d:%s", userID, category)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyLeaderboardTop(limit int) string {
	return fmt.Sprintf("leaderboard:top:%d", limit)
}
