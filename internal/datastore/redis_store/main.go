package redis_store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"raidbot/internal/models"
)

func dbKeyLeaderboard() string {
	return "leaderboard:overall"
}

func dbKeyCampaignCooldown(userID int64) string {
	return fmt.Sprintf("campaign:cooldown:%d", userID)
}

func dbKeyCampaignDaily(userID int64, day string) string {
	return fmt.Sprintf("campaign:daily:%d:%s", userID, day)
}

func dbKeyLastBroadcast(raidID string) string {
	return fmt.Sprintf("raid:%s:last_broadcast", strings.ToLower(raidID))
}

// SetCampaignCooldown arms the per-user initiation cooldown.
func SetCampaignCooldown(ctx context.Context, cmd redis.Cmdable, userID int64, ttl time.Duration) error {
	return cmd.Set(ctx, dbKeyCampaignCooldown(userID), time.Now().Format(time.RFC3339), ttl).Err()
}

// CampaignCooldownRemaining returns zero when no cooldown is armed.
func CampaignCooldownRemaining(ctx context.Context, cmd redis.Cmdable, userID int64) (time.Duration, error) {
	ttl, err := cmd.TTL(ctx, dbKeyCampaignCooldown(userID)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// CountDailyInitiations reads the per-day counter without touching it.
func CountDailyInitiations(ctx context.Context, cmd redis.Cmdable, userID int64, now time.Time) (int, error) {
	result, err := cmd.Get(ctx, dbKeyCampaignDaily(userID, now.UTC().Format("2006-01-02"))).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

// IncrDailyInitiations bumps the per-day counter. The key lapses on its own
// after a day, no sweep needed.
func IncrDailyInitiations(ctx context.Context, cmd redis.Cmdable, userID int64, now time.Time) (int, error) {
	key := dbKeyCampaignDaily(userID, now.UTC().Format("2006-01-02"))
	count, err := cmd.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		//nolint:errcheck
		cmd.Expire(ctx, key, 25*time.Hour)
	}
	return int(count), nil
}

func IncrLeaderboardScore(ctx context.Context, cmd redis.Cmdable, userID int64, points int) error {
	return cmd.ZIncrBy(ctx, dbKeyLeaderboard(), float64(points), strconv.FormatInt(userID, 10)).Err()
}

func SetLeaderboardScore(ctx context.Context, cmd redis.Cmdable, v *models.LeaderboardItem) error {
	return cmd.ZAdd(ctx, dbKeyLeaderboard(), redis.Z{
		Score:  v.Score,
		Member: v.UserId,
	}).Err()
}

func ClearLeaderboard(ctx context.Context, cmd redis.Cmdable) error {
	return cmd.Del(ctx, dbKeyLeaderboard()).Err()
}

// GetLeaderboardRank is count(strictly greater scores) + 1, so tied users
// share a rank and the zset agrees with the SQL fallback.
func GetLeaderboardRank(ctx context.Context, cmd redis.Cmdable, userID int64) (int, error) {
	score, err := cmd.ZScore(ctx, dbKeyLeaderboard(), strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		return 0, err
	}

	greater, err := cmd.ZCount(ctx, dbKeyLeaderboard(), "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(greater) + 1, nil
}

// BroadcastSnapshot is the last status summary sent for a raid. Broadcasts
// are skipped while nothing changed.
type BroadcastSnapshot struct {
	ParticipantCount int       `msgpack:"participant_count"`
	TotalPoints      int       `msgpack:"total_points"`
	TopUserID        int64     `msgpack:"top_user_id"`
	SentAt           time.Time `msgpack:"sent_at"`
}

func SetLastBroadcast(ctx context.Context, cmd redis.Cmdable, raidID string, v *BroadcastSnapshot) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return cmd.Set(ctx, dbKeyLastBroadcast(raidID), b, 24*time.Hour).Err()
}

func GetLastBroadcast(ctx context.Context, cmd redis.Cmdable, raidID string) (*BroadcastSnapshot, error) {
	b, err := cmd.Get(ctx, dbKeyLastBroadcast(raidID)).Bytes()
	if err != nil {
		return nil, err
	}

	var v BroadcastSnapshot
	err = msgpack.Unmarshal(b, &v)
	return &v, err
}
