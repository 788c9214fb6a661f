package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/limiter"
)

// VerifyResult reports the outcome of one engagement claim.
type VerifyResult struct {
	Verified   bool          `json:"verified"`
	Points     int           `json:"points"`
	Multiplier float64       `json:"multiplier"`
	Position   int           `json:"position"`
	Duplicate  bool          `json:"duplicate"`
	Reason     string        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// ServiceVerifier runs the claim pipeline: ban check, rate-limit check,
// confirmation, auto-join, scoring, append, then rate-limit consume. The
// limiter slot is only spent once the claim got as far as confirmation.
type ServiceVerifier struct {
	container   *do.Injector
	raid        *ServiceRaid
	moderation  *ServiceModeration
	config      *ServiceConfig
	limiter     interfaces.Limiter
	confirmer   interfaces.ConfirmationClient
	leaderboard interfaces.LeaderboardStore
	table       ScoreTable
}

func NewServiceVerifier(container *do.Injector) (*ServiceVerifier, error) {
	raid, err := do.Invoke[*ServiceRaid](container)
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

	lim, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	confirmer, err := do.Invoke[interfaces.ConfirmationClient](container)
	if err != nil {
		return nil, err
	}

	leaderboard, err := do.Invoke[interfaces.LeaderboardStore](container)
	if err != nil {
		return nil, err
	}

	return &ServiceVerifier{container, raid, moderation, config, lim, confirmer, leaderboard, DefaultScoreTable()}, nil
}

func (service *ServiceVerifier) rateLimit(ctx context.Context) redis_rate.Limit {
	perWindow, _ := service.config.GetIntConfig(ctx, CONFIG_RATE_LIMIT_PER_WINDOW, DEFAULT_RATE_LIMIT_PER_WINDOW)
	windowMinutes, _ := service.config.GetIntConfig(ctx, CONFIG_RATE_WINDOW_MINUTES, DEFAULT_RATE_WINDOW_MINUTES)

	return redis_rate.Limit{
		Rate:   perWindow,
		Burst:  perWindow,
		Period: time.Duration(windowMinutes) * time.Minute,
	}
}

// Verify processes one engagement claim against an active raid. Users who
// have not joined yet are admitted on their first verified action.
func (service *ServiceVerifier) Verify(ctx context.Context, raidID string, userID int64, username string, actionType models.ActionType) (*VerifyResult, error) {
	if !actionType.Valid() {
		return nil, errorx.Wrap(ErrInvalidAction, errorx.Validation)
	}

	raid, err := service.raid.GetRaid(ctx, raidID)
	if err != nil {
		return nil, err
	}
	if !raid.Active() {
		return nil, errorx.Wrap(ErrRaidNotActive, errorx.Invalid)
	}

	banned, err := service.moderation.IsBanned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, errorx.Wrap(ErrBanned, errorx.Authn)
	}

	// Check peeks here and Allow consumes after the append, so a failed
	// confirmation or a duplicate never spends a slot. The split is not
	// atomic: two concurrent claims can both pass the peek with one slot
	// left and overfill the window by one. Claims for one user arrive
	// serially through the bot, so that stays theoretical.
	limitKey := LimitKeyAction(userID, actionType.Category())
	limit := service.rateLimit(ctx)
	if err := service.limiter.Check(ctx, limitKey, limit); err != nil {
		var rateErr *limiter.RateLimitError
		if errors.As(err, &rateErr) {
			return &VerifyResult{
				Reason:     "rate limited",
				RetryAfter: rateErr.RetryAfter,
			}, errorx.Wrap(limiter.ErrRateLimited, errorx.RateLimiting)
		}
		return nil, errorx.Wrap(err, errorx.Service)
	}

	confirmed, err := service.confirm(ctx, raid.TweetID, userID, actionType)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if !confirmed {
		return &VerifyResult{Reason: "engagement not found"}, nil
	}

	_, position, err := service.raid.JoinRaid(ctx, raidID, userID, username)
	if err != nil {
		return nil, err
	}

	historyCount := 0
	if entry, err := service.leaderboard.GetEntry(ctx, userID); err == nil {
		historyCount = entry.RaidsParticipated
	}

	score := service.table.Score(actionType, position, historyCount)
	if raid.IsInitiator(userID) {
		pct, _ := service.config.GetIntConfig(ctx, CONFIG_PROPHET_MULTIPLIER_PCT, DEFAULT_PROPHET_MULTIPLIER_PCT)
		score = applyProphetBonus(score, pct)
	}

	_, appended, err := service.raid.RecordAction(ctx, raidID, userID, username, actionType, score.Total, score.Multiplier, service.confirmer.Method())
	if err != nil {
		return nil, err
	}
	if !appended {
		return &VerifyResult{
			Verified:  true,
			Position:  position,
			Duplicate: true,
			Reason:    "already recorded",
		}, nil
	}

	// only verified, non-duplicate actions spend a limiter slot
	if err := service.limiter.Allow(ctx, limitKey, limit); err != nil {
		var rateErr *limiter.RateLimitError
		if !errors.As(err, &rateErr) {
			return nil, errorx.Wrap(err, errorx.Service)
		}
	}

	return &VerifyResult{
		Verified:   true,
		Points:     score.Total,
		Multiplier: score.Multiplier,
		Position:   position,
	}, nil
}

func (service *ServiceVerifier) confirm(ctx context.Context, tweetID string, userID int64, actionType models.ActionType) (bool, error) {
	timeoutSeconds, _ := service.config.GetIntConfig(ctx, CONFIG_VERIFY_TIMEOUT_SECONDS, DEFAULT_VERIFY_TIMEOUT_SECONDS)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	return service.confirmer.ConfirmAction(ctx, tweetID, userID, actionType)
}

func applyProphetBonus(score ScoreResult, pct int) ScoreResult {
	if pct <= 100 {
		return score
	}
	factor := float64(pct) / 100
	score.Multiplier *= factor
	score.Total = int(float64(score.Total) * factor)
	return score
}
