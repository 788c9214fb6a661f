package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/do"
	tele "gopkg.in/telebot.v3"

	"raidbot/internal/models"
	"raidbot/internal/pkg/limiter"
	"raidbot/internal/services"
)

const commandTimeout = 15 * time.Second

func registerCommands(b *tele.Bot, container *do.Injector) {
	campaign := do.MustInvoke[*services.ServiceCampaign](container)
	raid := do.MustInvoke[*services.ServiceRaid](container)
	lock := do.MustInvoke[*services.ServiceLock](container)
	leaderboard := do.MustInvoke[*services.ServiceLeaderboard](container)
	moderation := do.MustInvoke[*services.ServiceModeration](container)

	b.Handle("/start", func(c tele.Context) error {
		return c.Send("Raid bot ready. Use /raid <tweet link> to start a raid, /smashed <like|retweet|reply|quote> to report your engagement.")
	})

	b.Handle("/raid", commandRaid(campaign))
	b.Handle("/join", commandJoin(campaign))
	b.Handle("/smashed", commandSmashed(campaign))
	b.Handle("/status", commandStatus(raid, lock))
	b.Handle("/leaderboard", commandLeaderboard(leaderboard))
	b.Handle("/rank", commandRank(leaderboard))

	// admin commands
	b.Handle("/targets", commandTargets(lock))
	b.Handle("/unlock", commandUnlock(lock))
	b.Handle("/resetraid", commandResetRaid(campaign))
	b.Handle("/ban", commandBan(moderation))
	b.Handle("/unban", commandUnban(moderation))
	b.Handle("/warn", commandWarn(moderation))
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func commandRaid(campaign *services.ServiceCampaign) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 1 {
			return c.Send("Usage: /raid <tweet link>")
		}

		ctx, cancel := commandContext()
		defer cancel()

		raid, err := campaign.InitiateFromLink(ctx, c.Chat().ID, c.Sender().ID, c.Sender().Username, args[0])
		if err != nil {
			return c.Send(userFacing(err))
		}

		return c.Send(fmt.Sprintf("Raid %s is live! Smash the tweet and report back with /smashed.", raid.ID[:8]))
	}
}

func commandJoin(campaign *services.ServiceCampaign) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		joined, position, err := campaign.HandleJoin(ctx, c.Chat().ID, c.Sender().ID, c.Sender().Username)
		if err != nil {
			return c.Send(userFacing(err))
		}

		if !joined {
			return c.Send(fmt.Sprintf("You are already in, raider #%d.", position))
		}
		return c.Send(fmt.Sprintf("Welcome raider #%d! Early birds earn multipliers.", position))
	}
}

func commandSmashed(campaign *services.ServiceCampaign) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 1 {
			return c.Send("Usage: /smashed <like|retweet|reply|quote>")
		}

		actionType := models.ActionType(strings.ToLower(args[0]))
		if !actionType.Valid() {
			return c.Send("Unknown action. Use like, retweet, reply or quote.")
		}

		ctx, cancel := commandContext()
		defer cancel()

		result, err := campaign.HandleAction(ctx, c.Chat().ID, c.Sender().ID, c.Sender().Username, actionType)
		if err != nil {
			if result != nil && result.RetryAfter > 0 {
				return c.Send(fmt.Sprintf("Slow down! Try again in %s.", result.RetryAfter.Round(time.Second)))
			}
			return c.Send(userFacing(err))
		}

		if !result.Verified {
			return c.Send("Could not confirm that engagement yet. Smash first, then report.")
		}
		if result.Duplicate {
			return c.Send("Already counted that one.")
		}
		return c.Send(fmt.Sprintf("Verified! +%d points (x%.1f, position #%d).", result.Points, result.Multiplier, result.Position))
	}
}

func commandStatus(raid *services.ServiceRaid, lock *services.ServiceLock) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		active, err := raid.ActiveRaidForChat(ctx, c.Chat().ID)
		if err != nil {
			return c.Send(userFacing(err))
		}
		if active == nil {
			return c.Send("No active raid. Start one with /raid <tweet link>.")
		}

		stats, err := raid.GetRaidStats(ctx, active.ID)
		if err != nil {
			return c.Send(userFacing(err))
		}

		msg := fmt.Sprintf("Raid on %s\nRaiders: %d | Points: %d | Ends: %s",
			active.TweetURL, stats.ParticipantCount, stats.TotalPoints, active.EndsAt.Format(time.Kitchen))
		if stats.TopUsername != "" {
			msg += fmt.Sprintf("\nLeading: @%s (%d)", stats.TopUsername, stats.TopPoints)
		}

		chatLock, err := lock.GetLock(ctx, c.Chat().ID)
		if err == nil && chatLock != nil && chatLock.Locked {
			msg += fmt.Sprintf("\nChat locked. Progress: %d/%d likes, %d/%d retweets, %d/%d comments, %d/%d quotes",
				chatLock.Progress.Likes, chatLock.Targets.Likes,
				chatLock.Progress.Retweets, chatLock.Targets.Retweets,
				chatLock.Progress.Comments, chatLock.Targets.Comments,
				chatLock.Progress.Quotes, chatLock.Targets.Quotes)
		}

		return c.Send(msg)
	}
}

func commandLeaderboard(leaderboard *services.ServiceLeaderboard) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		entries, err := leaderboard.TopN(ctx, 0)
		if err != nil {
			return c.Send(userFacing(err))
		}
		if len(entries) == 0 {
			return c.Send("Leaderboard is empty. Go raid something.")
		}

		msg := "🏆 Raid leaderboard:"
		for _, entry := range entries {
			name := entry.Username
			if name == "" {
				name = strconv.FormatInt(entry.UserID, 10)
			}
			msg += fmt.Sprintf("\n%d. %s — %d points (%d raids)", entry.Rank, name, entry.TotalPoints, entry.RaidsParticipated)
		}
		return c.Send(msg)
	}
}

func commandRank(leaderboard *services.ServiceLeaderboard) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		entry, err := leaderboard.UserStats(ctx, c.Sender().ID)
		if err != nil {
			return c.Send("No points yet. Join a raid first!")
		}

		return c.Send(fmt.Sprintf("Rank #%d with %d points across %d raids. Best raid: %d points.",
			entry.Rank, entry.TotalPoints, entry.RaidsParticipated, entry.BestRaidScore))
	}
}

func commandTargets(lock *services.ServiceLock) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 4 {
			return c.Send("Usage: /targets <likes> <retweets> <comments> <quotes>")
		}

		values := make([]int, 4)
		for i := range values {
			v, err := strconv.Atoi(args[i])
			if err != nil || v < 0 {
				return c.Send("Targets must be non-negative numbers.")
			}
			values[i] = v
		}

		ctx, cancel := commandContext()
		defer cancel()

		targets := models.EngagementCounts{Likes: values[0], Retweets: values[1], Comments: values[2], Quotes: values[3]}
		if err := lock.SetTargets(ctx, c.Chat().ID, c.Sender().ID, targets); err != nil {
			return c.Send(userFacing(err))
		}
		return c.Send("Targets set. Next raid will lock the chat until they are met.")
	}
}

func commandUnlock(lock *services.ServiceLock) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		unlocked, err := lock.Unlock(ctx, c.Chat().ID, c.Sender().ID, strings.Join(c.Args(), " "))
		if err != nil {
			return c.Send(userFacing(err))
		}
		if !unlocked {
			return c.Send("Chat is not locked.")
		}
		return c.Send("Chat unlocked.")
	}
}

func commandResetRaid(campaign *services.ServiceCampaign) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := commandContext()
		defer cancel()

		if err := campaign.ResetRaid(ctx, c.Chat().ID, c.Sender().ID, strings.Join(c.Args(), " ")); err != nil {
			return c.Send(userFacing(err))
		}
		return c.Send("Raid cancelled.")
	}
}

func commandBan(moderation *services.ServiceModeration) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 1 {
			return c.Send("Usage: /ban <user id> [hours] [reason]")
		}

		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Invalid user id.")
		}

		var duration *time.Duration
		reasonFrom := 1
		if len(args) > 1 {
			if hours, err := strconv.Atoi(args[1]); err == nil && hours > 0 {
				d := time.Duration(hours) * time.Hour
				duration = &d
				reasonFrom = 2
			}
		}
		reason := strings.Join(args[reasonFrom:], " ")

		ctx, cancel := commandContext()
		defer cancel()

		if err := moderation.Ban(ctx, targetID, c.Sender().ID, reason, duration); err != nil {
			return c.Send(userFacing(err))
		}

		if duration != nil {
			return c.Send(fmt.Sprintf("User %d banned for %s.", targetID, *duration))
		}
		return c.Send(fmt.Sprintf("User %d banned permanently.", targetID))
	}
}

func commandUnban(moderation *services.ServiceModeration) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 1 {
			return c.Send("Usage: /unban <user id> [reason]")
		}

		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Invalid user id.")
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := moderation.Unban(ctx, targetID, c.Sender().ID, strings.Join(args[1:], " ")); err != nil {
			return c.Send(userFacing(err))
		}
		return c.Send(fmt.Sprintf("User %d unbanned.", targetID))
	}
}

func commandWarn(moderation *services.ServiceModeration) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) < 1 {
			return c.Send("Usage: /warn <user id> [reason]")
		}

		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("Invalid user id.")
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := moderation.Warn(ctx, targetID, c.Sender().ID, strings.Join(args[1:], " ")); err != nil {
			return c.Send(userFacing(err))
		}
		return c.Send(fmt.Sprintf("User %d warned.", targetID))
	}
}

func userFacing(err error) string {
	switch {
	case errors.Is(err, services.ErrNotAdmin):
		return "Admins only."
	case errors.Is(err, services.ErrBanned):
		return "You are banned from raids."
	case errors.Is(err, services.ErrRaidNotFound):
		return "No active raid here."
	case errors.Is(err, services.ErrRaidNotActive):
		return "That raid already ended."
	case errors.Is(err, services.ErrRaidInProgress):
		return "A raid is already running. Finish it first."
	case errors.Is(err, services.ErrNoTargets):
		return "Set engagement targets first with /targets."
	case errors.Is(err, services.ErrCooldownActive):
		return err.Error()
	case errors.Is(err, services.ErrDailyCapReached):
		return "Daily raid limit reached. Back tomorrow!"
	case errors.Is(err, limiter.ErrRateLimited):
		return "Rate limited. Take a breath."
	default:
		return "Something went wrong: " + err.Error()
	}
}
