package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/do"

	"raidbot/internal/models"
)

func newModerationEnv(t *testing.T) (*testEnv, *ServiceModeration) {
	t.Helper()

	env := newTestEnv()
	env.config.set(CONFIG_ADMIN_USER_IDS, "999")

	moderation, err := do.Invoke[*ServiceModeration](env.injector)
	if err != nil {
		t.Fatal(err)
	}
	return env, moderation
}

func TestBanAdminOnly(t *testing.T) {
	_, moderation := newModerationEnv(t)

	err := moderation.Ban(context.Background(), 1, 2, "spam", nil)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
}

func TestPermanentBan(t *testing.T) {
	_, moderation := newModerationEnv(t)
	ctx := context.Background()

	if err := moderation.Ban(ctx, 1, adminID, "spam", nil); err != nil {
		t.Fatal(err)
	}

	banned, err := moderation.IsBanned(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !banned {
		t.Fatal("expected banned")
	}

	if err := moderation.Unban(ctx, 1, adminID, "appealed"); err != nil {
		t.Fatal(err)
	}

	banned, err = moderation.IsBanned(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if banned {
		t.Fatal("expected unbanned")
	}
}

func TestTemporaryBanLazyExpiry(t *testing.T) {
	env, moderation := newModerationEnv(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	env.bans.UpsertBan(ctx, &models.Ban{
		UserID:    1,
		Type:      models.BanTypeTemporary,
		ExpiresAt: &expired,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	banned, err := moderation.IsBanned(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if banned {
		t.Fatal("lapsed temporary ban should not count")
	}

	// the lapsed row is cleaned up on check
	if _, err := env.bans.FindBan(ctx, 1); err == nil {
		t.Fatal("lapsed ban should have been deleted")
	}
}

func TestTemporaryBanStillActive(t *testing.T) {
	_, moderation := newModerationEnv(t)
	ctx := context.Background()

	duration := time.Hour
	if err := moderation.Ban(ctx, 1, adminID, "cooling off", &duration); err != nil {
		t.Fatal(err)
	}

	banned, err := moderation.IsBanned(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !banned {
		t.Fatal("expected banned for the next hour")
	}
}

func TestModerationHistory(t *testing.T) {
	_, moderation := newModerationEnv(t)
	ctx := context.Background()

	if err := moderation.Warn(ctx, 1, adminID, "first warning"); err != nil {
		t.Fatal(err)
	}
	if err := moderation.Ban(ctx, 1, adminID, "enough", nil); err != nil {
		t.Fatal(err)
	}

	history, err := moderation.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	// newest first
	if history[0].Action != models.ModerationBan || history[1].Action != models.ModerationWarn {
		t.Fatalf("history order = [%s, %s], want [ban, warn]", history[0].Action, history[1].Action)
	}
}

func TestIsAdmin(t *testing.T) {
	_, moderation := newModerationEnv(t)
	ctx := context.Background()

	if !moderation.IsAdmin(ctx, adminID) {
		t.Fatal("configured admin should pass")
	}
	if moderation.IsAdmin(ctx, 1) {
		t.Fatal("regular user should not pass")
	}
}
