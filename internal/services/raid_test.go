package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/samber/do"

	"raidbot/internal/models"
)

func newTestRaid(t *testing.T, env *testEnv, chatID int64) (*ServiceRaid, *models.Raid) {
	t.Helper()

	service, err := do.Invoke[*ServiceRaid](env.injector)
	if err != nil {
		t.Fatal(err)
	}

	raid, err := service.CreateRaid(context.Background(), chatID, "12345", "https://x.com/acme/status/12345", nil, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return service, raid
}

func TestJoinRaidIdempotent(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	joined, position, err := service.JoinRaid(ctx, raid.ID, 1, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !joined || position != 1 {
		t.Fatalf("first join = (%v, %d), want (true, 1)", joined, position)
	}

	joined, position, err = service.JoinRaid(ctx, raid.ID, 1, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if joined || position != 1 {
		t.Fatalf("second join = (%v, %d), want (false, 1)", joined, position)
	}

	count, err := env.raids.CountParticipants(ctx, raid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("participant count = %d, want 1", count)
	}
}

func TestJoinRaidConcurrentPositions(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	const raiders = 50
	positions := make([]int, raiders)
	var wg sync.WaitGroup
	for i := 0; i < raiders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, position, err := service.JoinRaid(ctx, raid.ID, int64(i+1), "")
			if err != nil {
				t.Error(err)
				return
			}
			positions[i] = position
		}(i)
	}
	wg.Wait()

	sort.Ints(positions)
	for i, position := range positions {
		if position != i+1 {
			t.Fatalf("positions are not a contiguous 1..N sequence: %v", positions)
		}
	}
}

func TestJoinRaidNotActive(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	if err := service.CancelRaid(ctx, raid.ID); err != nil {
		t.Fatal(err)
	}

	if _, _, err := service.JoinRaid(ctx, raid.ID, 1, "alice"); err == nil {
		t.Fatal("joining a cancelled raid should fail")
	}
}

func TestRecordActionDuplicate(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	if _, _, err := service.JoinRaid(ctx, raid.ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}

	_, appended, err := service.RecordAction(ctx, raid.ID, 1, "alice", models.ActionTypeLike, 3, 3.0, models.VerificationMethodSimulated)
	if err != nil {
		t.Fatal(err)
	}
	if !appended {
		t.Fatal("first like should append")
	}

	_, appended, err = service.RecordAction(ctx, raid.ID, 1, "alice", models.ActionTypeLike, 3, 3.0, models.VerificationMethodSimulated)
	if err != nil {
		t.Fatal(err)
	}
	if appended {
		t.Fatal("second like should not append")
	}

	// a different type still appends
	_, appended, err = service.RecordAction(ctx, raid.ID, 1, "alice", models.ActionTypeRetweet, 6, 3.0, models.VerificationMethodSimulated)
	if err != nil {
		t.Fatal(err)
	}
	if !appended {
		t.Fatal("retweet should append")
	}

	participant, err := service.GetParticipant(ctx, raid.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if participant.Points != 9 {
		t.Fatalf("participant points = %d, want 9 (3 like + 6 retweet, duplicate ignored)", participant.Points)
	}
}

func TestRecordActionRequiresParticipant(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)

	_, _, err := service.RecordAction(context.Background(), raid.ID, 99, "ghost", models.ActionTypeLike, 3, 3.0, models.VerificationMethodSimulated)
	if err == nil {
		t.Fatal("recording for a non-participant should fail")
	}
}

func TestEndRaidCreditsOnce(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	if _, _, err := service.JoinRaid(ctx, raid.ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := service.RecordAction(ctx, raid.ID, 1, "alice", models.ActionTypeQuote, 15, 3.0, models.VerificationMethodSimulated); err != nil {
		t.Fatal(err)
	}

	if err := service.EndRaid(ctx, raid.ID); err != nil {
		t.Fatal(err)
	}
	// second end is a no-op
	if err := service.EndRaid(ctx, raid.ID); err != nil {
		t.Fatal(err)
	}

	entry, err := env.leaderboard.GetEntry(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.RaidsParticipated != 1 {
		t.Fatalf("raids participated = %d, want 1", entry.RaidsParticipated)
	}
	if entry.BestRaidScore != 15 {
		t.Fatalf("best raid score = %d, want 15", entry.BestRaidScore)
	}
	if entry.TotalPoints != 15 {
		t.Fatalf("total points = %d, want 15", entry.TotalPoints)
	}
}

func TestRaidStats(t *testing.T) {
	env := newTestEnv()
	service, raid := newTestRaid(t, env, 100)
	ctx := context.Background()

	for i, points := range []int{5, 20, 10} {
		userID := int64(i + 1)
		if _, _, err := service.JoinRaid(ctx, raid.ID, userID, ""); err != nil {
			t.Fatal(err)
		}
		if _, _, err := service.RecordAction(ctx, raid.ID, userID, "", models.ActionTypeLike, points, 1.0, models.VerificationMethodSimulated); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := service.GetRaidStats(ctx, raid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ParticipantCount != 3 {
		t.Errorf("participant count = %d, want 3", stats.ParticipantCount)
	}
	if stats.TotalPoints != 35 {
		t.Errorf("total points = %d, want 35", stats.TotalPoints)
	}
	if stats.TopUserID != 2 || stats.TopPoints != 20 {
		t.Errorf("top = user %d with %d, want user 2 with 20", stats.TopUserID, stats.TopPoints)
	}
}
