package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	gocache "github.com/go-redis/cache/v9"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"

	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/caching"
	"raidbot/internal/pkg/limiter"
)

// fakeRaidStore mirrors the Postgres store semantics in memory: action
// inserts bump participant points and the leaderboard, raid completion
// credits history exactly once.
type fakeRaidStore struct {
	mu           sync.Mutex
	raids        map[string]*models.Raid
	participants map[string][]*models.RaidParticipant
	actions      map[string][]*models.RaidAction
	leaderboard  *fakeLeaderboardStore
}

func newFakeRaidStore(leaderboard *fakeLeaderboardStore) *fakeRaidStore {
	return &fakeRaidStore{
		raids:        map[string]*models.Raid{},
		participants: map[string][]*models.RaidParticipant{},
		actions:      map[string][]*models.RaidAction{},
		leaderboard:  leaderboard,
	}
}

func (s *fakeRaidStore) CreateRaid(ctx context.Context, raid *models.Raid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *raid
	s.raids[raid.ID] = &clone
	return nil
}

func (s *fakeRaidStore) GetRaid(ctx context.Context, raidID string) (*models.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raid, ok := s.raids[raidID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *raid
	return &clone, nil
}

func (s *fakeRaidStore) UpdateRaid(ctx context.Context, raid *models.Raid) error {
	return s.CreateRaid(ctx, raid)
}

func (s *fakeRaidStore) GetActiveRaidByChat(ctx context.Context, chatID int64) (*models.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raid := range s.raids {
		if raid.ChatID == chatID && raid.Status == models.RaidStatusActive {
			clone := *raid
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeRaidStore) CountActiveRaids(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, raid := range s.raids {
		if raid.Status == models.RaidStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *fakeRaidStore) ListExpiredActiveRaids(ctx context.Context, now time.Time) ([]*models.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Raid
	for _, raid := range s.raids {
		if raid.Status == models.RaidStatusActive && raid.EndsAt.Before(now) {
			clone := *raid
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakeRaidStore) ListActiveRaids(ctx context.Context) ([]*models.Raid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Raid
	for _, raid := range s.raids {
		if raid.Status == models.RaidStatusActive {
			clone := *raid
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *fakeRaidStore) FindParticipant(ctx context.Context, raidID string, userID int64) (*models.RaidParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[raidID] {
		if p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeRaidStore) CountParticipants(ctx context.Context, raidID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants[raidID]), nil
}

func (s *fakeRaidStore) AddParticipant(ctx context.Context, participant *models.RaidParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *participant
	s.participants[participant.RaidID] = append(s.participants[participant.RaidID], &clone)
	if raid, ok := s.raids[participant.RaidID]; ok {
		raid.ParticipantCount++
	}
	return nil
}

func (s *fakeRaidStore) ListParticipants(ctx context.Context, raidID string) ([]*models.RaidParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.RaidParticipant, 0, len(s.participants[raidID]))
	for _, p := range s.participants[raidID] {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeRaidStore) FindAction(ctx context.Context, raidID string, userID int64, actionType models.ActionType) (*models.RaidAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions[raidID] {
		if a.UserID == userID && a.Type == actionType {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeRaidStore) InsertAction(ctx context.Context, action *models.RaidAction, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *action
	s.actions[action.RaidID] = append(s.actions[action.RaidID], &clone)
	for _, p := range s.participants[action.RaidID] {
		if p.UserID == action.UserID {
			p.Points += action.Points
		}
	}
	s.leaderboard.addPoints(action.UserID, username, action.Points)
	return nil
}

func (s *fakeRaidStore) CompleteRaid(ctx context.Context, raid *models.Raid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *raid
	s.raids[raid.ID] = &clone
	if raid.Status != models.RaidStatusCompleted {
		return nil
	}
	for _, p := range s.participants[raid.ID] {
		s.leaderboard.creditRaid(p.UserID, p.Points)
	}
	return nil
}

func (s *fakeRaidStore) RaidStats(ctx context.Context, raidID string) (*models.RaidStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.RaidStats{RaidID: raidID}
	var top *models.RaidParticipant
	for _, p := range s.participants[raidID] {
		stats.ParticipantCount++
		stats.TotalPoints += p.Points
		if top == nil || p.Points > top.Points || (p.Points == top.Points && p.Position < top.Position) {
			top = p
		}
	}
	if top != nil {
		stats.TopUserID = top.UserID
		stats.TopUsername = top.Username
		stats.TopPoints = top.Points
	}
	return stats, nil
}

type fakeLeaderboardStore struct {
	mu      sync.Mutex
	entries map[int64]*models.LeaderboardEntry
}

func newFakeLeaderboardStore() *fakeLeaderboardStore {
	return &fakeLeaderboardStore{entries: map[int64]*models.LeaderboardEntry{}}
}

func (s *fakeLeaderboardStore) addPoints(userID int64, username string, points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = &models.LeaderboardEntry{UserID: userID}
		s.entries[userID] = entry
	}
	if username != "" {
		entry.Username = username
	}
	entry.TotalPoints += points
	entry.LastActive = time.Now()
}

func (s *fakeLeaderboardStore) creditRaid(userID int64, raidScore int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = &models.LeaderboardEntry{UserID: userID}
		s.entries[userID] = entry
	}
	entry.RaidsParticipated++
	if raidScore > entry.BestRaidScore {
		entry.BestRaidScore = raidScore
	}
}

func (s *fakeLeaderboardStore) setHistory(userID int64, raids int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = &models.LeaderboardEntry{UserID: userID}
		s.entries[userID] = entry
	}
	entry.RaidsParticipated = raids
}

func (s *fakeLeaderboardStore) sorted() []*models.LeaderboardEntry {
	out := make([]*models.LeaderboardEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (s *fakeLeaderboardStore) TopEntries(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeLeaderboardStore) GetEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *entry
	return &clone, nil
}

func (s *fakeLeaderboardStore) EntryRank(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mine, ok := s.entries[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	rank := 1
	for _, entry := range s.entries {
		if entry.TotalPoints > mine.TotalPoints {
			rank++
		}
	}
	return rank, nil
}

func (s *fakeLeaderboardStore) ClearPoints(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[userID]; ok {
		entry.TotalPoints = 0
	}
	return nil
}

func (s *fakeLeaderboardStore) AllEntries(ctx context.Context, limit, offset int) ([]*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted()
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLockStore struct {
	mu    sync.Mutex
	locks map[int64]*models.ChatLock
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: map[int64]*models.ChatLock{}}
}

func (s *fakeLockStore) GetLock(ctx context.Context, chatID int64) (*models.ChatLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[chatID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *lock
	return &clone, nil
}

func (s *fakeLockStore) SaveLock(ctx context.Context, lock *models.ChatLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *lock
	s.locks[lock.ChatID] = &clone
	return nil
}

func (s *fakeLockStore) ListLocked(ctx context.Context) ([]*models.ChatLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatLock
	for _, lock := range s.locks {
		if lock.Locked {
			clone := *lock
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeBanStore struct {
	mu   sync.Mutex
	bans map[int64]*models.Ban
}

func newFakeBanStore() *fakeBanStore {
	return &fakeBanStore{bans: map[int64]*models.Ban{}}
}

func (s *fakeBanStore) FindBan(ctx context.Context, userID int64) (*models.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ban, ok := s.bans[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *ban
	return &clone, nil
}

func (s *fakeBanStore) UpsertBan(ctx context.Context, ban *models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *ban
	s.bans[ban.UserID] = &clone
	return nil
}

func (s *fakeBanStore) DeleteBan(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, userID)
	return nil
}

type fakeModerationStore struct {
	mu      sync.Mutex
	entries []*models.ModerationAction
}

func (s *fakeModerationStore) AppendModeration(ctx context.Context, entry *models.ModerationAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *fakeModerationStore) ListModerationByTarget(ctx context.Context, targetID int64, limit int) ([]*models.ModerationAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ModerationAction
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].TargetID == targetID {
			clone := *s.entries[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeConfigStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{values: map[string]string{}}
}

func (s *fakeConfigStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *fakeConfigStore) GetConfigByKey(ctx context.Context, key string) (*models.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Config{Key: key, Value: value}, nil
}

// fakeLimiter tracks consumption per key against the configured limit.
type fakeLimiter struct {
	mu   sync.Mutex
	used map[string]int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{used: map[string]int{}}
}

func (l *fakeLimiter) Check(ctx context.Context, key string, limit redis_rate.Limit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used[key] >= limit.Rate {
		return &limiter.RateLimitError{RetryAfter: limit.Period}
	}
	return nil
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used[key] >= limit.Rate {
		return &limiter.RateLimitError{RetryAfter: limit.Period}
	}
	l.used[key]++
	return nil
}

func (l *fakeLimiter) reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.used, key)
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeTransport struct {
	mu         sync.Mutex
	messages   []sentMessage
	restricted map[int64]int
	restored   map[int64]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{restricted: map[int64]int{}, restored: map[int64]int{}}
}

func (t *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, sentMessage{chatID, text})
	return nil
}

func (t *fakeTransport) RestrictChat(ctx context.Context, chatID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restricted[chatID]++
	return nil
}

func (t *fakeTransport) RestoreChat(ctx context.Context, chatID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restored[chatID]++
	return nil
}

func (t *fakeTransport) restoredCount(chatID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restored[chatID]
}

// fakeConfirmation approves or rejects deterministically.
type fakeConfirmation struct {
	mu      sync.Mutex
	confirm bool
	err     error
}

func (f *fakeConfirmation) ConfirmAction(ctx context.Context, tweetID string, userID int64, actionType models.ActionType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirm, f.err
}

func (f *fakeConfirmation) Method() string {
	return models.VerificationMethodSimulated
}

func (f *fakeConfirmation) setConfirm(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirm = v
}

// passthroughCache always misses so reads hit the fake stores.
type passthroughCache struct{}

func (passthroughCache) Get(ctx context.Context, key string, target any) error {
	return gocache.ErrCacheMiss
}

func (passthroughCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (passthroughCache) Delete(ctx context.Context, key string) error {
	return nil
}

type testEnv struct {
	injector    *do.Injector
	raids       *fakeRaidStore
	locks       *fakeLockStore
	bans        *fakeBanStore
	moderation  *fakeModerationStore
	leaderboard *fakeLeaderboardStore
	config      *fakeConfigStore
	limiter     *fakeLimiter
	transport   *fakeTransport
	confirmer   *fakeConfirmation
}

func newTestEnv() *testEnv {
	leaderboard := newFakeLeaderboardStore()
	env := &testEnv{
		injector:    do.New(),
		raids:       newFakeRaidStore(leaderboard),
		locks:       newFakeLockStore(),
		bans:        newFakeBanStore(),
		moderation:  &fakeModerationStore{},
		leaderboard: leaderboard,
		config:      newFakeConfigStore(),
		limiter:     newFakeLimiter(),
		transport:   newFakeTransport(),
		confirmer:   &fakeConfirmation{confirm: true},
	}

	do.ProvideValue[interfaces.RaidStore](env.injector, env.raids)
	do.ProvideValue[interfaces.LockStore](env.injector, env.locks)
	do.ProvideValue[interfaces.BanStore](env.injector, env.bans)
	do.ProvideValue[interfaces.ModerationStore](env.injector, env.moderation)
	do.ProvideValue[interfaces.LeaderboardStore](env.injector, env.leaderboard)
	do.ProvideValue[interfaces.ConfigStore](env.injector, env.config)
	do.ProvideValue[interfaces.Limiter](env.injector, env.limiter)
	do.ProvideValue[interfaces.ChatTransport](env.injector, env.transport)
	do.ProvideValue[interfaces.ConfirmationClient](env.injector, env.confirmer)
	do.ProvideValue[caching.Cache](env.injector, passthroughCache{})
	do.ProvideNamedValue[redis.UniversalClient](env.injector, "redis-db", nil)

	do.Provide(env.injector, func(i *do.Injector) (*ServiceConfig, error) {
		return NewServiceConfig(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceModeration, error) {
		return NewServiceModeration(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceRaid, error) {
		return NewServiceRaid(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceVerifier, error) {
		return NewServiceVerifier(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceLock, error) {
		return NewServiceLock(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceCampaign, error) {
		return NewServiceCampaign(i)
	})
	do.Provide(env.injector, func(i *do.Injector) (*ServiceLeaderboard, error) {
		return NewServiceLeaderboard(i)
	})

	return env
}
