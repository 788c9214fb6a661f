package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableLeaderboardEntry(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.LeaderboardEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LeaderboardEntry)(nil)).Index("index_leaderboard_entry_total_points").IfNotExists().Column("total_points").Exec(ctx)
	return err
}

type LeaderboardStore struct {
	db *bun.DB
}

func NewLeaderboardStore(db *bun.DB) *LeaderboardStore {
	return &LeaderboardStore{db}
}

func (store *LeaderboardStore) TopEntries(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := store.db.NewSelect().Model(&entries).
		Order("total_points DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (store *LeaderboardStore) GetEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := store.db.NewSelect().Model(&entry).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// EntryRank is count(users with strictly greater points) + 1.
func (store *LeaderboardStore) EntryRank(ctx context.Context, userID int64) (int, error) {
	entry, err := store.GetEntry(ctx, userID)
	if err != nil {
		return 0, err
	}

	greater, err := store.db.NewSelect().Model((*models.LeaderboardEntry)(nil)).
		Where("total_points > ?", entry.TotalPoints).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return greater + 1, nil
}

func (store *LeaderboardStore) ClearPoints(ctx context.Context, userID int64) error {
	_, err := store.db.NewUpdate().Model((*models.LeaderboardEntry)(nil)).
		Set("total_points = 0").
		Set("best_raid_score = 0").
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (store *LeaderboardStore) AllEntries(ctx context.Context, limit, offset int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := store.db.NewSelect().Model(&entries).
		Order("user_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
