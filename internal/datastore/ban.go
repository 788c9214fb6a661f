package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableBan(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Ban)(nil)).IfNotExists().Exec(ctx)
	return err
}

type BanStore struct {
	db *bun.DB
}

func NewBanStore(db *bun.DB) *BanStore {
	return &BanStore{db}
}

func (store *BanStore) FindBan(ctx context.Context, userID int64) (*models.Ban, error) {
	var ban models.Ban
	err := store.db.NewSelect().Model(&ban).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (store *BanStore) UpsertBan(ctx context.Context, ban *models.Ban) error {
	_, err := store.db.NewInsert().Model(ban).
		On("CONFLICT (user_id) DO UPDATE").
		Set("banned_by = EXCLUDED.banned_by").
		Set("reason = EXCLUDED.reason").
		Set("type = EXCLUDED.type").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

func (store *BanStore) DeleteBan(ctx context.Context, userID int64) error {
	_, err := store.db.NewDelete().Model((*models.Ban)(nil)).Where("user_id = ?", userID).Exec(ctx)
	return err
}
