package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableModerationAction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ModerationAction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ModerationAction)(nil)).Index("index_moderation_action_target").IfNotExists().Column("target_id").Exec(ctx)
	return err
}

type ModerationStore struct {
	db *bun.DB
}

func NewModerationStore(db *bun.DB) *ModerationStore {
	return &ModerationStore{db}
}

func (store *ModerationStore) AppendModeration(ctx context.Context, entry *models.ModerationAction) error {
	_, err := store.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (store *ModerationStore) ListModerationByTarget(ctx context.Context, targetID int64, limit int) ([]*models.ModerationAction, error) {
	var entries []*models.ModerationAction
	err := store.db.NewSelect().Model(&entries).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
