package datastore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableChatLock(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ChatLock)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ChatLock)(nil)).Index("index_chat_lock_locked").IfNotExists().Column("locked").Exec(ctx)
	return err
}

type LockStore struct {
	db *bun.DB
}

func NewLockStore(db *bun.DB) *LockStore {
	return &LockStore{db}
}

func (store *LockStore) GetLock(ctx context.Context, chatID int64) (*models.ChatLock, error) {
	var lock models.ChatLock
	err := store.db.NewSelect().Model(&lock).Where("chat_id = ?", chatID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (store *LockStore) SaveLock(ctx context.Context, lock *models.ChatLock) error {
	lock.UpdatedAt = time.Now()
	_, err := store.db.NewInsert().Model(lock).
		On("CONFLICT (chat_id) DO UPDATE").
		Set("raid_id = EXCLUDED.raid_id").
		Set("locked = EXCLUDED.locked").
		Set("targets = EXCLUDED.targets").
		Set("progress = EXCLUDED.progress").
		Set("locked_at = EXCLUDED.locked_at").
		Set("locked_by = EXCLUDED.locked_by").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (store *LockStore) ListLocked(ctx context.Context) ([]*models.ChatLock, error) {
	var locks []*models.ChatLock
	err := store.db.NewSelect().Model(&locks).Where("locked = true").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return locks, nil
}
