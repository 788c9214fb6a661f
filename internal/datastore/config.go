package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	return err
}

type ConfigStore struct {
	db *bun.DB
}

func NewConfigStore(db *bun.DB) *ConfigStore {
	return &ConfigStore{db}
}

func (store *ConfigStore) GetConfigByKey(ctx context.Context, key string) (*models.Config, error) {
	var config models.Config
	err := store.db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func InsertConfig(ctx context.Context, db *bun.DB, config models.Config) error {
	_, err := db.NewInsert().Model(&config).On("CONFLICT (key) DO NOTHING").Exec(ctx)
	return err
}
