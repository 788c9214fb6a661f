package datastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"raidbot/internal/models"
)

func CreateTableRaid(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Raid)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Raid)(nil)).Index("index_raid_chat_id_status").IfNotExists().Column("chat_id", "status").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Raid)(nil)).Index("index_raid_status_ends_at").IfNotExists().Column("status", "ends_at").Exec(ctx)
	return err
}

func CreateTableRaidParticipant(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RaidParticipant)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RaidParticipant)(nil)).Index("index_raid_participant_raid_user").Unique().IfNotExists().Column("raid_id", "user_id").Exec(ctx)
	return err
}

func CreateTableRaidAction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RaidAction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RaidAction)(nil)).Index("index_raid_action_raid_user_type").Unique().IfNotExists().Column("raid_id", "user_id", "type").Exec(ctx)
	return err
}

// RaidStore is the bun-backed raid ledger. Writes touching more than one
// table run in a single transaction scoped to the raid.
type RaidStore struct {
	db *bun.DB
}

func NewRaidStore(db *bun.DB) *RaidStore {
	return &RaidStore{db}
}

func (store *RaidStore) CreateRaid(ctx context.Context, raid *models.Raid) error {
	_, err := store.db.NewInsert().Model(raid).Exec(ctx)
	return err
}

func (store *RaidStore) GetRaid(ctx context.Context, raidID string) (*models.Raid, error) {
	var raid models.Raid
	err := store.db.NewSelect().Model(&raid).Where("id = ?", raidID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

func (store *RaidStore) UpdateRaid(ctx context.Context, raid *models.Raid) error {
	raid.UpdatedAt = time.Now()
	_, err := store.db.NewUpdate().Model(raid).WherePK().Exec(ctx)
	return err
}

func (store *RaidStore) GetActiveRaidByChat(ctx context.Context, chatID int64) (*models.Raid, error) {
	var raid models.Raid
	err := store.db.NewSelect().Model(&raid).
		Where("chat_id = ?", chatID).
		Where("status = ?", models.RaidStatusActive).
		Order("started_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

func (store *RaidStore) CountActiveRaids(ctx context.Context) (int, error) {
	return store.db.NewSelect().Model((*models.Raid)(nil)).Where("status = ?", models.RaidStatusActive).Count(ctx)
}

func (store *RaidStore) ListActiveRaids(ctx context.Context) ([]*models.Raid, error) {
	var raids []*models.Raid
	err := store.db.NewSelect().Model(&raids).Where("status = ?", models.RaidStatusActive).Order("started_at ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return raids, nil
}

func (store *RaidStore) ListExpiredActiveRaids(ctx context.Context, now time.Time) ([]*models.Raid, error) {
	var raids []*models.Raid
	err := store.db.NewSelect().Model(&raids).
		Where("status = ?", models.RaidStatusActive).
		Where("ends_at < ?", now).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return raids, nil
}

func (store *RaidStore) FindParticipant(ctx context.Context, raidID string, userID int64) (*models.RaidParticipant, error) {
	var participant models.RaidParticipant
	err := store.db.NewSelect().Model(&participant).
		Where("raid_id = ?", raidID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (store *RaidStore) CountParticipants(ctx context.Context, raidID string) (int, error) {
	return store.db.NewSelect().Model((*models.RaidParticipant)(nil)).Where("raid_id = ?", raidID).Count(ctx)
}

func (store *RaidStore) ListParticipants(ctx context.Context, raidID string) ([]*models.RaidParticipant, error) {
	var participants []*models.RaidParticipant
	err := store.db.NewSelect().Model(&participants).
		Where("raid_id = ?", raidID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (store *RaidStore) AddParticipant(ctx context.Context, participant *models.RaidParticipant) error {
	return store.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(participant).Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewUpdate().Model((*models.Raid)(nil)).
			Set("participant_count = participant_count + 1").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", participant.RaidID).
			Exec(ctx)
		return err
	})
}

func (store *RaidStore) FindAction(ctx context.Context, raidID string, userID int64, actionType models.ActionType) (*models.RaidAction, error) {
	var action models.RaidAction
	err := store.db.NewSelect().Model(&action).
		Where("raid_id = ?", raidID).
		Where("user_id = ?", userID).
		Where("type = ?", actionType).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// InsertAction appends the action row, bumps the participant points and
// upserts the global leaderboard aggregate atomically.
func (store *RaidStore) InsertAction(ctx context.Context, action *models.RaidAction, username string) error {
	return store.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(action).Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model((*models.RaidParticipant)(nil)).
			Set("points = points + ?", action.Points).
			Where("raid_id = ?", action.RaidID).
			Where("user_id = ?", action.UserID).
			Exec(ctx); err != nil {
			return err
		}

		entry := &models.LeaderboardEntry{
			UserID:      action.UserID,
			Username:    username,
			TotalPoints: action.Points,
			LastActive:  action.CreatedAt,
		}
		_, err := tx.NewInsert().Model(entry).
			On("CONFLICT (user_id) DO UPDATE").
			Set("total_points = leaderboard_entry.total_points + EXCLUDED.total_points").
			Set("username = EXCLUDED.username").
			Set("last_active = EXCLUDED.last_active").
			Exec(ctx)
		return err
	})
}

// CompleteRaid persists the terminal status and, for completed raids, bumps
// raids_participated and best_raid_score for every participant in one pass.
func (store *RaidStore) CompleteRaid(ctx context.Context, raid *models.Raid) error {
	return store.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		raid.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(raid).WherePK().Exec(ctx); err != nil {
			return err
		}

		if raid.Status != models.RaidStatusCompleted {
			return nil
		}

		// participants who joined but never scored still count
		if _, err := tx.NewRaw(`
			insert into leaderboard_entry (user_id, username, total_points, raids_participated, best_raid_score, last_active)
			select rp.user_id, rp.username, 0, 0, 0, rp.joined_at
			from raid_participant rp
			where rp.raid_id = ?
			on conflict (user_id) do nothing`, raid.ID).Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewRaw(`
			update leaderboard_entry le set
				raids_participated = le.raids_participated + 1,
				best_raid_score = greatest(le.best_raid_score, rp.points)
			from raid_participant rp
			where rp.raid_id = ? and rp.user_id = le.user_id`, raid.ID).Exec(ctx)
		return err
	})
}

func (store *RaidStore) RaidStats(ctx context.Context, raidID string) (*models.RaidStats, error) {
	stats := models.RaidStats{RaidID: raidID}
	err := store.db.NewSelect().
		ColumnExpr("count(*) participant_count").
		ColumnExpr("coalesce(sum(points), 0) total_points").
		TableExpr("raid_participant").
		Where("raid_id = ?", raidID).
		Scan(ctx, &stats)
	if err != nil {
		return nil, err
	}

	// ties broken by earliest join position
	var top models.RaidParticipant
	err = store.db.NewSelect().Model(&top).
		Where("raid_id = ?", raidID).
		Order("points DESC").
		Order("position ASC").
		Limit(1).
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		stats.TopUserID = top.UserID
		stats.TopUsername = top.Username
		stats.TopPoints = top.Points
	}

	return &stats, nil
}
