package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"raidbot/internal/interfaces"
	"raidbot/internal/models"
)

type ServiceModeration struct {
	container *do.Injector
	bans      interfaces.BanStore
	log       interfaces.ModerationStore
	config    *ServiceConfig
}

func NewServiceModeration(container *do.Injector) (*ServiceModeration, error) {
	bans, err := do.Invoke[interfaces.BanStore](container)
	if err != nil {
		return nil, err
	}

	log, err := do.Invoke[interfaces.ModerationStore](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceModeration{container, bans, log, config}, nil
}

func (service *ServiceModeration) IsAdmin(ctx context.Context, userID int64) bool {
	admins, err := service.config.GetInt64ListConfig(ctx, CONFIG_ADMIN_USER_IDS)
	if err != nil {
		return false
	}
	for _, id := range admins {
		if id == userID {
			return true
		}
	}
	return false
}

func (service *ServiceModeration) requireAdmin(ctx context.Context, actorID int64) error {
	if !service.IsAdmin(ctx, actorID) {
		return errorx.Wrap(ErrNotAdmin, errorx.Authn)
	}
	return nil
}

// IsBanned lazily expires temporary bans on check.
func (service *ServiceModeration) IsBanned(ctx context.Context, userID int64) (bool, error) {
	ban, err := service.bans.FindBan(ctx, userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errorx.Wrap(err, errorx.Service)
	}

	if ban.Active(time.Now()) {
		return true, nil
	}

	//nolint:errcheck
	service.bans.DeleteBan(ctx, userID)
	return false, nil
}

// Ban records a permanent ban when duration is nil, a temporary one
// otherwise.
func (service *ServiceModeration) Ban(ctx context.Context, targetID, actorID int64, reason string, duration *time.Duration) error {
	if err := service.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	ban := &models.Ban{
		UserID:    targetID,
		BannedBy:  actorID,
		Reason:    reason,
		Type:      models.BanTypePermanent,
		CreatedAt: time.Now(),
	}
	if duration != nil {
		expires := time.Now().Add(*duration)
		ban.Type = models.BanTypeTemporary
		ban.ExpiresAt = &expires
	}

	if err := service.bans.UpsertBan(ctx, ban); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	return service.appendLog(ctx, models.ModerationBan, actorID, targetID, reason)
}

func (service *ServiceModeration) Unban(ctx context.Context, targetID, actorID int64, reason string) error {
	if err := service.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	if err := service.bans.DeleteBan(ctx, targetID); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	return service.appendLog(ctx, models.ModerationUnban, actorID, targetID, reason)
}

func (service *ServiceModeration) Warn(ctx context.Context, targetID, actorID int64, reason string) error {
	if err := service.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return service.appendLog(ctx, models.ModerationWarn, actorID, targetID, reason)
}

func (service *ServiceModeration) History(ctx context.Context, targetID int64, limit int) ([]*models.ModerationAction, error) {
	entries, err := service.log.ListModerationByTarget(ctx, targetID, limit)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return entries, nil
}

func (service *ServiceModeration) appendLog(ctx context.Context, action string, actorID, targetID int64, reason string) error {
	entry := &models.ModerationAction{
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := service.log.AppendModeration(ctx, entry); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	return nil
}
