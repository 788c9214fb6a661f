package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"

	"raidbot/internal/interfaces"
	"raidbot/internal/models"
	"raidbot/internal/pkg/keymutex"
)

// ServiceLock drives the chat lock state machine. A chat is locked when its
// raid starts and unlocks exactly once, when every engagement target has
// been met. Per-chat mutations are serialized behind a key mutex.
type ServiceLock struct {
	container  *do.Injector
	store      interfaces.LockStore
	transport  interfaces.ChatTransport
	moderation *ServiceModeration
	config     *ServiceConfig
	locks      *keymutex.KeyMutex

	onUnlock func(chatID int64, raidID string, progress models.EngagementCounts)
}

func NewServiceLock(container *do.Injector) (*ServiceLock, error) {
	store, err := do.Invoke[interfaces.LockStore](container)
	if err != nil {
		return nil, err
	}

	transport, err := do.Invoke[interfaces.ChatTransport](container)
	if err != nil {
		return nil, err
	}

	moderation, err := do.Invoke[*ServiceModeration](container)
	if err != nil {
		return nil, err
	}

	config, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLock{
		container:  container,
		store:      store,
		transport:  transport,
		moderation: moderation,
		config:     config,
		locks:      keymutex.New(),
	}, nil
}

// OnUnlock registers a callback fired after a successful unlock with the
// final progress snapshot. Must be set before StartMonitor.
func (service *ServiceLock) OnUnlock(fn func(chatID int64, raidID string, progress models.EngagementCounts)) {
	service.onUnlock = fn
}

// SetTargets stores the engagement targets for the next lock. Admin only.
// Targets are immutable while the chat is locked; re-locking picks up the
// replacement.
func (service *ServiceLock) SetTargets(ctx context.Context, chatID, actorID int64, targets models.EngagementCounts) error {
	if err := service.moderation.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	unlock := service.locks.Lock(LockKeyChat(chatID))
	defer unlock()

	lock, err := service.getOrNewLock(ctx, chatID)
	if err != nil {
		return err
	}
	if lock.Locked {
		return errorx.Wrap(ErrChatLocked, errorx.Invalid)
	}

	lock.Targets = targets
	lock.UpdatedAt = time.Now()
	if err := service.store.SaveLock(ctx, lock); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	return nil
}

// Lock restricts the chat for the given raid. Locking requires at least one
// non-zero target.
func (service *ServiceLock) Lock(ctx context.Context, chatID int64, raidID string, lockedBy int64) error {
	unlock := service.locks.Lock(LockKeyChat(chatID))
	defer unlock()

	lock, err := service.getOrNewLock(ctx, chatID)
	if err != nil {
		return err
	}
	if lock.Targets.Zero() {
		return errorx.Wrap(ErrNoTargets, errorx.Invalid)
	}
	if lock.Locked {
		return nil
	}

	now := time.Now()
	lock.RaidID = raidID
	lock.Locked = true
	lock.Progress = models.EngagementCounts{}
	lock.LockedAt = &now
	lock.LockedBy = &lockedBy
	lock.UpdatedAt = now
	if err := service.store.SaveLock(ctx, lock); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	if err := service.transport.RestrictChat(ctx, chatID); err != nil {
		log.Println("restrict chat:", err)
	}
	return nil
}

// UpdateProgress accumulates verified engagement counts and unlocks the chat
// when every target is met. Returns true when this call performed the unlock.
func (service *ServiceLock) UpdateProgress(ctx context.Context, chatID int64, delta models.EngagementCounts) (bool, error) {
	unlock := service.locks.Lock(LockKeyChat(chatID))
	defer unlock()

	lock, err := service.store.GetLock(ctx, chatID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errorx.Wrap(err, errorx.Service)
	}
	if !lock.Locked {
		return false, nil
	}

	lock.Progress = lock.Progress.Add(delta)
	lock.UpdatedAt = time.Now()

	if !lock.Targets.MetBy(lock.Progress) {
		if err := service.store.SaveLock(ctx, lock); err != nil {
			return false, errorx.Wrap(err, errorx.Service)
		}
		return false, nil
	}

	return true, service.doUnlock(ctx, lock)
}

// Unlock force-opens the chat. Admin only; returns false when the chat was
// not locked.
func (service *ServiceLock) Unlock(ctx context.Context, chatID, actorID int64, reason string) (bool, error) {
	if err := service.moderation.requireAdmin(ctx, actorID); err != nil {
		return false, err
	}

	unlock := service.locks.Lock(LockKeyChat(chatID))
	defer unlock()

	lock, err := service.store.GetLock(ctx, chatID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errorx.Wrap(err, errorx.Service)
	}
	if !lock.Locked {
		return false, nil
	}

	if err := service.doUnlock(ctx, lock); err != nil {
		return false, err
	}

	if err := service.moderation.appendLog(ctx, models.ModerationUnlock, actorID, chatID, reason); err != nil {
		log.Println("moderation log:", err)
	}
	return true, nil
}

// ForceUnlock opens the chat without the admin gate. Used when the raid
// itself ends; returns false when the chat was not locked for that raid.
func (service *ServiceLock) ForceUnlock(ctx context.Context, chatID int64, raidID string) (bool, error) {
	unlock := service.locks.Lock(LockKeyChat(chatID))
	defer unlock()

	lock, err := service.store.GetLock(ctx, chatID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errorx.Wrap(err, errorx.Service)
	}
	if !lock.Locked || (raidID != "" && lock.RaidID != raidID) {
		return false, nil
	}

	return true, service.doUnlock(ctx, lock)
}

func (service *ServiceLock) GetLock(ctx context.Context, chatID int64) (*models.ChatLock, error) {
	lock, err := service.store.GetLock(ctx, chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return lock, nil
}

// doUnlock flips the state and restores the chat. Callers hold the chat
// mutex and have checked lock.Locked, so the flip happens exactly once.
func (service *ServiceLock) doUnlock(ctx context.Context, lock *models.ChatLock) error {
	raidID := lock.RaidID
	progress := lock.Progress

	lock.Locked = false
	lock.RaidID = ""
	lock.LockedAt = nil
	lock.LockedBy = nil
	lock.UpdatedAt = time.Now()
	if err := service.store.SaveLock(ctx, lock); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	if err := service.transport.RestoreChat(ctx, lock.ChatID); err != nil {
		log.Println("restore chat:", err)
	}

	if service.onUnlock != nil {
		service.onUnlock(lock.ChatID, raidID, progress)
	}
	return nil
}

func (service *ServiceLock) getOrNewLock(ctx context.Context, chatID int64) (*models.ChatLock, error) {
	lock, err := service.store.GetLock(ctx, chatID)
	if err == sql.ErrNoRows {
		return &models.ChatLock{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return lock, nil
}

// StartMonitor polls locked chats as a safety net in case an unlock-worthy
// update was lost. Blocks until ctx is done.
func (service *ServiceLock) StartMonitor(ctx context.Context) {
	pollSeconds, _ := service.config.GetIntConfig(ctx, CONFIG_LOCK_POLL_SECONDS, DEFAULT_LOCK_POLL_SECONDS)
	ticker := time.NewTicker(time.Duration(pollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.sweepLocked(ctx)
		}
	}
}

func (service *ServiceLock) sweepLocked(ctx context.Context) {
	locked, err := service.store.ListLocked(ctx)
	if err != nil {
		log.Println("list locked chats:", err)
		return
	}

	for _, lock := range locked {
		if _, err := service.UpdateProgress(ctx, lock.ChatID, models.EngagementCounts{}); err != nil {
			log.Println("lock sweep:", err)
		}
	}
}
