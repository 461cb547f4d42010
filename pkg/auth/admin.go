package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/PancyStudios/GuildAuthBot/pkg/models"
)

// GuildConfig returns the stored configuration, or a fresh default one
func (e *Engine) GuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := e.store.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return models.NewGuildConfig(guildID), nil
	}
	return cfg, nil
}

func (e *Engine) configLock(guildID string) *sync.Mutex {
	mu, _ := e.configLocks.LoadOrStore(guildID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// UpdateConfig applies mutate to the guild configuration and saves it.
// Updates to the same guild run one at a time, so mutate always sees the
// previous update's result.
func (e *Engine) UpdateConfig(ctx context.Context, guildID string, mutate func(*models.GuildConfig)) (*models.GuildConfig, error) {
	mu := e.configLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	cfg, err := e.GuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	mutate(cfg)
	if err := e.store.UpsertConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AddToBlacklist blocks userID from applying in guildID
func (e *Engine) AddToBlacklist(ctx context.Context, guildID, userID, moderatorID, reason string) (*models.BlacklistEntry, error) {
	entry := &models.BlacklistEntry{
		UserID:  userID,
		GuildID: guildID,
		Reason:  models.StringPtr(strings.TrimSpace(reason)),
		AddedAt: e.unix(),
		AddedBy: moderatorID,
	}
	if err := e.store.UpsertBlacklist(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveFromBlacklist lifts the block
func (e *Engine) RemoveFromBlacklist(ctx context.Context, guildID, userID string) error {
	removed, err := e.store.DeleteBlacklist(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotBlacklisted
	}
	return nil
}

// Blacklist lists the guild's blocked users, oldest first
func (e *Engine) Blacklist(ctx context.Context, guildID string) ([]*models.BlacklistEntry, error) {
	return e.store.ListBlacklist(ctx, guildID)
}

// History returns the newest applications of a user, newest first
func (e *Engine) History(ctx context.Context, userID, guildID string, limit int) ([]*models.AuthApplication, error) {
	if limit <= 0 || limit > models.HistoryLimit {
		limit = models.HistoryLimit
	}
	return e.store.ListHistory(ctx, userID, guildID, limit)
}

// Stats counts the guild's applications per status
func (e *Engine) Stats(ctx context.Context, guildID string) (models.StatusCounts, error) {
	return e.store.CountByStatus(ctx, guildID)
}

// RoleAction is the direction of a manual role change
type RoleAction string

const (
	RoleAdd    RoleAction = "add"
	RoleRemove RoleAction = "remove"
)

// ManageRole grants or revokes roleID on userID after the hierarchy check
func (e *Engine) ManageRole(ctx context.Context, guildID, actorID, userID, roleID string, action RoleAction) error {
	if err := e.CheckRoleAuthorization(ctx, guildID, actorID, roleID); err != nil {
		return err
	}
	if action == RoleRemove {
		return e.roles.RemoveRole(ctx, guildID, userID, roleID)
	}
	return e.roles.AddRole(ctx, guildID, userID, roleID)
}
