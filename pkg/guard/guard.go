// Package guard decides whether a role mutation is allowed by the guild's
// role hierarchy. It performs no I/O: callers resolve a Hierarchy snapshot
// and the target roles first, then ask.
package guard

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrUnauthorized is the parent of every hierarchy refusal
	ErrUnauthorized = errors.New("no autorizado")
	// ErrBotHierarchy means the role sits at or above the bot's highest role
	ErrBotHierarchy = fmt.Errorf("%w: el rol está por encima del bot", ErrUnauthorized)
	// ErrUserHierarchy means the role sits at or above the actor's highest role
	ErrUserHierarchy = fmt.Errorf("%w: el rol está por encima del usuario", ErrUnauthorized)
)

// Hierarchy is the snapshot a decision is made against
type Hierarchy struct {
	BotTop       int
	ActorTop     int
	ActorIsOwner bool
}

// Role is a role with its position in the guild ordering
type Role struct {
	ID       string
	Position int
}

// HierarchyError names the role that failed the check
type HierarchyError struct {
	RoleID string
	Err    error
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("rol %s: %v", e.RoleID, e.Err)
}

func (e *HierarchyError) Unwrap() error {
	return e.Err
}

// IsBot reports whether the bot's own ceiling was the blocker
func (e *HierarchyError) IsBot() bool {
	return errors.Is(e.Err, ErrBotHierarchy)
}

// CheckRole decides a single role. The owner skips the user check only.
func CheckRole(h Hierarchy, role Role) error {
	if role.Position >= h.BotTop {
		return &HierarchyError{RoleID: role.ID, Err: ErrBotHierarchy}
	}
	if !h.ActorIsOwner && role.Position >= h.ActorTop {
		return &HierarchyError{RoleID: role.ID, Err: ErrUserHierarchy}
	}
	return nil
}

// CheckRoles clears a whole batch; the first refusal fails it
func CheckRoles(h Hierarchy, roles []Role) error {
	for _, role := range roles {
		if err := CheckRole(h, role); err != nil {
			return err
		}
	}
	return nil
}

// Permissions are the actor's permission bitfields relevant to the gate
type Permissions struct {
	Guild int64
	// Channel is the bitfield in the notification channel, zero if none is set
	Channel int64
}

// CanManage is the coarse gate for configuration actions: administrators, or
// anyone who can see the notification channel.
func CanManage(p Permissions) bool {
	if p.Guild&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return p.Channel&discordgo.PermissionViewChannel != 0
}

// HighestPosition returns the top position among roles, 0 (@everyone) if empty
func HighestPosition(roles []Role) int {
	top := 0
	for _, r := range roles {
		if r.Position > top {
			top = r.Position
		}
	}
	return top
}
