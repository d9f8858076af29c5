// Package enforce applies and removes the physical effect of a sanction:
// blocks and forced renames, performed as the injected bot actor.
package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/common"
	"github.com/wikimods/sanctiond/platform"
)

type Enforcer struct {
	ident platform.Identity
	actor common.SystemActor
}

func New(ident platform.Identity, actor common.SystemActor) *Enforcer {
	return &Enforcer{ident: ident, actor: actor}
}

// ApplyBlock installs a block on the target until expiry. When the target
// already carries a block that outlasts the requested one, the existing
// block wins and the call reports success without touching it. An existing
// shorter block is replaced.
func (e *Enforcer) ApplyBlock(ctx context.Context, target common.UserRef, expiry time.Time, reason string, preventOwnTalkEdit bool) (bool, error) {
	user, err := e.ident.UserByID(ctx, target.ID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, fmt.Errorf("block target %d does not exist", target.ID)
	}
	if user.Blocked {
		if user.BlockExpiry.After(expiry) {
			log.Info().
				Str("target", target.Name).
				Time("existing_expiry", user.BlockExpiry).
				Msg("existing block outlasts the requested one, leaving it")
			return true, nil
		}
		if err := e.ident.Unblock(ctx, target, reason, false); err != nil {
			return false, err
		}
	}
	if err := e.ident.Block(ctx, target, expiry, e.signed(reason), preventOwnTalkEdit); err != nil {
		return false, err
	}
	log.Info().
		Str("target", target.Name).
		Time("expiry", expiry).
		Str("actor", e.actor.Name).
		Msg("block applied")
	return true, nil
}

// RemoveBlock lifts the target's block only when its expiry exactly matches
// the one this sanction installed; anything else is assumed to be an
// unrelated or overriding block and is left alone.
func (e *Enforcer) RemoveBlock(ctx context.Context, target common.UserRef, expiry time.Time, reason string, writeLog bool) (bool, error) {
	user, err := e.ident.UserByID(ctx, target.ID)
	if err != nil {
		return false, err
	}
	if user == nil || !user.Blocked {
		return false, nil
	}
	if !user.BlockExpiry.Equal(expiry) {
		log.Info().
			Str("target", target.Name).
			Time("block_expiry", user.BlockExpiry).
			Time("expected", expiry).
			Msg("current block was not installed by this sanction, leaving it")
		return false, nil
	}
	if err := e.ident.Unblock(ctx, target, e.signed(reason), writeLog); err != nil {
		return false, err
	}
	log.Info().Str("target", target.Name).Str("actor", e.actor.Name).Msg("block removed")
	return true, nil
}

// Rename moves the target from oldName to newName, relocating the user and
// user-talk pages with it. It reports false without error for expected
// contention: the target was already renamed, the new name is taken, or an
// extension vetoed the rename. A failed page move fails the whole
// operation.
func (e *Enforcer) Rename(ctx context.Context, oldName, newName string, target common.UserRef, reason string) (bool, error) {
	current, err := e.ident.UserByName(ctx, oldName)
	if err != nil {
		return false, err
	}
	if current == nil || current.ID != target.ID {
		log.Info().Str("old_name", oldName).Int64("target", target.ID).Msg("target no longer holds the old name")
		return false, nil
	}
	taken, err := e.ident.UserByName(ctx, newName)
	if err != nil {
		return false, err
	}
	if taken != nil {
		log.Info().Str("new_name", newName).Msg("requested name is already taken")
		return false, nil
	}
	allowed, err := e.ident.RenameAllowed(ctx, oldName, newName)
	if err != nil {
		return false, err
	}
	if !allowed {
		log.Warn().Str("old_name", oldName).Str("new_name", newName).Msg("rename vetoed by host hook")
		return false, nil
	}
	if err := e.ident.Rename(ctx, oldName, newName, target.ID, e.signed(reason)); err != nil {
		return false, err
	}
	if err := e.ident.MoveUserPages(ctx, oldName, newName); err != nil {
		return false, fmt.Errorf("user page move failed after rename: %w", err)
	}
	log.Info().
		Str("old_name", oldName).
		Str("new_name", newName).
		Str("actor", e.actor.Name).
		Msg("user renamed")
	return true, nil
}

func (e *Enforcer) signed(reason string) string {
	return fmt.Sprintf("[%s] %s", e.actor.Name, reason)
}
