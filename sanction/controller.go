// Package sanction implements the proposal lifecycle: creation, vote
// resynchronization, the emergency overlay, early rejection and the final
// execution of the voted outcome.
package sanction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/common"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/eligibility"
	"github.com/wikimods/sanctiond/platform"
	"github.com/wikimods/sanctiond/voting"
)

// Store is the slice of the database the controller drives.
type Store interface {
	InsertSanction(ctx context.Context, s *db.Sanction) error
	SanctionsByTarget(ctx context.Context, targetName string, renameOnly, includeHandled bool) ([]db.Sanction, error)
	SetEmergency(ctx context.Context, id uuid.UUID, emergency bool, asOf time.Time) error
	CollapseExpiry(ctx context.Context, id uuid.UUID, asOf time.Time) error
	TouchLastUpdate(ctx context.Context, id uuid.UUID, asOf time.Time) error
	MarkHandled(ctx context.Context, id uuid.UUID, asOf time.Time) (bool, error)
	VotesFor(ctx context.Context, sanctionID uuid.UUID) ([]db.Vote, error)
	UpsertVote(ctx context.Context, v *db.Vote) (bool, error)
	DeleteVotesFor(ctx context.Context, sanctionID uuid.UUID) error
}

// Enforcer applies and reverts the physical measures.
type Enforcer interface {
	ApplyBlock(ctx context.Context, target common.UserRef, expiry time.Time, reason string, preventOwnTalkEdit bool) (bool, error)
	RemoveBlock(ctx context.Context, target common.UserRef, expiry time.Time, reason string, writeLog bool) (bool, error)
	Rename(ctx context.Context, oldName, newName string, target common.UserRef, reason string) (bool, error)
}

// Checker answers whether a voter may participate right now.
type Checker interface {
	Check(ctx context.Context, userID int64, asOf time.Time, withReasons bool) (eligibility.Result, error)
}

// TallyCache is the optional redis snapshot/audit layer; a nil cache
// disables it.
type TallyCache interface {
	StoreTally(ctx context.Context, sanctionID string, t voting.Tally) error
	StoreLifecycleEvent(ctx context.Context, sanctionID, event, detail string) error
	CachedTally(ctx context.Context, sanctionID string) (voting.Tally, bool, error)
}

type Config struct {
	Board            string
	VotingPeriodDays int
	MaxBlockDays     int
	ContentMode      voting.ContentMode
}

type Controller struct {
	store      Store
	discussion platform.Discussion
	identity   platform.Identity
	checker    Checker
	enforcer   Enforcer
	cache      TallyCache
	cfg        Config
	actor      common.SystemActor

	// Now is the clock; overridable in tests.
	Now func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewController(
	store Store,
	discussion platform.Discussion,
	identity platform.Identity,
	checker Checker,
	enforcer Enforcer,
	cache TallyCache,
	actor common.SystemActor,
	cfg Config,
) *Controller {
	return &Controller{
		store:      store,
		discussion: discussion,
		identity:   identity,
		checker:    checker,
		enforcer:   enforcer,
		cache:      cache,
		cfg:        cfg,
		actor:      actor,
		Now:        time.Now,
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

// lock serializes all state transitions of one sanction within this
// process, so a sweep finalization cannot interleave with a view-triggered
// resynchronization.
func (c *Controller) lock(id uuid.UUID) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Write creates a new proposal: the discussion topic first, the row only
// if that succeeded, so a failed topic leaves nothing persisted. A
// duplicate unhandled rename proposal for the same target fails before any
// topic is created.
func (c *Controller) Write(ctx context.Context, author common.UserRef, targetName string, rename bool, content string) (*db.Sanction, error) {
	if targetName == "" {
		return nil, common.ErrNoTarget
	}
	target, err := c.identity.UserByName(ctx, targetName)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, common.ErrTargetMissing
	}
	if rename {
		existing, err := c.store.SanctionsByTarget(ctx, target.Name, true, false)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, common.ErrDuplicateRename
		}
	}

	now := c.Now()
	title := fmt.Sprintf("Sanction proposal against %s", target.Name)
	if rename {
		title += " (username change)"
	}
	topic, err := c.discussion.CreateTopic(ctx, c.cfg.Board, title, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrTopicCreate, err)
	}

	s := &db.Sanction{
		ID:         uuid.New(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		TopicID:    topic.TopicID,
		TopicPage:  topic.TopicPage,
		Expiry:     now.AddDate(0, 0, c.cfg.VotingPeriodDays),
		LastUpdate: now,
	}
	if rename {
		s.OriginalName = target.Name
	}
	if err := c.store.InsertSanction(ctx, s); err != nil {
		return nil, err
	}
	log.Info().
		Str("sanction", s.ID.String()).
		Str("target", s.TargetName).
		Str("author", s.AuthorName).
		Bool("rename", rename).
		Msg("sanction proposed")
	c.audit(ctx, s, "created", fmt.Sprintf("target=%s rename=%t", s.TargetName, rename))
	return s, nil
}

// ToggleEmergency applies the provisional measure ahead of the vote, or
// reverses it when already in force. Rejected once the window has closed.
func (c *Controller) ToggleEmergency(ctx context.Context, s *db.Sanction, actor common.UserRef) error {
	unlock := c.lock(s.ID)
	defer unlock()

	now := c.Now()
	if s.Handled {
		return common.ErrAlreadyHandled
	}
	if s.IsExpired(now) {
		return common.ErrExpired
	}
	reason := fmt.Sprintf("provisional measure pending sanction vote, requested by %s", actor.Name)
	if !s.Emergency {
		ok, err := c.applyProvisional(ctx, s, reason)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("provisional measure could not be applied")
		}
		if err := c.store.SetEmergency(ctx, s.ID, true, now); err != nil {
			return err
		}
		s.Emergency = true
		s.LastUpdate = now
		c.audit(ctx, s, "emergency_on", reason)
		return nil
	}

	// a mismatching block means the measure is already superseded and
	// there is nothing of ours to revert
	if _, err := c.revertProvisional(ctx, s, s.Expiry, reason); err != nil {
		return err
	}
	if err := c.store.SetEmergency(ctx, s.ID, false, now); err != nil {
		return err
	}
	s.Emergency = false
	s.LastUpdate = now
	c.audit(ctx, s, "emergency_off", reason)
	return nil
}

// Execute realizes the final outcome once the window has closed. It runs
// at most once per sanction: a second call, or a call before expiry,
// reports false without side effects.
func (c *Controller) Execute(ctx context.Context, s *db.Sanction) (bool, error) {
	unlock := c.lock(s.ID)
	defer unlock()

	now := c.Now()
	if s.Handled || !s.IsExpired(now) {
		return false, nil
	}

	tally, _, err := c.refreshTally(ctx, s)
	if err != nil {
		return false, err
	}
	target := common.UserRef{ID: s.TargetID, Name: s.TargetName}
	reason := fmt.Sprintf("sanction vote closed: %d/%d in favor", tally.Agree, tally.Count)

	switch {
	case tally.Passed && !s.Emergency:
		if s.IsRename() {
			if _, err := c.enforcer.Rename(ctx, s.OriginalName, c.placeholderName(s), target, reason); err != nil {
				return false, err
			}
		} else {
			if _, err := c.enforcer.ApplyBlock(ctx, target, now.AddDate(0, 0, tally.Period), reason, true); err != nil {
				return false, err
			}
		}
	case !tally.Passed && s.Emergency:
		if _, err := c.revertProvisional(ctx, s, s.Expiry, reason); err != nil {
			return false, err
		}
	case tally.Passed && s.Emergency:
		// the provisional rename already realized the outcome; a block is
		// extended when the voted period outlasts it
		if !s.IsRename() {
			if _, err := c.enforcer.ApplyBlock(ctx, target, now.AddDate(0, 0, tally.Period), reason, true); err != nil {
				return false, err
			}
		}
	default:
		// failed without a provisional measure, nothing physical to do
	}

	ok, err := c.store.MarkHandled(ctx, s.ID, now)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Warn().Str("sanction", s.ID.String()).Msg("lost finalization race, outcome already recorded")
		return false, nil
	}
	s.Handled = true
	s.LastUpdate = now
	c.updateSummary(ctx, s, tally)
	if err := c.store.DeleteVotesFor(ctx, s.ID); err != nil {
		return true, err
	}
	log.Info().
		Str("sanction", s.ID.String()).
		Bool("passed", tally.Passed).
		Bool("emergency", s.Emergency).
		Int("period", tally.Period).
		Msg("sanction executed")
	c.audit(ctx, s, "executed", fmt.Sprintf("passed=%t emergency=%t period=%d", tally.Passed, s.Emergency, tally.Period))
	return true, nil
}

// immediateRejection terminates voting early after three net
// disagreements: the summary records the tally, the expiry collapses to
// now so the sanction reads as expired, and a provisional measure is
// undone. It does not flip handled; a later Execute completes the terminal
// transition.
func (c *Controller) immediateRejection(ctx context.Context, s *db.Sanction, tally voting.Tally) error {
	origExpiry := s.Expiry
	now := c.Now()
	if err := c.store.CollapseExpiry(ctx, s.ID, now); err != nil {
		return err
	}
	s.Expiry = now
	s.LastUpdate = now

	if s.Emergency {
		reason := "sanction rejected early, reverting provisional measure"
		if _, err := c.revertProvisional(ctx, s, origExpiry, reason); err != nil {
			return err
		}
		if err := c.store.SetEmergency(ctx, s.ID, false, now); err != nil {
			return err
		}
		s.Emergency = false
	}
	c.updateSummary(ctx, s, tally)
	log.Info().
		Str("sanction", s.ID.String()).
		Int("count", tally.Count).
		Int("agree", tally.Agree).
		Msg("sanction rejected early")
	c.audit(ctx, s, "rejected", fmt.Sprintf("count=%d agree=%d", tally.Count, tally.Agree))
	return nil
}

func (c *Controller) applyProvisional(ctx context.Context, s *db.Sanction, reason string) (bool, error) {
	target := common.UserRef{ID: s.TargetID, Name: s.TargetName}
	if s.IsRename() {
		return c.enforcer.Rename(ctx, s.OriginalName, c.placeholderName(s), target, reason)
	}
	return c.enforcer.ApplyBlock(ctx, target, s.Expiry, reason, true)
}

// revertProvisional undoes the provisional measure: it lifts the block
// only when its expiry still matches the one this sanction installed, or
// renames the target back to the proposal-time name.
func (c *Controller) revertProvisional(ctx context.Context, s *db.Sanction, blockExpiry time.Time, reason string) (bool, error) {
	target := common.UserRef{ID: s.TargetID, Name: s.TargetName}
	if s.IsRename() {
		current, err := c.identity.UserByID(ctx, s.TargetID)
		if err != nil {
			return false, err
		}
		if current == nil || current.Name == s.OriginalName {
			return false, nil
		}
		return c.enforcer.Rename(ctx, current.Name, s.OriginalName, target, reason)
	}
	return c.enforcer.RemoveBlock(ctx, target, blockExpiry, reason, true)
}

// refreshTally recomputes the tally from the persisted votes and pushes
// the snapshot to the cache, best-effort.
func (c *Controller) refreshTally(ctx context.Context, s *db.Sanction) (voting.Tally, []voting.VoteInput, error) {
	rows, err := c.store.VotesFor(ctx, s.ID)
	if err != nil {
		return voting.Tally{}, nil, err
	}
	inputs := make([]voting.VoteInput, 0, len(rows))
	for _, v := range rows {
		inputs = append(inputs, voting.VoteInput{Voter: v.VoterName, Period: v.Period})
	}
	t := voting.Compute(inputs, c.cfg.MaxBlockDays, true)
	if c.cache != nil {
		if err := c.cache.StoreTally(ctx, s.ID.String(), t); err != nil {
			log.Warn().Err(err).Str("sanction", s.ID.String()).Msg("failed to cache tally")
		}
	}
	return t, inputs, nil
}

// Period reports the sanction length the current votes resolve to. Unless
// anyway is set a failing tally reports zero. The cached snapshot is
// preferred; the database is the fallback.
func (c *Controller) Period(ctx context.Context, s *db.Sanction, anyway bool) (int, error) {
	if c.cache != nil {
		if t, ok, err := c.cache.CachedTally(ctx, s.ID.String()); err == nil && ok {
			if t.Passed || anyway {
				return t.Period, nil
			}
			return 0, nil
		}
	}
	t, _, err := c.refreshTally(ctx, s)
	if err != nil {
		return 0, err
	}
	if t.Passed || anyway {
		return t.Period, nil
	}
	return 0, nil
}

func (c *Controller) IsPassed(ctx context.Context, s *db.Sanction) (bool, error) {
	t, _, err := c.refreshTally(ctx, s)
	if err != nil {
		return false, err
	}
	return t.Passed, nil
}

func (c *Controller) IsExpired(s *db.Sanction) bool {
	return s.IsExpired(c.Now())
}

// placeholderName is the neutral username a rename sanction moves the
// target to.
func (c *Controller) placeholderName(s *db.Sanction) string {
	return fmt.Sprintf("Renamed user %s", strings.SplitN(s.ID.String(), "-", 2)[0])
}

func (c *Controller) audit(ctx context.Context, s *db.Sanction, event, detail string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.StoreLifecycleEvent(ctx, s.ID.String(), event, detail); err != nil {
		log.Warn().Err(err).Str("sanction", s.ID.String()).Msg("failed to record audit event")
	}
}
