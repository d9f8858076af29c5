package sanction

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/voting"
)

// CheckNewVotes reconciles the discussion topic's replies against the
// persisted votes. It is idempotent and safe to call repeatedly: replies
// already stamped with the counted marker are skipped, a stale topic (no
// edits since the sanction's last update) is a cheap no-op, and vote rows
// only change for strictly newer, different values. Reports whether any
// vote row changed.
func (c *Controller) CheckNewVotes(ctx context.Context, s *db.Sanction) (bool, error) {
	unlock := c.lock(s.ID)
	defer unlock()

	now := c.Now()
	if s.Handled || s.IsExpired(now) {
		return false, nil
	}
	lastMod, err := c.discussion.LastModified(ctx, s.TopicID)
	if err != nil {
		return false, err
	}
	if !lastMod.After(s.LastUpdate) {
		return false, nil
	}

	changed, err := c.syncReplies(ctx, s, now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	if err := c.store.TouchLastUpdate(ctx, s.ID, now); err != nil {
		return true, err
	}
	s.LastUpdate = now

	tally, inputs, err := c.refreshTally(ctx, s)
	if err != nil {
		return true, err
	}
	if voting.ImmediatelyRejected(inputs) {
		return true, c.immediateRejection(ctx, s, tally)
	}
	c.updateSummary(ctx, s, tally)
	return true, nil
}

type voteCandidate struct {
	name      string
	period    int
	timestamp time.Time
}

// syncReplies scans every reply revision under the topic, classifies the
// unprocessed ones and upserts the latest position per voter. Replies by
// the proposer and by ineligible voters get an explanatory reply instead
// of a vote. Every processed reply is stamped counted; reply and stamp
// failures are logged, never fatal.
func (c *Controller) syncReplies(ctx context.Context, s *db.Sanction, now time.Time) (bool, error) {
	replies, err := c.discussion.ListReplies(ctx, s.TopicID)
	if err != nil {
		return false, err
	}

	latest := make(map[int64]voteCandidate)
	eligCache := make(map[int64][]string) // voter -> disqualifying reasons, nil when eligible
	toStamp := make(map[string]struct{})
	refusals := make(map[string]string)

	for _, r := range replies {
		if voting.HasCountedMarker(r.Content, c.cfg.ContentMode) {
			continue
		}
		toStamp[r.PostID] = struct{}{}
		res := voting.Extract(r.Content, c.cfg.ContentMode)
		if res.Kind == voting.NoVote {
			continue
		}
		if r.AuthorID == s.AuthorID {
			refusals[r.PostID] = "This vote cannot be counted: the proposer may not vote on their own proposal."
			continue
		}
		reasons, checked := eligCache[r.AuthorID]
		if !checked {
			elig, err := c.checker.Check(ctx, r.AuthorID, now, true)
			if err != nil {
				return false, err
			}
			reasons = elig.Reasons
			eligCache[r.AuthorID] = reasons
		}
		if len(reasons) > 0 {
			refusals[r.PostID] = "This vote cannot be counted: " + strings.Join(reasons, "; ") + "."
			continue
		}
		period := 0
		if res.Kind == voting.Agree {
			period = res.Period
		}
		cur, ok := latest[r.AuthorID]
		if !ok || r.Timestamp.After(cur.timestamp) {
			latest[r.AuthorID] = voteCandidate{name: r.AuthorName, period: period, timestamp: r.Timestamp}
		}
	}

	changed := false
	for voterID, cand := range latest {
		rowChanged, err := c.store.UpsertVote(ctx, &db.Vote{
			ID:         uuid.New(),
			SanctionID: s.ID,
			VoterID:    voterID,
			VoterName:  cand.name,
			Period:     cand.period,
			LastUpdate: cand.timestamp,
		})
		if err != nil {
			return changed, err
		}
		changed = changed || rowChanged
	}

	for postID, msg := range refusals {
		if err := c.discussion.PostReply(ctx, s.TopicID, postID, msg); err != nil {
			log.Warn().Err(err).Str("sanction", s.ID.String()).Str("post", postID).Msg("failed to post refusal reply")
		}
	}
	marker := voting.CountedMarker(c.cfg.ContentMode)
	for postID := range toStamp {
		if err := c.discussion.AppendToPost(ctx, s.TopicID, postID, marker); err != nil {
			log.Warn().Err(err).Str("sanction", s.ID.String()).Str("post", postID).Msg("failed to stamp counted marker")
		}
	}
	return changed, nil
}
