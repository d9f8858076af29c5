package sanction_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSyncStampsRepliesAndSkipsThemAfter(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{agree|5}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.Contains(t, e.disc.topics[s.TopicID].replies[0].Content, "{{counted}}")

	// a fresh edit elsewhere reopens the topic, but the stamped reply
	// contributes nothing
	e.addReply(s, "p2", 4, "no vote here, just commentary", ts.Add(2*time.Minute))
	e.now = ts.Add(3 * time.Minute)
	changed, err = e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, e.store.votes[s.ID], 1)
}

func TestSyncSkipsUnmodifiedTopic(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{agree}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)

	// no edits since the sync; the topic is not even fetched again
	before := len(e.disc.topics[s.TopicID].replies[0].Content)
	changed, err = e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, e.disc.topics[s.TopicID].replies[0].Content, before)
}

func TestSyncLatestVoteWins(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{agree|6}}", ts)
	e.addReply(s, "p2", 3, "changed my mind {{disagree}}", ts.Add(time.Minute))

	e.now = ts.Add(2 * time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, e.store.votes[s.ID], 1)
	require.Equal(t, 0, e.store.votes[s.ID][3].Period)
}

func TestSyncStaleRevisionNeverOverwrites(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{disagree}}", ts)

	e.now = ts.Add(time.Minute)
	_, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)

	// an older revision surfaces late, e.g. out of a lagging replica
	e.addReply(s, "p0", 3, "{{agree|9}}", ts.Add(-time.Hour))
	e.disc.topics[s.TopicID].lastMod = e.now.Add(time.Minute)
	e.now = e.now.Add(2 * time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 0, e.store.votes[s.ID][3].Period)
}

func TestSyncRefusesProposerVote(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 1, "{{agree|30}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, e.store.votes[s.ID])

	topic := e.disc.topics[s.TopicID]
	require.Len(t, topic.posted, 1)
	require.Contains(t, topic.posted[0], "proposer may not vote")
	require.Contains(t, topic.replies[0].Content, "{{counted}}", "a refused reply is still stamped")
}

func TestSyncRefusesIneligibleVoterWithReasons(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	e.ident.users[4].Registration = e.now.AddDate(0, 0, -5)
	e.ident.edits[4] = 2

	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 4, "{{agree}}", ts)
	e.addReply(s, "p2", 3, "{{agree|3}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, e.store.votes[s.ID], 1, "only the eligible vote is counted")

	topic := e.disc.topics[s.TopicID]
	require.Len(t, topic.posted, 1)
	require.Contains(t, topic.posted[0], "verification period")
	require.Contains(t, topic.posted[0], "edits in the last 90 days")
}

func TestSyncIgnoresNonVoteReplies(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "could you add diffs for this?", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, e.store.votes[s.ID])
	require.Contains(t, e.disc.topics[s.TopicID].replies[0].Content, "{{counted}}")
}

func TestImmediateRejectionCollapsesExpiry(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	origExpiry := s.Expiry
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{disagree}}", ts)
	e.addReply(s, "p2", 4, "{{disagree}}", ts)
	e.addReply(s, "p3", 5, "{{disagree}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, s.Expiry.Before(origExpiry))
	require.True(t, s.IsExpired(e.now))
	require.False(t, s.Handled, "rejection closes voting, execution still finalizes")

	done, err := e.ctrl.Execute(context.Background(), s)
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, s.Handled)
	require.False(t, e.ident.users[2].Blocked)
}

func TestImmediateRejectionRevertsProvisionalBlock(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	require.NoError(t, e.ctrl.ToggleEmergency(context.Background(), s, author))
	require.True(t, e.ident.users[2].Blocked)

	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{disagree}}", ts)
	e.addReply(s, "p2", 4, "{{disagree}}", ts)
	e.addReply(s, "p3", 5, "{{disagree}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.False(t, s.Emergency)
	require.False(t, e.ident.users[2].Blocked)

	// rejection cleared the emergency, so finalization has nothing to do
	done, err := e.ctrl.Execute(context.Background(), s)
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, s.Handled)
	require.False(t, e.ident.users[2].Blocked)
}

func TestImmediateRejectionRevertsProvisionalRename(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, true)
	require.NoError(t, e.ctrl.ToggleEmergency(context.Background(), s, author))
	require.NotEqual(t, "mallory", e.ident.users[2].Name)

	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{disagree}}", ts)
	e.addReply(s, "p2", 4, "{{disagree}}", ts)
	e.addReply(s, "p3", 5, "{{disagree}}", ts)

	e.now = ts.Add(time.Minute)
	_, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, "mallory", e.ident.users[2].Name)
}

func TestSyncDoesNotRejectOnMixedVotes(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	origExpiry := s.Expiry
	ts := e.now.Add(time.Hour)
	e.addReply(s, "p1", 3, "{{agree|5}}", ts)
	e.addReply(s, "p2", 4, "{{disagree}}", ts)
	e.addReply(s, "p3", 5, "{{disagree}}", ts)

	e.now = ts.Add(time.Minute)
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, origExpiry, s.Expiry, "two disagreements are not enough to close early")
}

func TestSyncNoopOnHandledOrExpired(t *testing.T) {
	e := newEnv(t)
	s := e.propose(t, false)
	e.addReply(s, "p1", 3, "{{agree}}", e.now.Add(time.Hour))

	e.now = s.Expiry
	changed, err := e.ctrl.CheckNewVotes(context.Background(), s)
	require.NoError(t, err)
	require.False(t, changed, "votes after the window closes are not counted")
	require.Empty(t, e.store.votes[s.ID])
}
