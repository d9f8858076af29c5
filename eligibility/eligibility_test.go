package eligibility_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wikimods/sanctiond/common"
	"github.com/wikimods/sanctiond/eligibility"
	"github.com/wikimods/sanctiond/platform"
)

type fakeIdentity struct {
	users   map[int64]*platform.UserInfo
	edits   map[int64]int
	history map[int64][]platform.BlockRecord
}

func (f *fakeIdentity) UserByID(ctx context.Context, id int64) (*platform.UserInfo, error) {
	return f.users[id], nil
}

func (f *fakeIdentity) UserByName(ctx context.Context, name string) (*platform.UserInfo, error) {
	for _, u := range f.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentity) CountEditsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	return f.edits[userID], nil
}

func (f *fakeIdentity) BlockHistory(ctx context.Context, userID int64) ([]platform.BlockRecord, error) {
	return f.history[userID], nil
}

func (f *fakeIdentity) Block(ctx context.Context, target common.UserRef, expiry time.Time, reason string, preventOwnTalkEdit bool) error {
	return nil
}

func (f *fakeIdentity) Unblock(ctx context.Context, target common.UserRef, reason string, writeLog bool) error {
	return nil
}

func (f *fakeIdentity) Rename(ctx context.Context, oldName, newName string, targetID int64, reason string) error {
	return nil
}

func (f *fakeIdentity) MoveUserPages(ctx context.Context, oldName, newName string) error {
	return nil
}

func (f *fakeIdentity) RenameAllowed(ctx context.Context, oldName, newName string) (bool, error) {
	return true, nil
}

const (
	verificationDays = 90
	minEdits         = 10
)

func eligibleUser(asOf time.Time) *platform.UserInfo {
	return &platform.UserInfo{
		ID:           1,
		Name:         "alice",
		Registered:   true,
		Registration: asOf.AddDate(-1, 0, 0),
		CanEdit:      true,
	}
}

func newFake(user *platform.UserInfo) *fakeIdentity {
	return &fakeIdentity{
		users:   map[int64]*platform.UserInfo{user.ID: user},
		edits:   map[int64]int{user.ID: 50},
		history: map[int64][]platform.BlockRecord{},
	}
}

func TestEligibleUser(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ident := newFake(eligibleUser(asOf))
	checker := eligibility.NewChecker(ident, verificationDays, minEdits)

	res, err := checker.Check(context.Background(), 1, asOf, true)
	require.NoError(t, err)
	require.True(t, res.Eligible)
	require.Empty(t, res.Reasons)
}

func TestEachRuleFlipsEligibility(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*fakeIdentity)
	}{
		{"anonymous", func(f *fakeIdentity) { f.users[1].Registered = false }},
		{"unknown registration", func(f *fakeIdentity) { f.users[1].Registration = time.Time{} }},
		{"no edit permission", func(f *fakeIdentity) { f.users[1].CanEdit = false }},
		{"young account", func(f *fakeIdentity) { f.users[1].Registration = asOf.AddDate(0, 0, -10) }},
		{"too few edits", func(f *fakeIdentity) { f.edits[1] = minEdits - 1 }},
		{"active block", func(f *fakeIdentity) {
			f.users[1].Blocked = true
			f.users[1].BlockExpiry = asOf.AddDate(0, 0, 3)
		}},
		{"recently lifted block", func(f *fakeIdentity) {
			f.history[1] = []platform.BlockRecord{{Expiry: asOf.AddDate(0, 0, -5)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident := newFake(eligibleUser(asOf))
			tt.mutate(ident)
			checker := eligibility.NewChecker(ident, verificationDays, minEdits)

			res, err := checker.Check(context.Background(), 1, asOf, true)
			require.NoError(t, err)
			require.False(t, res.Eligible)
			require.Len(t, res.Reasons, 1)

			// short-circuit mode agrees on the verdict
			res, err = checker.Check(context.Background(), 1, asOf, false)
			require.NoError(t, err)
			require.False(t, res.Eligible)
		})
	}
}

func TestMultipleReasonsAccumulate(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ident := newFake(eligibleUser(asOf))
	ident.users[1].CanEdit = false
	ident.edits[1] = 0

	checker := eligibility.NewChecker(ident, verificationDays, minEdits)
	res, err := checker.Check(context.Background(), 1, asOf, true)
	require.NoError(t, err)
	require.False(t, res.Eligible)
	require.Len(t, res.Reasons, 2)
}

func TestOldBlockOutsideWindowIsIgnored(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ident := newFake(eligibleUser(asOf))
	ident.history[1] = []platform.BlockRecord{{Expiry: asOf.AddDate(-1, 0, 0)}}

	checker := eligibility.NewChecker(ident, verificationDays, minEdits)
	res, err := checker.Check(context.Background(), 1, asOf, true)
	require.NoError(t, err)
	require.True(t, res.Eligible)
}

func TestUnknownUserIsIneligible(t *testing.T) {
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ident := newFake(eligibleUser(asOf))

	checker := eligibility.NewChecker(ident, verificationDays, minEdits)
	res, err := checker.Check(context.Background(), 99, asOf, true)
	require.NoError(t, err)
	require.False(t, res.Eligible)
	require.Len(t, res.Reasons, 1)
}
