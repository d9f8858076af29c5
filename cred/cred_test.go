package cred_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wikimods/sanctiond/cred"
	"github.com/wikimods/sanctiond/voting"
)

func TestCred(t *testing.T) {
	ctx := context.Background()
	client, err := cred.New(ctx, "localhost:6379", true)
	require.NoError(t, err)

	// clear pre-existing state
	require.NoError(t, client.FlushAll(ctx))

	const id = "6f1f9c1e-test"

	_, ok, err := client.CachedTally(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	first := voting.Tally{Count: 2, Agree: 2, Passed: true, Period: 4}
	require.NoError(t, client.StoreTally(ctx, id, first))
	got, ok, err := client.CachedTally(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, got)

	// a refresh overwrites the snapshot and appends to the stream
	second := voting.Tally{Count: 3, Agree: 1, Passed: false, Period: 0}
	require.NoError(t, client.StoreTally(ctx, id, second))
	got, ok, err = client.CachedTally(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, got)

	require.NoError(t, client.StoreLifecycleEvent(ctx, id, "rejected", "count=3 agree=1"))

	msgs, err := client.Redis().XRange(ctx, "sanction:"+id+":events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// ids come from the per-sanction INCR sequence
	require.Equal(t, "0-1", msgs[0].ID)
	require.Equal(t, "0-2", msgs[1].ID)
	require.Equal(t, "0-3", msgs[2].ID)
	require.Equal(t, "tally", msgs[0].Values["kind"])
	require.Equal(t, "lifecycle", msgs[2].Values["kind"])
	require.Equal(t, "rejected", msgs[2].Values["event"])
}
