// Package cred caches the latest vote tally per sanction in redis and
// keeps an append-only audit stream of tally and lifecycle changes. The
// database stays the source of truth; everything here is best-effort.
package cred

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/wikimods/sanctiond/voting"
)

type CredClient struct {
	unsafe bool
	rdb    *redis.Client
}

// create a new CredClient, if unsafe is true allows running the flushall command
func New(ctx context.Context, url string, unsafe bool) (*CredClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: url,
	})
	scripts := [2]*redis.Script{TallyLuaScript, LifecycleLuaScript}
	for _, script := range scripts {
		res := script.Load(ctx, rdb)
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("failed to load script %s", err)
		}
	}
	return &CredClient{
		unsafe,
		rdb,
	}, nil
}

func (c *CredClient) StoreTally(ctx context.Context, sanctionID string, t voting.Tally) error {
	return TallyLuaScript.Run(
		ctx,
		c.rdb,
		nil,
		[]interface{}{
			sanctionID,
			t.Count,
			t.Agree,
			strconv.FormatBool(t.Passed),
			t.Period,
		},
	).Err()
}

func (c *CredClient) StoreLifecycleEvent(ctx context.Context, sanctionID, event, detail string) error {
	return LifecycleLuaScript.Run(
		ctx,
		c.rdb,
		nil,
		[]interface{}{
			sanctionID,
			event,
			detail,
		},
	).Err()
}

// CachedTally reads the latest snapshot, reporting false when no tally has
// been cached for the sanction yet.
func (c *CredClient) CachedTally(ctx context.Context, sanctionID string) (voting.Tally, bool, error) {
	values, err := c.rdb.HGetAll(ctx, "sanction:"+sanctionID+":tally").Result()
	if err != nil {
		return voting.Tally{}, false, err
	}
	if len(values) == 0 {
		return voting.Tally{}, false, nil
	}
	var t voting.Tally
	if t.Count, err = strconv.Atoi(values["count"]); err != nil {
		return voting.Tally{}, false, fmt.Errorf("malformed cached count %s", err)
	}
	if t.Agree, err = strconv.Atoi(values["agree"]); err != nil {
		return voting.Tally{}, false, fmt.Errorf("malformed cached agree %s", err)
	}
	if t.Period, err = strconv.Atoi(values["period"]); err != nil {
		return voting.Tally{}, false, fmt.Errorf("malformed cached period %s", err)
	}
	t.Passed = values["passed"] == "true"
	return t, true, nil
}

func (c *CredClient) FlushAll(ctx context.Context) error {
	if c.unsafe {
		return c.rdb.FlushAll(ctx).Err()
	}
	return nil
}

func (c *CredClient) Redis() *redis.Client { return c.rdb }
