package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wikimods/sanctiond/common"
)

func (c *Client) UserByName(ctx context.Context, name string) (*UserInfo, error) {
	var out UserInfo
	err := c.do(ctx, "GET", "/users/by-name/"+url.PathEscape(name), nil, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserByID(ctx context.Context, id int64) (*UserInfo, error) {
	var out UserInfo
	err := c.do(ctx, "GET", fmt.Sprintf("/users/%d", id), nil, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type editCountResponse struct {
	Count int `json:"count"`
}

func (c *Client) CountEditsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	path := fmt.Sprintf("/users/%d/edits?since=%s", userID, url.QueryEscape(since.UTC().Format(time.RFC3339)))
	var out editCountResponse
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) BlockHistory(ctx context.Context, userID int64) ([]BlockRecord, error) {
	var out []BlockRecord
	if err := c.do(ctx, "GET", fmt.Sprintf("/users/%d/blocks", userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type blockRequest struct {
	Expiry             time.Time `json:"expiry"`
	Reason             string    `json:"reason"`
	PreventOwnTalkEdit bool      `json:"preventOwnTalkEdit"`
}

func (c *Client) Block(ctx context.Context, target common.UserRef, expiry time.Time, reason string, preventOwnTalkEdit bool) error {
	return c.do(ctx, "POST", fmt.Sprintf("/users/%d/block", target.ID), blockRequest{
		Expiry:             expiry,
		Reason:             reason,
		PreventOwnTalkEdit: preventOwnTalkEdit,
	}, nil)
}

type unblockRequest struct {
	Reason   string `json:"reason"`
	WriteLog bool   `json:"writeLog"`
}

func (c *Client) Unblock(ctx context.Context, target common.UserRef, reason string, writeLog bool) error {
	return c.do(ctx, "POST", fmt.Sprintf("/users/%d/unblock", target.ID), unblockRequest{
		Reason:   reason,
		WriteLog: writeLog,
	}, nil)
}

type renameRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
	Reason  string `json:"reason"`
}

func (c *Client) Rename(ctx context.Context, oldName, newName string, targetID int64, reason string) error {
	return c.do(ctx, "POST", fmt.Sprintf("/users/%d/rename", targetID), renameRequest{
		OldName: oldName,
		NewName: newName,
		Reason:  reason,
	}, nil)
}

type movePagesRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (c *Client) MoveUserPages(ctx context.Context, oldName, newName string) error {
	return c.do(ctx, "POST", "/pages/move-user-pages", movePagesRequest{
		OldName: oldName,
		NewName: newName,
	}, nil)
}

type hookResponse struct {
	Allowed bool `json:"allowed"`
}

func (c *Client) RenameAllowed(ctx context.Context, oldName, newName string) (bool, error) {
	path := fmt.Sprintf("/hooks/rename-abort?oldName=%s&newName=%s",
		url.QueryEscape(oldName), url.QueryEscape(newName))
	var out hookResponse
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}
