package platform

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wikimods/sanctiond/common"
)

type createTopicRequest struct {
	Board   string `json:"board"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createTopicResponse struct {
	TopicID   string `json:"topicId"`
	TopicPage string `json:"topicPage"`
}

func (c *Client) CreateTopic(ctx context.Context, board, title, content string) (common.TopicRef, error) {
	var out createTopicResponse
	err := c.do(ctx, "POST", "/topics", createTopicRequest{
		Board:   board,
		Title:   title,
		Content: content,
	}, &out)
	if err != nil {
		return common.TopicRef{}, err
	}
	if out.TopicID == "" {
		return common.TopicRef{}, fmt.Errorf("topic creation returned no identifier")
	}
	return common.TopicRef{TopicID: out.TopicID, TopicPage: out.TopicPage}, nil
}

type postReplyRequest struct {
	ParentPostID string `json:"parentPostId,omitempty"`
	Content      string `json:"content"`
}

func (c *Client) PostReply(ctx context.Context, topicID, parentPostID, content string) error {
	path := fmt.Sprintf("/topics/%s/replies", url.PathEscape(topicID))
	return c.do(ctx, "POST", path, postReplyRequest{
		ParentPostID: parentPostID,
		Content:      content,
	}, nil)
}

type appendRequest struct {
	Suffix string `json:"suffix"`
}

func (c *Client) AppendToPost(ctx context.Context, topicID, postID, suffix string) error {
	path := fmt.Sprintf("/topics/%s/posts/%s/append", url.PathEscape(topicID), url.PathEscape(postID))
	return c.do(ctx, "POST", path, appendRequest{Suffix: suffix}, nil)
}

type editSummaryRequest struct {
	Text string `json:"text"`
}

func (c *Client) EditSummary(ctx context.Context, topicID, text string) error {
	path := fmt.Sprintf("/topics/%s/summary", url.PathEscape(topicID))
	return c.do(ctx, "PUT", path, editSummaryRequest{Text: text}, nil)
}

func (c *Client) ListReplies(ctx context.Context, topicID string) ([]Reply, error) {
	path := fmt.Sprintf("/topics/%s/replies?revisions=all", url.PathEscape(topicID))
	var out []Reply
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type lastModifiedResponse struct {
	LastModified time.Time `json:"lastModified"`
}

func (c *Client) LastModified(ctx context.Context, topicID string) (time.Time, error) {
	path := fmt.Sprintf("/topics/%s", url.PathEscape(topicID))
	var out lastModifiedResponse
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.LastModified, nil
}
