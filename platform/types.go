package platform

import (
	"context"
	"time"

	"github.com/wikimods/sanctiond/common"
)

// Reply is one revision of a post under a discussion topic. Every revision
// is listed, not just the latest, so an edited vote can be reclassified.
type Reply struct {
	PostID     string    `json:"postId"`
	RevisionID string    `json:"revisionId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Discussion is the narrow contract against the host's discussion-thread
// service. All writes are performed as the bot actor carried by the client.
type Discussion interface {
	CreateTopic(ctx context.Context, board, title, content string) (common.TopicRef, error)
	PostReply(ctx context.Context, topicID, parentPostID, content string) error
	// AppendToPost edits a reply in place, used to stamp the counted marker.
	AppendToPost(ctx context.Context, topicID, postID, suffix string) error
	EditSummary(ctx context.Context, topicID, text string) error
	ListReplies(ctx context.Context, topicID string) ([]Reply, error)
	LastModified(ctx context.Context, topicID string) (time.Time, error)
}

// UserInfo is the host platform's view of one account.
type UserInfo struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Registered   bool      `json:"registered"`
	Registration time.Time `json:"registration"`
	CanEdit      bool      `json:"canEdit"`
	Blocked      bool      `json:"blocked"`
	BlockExpiry  time.Time `json:"blockExpiry"`
}

// BlockRecord is one entry of a user's block history, current or lifted.
type BlockRecord struct {
	Expiry time.Time `json:"expiry"`
}

// Identity is the narrow contract against the host's user, permission,
// block and rename subsystems. Lookups return (nil, nil) for a user that
// does not exist; expected contention on mutations surfaces as ordinary
// errors from the host and is interpreted by the enforcement layer.
type Identity interface {
	UserByName(ctx context.Context, name string) (*UserInfo, error)
	UserByID(ctx context.Context, id int64) (*UserInfo, error)
	CountEditsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	BlockHistory(ctx context.Context, userID int64) ([]BlockRecord, error)
	Block(ctx context.Context, target common.UserRef, expiry time.Time, reason string, preventOwnTalkEdit bool) error
	Unblock(ctx context.Context, target common.UserRef, reason string, writeLog bool) error
	Rename(ctx context.Context, oldName, newName string, targetID int64, reason string) error
	MoveUserPages(ctx context.Context, oldName, newName string) error
	// RenameAllowed runs the host's abortable rename hook; false means an
	// extension vetoed the rename.
	RenameAllowed(ctx context.Context, oldName, newName string) (bool, error)
}
