package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sanction is one proposal to block or rename a target user. OriginalName
// is non-empty exactly when the proposal is a rename; it records the
// target's username at proposal time so a later rename can be detected and
// undone.
type Sanction struct {
	bun.BaseModel `bun:"table:sanctions,alias:s"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	AuthorID   int64     `bun:"author_id,notnull"`
	AuthorName string    `bun:"author_name,notnull"`
	TargetID   int64     `bun:"target_id,notnull"`
	TargetName string    `bun:"target_name,notnull"`

	// discussion topic backing the vote, immutable once created
	TopicID   string `bun:"topic_id,notnull"`
	TopicPage string `bun:"topic_page"`

	Expiry       time.Time `bun:"expiry,notnull"`
	OriginalName string    `bun:"original_name"`
	Handled      bool      `bun:"handled,notnull,default:false"`
	Emergency    bool      `bun:"emergency,notnull,default:false"`
	LastUpdate   time.Time `bun:"last_update,notnull"`
}

func (s *Sanction) IsRename() bool {
	return s.OriginalName != ""
}

func (s *Sanction) IsExpired(now time.Time) bool {
	return !now.Before(s.Expiry)
}

// Vote is a voter's latest counted opinion on one sanction. Period 0 is a
// disagreement, above 0 an agreement for that many days. LastUpdate carries
// the timestamp of the reply revision that produced the value so stale
// edits never overwrite a newer vote.
type Vote struct {
	bun.BaseModel `bun:"table:sanction_votes,alias:sv"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	SanctionID uuid.UUID `bun:"sanction_id,type:uuid,notnull,unique:sanction_voter"`
	VoterID    int64     `bun:"voter_id,notnull,unique:sanction_voter"`
	VoterName  string    `bun:"voter_name,notnull"`
	Period     int       `bun:"period,notnull"`
	LastUpdate time.Time `bun:"last_update,notnull"`
}
