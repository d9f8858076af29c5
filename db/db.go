package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

type Database struct {
	DB *bun.DB
}

// OpenDB opens a bare bun handle, used by the migration tooling.
func OpenDB(url string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func New(url string, verbose bool) (*Database, error) {
	bunDb := OpenDB(url)
	bunDb.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(verbose)))
	d := &Database{DB: bunDb}
	return d, d.CreateSchema()
}

func (d *Database) CreateSchema() error {
	models := []interface{}{
		(*Sanction)(nil),
		(*Vote)(nil),
	}
	for _, model := range models {
		_, err := d.DB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(context.Background())
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) InsertSanction(ctx context.Context, s *Sanction) error {
	_, err := d.DB.NewInsert().Model(s).Exec(ctx)
	return err
}

func (d *Database) SanctionByID(ctx context.Context, id uuid.UUID) (*Sanction, error) {
	s := new(Sanction)
	if err := d.DB.NewSelect().Model(s).Where("s.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Database) SanctionByTopic(ctx context.Context, topicID string) (*Sanction, error) {
	s := new(Sanction)
	if err := d.DB.NewSelect().Model(s).Where("s.topic_id = ?", topicID).Scan(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Database) SanctionsByTarget(ctx context.Context, targetName string, renameOnly, includeHandled bool) (sanctions []Sanction, err error) {
	q := d.DB.NewSelect().Model(&sanctions).Where("s.target_name = ?", targetName)
	if renameOnly {
		q = q.Where("s.original_name <> ''")
	}
	if !includeHandled {
		q = q.Where("NOT s.handled")
	}
	err = q.Scan(ctx)
	return
}

// OpenSanctions lists every proposal whose voting window is still open.
func (d *Database) OpenSanctions(ctx context.Context, asOf time.Time) (sanctions []Sanction, err error) {
	err = d.DB.NewSelect().Model(&sanctions).
		Where("NOT s.handled").
		Where("s.expiry > ?", asOf).
		Scan(ctx)
	return
}

// UnhandledExpired lists proposals whose window closed but whose outcome
// has not been executed yet. The maintenance sweep feeds these to Execute.
func (d *Database) UnhandledExpired(ctx context.Context, asOf time.Time) (sanctions []Sanction, err error) {
	err = d.DB.NewSelect().Model(&sanctions).
		Where("NOT s.handled").
		Where("s.expiry <= ?", asOf).
		Scan(ctx)
	return
}

func (d *Database) SetEmergency(ctx context.Context, id uuid.UUID, emergency bool, asOf time.Time) error {
	_, err := d.DB.NewUpdate().Model((*Sanction)(nil)).
		Set("emergency = ?", emergency).
		Set("last_update = ?", asOf).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// CollapseExpiry forces the sanction to read as already expired, used by
// early rejection to hand the terminal transition over to Execute.
func (d *Database) CollapseExpiry(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	_, err := d.DB.NewUpdate().Model((*Sanction)(nil)).
		Set("expiry = ?", asOf).
		Set("last_update = ?", asOf).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *Database) TouchLastUpdate(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	_, err := d.DB.NewUpdate().Model((*Sanction)(nil)).
		Set("last_update = ?", asOf).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkHandled flips the terminal flag. The conditional update makes a lost
// race between two finalizers a no-op: only one caller sees true.
func (d *Database) MarkHandled(ctx context.Context, id uuid.UUID, asOf time.Time) (bool, error) {
	res, err := d.DB.NewUpdate().Model((*Sanction)(nil)).
		Set("handled = TRUE").
		Set("last_update = ?", asOf).
		Where("id = ?", id).
		Where("NOT handled").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// VoteFor returns the live vote of one voter on one sanction, nil when the
// voter has not been counted yet.
func (d *Database) VoteFor(ctx context.Context, sanctionID uuid.UUID, voterID int64) (*Vote, error) {
	v := new(Vote)
	err := d.DB.NewSelect().Model(v).
		Where("sv.sanction_id = ?", sanctionID).
		Where("sv.voter_id = ?", voterID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (d *Database) VotesFor(ctx context.Context, sanctionID uuid.UUID) (votes []Vote, err error) {
	err = d.DB.NewSelect().Model(&votes).
		Where("sv.sanction_id = ?", sanctionID).
		Order("last_update ASC").
		Scan(ctx)
	return
}

// UpsertVote inserts a voter's first vote or replaces an existing one, but
// only when the new reply is strictly newer and the value actually
// differs. Reports whether a row changed.
func (d *Database) UpsertVote(ctx context.Context, v *Vote) (bool, error) {
	res, err := d.DB.NewInsert().Model(v).
		On("CONFLICT (sanction_id, voter_id) DO UPDATE").
		Set("period = EXCLUDED.period").
		Set("last_update = EXCLUDED.last_update").
		Where("EXCLUDED.last_update > sv.last_update").
		Where("sv.period <> EXCLUDED.period").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeleteVotesFor purges every vote of a finalized sanction.
func (d *Database) DeleteVotesFor(ctx context.Context, sanctionID uuid.UUID) error {
	_, err := d.DB.NewDelete().Model((*Vote)(nil)).
		Where("sanction_id = ?", sanctionID).
		Exec(ctx)
	return err
}
