package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sanctions (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	author_id bigint NOT NULL,
	author_name varchar NOT NULL,
	target_id bigint NOT NULL,
	target_name varchar NOT NULL,
	topic_id varchar NOT NULL,
	topic_page varchar,
	expiry timestamptz NOT NULL,
	original_name varchar NOT NULL DEFAULT '',
	handled boolean NOT NULL DEFAULT false,
	emergency boolean NOT NULL DEFAULT false,
	last_update timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS sanction_votes (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	sanction_id uuid NOT NULL,
	voter_id bigint NOT NULL,
	voter_name varchar NOT NULL,
	period integer NOT NULL,
	last_update timestamptz NOT NULL,
	CONSTRAINT sanction_voter UNIQUE (sanction_id, voter_id)
);
CREATE INDEX IF NOT EXISTS sanctions_target_idx ON sanctions (target_name);
CREATE INDEX IF NOT EXISTS sanctions_topic_idx ON sanctions (topic_id);
`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TABLE IF EXISTS sanction_votes;
DROP TABLE IF EXISTS sanctions;
`)
			return err
		},
	)
}
