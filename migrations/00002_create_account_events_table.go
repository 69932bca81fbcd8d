package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateAccountEventsTable, downCreateAccountEventsTable)
}

func upCreateAccountEventsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS account_events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			event_type TEXT NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_account_events_user_occurred ON account_events (user_id, occurred_at DESC);
	`)
	return err
}

func downCreateAccountEventsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS account_events;`)
	return err
}
