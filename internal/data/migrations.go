package data

import (
	"context"
	"database/sql"

	"github.com/buddyhq/webhook-ingest/internal/migrate"
)

// RunMigrations sets up the delivery and DLQ schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
