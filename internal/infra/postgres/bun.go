package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lawlink-quiz-service/internal/infra/document"
	"lawlink-quiz-service/internal/infra/postgres/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// OpenBun opens a bun handle for schema and seeding work.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// SeedQuizzes upserts quiz documents by id.
func SeedQuizzes(ctx context.Context, db *bun.DB, docs []document.QuizDocument) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, doc := range docs {
			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal quiz %s: %w", doc.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb)
				 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
				doc.ID, string(data)); err != nil {
				return fmt.Errorf("upsert quiz %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}
