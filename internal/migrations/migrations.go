package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

type Migration struct {
	ID    string
	UpSQL string
}

var allMigrations = []Migration{
	{
		ID: "20250301100000_create_posts_table",
		UpSQL: `
		CREATE TABLE posts(
		seq bigserial PRIMARY KEY,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT UNIQUE NOT NULL,
		feed_url TEXT NOT NULL,
		discovered_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	},
	{
		ID: "20250301100100_index_posts_feed_url",
		UpSQL: `
		CREATE INDEX posts_feed_url_idx ON posts (feed_url);`,
	},
}

// pending возвращает неприменённые миграции в порядке идентификаторов.
func pending(all []Migration, applied map[string]bool) []Migration {
	out := lo.Filter(all, func(m Migration, _ int) bool { return !applied[m.ID] })
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Apply применяет все необходимые миграции архива к базе данных.
func Apply(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool) error {
	log = log.With(slog.String("component", "migrations"))
	log.Info("Starting database migrations check...")
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
	id TEXT PRIMARY KEY
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	rows, err := pool.Query(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	appliedMigrations := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration id: %w", err)
		}
		appliedMigrations[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	todo := pending(allMigrations, appliedMigrations)
	if len(todo) == 0 {
		log.Info("Database is up to date, no new migrations found.")
		return nil
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, m := range todo {
		log.Info("Applying migration", slog.String("id", m.ID))
		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (id) VALUES ($1)", m.ID); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations transaction: %w", err)
	}
	log.Info("Database migrations applied successfully", slog.Int("count", len(todo)))
	return nil
}
