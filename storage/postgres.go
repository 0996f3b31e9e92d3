package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rssreader/internal/domain"
)

const defaultPostsLimit = 10

// DB - подмножество pgxpool.Pool, которое использует архив.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresArchive struct {
	db  DB
	log *slog.Logger
}

func NewPostgresArchive(db DB, log *slog.Logger) *PostgresArchive {
	log = log.With(slog.String("component", "storage"))
	log.Info("Initializing Postgres post archive")
	return &PostgresArchive{
		db:  db,
		log: log,
	}
}

// Close закрывает пул соединений, если архив владеет пулом.
func (a *PostgresArchive) Close() {
	if pool, ok := a.db.(*pgxpool.Pool); ok {
		a.log.Info("Closing database connection pool")
		pool.Close()
	}
}

// SavePosts сохраняет записи одной транзакцией. posts упорядочены от новых к старым.
// Записи с уже известной ссылкой пропускаются.
// Возвращает число действительно вставленных строк.
func (a *PostgresArchive) SavePosts(ctx context.Context, posts []domain.Post) (int, error) {
	const op = "storage.postgres.SavePosts"
	if len(posts) == 0 {
		return 0, nil
	}
	log := a.log.With(slog.String("op", op))
	tx, err := a.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(context.Background()); rollbackErr != nil {
				log.Error("Failed to rollback transaction", slog.Any("error", rollbackErr))
			}
		}
	}()
	batch := &pgx.Batch{}
	query := `
	INSERT INTO posts (id, title, link, feed_url)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (link) DO NOTHING;
	`
	// Записи приходят от новых к старым; вставка идет с конца, чтобы seq
	// внутри одной транзакции (с общим discovered_at) рос к более новым.
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		batch.Queue(query, p.ID, p.Title, p.Link, p.FeedURL)
	}
	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range posts {
		var tag pgconn.CommandTag
		tag, err = results.Exec()
		if err != nil {
			results.Close()
			log.Error("Failed to execute batch", slog.Any("error", err))
			return 0, fmt.Errorf("%s: failed to execute batch: %w", op, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err = results.Close(); err != nil {
		log.Error("Failed to close batch", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to close batch: %w", op, err)
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return inserted, nil
}

// GetPosts возвращает n последних записей архива; n <= 0 означает лимит по умолчанию.
func (a *PostgresArchive) GetPosts(ctx context.Context, n int) ([]domain.Post, error) {
	const op = "storage.postgres.GetPosts"
	limit := n
	if limit <= 0 {
		limit = defaultPostsLimit
	}
	log := a.log.With(slog.String("op", op), slog.Int("limit", limit))
	query := `
	SELECT id, title, link, feed_url
	FROM posts
	ORDER BY discovered_at DESC, seq DESC
	LIMIT $1;
	`
	rows, err := a.db.Query(ctx, query, limit)
	if err != nil {
		log.Error("Database query failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}
	defer rows.Close()
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Post, error) {
		var p domain.Post
		err := row.Scan(&p.ID, &p.Title, &p.Link, &p.FeedURL)
		return p, err
	})
	if err != nil {
		log.Error("Failed to collect rows", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
	}
	log.Debug("Archived posts retrieved", slog.Int("count", len(posts)))
	return posts, nil
}
