package storage

import (
	"context"

	"rssreader/internal/domain"
)

// Archive определяет общий интерфейс архива записей.
// Архив только пополняется: агрегатор никогда не восстанавливает из него состояние.
type Archive interface {
	SavePosts(ctx context.Context, posts []domain.Post) (int, error)
	GetPosts(ctx context.Context, n int) ([]domain.Post, error)
	Close()
}

var _ Archive = (*PostgresArchive)(nil)
