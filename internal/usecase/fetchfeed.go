package usecase

import (
	"context"

	"rssreader/internal/domain"
)

// FeedFetcher загружает сырой документ ленты.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FeedParser разбирает сырой документ ленты в метаданные и записи.
type FeedParser interface {
	Parse(ctx context.Context, raw string, sourceURL string) (*domain.ParsedFeed, error)
}

// StateStore - единственный контейнер изменяемого состояния агрегатора.
type StateStore interface {
	Snapshot() domain.State
	RegisterFeed(feed domain.Feed, posts []domain.Post) ([]domain.Post, error)
	ApplyCycleResult(batches []domain.FeedPosts, errMsg *string) []domain.Post
	SetError(msg string)
}

// PostArchive сохраняет принятые записи во внешнее хранилище.
type PostArchive interface {
	SavePosts(ctx context.Context, posts []domain.Post) (int, error)
}

// Localizer разрешает ключи локализации в строки.
type Localizer interface {
	T(key string) string
}

// Starter запускает цикл опроса лент.
type Starter interface {
	Start()
}
