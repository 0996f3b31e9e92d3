package usecase

import (
	"context"

	"rssreader/internal/domain"
)

// ArchiveStorage определяет интерфейс для чтения записей из архива.
type ArchiveStorage interface {
	GetPosts(ctx context.Context, n int) ([]domain.Post, error)
}

// ArchiveGetterUseCase предоставляет доступ к архиву записей для API.
type ArchiveGetterUseCase struct {
	storage ArchiveStorage
}

func NewArchiveGetterUseCase(s ArchiveStorage) *ArchiveGetterUseCase {
	return &ArchiveGetterUseCase{storage: s}
}

// GetPosts возвращает последние записи архива; limit <= 0 означает лимит хранилища по умолчанию.
func (us *ArchiveGetterUseCase) GetPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	return us.storage.GetPosts(ctx, limit)
}
