package domain

import "github.com/samber/lo"

// MergePosts добавляет новые записи лент к существующей коллекции без дублей по Link.
// Пакеты обрабатываются в порядке регистрации лент, внутри пакета сохраняется порядок
// документа. Принятые записи целиком помещаются перед existing.
// Возвращает обновленную коллекцию и список принятых записей.
func MergePosts(existing []Post, batches []FeedPosts) ([]Post, []Post) {
	seen := lo.SliceToMap(existing, func(p Post) (string, struct{}) {
		return p.Link, struct{}{}
	})
	var accepted []Post
	for _, batch := range batches {
		fresh := lo.Filter(batch.Posts, func(p Post, _ int) bool {
			if _, ok := seen[p.Link]; ok {
				return false
			}
			seen[p.Link] = struct{}{}
			return true
		})
		accepted = append(accepted, fresh...)
	}
	if len(accepted) == 0 {
		return existing, nil
	}
	merged := make([]Post, 0, len(accepted)+len(existing))
	merged = append(merged, accepted...)
	merged = append(merged, existing...)
	return merged, accepted
}
