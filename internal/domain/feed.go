package domain

// Feed представляет подписку на RSS-ленту.
// URL является уникальным ключом ленты, метаданные фиксируются при регистрации.
type Feed struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Post представляет отдельную запись ленты.
// Link является ключом идентичности, FeedURL - обратная ссылка на ленту-источник.
type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	FeedURL string `json:"feedUrl"`
}

// ParsedFeed - результат разбора документа ленты: метаданные и записи в порядке документа.
type ParsedFeed struct {
	Title       string
	Description string
	Posts       []Post
}

// FeedPosts связывает ленту с кандидатами в новые записи одного цикла обновления.
type FeedPosts struct {
	Feed  Feed
	Posts []Post
}

// State - наблюдаемое состояние агрегатора.
// Loading всегда равен ActiveRequests > 0.
type State struct {
	Feeds          []Feed  `json:"feeds"`
	Posts          []Post  `json:"posts"`
	Error          *string `json:"error,omitempty"`
	ActiveRequests int     `json:"activeRequests"`
	Loading        bool    `json:"loading"`
	Version        uint64  `json:"version"`
}

// FeedURLs возвращает адреса зарегистрированных лент в порядке регистрации.
func (s State) FeedURLs() []string {
	urls := make([]string, 0, len(s.Feeds))
	for _, f := range s.Feeds {
		urls = append(urls, f.URL)
	}
	return urls
}
