package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/singleflight"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
	"rssreader/internal/metrics"
)

// AddFeedResult описывает итог добавления ленты.
// При непройденной проверке Feed равен nil, а Validation содержит нарушения.
type AddFeedResult struct {
	Validation domain.ValidationResult
	Feed       *domain.Feed
	Added      int
}

type registration struct {
	feed  domain.Feed
	added int
}

type feedResult struct {
	posts []domain.Post
	err   error
}

// Aggregator управляет регистрацией лент и циклами обновления.
// Все изменения состояния проходят через StateStore: при регистрации
// и один раз в точке соединения каждого цикла.
type Aggregator struct {
	fetcher   FeedFetcher
	parser    FeedParser
	store     StateStore
	validator *Validator
	archive   PostArchive
	loc       Localizer
	log       *slog.Logger

	mu        sync.Mutex
	scheduler Starter
	inflight  singleflight.Group
}

// NewAggregator создает Aggregator. archive может быть nil.
func NewAggregator(
	fetcher FeedFetcher,
	parser FeedParser,
	store StateStore,
	validator *Validator,
	archive PostArchive,
	loc Localizer,
	log *slog.Logger,
) *Aggregator {
	return &Aggregator{
		fetcher:   fetcher,
		parser:    parser,
		store:     store,
		validator: validator,
		archive:   archive,
		loc:       loc,
		log:       log.With(slog.String("component", "aggregator")),
	}
}

// SetScheduler задает планировщик, запускаемый после успешной регистрации ленты.
func (a *Aggregator) SetScheduler(s Starter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scheduler = s
}

// AddFeed проверяет, загружает и регистрирует ленту.
// Ошибки проверки возвращаются в AddFeedResult.Validation, а не через error.
// Ошибки загрузки и разбора записываются в состояние и возвращаются вызывающему;
// лента в этом случае не добавляется.
func (a *Aggregator) AddFeed(ctx context.Context, rawURL string) (AddFeedResult, error) {
	feedURL := strings.TrimSpace(rawURL)
	log := a.log.With(slog.String("op", "aggregator.AddFeed"), slog.String("url", feedURL))

	validation := a.validator.Validate(feedURL, a.store.Snapshot().FeedURLs())
	if !validation.IsValid {
		log.Info("Feed url rejected", slog.Int("count", len(validation.Errors)))
		return AddFeedResult{Validation: validation}, nil
	}

	v, err, shared := a.inflight.Do(feedURL, func() (any, error) {
		return a.register(ctx, feedURL)
	})
	if errors.Is(err, domain.ErrDuplicateFeed) {
		return AddFeedResult{Validation: domain.ValidationResult{
			Errors: []domain.FieldError{a.validator.fieldError(i18n.KeyUnique)},
		}}, nil
	}
	if err != nil {
		return AddFeedResult{Validation: validation}, err
	}
	reg := v.(registration)
	if shared {
		log.Debug("Registration shared with a concurrent request")
	}
	return AddFeedResult{Validation: validation, Feed: &reg.feed, Added: reg.added}, nil
}

func (a *Aggregator) register(ctx context.Context, feedURL string) (registration, error) {
	log := a.log.With(slog.String("url", feedURL))
	parsed, err := a.fetchAndParse(ctx, feedURL)
	if err != nil {
		a.store.SetError(a.describe(err))
		return registration{}, err
	}
	feed := domain.Feed{
		ID:          uuid.NewString(),
		URL:         feedURL,
		Title:       parsed.Title,
		Description: parsed.Description,
	}
	accepted, err := a.store.RegisterFeed(feed, parsed.Posts)
	if err != nil {
		log.Warn("Feed registration rejected", slog.Any("error", err))
		return registration{}, err
	}
	log.Info("Feed registered", slog.String("title", feed.Title), slog.Int("count", len(accepted)))
	metrics.PostsAccepted.Add(float64(len(accepted)))
	a.archivePosts(ctx, accepted)

	// Start ничего не делает, если планировщик уже запущен.
	a.mu.Lock()
	scheduler := a.scheduler
	a.mu.Unlock()
	if scheduler != nil {
		scheduler.Start()
	}
	return registration{feed: feed, added: len(accepted)}, nil
}

// Ready сообщает, можно ли начинать цикл: нет запросов в полете и есть ленты.
func (a *Aggregator) Ready() bool {
	state := a.store.Snapshot()
	return state.ActiveRequests == 0 && len(state.Feeds) > 0
}

// RunCycle выполняет один цикл обновления всех лент.
// Загрузки идут параллельно, результаты применяются один раз после завершения
// всех загрузок в порядке регистрации лент. Сбой или паника отдельной ленты
// не прерывает цикл;
// если упали все ленты, в состояние записывается ошибка обновления.
func (a *Aggregator) RunCycle(ctx context.Context) {
	start := time.Now()
	feeds := a.store.Snapshot().Feeds
	log := a.log.With(slog.String("op", "aggregator.RunCycle"))
	log.Info("Update cycle started", slog.Int("count", len(feeds)))
	if len(feeds) == 0 {
		return
	}

	results := make([]feedResult, len(feeds))
	var wg conc.WaitGroup
	for i, feed := range feeds {
		wg.Go(func() {
			var pc panics.Catcher
			pc.Try(func() {
				parsed, err := a.fetchAndParse(ctx, feed.URL)
				if err != nil {
					results[i] = feedResult{err: err}
					return
				}
				results[i] = feedResult{posts: parsed.Posts}
			})
			if r := pc.Recovered(); r != nil {
				results[i] = feedResult{err: fmt.Errorf("update panicked for %s: %w", feed.URL, r.AsError())}
			}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		a.CycleFailed(recovered.AsError())
		return
	}

	batches := make([]domain.FeedPosts, 0, len(feeds))
	failed := 0
	for i, r := range results {
		if r.err != nil {
			failed++
			log.Warn("Feed update failed",
				slog.String("url", feeds[i].URL),
				slog.Any("error", r.err),
			)
			continue
		}
		batches = append(batches, domain.FeedPosts{Feed: feeds[i], Posts: r.posts})
	}

	var errMsg *string
	outcome := "ok"
	switch {
	case failed == len(feeds):
		msg := a.loc.T(i18n.KeyUpdateError)
		errMsg = &msg
		outcome = "failed"
	case failed > 0:
		outcome = "partial"
	}
	accepted := a.store.ApplyCycleResult(batches, errMsg)
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	metrics.PostsAccepted.Add(float64(len(accepted)))
	a.archivePosts(ctx, accepted)

	log.Info("Update cycle completed",
		slog.Int("successful", len(feeds)-failed),
		slog.Int("errors", failed),
		slog.Int("count", len(accepted)),
		slog.Duration("duration", time.Since(start)),
	)
}

// CycleFailed переводит непредвиденный сбой цикла в ошибку обновления.
func (a *Aggregator) CycleFailed(err error) {
	a.log.Error("Update cycle aborted", slog.Any("error", err))
	msg := a.loc.T(i18n.KeyUpdateError)
	a.store.ApplyCycleResult(nil, &msg)
	metrics.CyclesTotal.WithLabelValues("failed").Inc()
}

// fetchAndParse загружает и разбирает одну ленту, не изменяя состояние.
func (a *Aggregator) fetchAndParse(ctx context.Context, feedURL string) (*domain.ParsedFeed, error) {
	raw, err := a.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", feedURL, err)
	}
	parsed, err := a.parser.Parse(ctx, raw, feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse failed for %s: %w", feedURL, err)
	}
	return parsed, nil
}

func (a *Aggregator) archivePosts(ctx context.Context, posts []domain.Post) {
	if a.archive == nil || len(posts) == 0 {
		return
	}
	saved, err := a.archive.SavePosts(ctx, posts)
	if err != nil {
		a.log.Error("Archive save failed", slog.Any("error", err))
		return
	}
	a.log.Debug("Posts archived", slog.Int("count", saved))
}

// describe возвращает локализованное сообщение для ошибки загрузки или разбора.
func (a *Aggregator) describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrNetwork):
		return a.loc.T(i18n.KeyNetwork)
	case errors.Is(err, domain.ErrParse):
		return a.loc.T(i18n.KeyParseError)
	default:
		return a.loc.T(i18n.KeyUpdateError)
	}
}
