package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rssreader/internal/domain"
	"rssreader/internal/metrics"
)

// maxEnvelopeSize ограничивает размер ответа ретранслятора.
const maxEnvelopeSize = 10 << 20

// InFlightTracker учитывает запросы, находящиеся в полете.
// Release вызывается ровно один раз на каждый Acquire.
type InFlightTracker interface {
	Acquire()
	Release()
}

type relayEnvelope struct {
	Contents *string `json:"contents"`
}

// RelayFetcher загружает сырые документы лент через ретранслятор
// вида GET <base>?disableCache=true&url=<url> с ответом {"contents": "..."}.
type RelayFetcher struct {
	client  *http.Client
	baseURL *url.URL
	timeout time.Duration
	tracker InFlightTracker
	log     *slog.Logger
}

// NewRelayFetcher создает RelayFetcher. timeout ограничивает каждую загрузку;
// нулевое значение оставляет только ограничения контекста вызывающего.
func NewRelayFetcher(baseURL string, timeout time.Duration, tracker InFlightTracker, log *slog.Logger) (*RelayFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url %s: %w", baseURL, err)
	}
	return &RelayFetcher{
		client:  http.DefaultClient,
		baseURL: base,
		timeout: timeout,
		tracker: tracker,
		log:     log.With(slog.String("component", "fetcher")),
	}, nil
}

// RelayURL строит адрес запроса к ретранслятору для ленты feedURL.
// Пробелы кодируются как %20, литеральный плюс уже закодирован как %2B.
func (f *RelayFetcher) RelayURL(feedURL string) string {
	u := *f.baseURL
	q := u.Query()
	q.Set("disableCache", "true")
	q.Set("url", feedURL)
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String()
}

// Fetch возвращает текст документа ленты feedURL.
// Все сетевые сбои, неуспешные статусы, истечение таймаута и битый ответ
// ретранслятора оборачивают domain.ErrNetwork.
func (f *RelayFetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	f.tracker.Acquire()
	defer f.tracker.Release()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	log := f.log.With(slog.String("url", feedURL))
	start := time.Now()
	contents, err := f.fetch(ctx, feedURL)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("network_error").Inc()
		log.Warn("Relay fetch failed", slog.Any("error", err))
		return "", err
	}
	metrics.FetchesTotal.WithLabelValues("ok").Inc()
	log.Debug("Relay fetch completed",
		slog.Int("bytes", len(contents)),
		slog.Duration("duration", time.Since(start)),
	)
	return contents, nil
}

func (f *RelayFetcher) fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RelayURL(feedURL), nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request for url %s: %w", domain.ErrNetwork, feedURL, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to fetch url %s: %w", domain.ErrNetwork, feedURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status code: %d for url %s", domain.ErrNetwork, resp.StatusCode, feedURL)
	}
	var envelope relayEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEnvelopeSize)).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: failed to decode relay response for url %s: %w", domain.ErrNetwork, feedURL, err)
	}
	if envelope.Contents == nil {
		return "", fmt.Errorf("%w: relay response for url %s has no contents", domain.ErrNetwork, feedURL)
	}
	return *envelope.Contents, nil
}
