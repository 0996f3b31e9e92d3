package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
	"rssreader/internal/usecase"
)

const (
	defaultArchiveLimit = 10
	maxArchiveLimit     = 100
	maxRequestBody      = 1 << 16
)

type stateReader interface {
	Snapshot() domain.State
}

type feedAdder interface {
	AddFeed(ctx context.Context, url string) (usecase.AddFeedResult, error)
}

// ArchiveGetter читает записи из архива.
type ArchiveGetter interface {
	GetPosts(ctx context.Context, limit int) ([]domain.Post, error)
}

type localizer interface {
	T(key string) string
}

type Handler struct {
	log     *slog.Logger
	state   stateReader
	adder   feedAdder
	archive ArchiveGetter
	loc     localizer
}

// NewHandler создает обработчики API. archive может быть nil, если архив отключен.
func NewHandler(log *slog.Logger, state stateReader, adder feedAdder, archive ArchiveGetter, loc localizer) *Handler {
	return &Handler{
		log:     log.With(slog.String("component", "http")),
		state:   state,
		adder:   adder,
		archive: archive,
		loc:     loc,
	}
}

type addFeedRequest struct {
	URL string `json:"url"`
}

type addFeedResponse struct {
	Feed    *domain.Feed `json:"feed"`
	Added   int          `json:"added"`
	Message string       `json:"message"`
}

type validationResponse struct {
	Errors []domain.FieldError `json:"errors"`
}

// getState - хендлер для эндпоинта GET /api/state
func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.state.Snapshot())
}

// addFeed - хендлер для эндпоинта POST /api/feeds
func (h *Handler) addFeed(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/addFeed"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	var req addFeedRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		log.Warn("invalid request body", slog.Any("error", err))
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.adder.AddFeed(r.Context(), req.URL)
	switch {
	case err != nil:
		log.Warn("Feed was not added", slog.String("url", req.URL), slog.Any("error", err))
		code, key := http.StatusInternalServerError, i18n.KeyUpdateError
		switch {
		case errors.Is(err, domain.ErrNetwork):
			code, key = http.StatusBadGateway, i18n.KeyNetwork
		case errors.Is(err, domain.ErrParse):
			code, key = http.StatusUnprocessableEntity, i18n.KeyParseError
		}
		respondWithError(w, code, h.loc.T(key))
	case !res.Validation.IsValid:
		respondWithJSON(w, http.StatusBadRequest, validationResponse{Errors: res.Validation.Errors})
	default:
		respondWithJSON(w, http.StatusCreated, addFeedResponse{
			Feed:    res.Feed,
			Added:   res.Added,
			Message: h.loc.T(i18n.KeySuccess),
		})
	}
}

// getArchive - хендлер для эндпоинта GET /api/archive
func (h *Handler) getArchive(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getArchive"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if h.archive == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Archive is disabled")
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit := defaultArchiveLimit
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			log.Warn("invalid limit parameter", slog.String("limit", limitStr))
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = min(limit, maxArchiveLimit)
	}

	posts, err := h.archive.GetPosts(r.Context(), limit)
	if err != nil {
		log.Error("Failed to get archived posts", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, posts)
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Вспомогательные функции для ответов
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
