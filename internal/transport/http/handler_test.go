package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
	"rssreader/internal/logger"
	"rssreader/internal/usecase"
)

type stateStub struct {
	state domain.State
}

func (s stateStub) Snapshot() domain.State { return s.state }

type adderMock struct {
	mock.Mock
}

func (m *adderMock) AddFeed(ctx context.Context, url string) (usecase.AddFeedResult, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(usecase.AddFeedResult), args.Error(1)
}

type archiveMock struct {
	mock.Mock
}

func (m *archiveMock) GetPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, limit)
	posts, _ := args.Get(0).([]domain.Post)
	return posts, args.Error(1)
}

func newRouter(state domain.State, adder feedAdder, archive ArchiveGetter) http.Handler {
	log := logger.Discard()
	h := NewHandler(log, stateStub{state: state}, adder, archive, i18n.New("en"))
	return NewServer(log, h, nil)
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetState(t *testing.T) {
	msg := "Network error"
	state := domain.State{
		Feeds:   []domain.Feed{{ID: "1", URL: "https://a.test/rss", Title: "A"}},
		Posts:   []domain.Post{{ID: "p", Title: "P", Link: "L1", FeedURL: "https://a.test/rss"}},
		Error:   &msg,
		Version: 4,
	}
	router := newRouter(state, &adderMock{}, nil)

	rec := serve(router, http.MethodGet, "/api/state", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	var got domain.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, state, got)
}

func TestHandler_AddFeed(t *testing.T) {
	en := i18n.New("en")
	feed := &domain.Feed{ID: "id", URL: "https://a.test/rss", Title: "A"}
	unique := domain.FieldError{Field: "url", Message: en.T(i18n.KeyUnique)}

	tests := []struct {
		name     string
		body     string
		result   usecase.AddFeedResult
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "created",
			body:     `{"url": "https://a.test/rss"}`,
			result:   usecase.AddFeedResult{Validation: domain.ValidationResult{IsValid: true}, Feed: feed, Added: 3},
			wantCode: http.StatusCreated,
			wantBody: en.T(i18n.KeySuccess),
		},
		{
			name:     "validation",
			body:     `{"url": "https://a.test/rss"}`,
			result:   usecase.AddFeedResult{Validation: domain.ValidationResult{Errors: []domain.FieldError{unique}}},
			wantCode: http.StatusBadRequest,
			wantBody: unique.Message,
		},
		{
			name:     "network",
			body:     `{"url": "https://a.test/rss"}`,
			err:      fmt.Errorf("fetch failed: %w", domain.ErrNetwork),
			wantCode: http.StatusBadGateway,
			wantBody: en.T(i18n.KeyNetwork),
		},
		{
			name:     "parse",
			body:     `{"url": "https://a.test/rss"}`,
			err:      fmt.Errorf("parse failed: %w", domain.ErrParse),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: en.T(i18n.KeyParseError),
		},
		{
			name:     "unexpected",
			body:     `{"url": "https://a.test/rss"}`,
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: en.T(i18n.KeyUpdateError),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adder := &adderMock{}
			adder.On("AddFeed", mock.Anything, "https://a.test/rss").Return(tt.result, tt.err).Once()
			router := newRouter(domain.State{}, adder, nil)

			rec := serve(router, http.MethodPost, "/api/feeds", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			adder.AssertExpectations(t)
		})
	}
}

func TestHandler_AddFeed_BadBody(t *testing.T) {
	adder := &adderMock{}
	router := newRouter(domain.State{}, adder, nil)

	rec := serve(router, http.MethodPost, "/api/feeds", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	adder.AssertNotCalled(t, "AddFeed", mock.Anything, mock.Anything)
}

func TestHandler_GetArchive(t *testing.T) {
	posts := []domain.Post{{ID: "1", Title: "T", Link: "L", FeedURL: "F"}}

	t.Run("default limit", func(t *testing.T) {
		archive := &archiveMock{}
		archive.On("GetPosts", mock.Anything, defaultArchiveLimit).Return(posts, nil)
		rec := serve(newRouter(domain.State{}, &adderMock{}, archive), http.MethodGet, "/api/archive", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got []domain.Post
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, posts, got)
	})

	t.Run("explicit limit", func(t *testing.T) {
		archive := &archiveMock{}
		archive.On("GetPosts", mock.Anything, 3).Return(posts, nil)
		rec := serve(newRouter(domain.State{}, &adderMock{}, archive), http.MethodGet, "/api/archive?limit=3", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		archive.AssertExpectations(t)
	})

	t.Run("limit capped", func(t *testing.T) {
		archive := &archiveMock{}
		archive.On("GetPosts", mock.Anything, maxArchiveLimit).Return(posts, nil)
		rec := serve(newRouter(domain.State{}, &adderMock{}, archive), http.MethodGet, "/api/archive?limit=100000", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		archive.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		archive := &archiveMock{}
		rec := serve(newRouter(domain.State{}, &adderMock{}, archive), http.MethodGet, "/api/archive?limit=-1", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		archive.AssertNotCalled(t, "GetPosts", mock.Anything, mock.Anything)
	})

	t.Run("storage error", func(t *testing.T) {
		archive := &archiveMock{}
		archive.On("GetPosts", mock.Anything, defaultArchiveLimit).Return(nil, errors.New("db down"))
		rec := serve(newRouter(domain.State{}, &adderMock{}, archive), http.MethodGet, "/api/archive", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		rec := serve(newRouter(domain.State{}, &adderMock{}, nil), http.MethodGet, "/api/archive", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_HealthMetricsAndCORS(t *testing.T) {
	router := newRouter(domain.State{}, &adderMock{}, nil)

	health := serve(router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"ok"}`, health.Body.String())

	metrics := serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "go_goroutines")

	preflight := serve(router, http.MethodOptions, "/api/feeds", "")
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))

	wrongMethod := serve(router, http.MethodDelete, "/api/state", "")
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.Code)
}

func TestRequestID_PreservesIncomingHeader(t *testing.T) {
	router := newRouter(domain.State{}, &adderMock{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
