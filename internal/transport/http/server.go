package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer создает и настраивает HTTP-роутер с API, метриками и websocket.
// Добавляет middleware для идентификатора запроса, логирования и CORS.
func NewServer(log *slog.Logger, h *Handler, ws http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", h.getState)
	mux.HandleFunc("POST /api/feeds", h.addFeed)
	mux.HandleFunc("GET /api/archive", h.getArchive)
	mux.HandleFunc("GET /api/health", h.healthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = requestIDMiddleware()(handler)
	handler = corsMiddleware()(handler)
	return handler
}
