package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"rssreader/internal/config"
)

// New создает и настраивает логгер приложения на основе конфигурации.
// Обычные сообщения пишутся в cfg.File (или stdout), ошибки - в cfg.ErrorFile (или stderr).
// Возвращает ошибку при проблемах с открытием файлов логов.
func New(cfg config.LoggerConfig) (*slog.Logger, error) {
	logWriter, err := openWriter(cfg.File, os.Stdout)
	if err != nil {
		return nil, err
	}
	errorWriter, err := openWriter(cfg.ErrorFile, os.Stderr)
	if err != nil {
		return nil, err
	}
	return NewWithWriters(logWriter, errorWriter, cfg.Level), nil
}

// NewWithWriters собирает логгер поверх готовых writer'ов.
func NewWithWriters(logWriter, errorWriter io.Writer, level string) *slog.Logger {
	handler := NewLevelDispatcherHandler(logWriter, errorWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(level),
	})
	return slog.New(handler)
}

// Discard возвращает логгер, который ничего не пишет. Удобен в тестах.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openWriter(path string, fallback io.Writer) (io.Writer, error) {
	if path == "" {
		return fallback, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// parseLogLevel преобразует строковое представление уровня логирования в slog.Level.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelDispatcherHandler направляет записи уровня ERROR и выше в errorHandler,
// остальные - в defaultHandler.
type LevelDispatcherHandler struct {
	defaultHandler slog.Handler
	errorHandler   slog.Handler
}

func NewLevelDispatcherHandler(defaultOut, errorOut io.Writer, opts *slog.HandlerOptions) *LevelDispatcherHandler {
	return &LevelDispatcherHandler{
		defaultHandler: NewReadableHandler(defaultOut, opts),
		errorHandler:   NewReadableHandler(errorOut, opts),
	}
}

func (h *LevelDispatcherHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.defaultHandler.Enabled(ctx, level)
}

func (h *LevelDispatcherHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return h.errorHandler.Handle(ctx, r)
	}
	return h.defaultHandler.Handle(ctx, r)
}

func (h *LevelDispatcherHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelDispatcherHandler{
		defaultHandler: h.defaultHandler.WithAttrs(attrs),
		errorHandler:   h.errorHandler.WithAttrs(attrs),
	}
}

func (h *LevelDispatcherHandler) WithGroup(name string) slog.Handler {
	return &LevelDispatcherHandler{
		defaultHandler: h.defaultHandler.WithGroup(name),
		errorHandler:   h.errorHandler.WithGroup(name),
	}
}

// ReadableHandler форматирует записи в человекочитаемом виде:
//
//	[15:04:05.000] INFO [worker] (op) <file.go:42>: message | key=value, ...
//
// Атрибуты component и op выносятся в префикс.
type ReadableHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	prefix string
}

// NewReadableHandler создает обработчик с читаемым форматированием.
// Если opts равен nil, используются настройки по умолчанию.
func NewReadableHandler(w io.Writer, opts *slog.HandlerOptions) *ReadableHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ReadableHandler{mu: &sync.Mutex{}, w: w, opts: opts}
}

func (h *ReadableHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ReadableHandler) Handle(_ context.Context, r slog.Record) error {
	var component, operation string
	var attrs []slog.Attr
	collect := func(a slog.Attr) {
		switch a.Key {
		case "component":
			component = a.Value.String()
		case "op":
			operation = a.Value.String()
		default:
			attrs = append(attrs, a)
		}
	}
	// h.attrs уже содержат префикс группы
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix != "" && a.Key != "component" && a.Key != "op" {
			a.Key = h.prefix + a.Key
		}
		collect(a)
		return true
	})

	var line strings.Builder
	fmt.Fprintf(&line, "[%s] %s", r.Time.Format("15:04:05.000"), formatLevel(r.Level))
	if component != "" {
		fmt.Fprintf(&line, " [%s]", component)
	}
	if operation != "" {
		fmt.Fprintf(&line, " (%s)", operation)
	}
	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			fmt.Fprintf(&line, " <%s:%d>", filepath.Base(frame.File), frame.Line)
		}
	}
	line.WriteString(": ")
	line.WriteString(r.Message)
	if len(attrs) > 0 {
		parts := make([]string, 0, len(attrs))
		for _, a := range attrs {
			parts = append(parts, formatAttr(a))
		}
		line.WriteString(" | ")
		line.WriteString(strings.Join(parts, ", "))
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *ReadableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" && a.Key != "component" && a.Key != "op" {
			a.Key = h.prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *ReadableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func formatLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// formatAttr форматирует атрибут в зависимости от ключа.
func formatAttr(attr slog.Attr) string {
	switch attr.Key {
	case "error":
		return fmt.Sprintf("error=%q", attr.Value.String())
	case "url":
		return fmt.Sprintf("url=%s", shortenURL(attr.Value.String()))
	case "duration":
		if attr.Value.Kind() == slog.KindDuration {
			return fmt.Sprintf("took=%s", attr.Value.Duration().Round(time.Millisecond))
		}
	case "bytes":
		if attr.Value.Kind() == slog.KindInt64 && attr.Value.Int64() >= 0 {
			return fmt.Sprintf("size=%s", humanize.Bytes(uint64(attr.Value.Int64())))
		}
	}
	return fmt.Sprintf("%s=%s", attr.Key, attr.Value.String())
}

// shortenURL сокращает длинные URL до схемы и домена.
func shortenURL(url string) string {
	if len(url) > 50 {
		parts := strings.Split(url, "/")
		if len(parts) >= 3 {
			return fmt.Sprintf("%s//%s/...", parts[0], parts[2])
		}
	}
	return url
}
