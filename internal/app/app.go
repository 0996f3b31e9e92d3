package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"rssreader/internal/adapter/fetcher"
	"rssreader/internal/adapter/parser"
	"rssreader/internal/config"
	"rssreader/internal/domain"
	"rssreader/internal/i18n"
	"rssreader/internal/logger"
	"rssreader/internal/metrics"
	"rssreader/internal/migrations"
	"rssreader/internal/store"
	server "rssreader/internal/transport/http"
	"rssreader/internal/transport/ws"
	"rssreader/internal/usecase"
	"rssreader/internal/worker"
	"rssreader/storage"
)

// App представляет приложение агрегатора лент.
// Связывает хранилище состояния, агрегатор, планировщик, архив и HTTP-сервер.
type App struct {
	config     *config.Config
	logger     *slog.Logger
	store      *store.Store
	aggregator *usecase.Aggregator
	scheduler  *worker.Scheduler
	hub        *ws.Hub
	server     *http.Server
	archive    *storage.PostgresArchive
	stopChan   chan os.Signal
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New создает приложение по проверенной конфигурации.
func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)
	return NewWithLogger(cfg, appLogger)
}

// NewWithLogger создает приложение с готовым логгером.
func NewWithLogger(cfg *config.Config, appLogger *slog.Logger) (*App, error) {
	var archive *storage.PostgresArchive
	if cfg.Database.Enabled {
		var err error
		archive, err = openArchive(cfg.Database, appLogger)
		if err != nil {
			return nil, err
		}
	}

	loc := i18n.New(cfg.App.Locale)
	st := store.New()
	st.Subscribe(metrics.StateObserver{})
	st.Subscribe(stateLogger(appLogger))
	hub := ws.NewHub(appLogger)
	st.Subscribe(hub)

	relayFetcher, err := fetcher.NewRelayFetcher(cfg.Relay.BaseURL, cfg.FetchTimeout(), st, appLogger)
	if err != nil {
		if archive != nil {
			archive.Close()
		}
		return nil, fmt.Errorf("bad init app: %w", err)
	}
	xmlParser := parser.NewXMLParser(loc, appLogger)
	validator := usecase.NewValidator(loc)

	var postArchive usecase.PostArchive
	var archiveGetter server.ArchiveGetter
	if archive != nil {
		postArchive = archive
		archiveGetter = usecase.NewArchiveGetterUseCase(archive)
	}
	aggregator := usecase.NewAggregator(relayFetcher, xmlParser, st, validator, postArchive, loc, appLogger)
	scheduler := worker.New(aggregator, cfg.UpdateInterval(), clockwork.NewRealClock(), appLogger)
	aggregator.SetScheduler(scheduler)

	handler := server.NewHandler(appLogger, st, aggregator, archiveGetter, loc)
	router := server.NewServer(appLogger, handler, hub)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:     cfg,
		logger:     appLogger,
		store:      st,
		aggregator: aggregator,
		scheduler:  scheduler,
		hub:        hub,
		server: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		archive:  archive,
		stopChan: make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func openArchive(cfg config.DatabaseConfig, log *slog.Logger) (*storage.PostgresArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("Database connection established", slog.String("component", "database"))
	if err := migrations.Apply(ctx, log, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return storage.NewPostgresArchive(dbPool, log), nil
}

// stateLogger пишет в debug-лог краткую сводку каждого снимка состояния.
func stateLogger(log *slog.Logger) store.Observer {
	log = log.With(slog.String("component", "store"))
	return store.ObserverFunc(func(s domain.State) {
		attrs := []any{
			slog.Uint64("version", s.Version),
			slog.Int("feeds", len(s.Feeds)),
			slog.Int("posts", len(s.Posts)),
			slog.Bool("loading", s.Loading),
		}
		if s.Error != nil {
			attrs = append(attrs, slog.String("state_error", *s.Error))
		}
		log.Debug("State changed", attrs...)
	})
}

// Run запускает HTTP-сервер, регистрирует стартовые ленты и блокируется
// до сигнала завершения, после чего выполняет graceful shutdown.
func (a *App) Run() error {
	a.logger.Info("Starting RSS aggregator",
		slog.String("component", "app"),
		slog.Int("feed_count", len(a.config.App.Feeds)),
		slog.String("update_interval", a.config.UpdateInterval().String()),
		slog.String("locale", a.config.App.Locale),
		slog.Bool("archive", a.archive != nil),
	)
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		a.closeArchive()
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	serverErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed", slog.String("component", "server"), slog.Any("error", err))
			serverErr <- err
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.RegisterFeeds(a.ctx, a.config.App.Feeds)
	}()

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)
	select {
	case sig := <-a.stopChan:
		a.logger.Info("Shutdown signal received",
			slog.String("component", "app"),
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		a.Shutdown()
		return fmt.Errorf("http server: %w", err)
	}
	return a.Shutdown()
}

// RegisterFeeds регистрирует ленты по очереди через тот же путь, что и API.
// Ошибки отдельных лент логируются и не прерывают регистрацию остальных.
func (a *App) RegisterFeeds(ctx context.Context, urls []string) {
	log := a.logger.With(slog.String("component", "app"))
	for _, u := range urls {
		if ctx.Err() != nil {
			return
		}
		res, err := a.aggregator.AddFeed(ctx, u)
		switch {
		case err != nil:
			log.Warn("Startup feed was not added", slog.String("url", u), slog.Any("error", err))
		case !res.Validation.IsValid:
			for _, fe := range res.Validation.Errors {
				log.Warn("Startup feed rejected", slog.String("url", u), slog.String("reason", fe.Message))
			}
		default:
			log.Info("Startup feed added", slog.String("url", u), slog.Int("count", res.Added))
		}
	}
}

// Shutdown останавливает планировщик, дожидается текущего цикла,
// завершает HTTP-сервер и закрывает архив.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown", slog.String("component", "app"))
	a.cancel()
	a.scheduler.Cancel()
	a.scheduler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var shutdownErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.String("component", "server"), slog.Any("error", err))
		shutdownErr = fmt.Errorf("http server shutdown: %w", err)
	}
	a.hub.Close()
	a.wg.Wait()
	// Регистрация стартовых лент могла запустить планировщик повторно.
	a.scheduler.Cancel()
	a.scheduler.Wait()
	a.closeArchive()
	a.logger.Info("Application stopped gracefully", slog.String("component", "app"))
	return shutdownErr
}

func (a *App) closeArchive() {
	if a.archive != nil {
		a.archive.Close()
	}
}

// Store возвращает хранилище состояния приложения.
func (a *App) Store() *store.Store { return a.store }

// Handler возвращает HTTP-роутер приложения.
func (a *App) Handler() http.Handler { return a.server.Handler }
