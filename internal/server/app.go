// Package server initializes and runs the AuthKeeper server: it opens the
// database, applies migrations, wires the repositories and the session
// service, and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akarpov87/authkeeper/internal/logging"
	"github.com/akarpov87/authkeeper/internal/server/config"
	"github.com/akarpov87/authkeeper/internal/server/httpapi"
	"github.com/akarpov87/authkeeper/internal/server/passwd"
	"github.com/akarpov87/authkeeper/internal/server/repositories/repomanager"
	"github.com/akarpov87/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/akarpov87/authkeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *services.SessionService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	// The revocation store defaults to Postgres; a configured Redis address
	// switches it to keys that expire with the tokens they track.
	var revoked revokedtokens.Repository
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		revoked = revokedtokens.NewRedisRepository(client)
		logger.Info(ctx, "using redis revocation store", "addr", cfg.RedisAddr)
	}

	sessions := services.NewSessionService(db, rm, revoked, passwd.NewBcryptHasher(), cfg)

	return &App{config: cfg, logger: logger, db: db, sessions: sessions}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.sessions, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err.Error())
	}
}
