// Package app wires configuration into the stores, services and ops server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	gorm_repo "github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/gorm"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/memory"
	redis_repo "github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/redis"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/server"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/service"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	transport service.MailTransport
	resolver  validation.Resolver
}

type Option func(*options)

// WithMailTransport replaces the SMTP transport.
func WithMailTransport(t service.MailTransport) Option {
	return func(o *options) { o.transport = t }
}

// WithResolver replaces the DNS resolver used for deliverability checks.
func WithResolver(r validation.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// App holds the wired components of a running service.
type App struct {
	Config   *config.Config
	Accounts *service.AccountService
	Tokens   repository.TokenRepository
	Users    repository.UserRepository
	Hasher   *service.Hasher
	Composer *service.MailComposer
	Ops      *echo.Echo

	sweeper *memory.MemoryTokenRepository
	closers []func() error
}

// Build opens the configured stores and assembles the services.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	checks := make(map[string]handlers.HealthCheck)

	db, err := gorm_repo.Open(cfg.DatabaseDriver, cfg.DatabaseSettings)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)
	if err := gorm_repo.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, err
	}
	a.Users = gorm_repo.NewGormUserRepository(db)
	checks["database"] = sqlDB.PingContext

	switch cfg.Token.Store {
	case config.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisSettings.Address,
			Password: cfg.RedisSettings.Password,
			DB:       cfg.RedisSettings.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed connecting to redis at %s: %w", cfg.RedisSettings.Address, err)
		}
		a.Tokens = redis_repo.NewRedisTokenRepository(client, cfg.Token.ValidFor, nil)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	default:
		tokens := memory.NewMemoryTokenRepository(cfg.Token.ValidFor, nil)
		a.Tokens = tokens
		a.sweeper = tokens
	}

	transport := o.transport
	if transport == nil {
		transport = service.NewSMTPEmailService(&cfg.SMTP, cfg.Mail.SenderName)
	}

	a.Hasher = service.NewCredentialHasher(cfg.Hashing)
	a.Composer = service.NewMailComposer(cfg.Mail, cfg.Token.ValidFor)
	a.Accounts = service.NewAccountService(
		a.Users,
		a.Tokens,
		a.Hasher,
		validation.New(o.resolver),
		a.Composer,
		transport,
		cfg.Mail.CheckDeliverability,
	)
	a.Ops = server.New(checks)

	log.Info().
		Str("tokenStore", cfg.Token.Store).
		Str("database", cfg.DatabaseDriver).
		Str("hashing", a.Hasher.Algorithm()).
		Msg("Application assembled")
	return a, nil
}

// Run serves the ops endpoints and sweeps expired tokens until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if a.sweeper != nil && a.Config.Token.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.sweeper.RunSweeper(ctx, a.Config.Token.SweepInterval)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.Config.Port).Msg("Ops server starting")
		if err := a.Ops.Start(":" + a.Config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start ops server: %w", err)
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Ops.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped gracefully.")
	return nil
}

// Close releases the database and redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
