// Package server wires configuration, storage, mail delivery and the HTTP
// surface together and runs them until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/resets"
	"github.com/dmitrijs2005/gatekeeper/internal/server/rest"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	accounts *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	repos, err := OpenRepositories(ctx, c)
	if err != nil {
		return nil, err
	}

	notifier, err := NewNotifier(c, logger)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	as := NewAccountService(c, repos, notifier, logger)

	return &App{config: c, logger: logger, repos: repos, accounts: as}, nil
}

// OpenRepositories connects to the configured store and brings its schema
// up to date. The memory DSN selects a process-local store.
func OpenRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return memory.NewManager(time.Now), nil
	}

	repos, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return repos, nil
}

// NewNotifier returns an SMTP notifier, or one that only logs when no SMTP
// host is configured. Either way delivery is bounded by NotifyTimeout.
func NewNotifier(c *config.Config, l logging.Logger) (notify.Notifier, error) {
	if c.SMTPHost == "" {
		return notify.WithTimeout(notify.NewLogNotifier(l), c.NotifyTimeout), nil
	}

	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})
	if err != nil {
		return nil, err
	}
	return notify.WithTimeout(n, c.NotifyTimeout), nil
}

func NewAccountService(c *config.Config, repos repomanager.RepositoryManager, n notify.Notifier, l logging.Logger) *services.AccountService {
	return services.NewAccountService(
		repos,
		auth.NewIssuer([]byte(c.SecretKey), time.Now),
		resets.NewStore(repos, c.ResetTokenValidityDuration, time.Now),
		notify.NewComposer(c.PublicBaseURL, c.AdminEmail),
		n,
		l,
		c,
	)
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
	cookies := auth.NewCookieManager(app.config.SessionTokenValidityDuration, app.config.IsDevelopment())
	s := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.accounts, cookies, app.config.AllowedOrigins)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or the server fails, then
// closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
