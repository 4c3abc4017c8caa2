package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	adapthttp "fintrack/internal/adapter/http"
	"fintrack/internal/adapter/memory"
	"fintrack/internal/adapter/postgres"
	"fintrack/internal/app"
	"fintrack/internal/config"
	"fintrack/internal/domain"
	"fintrack/internal/logging"
)

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP server" }
func (*serveCmd) Usage() string {
	return `fintrack serve [-config <file>]

  Serves the API and the static front end. Without database.url the user
  directory is loaded from the fixtures file and kept in memory.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", env("FINTRACK_CONFIG", ""), "Path to the YAML configuration file.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	log := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type stores struct {
	users        domain.UserDirectory
	accounts     domain.AccountDirectory
	transactions domain.TransactionRepository
	close        func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.Database.URL != "" {
		db, err := postgres.Open(cfg.Database.URL, postgres.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		return &stores{users: db, accounts: db, transactions: db, close: db.Close}, nil
	}

	db, err := memory.LoadFixtures(cfg.Fixtures)
	if err != nil {
		return nil, err
	}
	return &stores{users: db, accounts: db, transactions: db, close: func() error { return nil }}, nil
}

func serve(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	sessions, err := app.NewSessionManager(app.SessionConfig{
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.MaxAge,
	}, st.users, st.accounts, log.With("component", "session"))
	if err != nil {
		return err
	}
	authSvc := app.NewAuthService(st.users, st.accounts, sessions, log.With("component", "auth"))

	opts := adapthttp.Options{WebDir: cfg.Server.WebDir, Production: cfg.Session.Production}
	if cfg.SSO.Enabled {
		opts.OIDC, err = adapthttp.NewOIDCConfig(ctx, cfg.SSO.Issuer, cfg.SSO.ClientID, cfg.SSO.ClientSecret, cfg.SSO.RedirectURL)
		if err != nil {
			return err
		}
	}

	h := adapthttp.New(authSvc, app.NewTransactionService(st.transactions), app.NewSummaryService(st.transactions), opts, log.With("component", "http")).Handler()
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Server.Addr, "production", cfg.Session.Production, "sso", cfg.SSO.Enabled)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info(shutdownCtx, "shutting down")
	return srv.Shutdown(shutdownCtx)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
