package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holocrononline/holocron/api"
	"github.com/holocrononline/holocron/auth"
	"github.com/holocrononline/holocron/config"
	"github.com/holocrononline/holocron/database"
	"github.com/holocrononline/holocron/memory"
	"github.com/holocrononline/holocron/redis"
	"github.com/holocrononline/holocron/service"
	"github.com/holocrononline/holocron/store"
	"github.com/holocrononline/holocron/validator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Exiting", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg.DatabaseURL, cfg.Migrate)
	if err != nil {
		return err
	}
	defer closeBackend()
	logger.Info("Storage ready", "url", redactURL(cfg.DatabaseURL), "migrate", cfg.Migrate)

	var cache service.CountCache
	if cfg.RedisAddr != "" {
		r, err := redis.Connect(ctx, cfg.RedisAddr, cfg.CountTTL)
		if err != nil {
			return err
		}
		defer r.Close()
		cache = r
	}

	st := store.New(backend)
	val := validator.New()
	verifier := &auth.Verifier{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Logger:   logger,
	}

	a := &api.API{
		Logger: logger,
		Likes: &service.Reactions{
			Store:  st,
			Cache:  cache,
			Val:    val,
			Logger: logger,
		},
		Comments: &service.Reviews{
			Store:  st,
			Cache:  cache,
			Val:    val,
			Logger: logger,
		},
		Authenticate:   verifier.Authenticate,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

const memoryURL = "memory://"

// openBackend returns the store backend for dsn. memory:// keeps everything in
// process and is lost on exit; any other URL is handed to database.Connect.
func openBackend(ctx context.Context, dsn string, migrate bool) (store.Backend, func() error, error) {
	if dsn == memoryURL {
		return memory.New(), func() error { return nil }, nil
	}

	db, err := database.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return db, db.Close, nil
}

// redactURL drops credentials from a connection string before it is logged.
func redactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
