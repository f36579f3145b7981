package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"civicconnect/internal/api"
	"civicconnect/internal/audit"
	"civicconnect/internal/auth"
	"civicconnect/internal/config"
	"civicconnect/internal/db"
	"civicconnect/internal/dispatch"
	"civicconnect/internal/logging"
	"civicconnect/internal/notify"
	"civicconnect/internal/rate"
	"civicconnect/internal/service"
	"civicconnect/internal/store"
	"civicconnect/internal/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reportErrors := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			reportErrors = true
			defer sentry.Flush(2 * time.Second)
		}
	}
	log := logging.Setup(os.Stdout, cfg.LogLevel, reportErrors)

	sqdb, err := db.Open(db.Options{
		Driver:      cfg.DBDriver,
		Path:        cfg.DBPath,
		DSN:         cfg.DBDSN,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer sqdb.Close()
	if err := db.ApplyMigrationFile(sqdb, db.MigrationPath(cfg.MigrationsDir, cfg.DBDriver)); err != nil {
		return err
	}

	st := store.New(sqdb, cfg.DBDriver)
	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		hash, err := auth.HashPassword(cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}
		if err := st.EnsureAdmin(context.Background(), cfg.BootstrapAdminEmail, hash); err != nil {
			return err
		}
	}

	var limiter rate.Counter = rate.NewLimiter()
	if cfg.RateLimitBackend == "db" {
		limiter = rate.NewStoreCounter(st)
	}

	queue := dispatch.New(cfg.DispatchWorkers, cfg.DispatchQueueSize, 10*time.Second, log)
	svc := service.New(cfg, st, service.Deps{
		Limiter:  limiter,
		Queue:    queue,
		Audit:    audit.NewRecorder(queue, st, log),
		Notifier: notify.NewNotifier(queue, st, log),
		Codes:    notify.NewLogSender(log),
		Logger:   log,
	})

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, svc, limiter, log),
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "driver", cfg.DBDriver, "base_path", cfg.APIBasePath, "version", version.Current().Version)
		if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hsrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := queue.Close(shutdownCtx); err != nil {
		log.Error("dispatch drain incomplete", "error", err)
	}
	return nil
}
