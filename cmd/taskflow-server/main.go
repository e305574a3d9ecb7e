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

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/taskflow/internal"
	"github.com/kazz187/taskflow/internal/config"
	"github.com/kazz187/taskflow/internal/enhance"
	"github.com/kazz187/taskflow/internal/event"
	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/internal/pushnotification"
	pushsubrepo "github.com/kazz187/taskflow/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskflow/internal/task"
	taskrepo "github.com/kazz187/taskflow/internal/task/repositoryimpl"
	"github.com/kazz187/taskflow/pkg/clog"
	"github.com/kazz187/taskflow/pkg/storage"
)

// taskStore is what main needs beyond task.Repository: an eager schema
// attempt at startup.
type taskStore interface {
	task.Repository
	Bootstrap(ctx context.Context) error
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(ctx, env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup task store. An unreachable database is not fatal: the server
	// comes up degraded and the schema is created on first use.
	taskRepo, err := newTaskStore(ctx, config.DatabaseEnvFromEnv(env))
	if err != nil {
		slog.Error("failed to create task store", "error", err)
		os.Exit(1)
	}
	defer taskRepo.Close()
	if err := taskRepo.Bootstrap(ctx); err != nil {
		slog.Warn("task store not ready, continuing degraded", "database", env.DatabaseEnv.RedactedURL(), "error", err)
	} else {
		slog.Info("task store ready", "database", env.DatabaseEnv.RedactedURL())
	}

	bus := eventbus.New()

	// Setup AI enhancement
	aiEnv := config.AIEnvFromEnv(env)
	rewriter, err := enhance.NewRewriterFromEnv(aiEnv, &http.Client{Timeout: aiEnv.Timeout})
	if err != nil {
		slog.Warn("ai enhancement disabled", "error", err)
		rewriter = nil
	}
	enhancer := enhance.NewEnhancer(rewriter, aiEnv.Timeout)
	if st := enhancer.Status(); st.Configured {
		slog.Info("ai enhancement configured", "provider", st.Provider, "model", st.Model)
	}

	// Setup push notification
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushNotificationServer := pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(
		env,
		task.NewServer(taskRepo, bus),
		event.NewServer(bus, event.WithAllowedOrigins(env.CORSAllowedOrigins)),
		enhance.NewServer(enhancer),
		pushNotificationServer,
		server.NewHealthChecker(taskRepo),
	)

	var wg conc.WaitGroup
	if vapidEnv.Configured() {
		wg.Go(func() { pushDispatcher.Start(ctx) })
	}
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
}

func newTaskStore(ctx context.Context, dbEnv *config.DatabaseEnv) (taskStore, error) {
	switch dbEnv.Driver {
	case "sqlite":
		return taskrepo.NewSQLiteRepository(dbEnv.SQLitePath)
	default:
		return taskrepo.NewPostgresRepository(ctx, dbEnv.PostgresURL(), dbEnv.ConnectTimeout)
	}
}
