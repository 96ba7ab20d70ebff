// main package for the tts-gateway
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-gateway/internal/bookstore"
	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/book-expert/tts-gateway/internal/enqueue"
	"github.com/book-expert/tts-gateway/internal/httpapi"
	"github.com/book-expert/tts-gateway/internal/proxy"
	"github.com/book-expert/tts-gateway/internal/redisstore"
	"github.com/book-expert/tts-gateway/internal/segment"
	"github.com/book-expert/tts-gateway/internal/synth"
	"github.com/book-expert/tts-gateway/internal/telemetry"
	"github.com/book-expert/tts-gateway/internal/worker"
)

const (
	serviceName     = "tts-gateway"
	shutdownTimeout = 5 * time.Second
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "tts-gateway-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, metricsHandler, metricsShutdown, err := telemetry.Setup(serviceName)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = metricsShutdown(shutdownCtx)
	}()

	rdb, err := redisstore.Connect(ctx, cfg.KV.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to KV: %w", err)
	}

	defer func() {
		_ = rdb.Close()
	}()

	books, err := bookstore.Open(ctx, cfg.Books.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open chapter store: %w", err)
	}

	defer func() {
		_ = books.Close()
	}()

	cache := redisstore.NewAudioCache(rdb)
	lock := redisstore.NewSynthLock(rdb)
	queue := redisstore.NewJobQueue(rdb)
	heartbeat := redisstore.NewHeartbeat(rdb)

	synthClient := synth.NewClient(cfg.Backend.URL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second)

	cacheTTL := time.Duration(cfg.Cache.TTLHours) * time.Hour
	lockTTL := time.Duration(cfg.Lock.TTLSeconds) * time.Second

	pool := worker.NewPool(queue, cache, lock, synthClient, heartbeat, metrics, log,
		worker.Options{
			PoolSize:    cfg.Worker.PoolSize,
			RetryBudget: cfg.Worker.RetryBudget,
			CacheTTL:    cacheTTL,
			LockTTL:     lockTTL,
			PopTimeout:  time.Duration(cfg.Queue.PopTimeoutSeconds) * time.Second,
		})
	pool.Start(ctx)

	proxySvc := proxy.New(cache, lock, synthClient, metrics, log, cacheTTL, lockTTL)
	enqueueSvc := enqueue.New(queue, books, segment.New(), cfg, log,
		cfg.Queue.PrefetchWindow, cfg.Queue.IncludeNextChapter)

	handler := httpapi.New(cfg, proxySvc, enqueueSvc, books, queue, synthClient,
		heartbeat, metricsHandler, log)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.System("tts-gateway listening on %s", server.Addr)

		listenErr := server.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serveErr <- listenErr
		}
	}()

	select {
	case err := <-serveErr:
		_ = pool.Stop()

		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.System("shutdown requested, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)

	poolErr := pool.Stop()
	if poolErr != nil {
		log.Warn("worker pool shutdown: %v", poolErr)
	}

	if shutdownErr != nil {
		return fmt.Errorf("http server shutdown: %w", shutdownErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
