/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the leave engine server. Handles configuration,
	dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Load configuration (.env, environment, flags)
 2. Build the zap logger
 3. Initialize SQLite store
 4. Wire sinks: SMTP mailer, in-app + Kafka notifications, Redis locker
 5. Create engine, reporter, handler and router
 6. Start the increment scheduler and the HTTP server

COMMAND-LINE FLAGS:

	-port    HTTP server port (overrides APP_ADDR)
	-db      SQLite database path (overrides DB_PATH)
	         Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop the scheduler
	2. Stop accepting new connections
	3. Wait for active requests to complete (30s timeout)
	4. Close Kafka, Redis and database connections

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/notify"
	"github.com/warp/leave-engine/store/redislock"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides APP_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Addr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	os.Exit(finish(logger, run(cfg, logger)))
}

// finish logs the outcome of run, flushes the logger and returns the exit code.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server failed", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg config.Config, logger *zap.Logger) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	engine := leave.NewEngine(store, leave.Config{
		MailFrom:     cfg.MailFrom,
		MailFromName: cfg.MailFromName,
		TopAdminRole: cfg.TopAdminRole,
	}, logger)
	engine.Mailer = notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		UseTLS:   cfg.SMTPUseTLS,
	})

	sinks := notify.Fanout{store}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaBrokers, logger)
		defer writer.Close()
		sinks = append(sinks, notify.NewKafkaSink(writer, cfg.KafkaTopic))
		logger.Info("publishing notifications to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	}
	engine.Notifier = sinks

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		engine.Locker = redislock.New(rdb, redislock.Options{TTL: cfg.LockTTL}, logger)
		logger.Info("using redis balance locks", zap.String("addr", cfg.RedisAddr))
	}

	reporter := attendance.NewReporter(store, attendance.Options{
		MinWorkDuration: cfg.MinWorkDuration,
		Concurrency:     cfg.SummaryConcurrency,
	}, logger)

	handler := api.NewHandler(engine, reporter, logger)
	handler.Notifications = store
	if cfg.EnableScenarios {
		handler.Scenarios = store
		logger.Warn("demo scenarios enabled: loading one wipes the database")
	}
	router := api.NewRouter(handler)

	scheduler := api.NewIncrementScheduler(engine, cfg.IncrementInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
