package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/okuusi/hydromind/internal/behavior"
	"github.com/okuusi/hydromind/internal/hydration"
	"github.com/okuusi/hydromind/pkg/config"
	"github.com/okuusi/hydromind/pkg/health"
	"github.com/okuusi/hydromind/pkg/mqtt"
	"github.com/okuusi/hydromind/pkg/postgres"
	"github.com/okuusi/hydromind/pkg/redis"
)

func main() {
	cfg := config.NewConfig()
	cfg.ServiceName = "hydromind-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting hydromind agent",
		"mqtt", cfg.MQTTAddress(),
		"redis", cfg.RedisAddress(),
		"postgres", fmt.Sprintf("%s:%d/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize clients
	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)

	// Postgres is optional: without it the agent runs on the key-value
	// snapshot alone.
	var archive *behavior.Archive
	pgClient := postgres.NewClient(cfg, logger)
	if err := pgClient.Connect(ctx); err != nil {
		logger.Warn("Postgres unavailable, running without durable archive", "error", err)
	} else {
		archive = behavior.NewArchive(pgClient)
		defer pgClient.Disconnect()
	}

	// Archiver and health target must stay nil (not a typed nil) when
	// Postgres is absent
	var archiver behavior.Archiver
	var pgHealth postgres.Client
	if archive != nil {
		archiver = archive
		pgHealth = pgClient
	}

	service := hydration.NewService(cfg, hydration.NewRedisKV(redisClient), archiver, logger, nil)
	agent := hydration.NewAgent(mqttClient, redisClient, service, archive, cfg, logger)
	agent.Bind(ctx)

	go service.Run(ctx)
	<-service.Ready()

	// Health endpoint
	checker := health.NewChecker(mqttClient, redisClient, pgHealth, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HealthPort)
		mux := http.NewServeMux()
		mux.HandleFunc("/health", checker.HandlerFunc())
		mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())
		logger.Info("Health endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Health server failed", "error", err)
		}
	}()

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	cancel()
	agent.Stop()
	logger.Info("Hydromind agent stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
