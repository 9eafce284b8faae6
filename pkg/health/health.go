package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/okuusi/hydromind/pkg/mqtt"
	"github.com/okuusi/hydromind/pkg/postgres"
	"github.com/okuusi/hydromind/pkg/redis"
)

// Checker provides the agent health endpoints.
type Checker struct {
	mqtt     mqtt.Client
	redis    redis.Client
	postgres postgres.Client // optional
	logger   *slog.Logger
}

// NewChecker creates a health checker. pg may be nil when the agent runs
// without the durable archive.
func NewChecker(mqttClient mqtt.Client, redisClient redis.Client, pg postgres.Client, logger *slog.Logger) *Checker {
	return &Checker{
		mqtt:     mqttClient,
		redis:    redisClient,
		postgres: pg,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp string    `json:"timestamp"`
	Services  *Services `json:"services,omitempty"`
}

// Services represents the status of external dependencies
type Services struct {
	Redis    string `json:"redis"`
	MQTT     string `json:"mqtt"`
	Postgres string `json:"postgres,omitempty"`
}

// HandlerFunc returns the minimal liveness handler: 200 whenever the process
// is alive, no dependency checks, so orchestrator probes stay cheap.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			h.logger.Error("Failed to encode health response", "error", err)
		}
	}
}

// DetailedHandlerFunc returns a handler that reports per-dependency status.
// A missing Postgres is reported but does not degrade overall health.
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := &Services{
			Redis: "unknown",
			MQTT:  "unknown",
		}

		if h.mqtt != nil && h.mqtt.IsConnected() {
			services.MQTT = "connected"
		} else {
			services.MQTT = "disconnected"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if h.redis != nil {
			if err := h.redis.Ping(ctx); err != nil {
				services.Redis = "disconnected"
			} else {
				services.Redis = "connected"
			}
		} else {
			services.Redis = "disconnected"
		}

		if h.postgres != nil {
			if status, err := h.postgres.HealthCheck(ctx); err == nil && status.Connected {
				services.Postgres = "connected"
			} else {
				services.Postgres = "disconnected"
			}
		}

		status := "healthy"
		statusCode := http.StatusOK
		if services.Redis == "disconnected" || services.MQTT == "disconnected" {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			h.logger.Error("Failed to encode health response", "error", err)
		}
	}
}
