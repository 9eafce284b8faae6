package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus describes the state of the archive database connection. It is
// serialized as-is into the detailed health endpoint.
type HealthStatus struct {
	Connected     bool      `json:"connected"`
	ServerVersion string    `json:"server_version,omitempty"`
	Database      string    `json:"database"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// HealthCheck pings the archive database and reports its server version.
// The archive is optional, so failures land in the status rather than an
// error return.
func (c *PostgresClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := HealthStatus{
		Database:  c.config.PostgresDB,
		Timestamp: time.Now(),
	}

	if c.db == nil {
		status.Connected = false
		status.Error = "not connected"
		return &status, nil
	}

	if err := c.db.PingContext(ctx); err != nil {
		status.Connected = false
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return &status, nil
	}

	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		// Ping succeeded, so the connection itself is fine
		status.Connected = true
		status.Error = fmt.Sprintf("failed to get version: %v", err)
		return &status, nil
	}

	status.Connected = true
	status.ServerVersion = version

	return &status, nil
}
