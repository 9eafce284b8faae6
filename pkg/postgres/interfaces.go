package postgres

import (
	"context"
	"database/sql"
)

// Client is the narrow Postgres surface the archive and health checks use.
type Client interface {
	// Connect establishes a connection to the PostgreSQL database
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the PostgreSQL database
	Disconnect() error

	// IsConnected returns whether the client holds an open pool
	IsConnected() bool

	// Exec executes a query without returning any rows
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// HealthCheck performs a health check on the database connection
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
