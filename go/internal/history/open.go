package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Supported database/sql driver names.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to Postgres through driver and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverPQ && driver != DriverPGX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}
