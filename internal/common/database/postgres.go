package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"clientatech-agent/internal/common/config"
)

// PostgresClient is the dataset handle when the customer records live in
// PostgreSQL.
type PostgresClient struct {
	DB *sql.DB
}

// postgresDSN adds session settings that keep every transaction read-only and
// name the connection in pg_stat_activity.
func postgresDSN(cfg config.PostgresConfig) string {
	return cfg.GetDSN() + " default_transaction_read_only=on application_name=clientatech-agent"
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open postgres dataset: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
