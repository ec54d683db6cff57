package database

import (
	"context"
	"database/sql"
	"fmt"

	"clientatech-agent/internal/common/config"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Dataset is the customer database the pipeline answers questions from.
type Dataset struct {
	DB      *sql.DB
	Dialect string
	Tables  []string
}

// OpenDataset opens the configured dataset read-only.
func OpenDataset(cfg config.DatabaseConfig) (*Dataset, error) {
	switch cfg.Dataset.Driver {
	case DialectSQLite:
		client, err := NewSQLiteReadOnly(cfg.Dataset.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Dataset{DB: client.DB, Dialect: DialectSQLite, Tables: cfg.Dataset.Tables}, nil
	case DialectPostgres:
		client, err := NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Dataset{DB: client.DB, Dialect: DialectPostgres, Tables: cfg.Dataset.Tables}, nil
	default:
		return nil, fmt.Errorf("unsupported dataset driver %q", cfg.Dataset.Driver)
	}
}

func (d *Dataset) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Dataset) Close() error {
	return d.DB.Close()
}
