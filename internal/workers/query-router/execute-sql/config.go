// internal/workers/query-router/execute-sql/config.go
package executesql

import (
	"time"

	"clientatech-agent/internal/common/config"
)

type Config struct {
	// RowLimit is the most rows a statement may return; one more is a fault.
	RowLimit         int
	ExecutionTimeout time.Duration
	Dialect          string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		RowLimit:         cfg.Pipeline.RowLimit,
		ExecutionTimeout: config.GetDuration(cfg.Pipeline.ExecutionTimeout),
		Dialect:          cfg.Database.Dataset.Driver,
	}
}
