// internal/workers/query-router/generate-sql/config.go
package generatesql

import (
	"time"

	"clientatech-agent/internal/common/config"
)

type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// MaxAttempts counts the first generation plus regenerations after a rejection.
	MaxAttempts int
	Dialect     string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Temperature: cfg.Inference.GeneratorTemperature,
		MaxTokens:   1024,
		Timeout:     config.GetDuration(cfg.Inference.Timeout),
		MaxAttempts: 2,
		Dialect:     cfg.Database.Dataset.Driver,
	}
}
