// internal/workers/query-router/compose-response/config.go
package composeresponse

import (
	"time"

	"clientatech-agent/internal/common/config"
)

type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Temperature: cfg.Inference.ComposerTemperature,
		MaxTokens:   1024,
		Timeout:     config.GetDuration(cfg.Inference.Timeout),
	}
}
