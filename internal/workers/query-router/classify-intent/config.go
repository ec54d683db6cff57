// internal/workers/query-router/classify-intent/config.go
package classifyintent

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
		Temperature: cfg.Inference.ClassifierTemperature,
		MaxTokens:   256,
		Timeout:     config.GetDuration(cfg.Inference.Timeout),
	}
}
