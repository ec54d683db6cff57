// internal/workers/query-router/answer-query/config.go
package answerquery

import (
	"time"

	"clientatech-agent/internal/common/config"
)

type Config struct {
	RequestTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		RequestTimeout: config.GetDuration(cfg.Pipeline.RequestTimeout),
	}
}
