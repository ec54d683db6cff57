package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: test-agent\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Database.Dataset.Driver)
	assert.Empty(t, cfg.Database.Dataset.Tables, "empty means every user table")
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 0, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Pipeline.RowLimit)
	assert.Equal(t, "qwen2.5-coder:14b", cfg.Inference.LogicModel)
	assert.Equal(t, "llama3-finetuned:latest", cfg.Inference.PersonaModel)
	assert.Equal(t, 0.0, cfg.Inference.ClassifierTemperature)
	assert.Equal(t, 0.1, cfg.Inference.GeneratorTemperature)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")
	path := writeConfig(t, `
cache:
  backend: redis
  ttl: 3600000
database:
  redis:
    address: ${TEST_REDIS_ADDR}
workers:
  answer-customer-query:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6379", cfg.Database.Redis.Address)
	assert.Equal(t, time.Hour, GetDuration(cfg.Cache.TTL))

	worker := GetWorkerConfig(cfg, "answer-customer-query")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, cfg.Pipeline.RequestTimeout, worker.Timeout)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown dataset driver",
			body:    "database:\n  dataset:\n    driver: mysql\n",
			wantErr: "database.dataset.driver",
		},
		{
			name:    "postgres without host",
			body:    "database:\n  dataset:\n    driver: postgres\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "redis cache without address",
			body:    "cache:\n  backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "negative ttl",
			body:    "cache:\n  ttl: -1\n",
			wantErr: "cache.ttl",
		},
		{
			name:    "camunda without broker",
			body:    "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"invalidate-query-cache": {Enabled: false},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "invalidate-query-cache"))
	assert.True(t, IsWorkerEnabled(cfg, "answer-customer-query"))
}
