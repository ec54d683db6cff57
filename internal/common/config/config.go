// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Inference InferenceConfig         `mapstructure:"inference"`
	Pipeline  PipelineConfig          `mapstructure:"pipeline"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Server    ServerConfig            `mapstructure:"server"`
	Tracing   TracingConfig           `mapstructure:"tracing"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	RegistryPath   string `mapstructure:"registry_path"`
}

type DatabaseConfig struct {
	Dataset       DatasetConfig       `mapstructure:"dataset"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// DatasetConfig selects the read-only customer dataset the pipeline queries.
type DatasetConfig struct {
	Driver     string   `mapstructure:"driver"` // sqlite | postgres
	SQLitePath string   `mapstructure:"sqlite_path"`
	Tables     []string `mapstructure:"tables"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	HistoryIndex string   `mapstructure:"history_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls where answered queries are persisted and for how long.
// TTL of zero keeps entries until they are purged.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // redis | sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTL        int    `mapstructure:"ttl"` // milliseconds
	L1Size     int    `mapstructure:"l1_size"`
	L1TTL      int    `mapstructure:"l1_ttl"` // milliseconds
}

// InferenceConfig holds the local model server settings for both model roles.
type InferenceConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	LogicModel        string  `mapstructure:"logic_model"`
	PersonaModel      string  `mapstructure:"persona_model"`
	Timeout           int     `mapstructure:"timeout"`       // milliseconds
	RetryBackoff      int     `mapstructure:"retry_backoff"` // milliseconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	ClassifierTemperature float64 `mapstructure:"classifier_temperature"`
	GeneratorTemperature  float64 `mapstructure:"generator_temperature"`
	ComposerTemperature   float64 `mapstructure:"composer_temperature"`
}

// PipelineConfig bounds a single query's work.
type PipelineConfig struct {
	RowLimit         int    `mapstructure:"row_limit"`
	ExecutionTimeout int    `mapstructure:"execution_timeout"` // milliseconds
	RequestTimeout   int    `mapstructure:"request_timeout"`   // milliseconds
	FewShotPath      string `mapstructure:"fewshot_path"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
