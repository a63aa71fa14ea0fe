// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Board     BoardConfig     `mapstructure:"board"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Hub       HubConfig       `mapstructure:"hub"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// BoardConfig selects and configures the task repository.
type BoardConfig struct {
	Repository string         `mapstructure:"repository"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Mongo      MongoConfig    `mapstructure:"mongo"`
}

// PostgresConfig controls the pgx connection pool for the task repository.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// MongoConfig controls the Mongo-backed task repository.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// RemoteConfig configures the remote document store that receives full
// subtask replacements.
type RemoteConfig struct {
	Provider       string        `mapstructure:"provider"`
	BaseURL        string        `mapstructure:"base_url"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	GCS            GCSConfig     `mapstructure:"gcs"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// GCSConfig sets bucket and prefix for the GCS document store.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// BreakerConfig tunes the circuit breaker guarding remote writes.
type BreakerConfig struct {
	MaxFailures    uint32 `mapstructure:"max_failures"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HubConfig controls buffering and batching for the progress hub.
type HubConfig struct {
	BufferSize         int `mapstructure:"buffer_size"`
	MaxBatchEvents     int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs     int `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutSeconds int `mapstructure:"sink_timeout_seconds"`
}

// PublisherConfig holds metadata for publish-subscribe notifications.
type PublisherConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOARDPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("board.repository", "memory")
	v.SetDefault("board.postgres.table", "tasks")
	v.SetDefault("board.mongo.database", "boards")
	v.SetDefault("board.mongo.collection", "tasks")
	v.SetDefault("remote.provider", "noop")
	v.SetDefault("remote.timeout_seconds", 10)
	v.SetDefault("remote.gcs.prefix", "boards")
	v.SetDefault("remote.breaker.max_failures", 3)
	v.SetDefault("remote.breaker.timeout_seconds", 5)
	v.SetDefault("hub.buffer_size", 1024)
	v.SetDefault("hub.max_batch_events", 64)
	v.SetDefault("hub.max_batch_wait_ms", 250)
	v.SetDefault("hub.sink_timeout_seconds", 10)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Board.Repository {
	case "memory":
	case "postgres":
		if c.Board.Postgres.DSN == "" {
			return fmt.Errorf("board.postgres.dsn must be set when board.repository is postgres")
		}
	case "mongo":
		if c.Board.Mongo.URI == "" {
			return fmt.Errorf("board.mongo.uri must be set when board.repository is mongo")
		}
	default:
		return fmt.Errorf("unknown board.repository %q", c.Board.Repository)
	}
	switch c.Remote.Provider {
	case "noop":
	case "http":
		if c.Remote.BaseURL == "" {
			return fmt.Errorf("remote.base_url must be set when remote.provider is http")
		}
	case "gcs":
		if c.Remote.GCS.Bucket == "" {
			return fmt.Errorf("remote.gcs.bucket must be set when remote.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown remote.provider %q", c.Remote.Provider)
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be > 0")
	}
	if c.Publisher.Enabled && (c.Publisher.ProjectID == "" || c.Publisher.TopicName == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic_name must be set when publisher is enabled")
	}
	return nil
}

// RemoteTimeout converts the remote write timeout into a duration.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// ServerTimeout converts the per-request server timeout into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// BreakerTimeout converts the breaker reset timeout into a duration.
func (c Config) BreakerTimeout() time.Duration {
	return time.Duration(c.Remote.Breaker.TimeoutSeconds) * time.Second
}

// HubBatchWait converts the hub batching wait into a duration.
func (c Config) HubBatchWait() time.Duration {
	return time.Duration(c.Hub.MaxBatchWaitMs) * time.Millisecond
}

// HubSinkTimeout converts the per-sink flush timeout into a duration.
func (c Config) HubSinkTimeout() time.Duration {
	return time.Duration(c.Hub.SinkTimeoutSeconds) * time.Second
}
