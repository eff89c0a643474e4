// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sungwon/message-relay/internal/auth"
	"github.com/sungwon/message-relay/internal/blobstore"
	"github.com/sungwon/message-relay/internal/mailer"
	"github.com/sungwon/message-relay/internal/queue"
)

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig       `mapstructure:"http"`
	Database DatabaseConfig   `mapstructure:"database"`
	Blob     blobstore.Config `mapstructure:"blob"`
	Queue    queue.Config     `mapstructure:"queue"`
	Mailer   mailer.Config    `mapstructure:"mailer"`
	Auth     auth.Config      `mapstructure:"auth"`
	Logging  LoggingConfig    `mapstructure:"logging"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
}

// HTTPConfig holds REST API server configuration.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the host:port listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // stdout (default) or file
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// MetricsConfig holds the Prometheus scrape endpoint configuration for
// the delivery worker.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix MESSAGE_RELAY_ override file values.
// For example, MESSAGE_RELAY_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("MESSAGE_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("blob.type", "local")
	v.SetDefault("blob.path", "./data/attachments")
	v.SetDefault("blob.bucket", "attachments")

	qd := queue.DefaultConfig()
	v.SetDefault("queue.type", qd.Type)
	v.SetDefault("queue.topic", qd.Topic)
	v.SetDefault("queue.group_name", qd.GroupName)
	v.SetDefault("queue.worker_count", qd.WorkerCount)

	v.SetDefault("mailer.type", "stdout")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.addr", ":9090")
}
