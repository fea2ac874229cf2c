package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeRoles    = "roles"
	AuthModeAllowAll = "allow-all"
)

type Config struct {
	ListenAddr   string
	DBDriver     string
	DBPath       string
	DBDSN        string
	ArtifactPath string
	LogLevel     string
	LogFile      string
	LogFormat    string
	RedisAddr    string
	InflightTTL  time.Duration
	WorkerCount  int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	AuthMode     string
}

// Load reads configuration from the environment and, when file is not empty,
// from that config file. Environment variables win over the file.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_path", "/data/itstorage.db")
	v.SetDefault("db_dsn", "")
	v.SetDefault("artifact_path", "/data/documents")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_format", "json")
	v.SetDefault("redis_addr", "")
	v.SetDefault("inflight_ttl", 10*time.Minute)
	v.SetDefault("worker_count", 4)
	v.SetDefault("queue_size", 64)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("retry_backoff", 2*time.Second)
	v.SetDefault("auth_mode", AuthModeRoles)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:   v.GetString("listen_addr"),
		DBDriver:     v.GetString("db_driver"),
		DBPath:       v.GetString("db_path"),
		DBDSN:        v.GetString("db_dsn"),
		ArtifactPath: v.GetString("artifact_path"),
		LogLevel:     v.GetString("log_level"),
		LogFile:      v.GetString("log_file"),
		LogFormat:    v.GetString("log_format"),
		RedisAddr:    v.GetString("redis_addr"),
		InflightTTL:  v.GetDuration("inflight_ttl"),
		WorkerCount:  v.GetInt("worker_count"),
		QueueSize:    v.GetInt("queue_size"),
		MaxAttempts:  v.GetInt("max_attempts"),
		RetryBackoff: v.GetDuration("retry_backoff"),
		AuthMode:     v.GetString("auth_mode"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DBSource returns the data source for the configured driver.
func (c *Config) DBSource() string {
	if c.DBDriver == "mysql" {
		return c.DBDSN
	}
	return c.DBPath
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "mysql":
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER is mysql")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.AuthMode {
	case AuthModeRoles, AuthModeAllowAll:
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
