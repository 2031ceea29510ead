package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	GRPCAddr        string        `mapstructure:"GRPC_ADDR"`
	MySQLDSN        string        `mapstructure:"MYSQL_DSN"`
	MySQLMaxOpen    int           `mapstructure:"MYSQL_MAX_OPEN_CONNS"`
	MySQLMaxIdle    int           `mapstructure:"MYSQL_MAX_IDLE_CONNS"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPoolSize   int           `mapstructure:"REDIS_POOL_SIZE"`
	KafkaBrokers    []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic      string        `mapstructure:"KAFKA_TOPIC"`
	WorkerCount     int           `mapstructure:"WORKER_COUNT"`
	QueueSize       int           `mapstructure:"QUEUE_SIZE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	AutoMigrate     bool          `mapstructure:"AUTO_MIGRATE"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"HTTP_ADDR":            ":8080",
	"GRPC_ADDR":            ":50051",
	"MYSQL_DSN":            "root:root@tcp(localhost:3306)/sweetshop?parseTime=true&clientFoundRows=true",
	"MYSQL_MAX_OPEN_CONNS": 50,
	"MYSQL_MAX_IDLE_CONNS": 25,
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_POOL_SIZE":      100,
	"KAFKA_BROKERS":        "",
	"KAFKA_TOPIC":          "orders",
	"WORKER_COUNT":         10,
	"QUEUE_SIZE":           10000,
	"LOG_LEVEL":            "info",
	"AUTO_MIGRATE":         true,
	"SHUTDOWN_TIMEOUT":     "5s",
}

// Load reads configuration from the environment, overlaid on the optional
// file named by CONFIG_FILE. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MySQLDSN == "" {
		return errors.New("MYSQL_DSN is required")
	}
	if c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE must not be negative, got %d", c.QueueSize)
	}
	return nil
}

// KafkaEnabled reports whether order events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// splitList accepts both "a,b" from the environment and a yaml list.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
