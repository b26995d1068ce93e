package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultAITimeoutSeconds = 8

// Config holds everything the three binaries need. Values come from an
// optional YAML file (CONFIG_PATH, default config.yaml), each overridable
// by environment variable, with hard defaults last.
type Config struct {
	Port string `yaml:"port"`

	DBHost     string `yaml:"db_host"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBPort     string `yaml:"db_port"`
	DBSSLMode  string `yaml:"db_sslmode"`

	RedisAddr string `yaml:"redis_addr"`

	KafkaBrokers       []string `yaml:"kafka_brokers"`
	KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`

	AIEnabled        bool   `yaml:"ai_enabled"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AIModel          string `yaml:"ai_model"`
	AITimeoutSeconds int    `yaml:"ai_timeout_seconds"`

	// Cron expression for the daily counter reset, worker-local time.
	DailyResetSchedule string `yaml:"daily_reset_schedule"`
}

func Load() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			zap.L().Fatal("failed to parse config file", zap.String("path", configPath), zap.Error(err))
		}
		zap.L().Info("loaded config file", zap.String("path", configPath))
	}

	envOverride(&cfg.Port, "PORT")
	envOverride(&cfg.DBHost, "DB_HOST")
	envOverride(&cfg.DBUser, "DB_USER")
	envOverride(&cfg.DBPassword, "DB_PASSWORD")
	envOverride(&cfg.DBName, "DB_NAME")
	envOverride(&cfg.DBPort, "DB_PORT")
	envOverride(&cfg.DBSSLMode, "DB_SSLMODE")
	envOverride(&cfg.RedisAddr, "REDIS_ADDR")
	envOverride(&cfg.KafkaConsumerGroup, "KAFKA_CONSUMER_GROUP")
	envOverrideBool(&cfg.AIEnabled, "AI_ENABLED")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AIModel, "AI_MODEL")
	envOverrideInt(&cfg.AITimeoutSeconds, "AI_TIMEOUT_SECONDS")
	envOverride(&cfg.DailyResetSchedule, "DAILY_RESET_SCHEDULE")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = nil
		for _, b := range strings.Split(brokers, ",") {
			b = strings.TrimSpace(b)
			if b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.KafkaConsumerGroup == "" {
		cfg.KafkaConsumerGroup = "presence-engine"
	}
	if cfg.AITimeoutSeconds == 0 {
		cfg.AITimeoutSeconds = defaultAITimeoutSeconds
	}
	if cfg.DailyResetSchedule == "" {
		cfg.DailyResetSchedule = "0 0 * * *"
	}

	return cfg
}

func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
