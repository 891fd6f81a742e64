package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	TelegramBotToken string                `koanf:"telegram_bot_token"`
	TelegramAPIURL   string                `koanf:"telegram_api_url" validate:"required,url"`
	TelegramAPIID    int                   `koanf:"telegram_api_id" validate:"gte=0"`
	TelegramAPIHash  string                `koanf:"telegram_api_hash"`
	AdminIDs         []int64               `koanf:"-"`
	HTTPPort         string                `koanf:"http_port" validate:"required,numeric"`
	RefreshInterval  int                   `koanf:"refresh_interval" validate:"gt=0"`
	DatabaseDriver   domain.DatabaseDriver `koanf:"database_driver" validate:"oneof=postgres sqlite libsql mysql"`
	DatabaseDSN      string                `koanf:"database_dsn" validate:"required"`
	RedisAddr        string                `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword    string                `koanf:"redis_password"`
	RedisDB          int                   `koanf:"redis_db" validate:"gte=0"`
	KafkaBrokers     []string              `koanf:"-"`
	KafkaTopic       string                `koanf:"kafka_topic"`
	HistoryWorkers   int                   `koanf:"history_workers" validate:"gt=0"`
	DMWorkers        int                   `koanf:"dm_workers" validate:"gt=0"`
	DMSendTimeout    int                   `koanf:"dm_send_timeout" validate:"gt=0"`
	ShutdownTimeout  int                   `koanf:"shutdown_timeout" validate:"gt=0"`
	LogLevel         string                `koanf:"log_level" validate:"oneof=debug info warn error"`
	AppEnv           domain.AppEnv         `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	defaults := map[string]any{
		"telegram_api_url": "https://api.telegram.org",
		"http_port":        "7000",
		"refresh_interval": 30,
		"database_driver":  "postgres",
		"kafka_topic":      "keyword-hits",
		"history_workers":  8,
		"dm_workers":       4,
		"dm_send_timeout":  60,
		"shutdown_timeout": 10,
		"log_level":        "info",
		"app_env":          "production",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	cfg.AdminIDs = ParseIDList(k.Get("admin_ids"))
	cfg.KafkaBrokers = parseStringList(k.Get("kafka_brokers"))

	if driver, err := domain.ParseDatabaseDriver(k.String("database_driver")); err == nil {
		cfg.DatabaseDriver = driver
	}

	if env, err := domain.ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = env
	} else {
		cfg.AppEnv = domain.AppEnvProduction
	}

	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, oops.With("context", "validating config").Wrap(err)
	}

	return &cfg, nil
}

// RefreshPeriod is the config cache rebuild interval.
func (c *Config) RefreshPeriod() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

func (c *Config) DMTimeout() time.Duration {
	return time.Duration(c.DMSendTimeout) * time.Second
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) IsAdmin(tgID int64) bool {
	return lo.Contains(c.AdminIDs, tgID)
}

// ParseIDList accepts a comma-separated string or a list from a config file.
func ParseIDList(raw any) []int64 {
	switch v := raw.(type) {
	case string:
		return parseIDs(v)
	case int:
		return []int64{int64(v)}
	case int64:
		return []int64{v}
	case float64:
		return []int64{int64(v)}
	case []any:
		return lo.FilterMap(v, func(item any, _ int) (int64, bool) {
			switch val := item.(type) {
			case int64:
				return val, true
			case int:
				return int64(val), true
			case float64:
				return int64(val), true
			case string:
				ids := parseIDs(val)
				if len(ids) == 1 {
					return ids[0], true
				}
			}
			return 0, false
		})
	default:
		return []int64{}
	}
}

func parseIDs(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}

func parseStringList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	case []any:
		return lo.Compact(lo.Map(v, func(item any, _ int) string {
			return strings.TrimSpace(fmt.Sprint(item))
		}))
	default:
		return nil
	}
}
