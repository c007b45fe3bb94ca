package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"retiree-match/internal/geo"
	"retiree-match/internal/logger"
	"retiree-match/internal/matching"
	"retiree-match/internal/notifier"
	"retiree-match/internal/scheduler"
	"retiree-match/internal/storage"
	"retiree-match/internal/trigger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RM"

// AppConfig 应用配置。
type AppConfig struct {
	Server    ServerConfig              `mapstructure:"server"`
	Log       logger.Config             `mapstructure:"log"`
	Database  storage.Config            `mapstructure:"database"`
	Redis     RedisConfig               `mapstructure:"redis"`
	Matching  MatchingConfig            `mapstructure:"matching"`
	Scheduler scheduler.Config          `mapstructure:"scheduler"`
	Geo       geo.Config                `mapstructure:"geo"`
	Notifier  notifier.DispatcherConfig `mapstructure:"notifier"`
	Email     notifier.EmailConfig      `mapstructure:"email"`
	Links     notifier.LinkConfig       `mapstructure:"links"`
	Trigger   trigger.Config            `mapstructure:"trigger"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig 地址为空时关闭缓存与实时推送。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MatchingConfig struct {
	matching.Config `mapstructure:",squash"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

var defaults = map[string]any{
	"server.addr":                         ":8080",
	"server.shutdown_timeout":             "5s",
	"log.format":                          "console",
	"log.level":                           "info",
	"database.driver":                     "sqlite",
	"database.dsn":                        "data/matching.db",
	"redis.addr":                          "",
	"redis.password":                      "",
	"redis.db":                            0,
	"matching.acceptable_score_threshold": 0.33,
	"matching.interval_minutes":           10,
	"matching.retention_factor":           2,
	"matching.workers":                    4,
	"matching.run_timeout":                "2m",
	"scheduler.skip_startup_run":          false,
	"geo.cache_ttl":                       "24h",
	"geo.miss_ttl":                        "10m",
	"geo.prefix":                          "zipcoord",
	"notifier.live_timeout":               "1s",
	"notifier.email_timeout":              "30s",
	"email.provider":                      "log",
	"email.host":                          "",
	"email.port":                          587,
	"email.username":                      "",
	"email.password":                      "",
	"email.from":                          "",
	"email.region":                        "eu-central-1",
	"email.subject_prefix":                "New WiseUp Notification: ",
	"links.frontend_url":                  "",
	"links.backend_url":                   "",
	"links.token_ttl":                     "15m",
	"trigger.url":                         "",
	"trigger.queue":                       "matching.triggers",
	"trigger.prefetch":                    1,
	"trigger.timeout":                     "2m",
}

// loadConfig 依次读取 .env、配置文件与 RM_ 前缀环境变量。
func loadConfig(path string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if !explicit {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Matching.Config = cfg.Matching.Config.WithDefaults()
	if cfg.Scheduler.Timeout <= 0 {
		cfg.Scheduler.Timeout = cfg.Matching.RunTimeout
	}
	return cfg, nil
}
