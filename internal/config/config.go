package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyBotToken = errors.New("telegram bot token is required")
	ErrEmptyOwnerID  = errors.New("bot owner chat id is required")
)

type Config struct {
	App          AppConfig          `yaml:"app" env:"APP"`
	Ledger       LedgerConfig       `yaml:"ledger" env:"LEDGER"`
	Prefs        PrefsConfig        `yaml:"prefs" env:"PREFS"`
	RemoteConfig RemoteConfigConfig `yaml:"remote_config" env:"REMOTE_CONFIG"`
	Sync         SyncConfig         `yaml:"sync" env:"SYNC"`
	Feed         FeedConfig         `yaml:"feed" env:"FEED"`
	Bot          BotConfig          `yaml:"bot" env:"BOT"`
	NATS         NATSConfig         `yaml:"nats" env:"NATS"`
	Health       HealthConfig       `yaml:"health" env:"HEALTH"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"jokefeed"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Debug       bool   `yaml:"debug" env:"DEBUG" env-default:"false"`
}

// IsDebug reports whether usage telemetry must be suppressed for this run.
func (a AppConfig) IsDebug() bool {
	return a.Debug || a.Environment != "production"
}

type LedgerConfig struct {
	Path string `yaml:"path" env:"LEDGER_PATH" env-default:"data/ledger.db"`
}

type PrefsConfig struct {
	Path string `yaml:"path" env:"PREFS_PATH" env-default:"data/prefs.json"`
}

type RemoteConfigConfig struct {
	URL          string        `yaml:"url" env:"URL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT" env-default:"10s"`
}

type SyncConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED" env-default:"true"`
	URL     string        `yaml:"url" env:"URL"`
	Token   string        `yaml:"token" env:"TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"15s"`
}

type FeedConfig struct {
	URL     string        `yaml:"url" env:"URL"`
	Limit   int           `yaml:"limit" env:"LIMIT" env-default:"20"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"30s"`
}

type BotConfig struct {
	Token     string  `yaml:"token" env:"TOKEN"`
	ParseMode string  `yaml:"parse_mode" env:"PARSE_MODE" env-default:"Markdown"`
	OwnerID   int64   `yaml:"owner_id" env:"OWNER_ID"`
	AdminIDs  []int64 `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
}

// IsAdmin reports whether the given chat id belongs to an administrator.
func (b BotConfig) IsAdmin(id int64) bool {
	for _, admin := range b.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

type NATSConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED" env-default:"true"`
	URL        string `yaml:"url" env:"URL" env-default:"nats://localhost:4222"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"JOKEFEED"`
}

type HealthConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.prod.yaml"
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}

	cleanenv.ReadEnv(&cfg)

	if cfg.Bot.Token == "" {
		return nil, ErrEmptyBotToken
	}

	if cfg.Bot.OwnerID == 0 {
		return nil, ErrEmptyOwnerID
	}

	return &cfg, nil
}
