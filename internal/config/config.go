package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pricebot/internal/logging"
	"pricebot/internal/version"
)

// Storage backends.
const (
	BackendBunt     = "bunt"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Price     PriceConfig     `mapstructure:"price"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig describes the bot credentials and the fallback destination.
type TelegramConfig struct {
	BotToken         string        `mapstructure:"bot_token"`
	DefaultChatID    int64         `mapstructure:"default_chat_id"`
	RequireGroupChat bool          `mapstructure:"require_group_chat"`
	APIURL           string        `mapstructure:"api_url"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"`
	ChatLink         string        `mapstructure:"chat_link"`
}

// PriceConfig covers the upstream price API.
type PriceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AssetID        string        `mapstructure:"asset_id"`
	AssetName      string        `mapstructure:"asset_name"`
	Currencies     []string      `mapstructure:"currencies"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines default thresholds and alert presentation.
type AlertingConfig struct {
	DefaultThresholdPct float64 `mapstructure:"default_threshold_pct"`
	AssetsDir           string  `mapstructure:"assets_dir"`
	UpImage             string  `mapstructure:"up_image"`
	DownImage           string  `mapstructure:"down_image"`
	PricePlaces         int32   `mapstructure:"price_places"`
	PercentPlaces       int32   `mapstructure:"percent_places"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	RedisURL        string        `mapstructure:"redis_url"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// legacyEnv maps the environment names used by earlier deployments of the bot.
var legacyEnv = map[string]string{
	"telegram.bot_token":             "BOT_TOKEN",
	"telegram.default_chat_id":       "CHAT_ID",
	"telegram.chat_link":             "CHAT_LINK",
	"price.asset_id":                 "COINGECKO_ID",
	"alerting.default_threshold_pct": "PRICE_CHANGE_THRESHOLD",
	"alerting.assets_dir":            "ASSETS_DIR",
	"scheduler.default_interval":     "CHECK_INTERVAL",
}

// Load builds configuration from .env, file, environment, and defaults.
// envFiles replace the default ./.env; unlike the default they must exist.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("PRICEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// bindLegacyEnv binds each key to its prefixed name first and the legacy name second,
// so PRICEBOT_* wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := "PRICEBOT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricebot")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "10s")
	v.SetDefault("telegram.require_group_chat", false)

	v.SetDefault("price.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.asset_id", "flower-2")
	v.SetDefault("price.asset_name", "Flower")
	v.SetDefault("price.currencies", []string{"usd", "rub", "uah"})
	v.SetDefault("price.request_timeout", "10s")
	v.SetDefault("price.user_agent", version.UserAgent())

	v.SetDefault("alerting.default_threshold_pct", 15.0)
	v.SetDefault("alerting.assets_dir", "assets")
	v.SetDefault("alerting.up_image", "up.png")
	v.SetDefault("alerting.down_image", "down.png")
	v.SetDefault("alerting.price_places", 4)
	v.SetDefault("alerting.percent_places", 2)

	v.SetDefault("scheduler.default_interval", "60s")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70726963))

	v.SetDefault("storage.backend", BackendBunt)
	v.SetDefault("storage.path", "data/pricebot.db")
	v.SetDefault("storage.key_prefix", "pricebot:")
	v.SetDefault("storage.max_open_conns", 4)
	v.SetDefault("storage.max_idle_conns", 1)
	v.SetDefault("storage.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks that do not depend on the command being run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Price.AssetID) == "" {
		return fmt.Errorf("price.asset_id must be set")
	}
	if len(c.Price.Currencies) == 0 {
		return fmt.Errorf("price.currencies must list at least one currency")
	}
	if c.Alerting.DefaultThresholdPct <= 0 {
		return fmt.Errorf("alerting.default_threshold_pct must be greater than zero")
	}
	if c.Alerting.PricePlaces < 0 || c.Alerting.PercentPlaces < 0 {
		return fmt.Errorf("alerting decimal places cannot be negative")
	}
	if c.Scheduler.DefaultInterval < time.Second {
		return fmt.Errorf("scheduler.default_interval must be at least one second")
	}
	switch strings.ToLower(c.Storage.Backend) {
	case BackendBunt:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path must be set for the bunt backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the postgres backend")
		}
	case BackendRedis:
	default:
		return fmt.Errorf("storage.backend %q is not one of bunt, postgres, redis", c.Storage.Backend)
	}
	return nil
}

// ValidateBot checks the settings only the long-running bot needs.
func (c *Config) ValidateBot() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("telegram.bot_token (BOT_TOKEN) must be set")
	}
	return c.ValidateDelivery()
}

// ValidateDelivery checks the fallback destination used when no chat is registered.
func (c *Config) ValidateDelivery() error {
	if c.Telegram.DefaultChatID == 0 {
		return fmt.Errorf("telegram.default_chat_id (CHAT_ID) must be non-zero")
	}
	if c.Telegram.RequireGroupChat && c.Telegram.DefaultChatID > 0 {
		return fmt.Errorf("telegram.default_chat_id must be negative (a group chat) when require_group_chat is set")
	}
	return nil
}

// DefaultIntervalSeconds rounds the configured default interval to whole seconds.
func (c *Config) DefaultIntervalSeconds() int {
	return int(c.Scheduler.DefaultInterval.Round(time.Second) / time.Second)
}
