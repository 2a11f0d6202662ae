package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	devSecret    = "dev-cookie-secret-change-me"
	devJWTSecret = "dev-jwt-secret-change-me"
)

type StoreConfig struct {
	Driver     string        `mapstructure:"driver"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	MongoURI   string        `mapstructure:"mongo_uri"`
	MongoDB    string        `mapstructure:"mongo_db"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	ReportErrors bool          `mapstructure:"report_errors"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
	LogLevel     string        `mapstructure:"log_level"`
	Store        StoreConfig   `mapstructure:"store"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default).
// DICEROOM_* environment variables override file values, e.g.
// DICEROOM_PORT or DICEROOM_STORE_DRIVER.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("DICEROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", devSecret)
	v.SetDefault("jwt_secret", devJWTSecret)
	v.SetDefault("jwt_issuer", "dicetable")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("grace_period", "5m")
	v.SetDefault("report_errors", true)
	v.SetDefault("rate_limit", 30)
	v.SetDefault("rate_interval", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.sqlite_path", "./data/dicetable.db")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_db", "dicetable")
	v.SetDefault("store.ttl", "0s")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == "release" && (cfg.Secret == devSecret || cfg.JWTSecret == devJWTSecret) {
		log.Warn().Str("module", "config").Msg("running release mode with development secrets")
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.PongWait <= c.PingPeriod:
		return fmt.Errorf("pong_wait (%s) must exceed ping_period (%s)", c.PongWait, c.PingPeriod)
	case c.GracePeriod <= 0:
		return fmt.Errorf("grace_period must be positive")
	case c.SendBuffer <= 0:
		return fmt.Errorf("send_buffer must be positive")
	}
	switch c.Store.Driver {
	case "memory", "redis", "sqlite", "mongo":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
