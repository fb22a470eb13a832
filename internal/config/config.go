package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Logger    *LoggerConfig    `mapstructure:"logger"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Session   *SessionConfig   `mapstructure:"session"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   *TracingConfig   `mapstructure:"tracing"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	DefaultBalance     int64         `mapstructure:"default_balance"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverMemory   = "memory"
)

type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

const (
	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

type SessionConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type RateLimitConfig struct {
	LoginPerSecond float64 `mapstructure:"login_per_second"`
	LoginBurst     int     `mapstructure:"login_burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Exporter    string `mapstructure:"exporter"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return decode(v)
}

// Watch reloads the file on every write and hands the new config to onChange.
// Invalid edits are reported to onError and otherwise ignored.
func Watch(path string, onChange func(conf *AppConfig), onError func(err error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		conf, err := decode(v)
		if err != nil {
			onError(fmt.Errorf("config reload of %s -> %w", e.Name, err))
			return
		}
		onChange(conf)
	})
	v.WatchConfig()

	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:3000"})
	v.SetDefault("api.jwt_signing_key", "")
	v.SetDefault("api.session_ttl", 24*time.Hour)
	v.SetDefault("api.default_balance", 100)

	v.SetDefault("gin.mode", "debug")
	v.SetDefault("logger.level", "info")

	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("storage.sqlite_path", "marketplace.db")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db", "marketplace")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("session.driver", SessionDriverMemory)
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.redis_db", 0)

	v.SetDefault("rate_limit.login_per_second", 1)
	v.SetDefault("rate_limit.login_burst", 5)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "marketplace-api")
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var conf AppConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *AppConfig) validate() error {
	if c.API.JWTSigningKey == "" {
		return fmt.Errorf("api.jwt_signing_key is required")
	}
	if c.API.DefaultBalance < 0 {
		return fmt.Errorf("api.default_balance must not be negative, got %d", c.API.DefaultBalance)
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverSQLite, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Session.Driver {
	case SessionDriverMemory, SessionDriverRedis:
	default:
		return fmt.Errorf("unknown session.driver %q", c.Session.Driver)
	}

	return nil
}
