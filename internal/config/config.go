package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSessionSecret = "default-secret-key-change-me"
	defaultJWTSecret     = "default-jwt-secret-change-me"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	AppEnv       string      `mapstructure:"app_env"`
	GinMode      string      `mapstructure:"gin_mode"`
	LogLevel     string      `mapstructure:"log_level"`
	AdminKey     string      `mapstructure:"admin_key"`
	OpenAIAPIKey string      `mapstructure:"openai_api_key"`
	HTTP         HTTPConfig  `mapstructure:"http"`
	DB           DBConfig    `mapstructure:"db"`
	Redis        RedisConfig `mapstructure:"redis"`
	Session      Session     `mapstructure:"session"`
	JWT          JWTConfig   `mapstructure:"jwt"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// RedisConfig backs the session store. An empty host falls back to signed cookies.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type Session struct {
	Secret string        `mapstructure:"secret"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

// Load reads configuration from the environment. Values found in the given
// env files (default ".env") only fill variables that are not already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		envMap, err := godotenv.Read(file)
		if err != nil {
			continue
		}
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JWT.RefreshSecret == "" {
		cfg.JWT.RefreshSecret = cfg.JWT.Secret + "_REFRESH"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_key", "")
	v.SetDefault("openai_api_key", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("db.driver", DriverMySQL)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "teamwork")
	v.SetDefault("db.password", "teamwork")
	v.SetDefault("db.name", "teamwork")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "teamwork.db")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")

	v.SetDefault("session.secret", defaultSessionSecret)
	v.SetDefault("session.max_age", 7*24*time.Hour)

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 30*24*time.Hour)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"app_env", "gin_mode", "log_level", "admin_key", "openai_api_key",
		"http.host", "http.port", "http.read_timeout", "http.write_timeout", "http.shutdown_timeout",
		"db.driver", "db.host", "db.port", "db.user", "db.password", "db.name", "db.sslmode", "db.path",
		"redis.host", "redis.port", "redis.password",
		"session.secret", "session.max_age",
		"jwt.secret", "jwt.refresh_secret", "jwt.access_ttl", "jwt.refresh_ttl",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.HTTP.Port <= 0 {
		return errors.New("http.port is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt token lifetimes must be positive")
	}
	if c.IsProduction() {
		if c.Session.Secret == defaultSessionSecret || c.JWT.Secret == defaultJWTSecret {
			return errors.New("default secrets are not allowed in release mode")
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.GinMode == "release"
}

// ServerAddr returns host:port for the HTTP listener.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// RedisAddr returns host:port of the session store, or "" when Redis is disabled.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

// DSN builds the connection string for the configured driver.
func (d DBConfig) DSN() string {
	switch d.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case DriverSQLite:
		return d.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
}
