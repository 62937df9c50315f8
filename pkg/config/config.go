package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds all configuration for the application.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	JWT       JWTConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Recommend RecommendConfig
	Log       LogConfig
}

// DatabaseConfig holds relationship store connection settings.
// Path is used by the sqlite driver, DSN by postgres and mysql.
type DatabaseConfig struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string
	Port              int
	CORSAllowOrigins  string
	RateLimitMax      int
	RateLimitDuration time.Duration
}

// JWTConfig holds settings for validating session tokens issued by the account subsystem.
type JWTConfig struct {
	Secret           string
	CookieName       string
	AccessExpiration time.Duration
}

// RedisConfig enables shared rate-limit state when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig enables relationship event publishing when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// RecommendConfig tunes the recommendation scan.
type RecommendConfig struct {
	PageSize      int
	OnboardedOnly bool
}

// LogConfig selects level and encoding for the zap logger.
type LogConfig struct {
	Level    string
	Encoding string
}

// LoadConfig loads configuration from an optional .env file, environment
// variables and defaults. Environment variables are uppercase with
// underscores, e.g. DB_PATH.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)
	bindEnv(v)
	v.AutomaticEnv()

	if err := validateRequired(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("db_driver")),
			Path:            v.GetString("db_path"),
			DSN:             v.GetString("db_dsn"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
			BusyTimeout:     v.GetDuration("db_busy_timeout"),
		},
		Server: ServerConfig{
			Host:              v.GetString("server_host"),
			Port:              v.GetInt("server_port"),
			CORSAllowOrigins:  v.GetString("cors_allow_origins"),
			RateLimitMax:      v.GetInt("rate_limit_max"),
			RateLimitDuration: v.GetDuration("rate_limit_duration"),
		},
		JWT: JWTConfig{
			Secret:           v.GetString("jwt_secret"),
			CookieName:       v.GetString("jwt_cookie_name"),
			AccessExpiration: v.GetDuration("jwt_access_expiration"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("nats_url"),
			SubjectPrefix: v.GetString("nats_subject_prefix"),
		},
		Recommend: RecommendConfig{
			PageSize:      v.GetInt("recommend_page_size"),
			OnboardedOnly: v.GetBool("recommend_onboarded_only"),
		},
		Log: LogConfig{
			Level:    v.GetString("log_level"),
			Encoding: v.GetString("log_encoding"),
		},
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("db_driver", DriverSQLite)
	v.SetDefault("db_path", "./data.db")
	v.SetDefault("db_max_open_conns", 5)
	v.SetDefault("db_max_idle_conns", 2)
	v.SetDefault("db_conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db_conn_max_idle_time", 2*time.Minute)
	v.SetDefault("db_busy_timeout", 5*time.Second)

	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 5001)
	v.SetDefault("cors_allow_origins", "http://localhost:5173")
	v.SetDefault("rate_limit_max", 120)
	v.SetDefault("rate_limit_duration", time.Minute)

	// JWT defaults
	v.SetDefault("jwt_cookie_name", "jwt")
	v.SetDefault("jwt_access_expiration", 7*24*time.Hour)

	v.SetDefault("redis_db", 0)
	v.SetDefault("nats_subject_prefix", "connectx")

	v.SetDefault("recommend_page_size", 200)
	v.SetDefault("recommend_onboarded_only", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
}

func bindEnv(v *viper.Viper) {
	// Database
	_ = v.BindEnv("db_driver", "DB_DRIVER")
	_ = v.BindEnv("db_path", "DB_PATH")
	_ = v.BindEnv("db_dsn", "DB_DSN")
	_ = v.BindEnv("db_max_open_conns", "DB_MAX_OPEN_CONNS")
	_ = v.BindEnv("db_max_idle_conns", "DB_MAX_IDLE_CONNS")
	_ = v.BindEnv("db_conn_max_lifetime", "DB_CONN_MAX_LIFETIME")
	_ = v.BindEnv("db_conn_max_idle_time", "DB_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("db_busy_timeout", "DB_BUSY_TIMEOUT")

	// Server
	_ = v.BindEnv("server_host", "SERVER_HOST")
	_ = v.BindEnv("server_port", "SERVER_PORT")
	_ = v.BindEnv("cors_allow_origins", "CORS_ALLOW_ORIGINS")
	_ = v.BindEnv("rate_limit_max", "RATE_LIMIT_MAX")
	_ = v.BindEnv("rate_limit_duration", "RATE_LIMIT_DURATION")

	// JWT
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("jwt_cookie_name", "JWT_COOKIE_NAME")
	_ = v.BindEnv("jwt_access_expiration", "JWT_ACCESS_EXPIRATION")

	// Redis
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis_db", "REDIS_DB")

	// NATS
	_ = v.BindEnv("nats_url", "NATS_URL")
	_ = v.BindEnv("nats_subject_prefix", "NATS_SUBJECT_PREFIX")

	// Recommendations
	_ = v.BindEnv("recommend_page_size", "RECOMMEND_PAGE_SIZE")
	_ = v.BindEnv("recommend_onboarded_only", "RECOMMEND_ONBOARDED_ONLY")

	// Logging
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_encoding", "LOG_ENCODING")
}

func validateRequired(v *viper.Viper) error {
	if v.GetString("jwt_secret") == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

func (d DatabaseConfig) validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres, DriverMySQL:
		if d.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s driver", d.Driver)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
	return nil
}
