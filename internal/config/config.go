package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
	DatabaseMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	LogLevel slog.Level
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Type          string
	URL           string
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SQLiteDataDir string
	AutoMigrate   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type AuthConfig struct {
	PresenterKey   string
	JWTSecret      string
	AccessTokenTTL time.Duration
	CookieSecure   bool
}

// Load reads configuration from an optional .env file, the environment and
// command-line flags, in increasing order of precedence.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()
	v.SetDefault("PORT", 8080)
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("DATABASE_TYPE", DatabaseSQLite)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_DB", "livepoll")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "livepoll:events")
	v.SetDefault("KAFKA_TOPIC", "livepoll.events")
	v.SetDefault("ACCESS_TOKEN_TTL", 12*time.Hour)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)
	port := fs.Int("p", 0, "Server port")
	dbType := fs.String("t", "", "Database type (postgres, sqlite or memory)")
	dbURL := fs.String("d", "", "Database URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *port != 0 {
		v.Set("PORT", *port)
	}
	if *dbType != "" {
		v.Set("DATABASE_TYPE", *dbType)
	}
	if *dbURL != "" {
		v.Set("DATABASE_URL", *dbURL)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("HOST"),
			Port:           v.GetInt("PORT"),
			ReadTimeout:    v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Type:          strings.ToLower(v.GetString("DATABASE_TYPE")),
			URL:           v.GetString("DATABASE_URL"),
			Host:          v.GetString("POSTGRES_HOST"),
			Port:          v.GetString("POSTGRES_PORT"),
			User:          v.GetString("POSTGRES_USER"),
			Password:      v.GetString("POSTGRES_PASSWORD"),
			DBName:        v.GetString("POSTGRES_DB"),
			SQLiteDataDir: v.GetString("SQLITE_DATA_DIR"),
			AutoMigrate:   v.GetBool("AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Auth: AuthConfig{
			PresenterKey:   v.GetString("PRESENTER_KEY"),
			JWTSecret:      v.GetString("JWT_SECRET"),
			AccessTokenTTL: v.GetDuration("ACCESS_TOKEN_TTL"),
			CookieSecure:   v.GetBool("COOKIE_SECURE"),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	switch c.Database.Type {
	case DatabasePostgres, DatabaseSQLite, DatabaseMemory:
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// PostgresURL prefers DATABASE_URL and otherwise assembles one from the
// discrete POSTGRES_* settings.
func (d DatabaseConfig) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.DBName)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
