package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dismissal DismissalConfig
	Scheduler SchedulerConfig
	Realtime  RealtimeConfig
	Events    EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DismissalConfig tunes queue behaviour and read caches.
type DismissalConfig struct {
	DelayOffset    time.Duration
	StatsCacheTTL  time.Duration
	SchoolCacheTTL time.Duration
	ActivityLimit  int
}

// SchedulerConfig controls the automatic session start loop.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// RealtimeConfig governs websocket fan-out.
type RealtimeConfig struct {
	ClientBuffer   int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// EventsConfig configures the domain event stream.
type EventsConfig struct {
	Stream       string
	StreamMaxLen int64
	Workers      int
	Retries      int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	activityLimit := v.GetInt("ACTIVITY_FEED_LIMIT")
	if activityLimit <= 0 {
		activityLimit = 100
	}
	cfg.Dismissal = DismissalConfig{
		DelayOffset:    parseDuration(v.GetString("DISMISSAL_DELAY_OFFSET"), 2*time.Minute),
		StatsCacheTTL:  parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Second),
		SchoolCacheTTL: parseDuration(v.GetString("SCHOOL_CACHE_TTL"), 5*time.Minute),
		ActivityLimit:  activityLimit,
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:  v.GetBool("ENABLE_DISMISSAL_SCHEDULER"),
		Interval: parseDuration(v.GetString("DISMISSAL_SCHEDULER_INTERVAL"), time.Minute),
		Timeout:  parseDuration(v.GetString("DISMISSAL_SCHEDULER_TIMEOUT"), 30*time.Second),
	}

	cfg.Realtime = RealtimeConfig{
		ClientBuffer:   v.GetInt("REALTIME_CLIENT_BUFFER"),
		WriteTimeout:   parseDuration(v.GetString("REALTIME_WRITE_TIMEOUT"), 5*time.Second),
		AllowedOrigins: splitAndTrim(v.GetString("REALTIME_ALLOWED_ORIGINS")),
	}

	cfg.Events = EventsConfig{
		Stream:       v.GetString("EVENTS_STREAM"),
		StreamMaxLen: v.GetInt64("EVENTS_STREAM_MAXLEN"),
		Workers:      v.GetInt("EVENTS_WORKERS"),
		Retries:      v.GetInt("EVENTS_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_dismissal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "sma-dismissal-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DISMISSAL_DELAY_OFFSET", "2m")
	v.SetDefault("STATS_CACHE_TTL", "5s")
	v.SetDefault("SCHOOL_CACHE_TTL", "5m")
	v.SetDefault("ACTIVITY_FEED_LIMIT", 100)

	v.SetDefault("ENABLE_DISMISSAL_SCHEDULER", true)
	v.SetDefault("DISMISSAL_SCHEDULER_INTERVAL", "1m")
	v.SetDefault("DISMISSAL_SCHEDULER_TIMEOUT", "30s")

	v.SetDefault("REALTIME_CLIENT_BUFFER", 64)
	v.SetDefault("REALTIME_WRITE_TIMEOUT", "5s")
	v.SetDefault("REALTIME_ALLOWED_ORIGINS", "")

	v.SetDefault("EVENTS_STREAM", "dismissal:events")
	v.SetDefault("EVENTS_STREAM_MAXLEN", 10000)
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
