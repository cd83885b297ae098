package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Booking   BookingConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	MaxConns       int32
	ConnectRetries int
}

// BookingConfig holds the pricing and window policy of the booking engine.
type BookingConfig struct {
	MaxHours          int
	PenaltyMultiplier float64
	WalkInGrace       time.Duration // how far in the past a walk-in start may be
}

type RedisConfig struct {
	Address      string // empty disables the sweep lock
	Password     string
	DB           int
	SweepLockTTL time.Duration
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string // empty disables trace export
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "parking-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("BOOKING_MAX_HOURS", 24)
	v.SetDefault("BOOKING_PENALTY_MULTIPLIER", 2.0)
	v.SetDefault("BOOKING_WALK_IN_GRACE", "15m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SWEEP_LOCK_TTL", "30s")
	v.SetDefault("OTEL_SERVICE_NAME", "parking-booking")

	// .env is optional, plain environment variables are enough
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Port:    v.GetString("PORT"),
			Debug:   v.GetBool("DEBUG"),
			LogPath: v.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			Name:           v.GetString("DB_NAME"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASS"),
			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
		},
		Booking: BookingConfig{
			MaxHours:          v.GetInt("BOOKING_MAX_HOURS"),
			PenaltyMultiplier: v.GetFloat64("BOOKING_PENALTY_MULTIPLIER"),
			WalkInGrace:       v.GetDuration("BOOKING_WALK_IN_GRACE"),
		},
		Redis: RedisConfig{
			Address:      v.GetString("REDIS_ADDR"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			SweepLockTTL: v.GetDuration("REDIS_SWEEP_LOCK_TTL"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}

	return config, nil
}
