package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTP
	Database Database
	Auth     Auth
	Log      Log
}

type HTTP struct {
	Addr        string        `env:"HTTP_ADDR" env-default:":8080"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"5s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Database struct {
	URL         string        `env:"DATABASE_URL" env-required:"true"`
	MaxOpen     int           `env:"DB_MAX_OPEN" env-default:"25"`
	MaxIdle     int           `env:"DB_MAX_IDLE" env-default:"25"`
	MaxLifetime time.Duration `env:"DB_MAX_LIFETIME" env-default:"5m"`
}

type Auth struct {
	// Rotating the secret invalidates every outstanding token.
	Secret    string        `env:"AUTH_SECRET" env-required:"true"`
	AccessTTL time.Duration `env:"AUTH_ACCESS_TTL" env-default:"30m"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `env:"LOG_PRETTY" env-default:"false"`
}

// Parse loads an optional .env file and reads the configuration from
// the environment.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return &cfg, nil
}
