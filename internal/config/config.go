package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageBadger   = "badger"
	StorageMemory   = "memory"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string   `env:"HTTP_PORT" envDefault:"8000"`
	Users    []string `env:"CHAT_USERS" envSeparator:"," envDefault:"Vamshi,Akilesh,Shashank,Abhishek,Aneesh"`

	StorageDriver         string        `env:"STORAGE_DRIVER" envDefault:"mongo"`
	StorageFallback       bool          `env:"STORAGE_FALLBACK" envDefault:"true"`
	StorageConnectTimeout time.Duration `env:"STORAGE_CONNECT_TIMEOUT" envDefault:"5s"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"chat_system"`
	DatabaseURL   string `env:"DATABASE_URL"`
	BadgerDir     string `env:"BADGER_DIR" envDefault:"./data/badger"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SendRateLimit  int           `env:"SEND_RATE_LIMIT" envDefault:"30"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW" envDefault:"1m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageMongo, StorageBadger, StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.StorageConnectTimeout <= 0 {
		return fmt.Errorf("STORAGE_CONNECT_TIMEOUT must be positive")
	}
	return nil
}
