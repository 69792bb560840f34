package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config хранит настройки процесса.
type Config struct {
	Port          string
	Storage       string
	DatabaseURL   string
	StoreTimeout  time.Duration
	ReplyMaxDepth int
	DBLogSQL      bool
	SeedData      bool
}

// Load читает .env (если он есть), затем окружение.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv собирает конфигурацию из переменных окружения с умолчаниями.
func FromEnv() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Storage:       getEnv("STORAGE", StorageInMemory),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StoreTimeout:  getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		ReplyMaxDepth: getEnvAsInt("REPLY_MAX_DEPTH", 32),
		DBLogSQL:      getEnvAsBool("DB_LOG_SQL", false),
		SeedData:      getEnvAsBool("SEED_DATA", true),
	}
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return errors.New("unknown storage type: " + c.Storage)
	}
	if c.ReplyMaxDepth < 1 {
		return errors.New("REPLY_MAX_DEPTH must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(name, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(name string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(name, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(name string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(name, "")); err == nil {
		return value
	}
	return fallback
}
