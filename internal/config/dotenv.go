package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port                     string
	StoreBackend             string
	DatabaseURL              string
	RedisURL                 string
	NATSURL                  string
	QuestionsPath            string
	PublicURL                string
	CORSOrigins              []string
	LogLevel                 string
	SyncIntervalMS           int
	HeartbeatIntervalMS      int
	ConnectionTimeoutMS      int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		StoreBackend:             BackendMemory,
		PublicURL:                "http://localhost:8080",
		CORSOrigins:              []string{"*"},
		LogLevel:                 "info",
		SyncIntervalMS:           1000,
		HeartbeatIntervalMS:      3000,
		ConnectionTimeoutMS:      8000,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); raw != "" {
		switch raw {
		case BackendMemory, BackendPostgres, BackendRedis:
			cfg.StoreBackend = raw
		}
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.QuestionsPath = os.Getenv("QUESTIONS_PATH")
	if raw := os.Getenv("PUBLIC_URL"); raw != "" {
		cfg.PublicURL = strings.TrimRight(raw, "/")
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	positiveInt("SYNC_INTERVAL_MS", &cfg.SyncIntervalMS)
	positiveInt("HEARTBEAT_INTERVAL_MS", &cfg.HeartbeatIntervalMS)
	positiveInt("CONNECTION_TIMEOUT_MS", &cfg.ConnectionTimeoutMS)
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	return cfg
}

func positiveInt(name string, dest *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}

func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMS) * time.Millisecond
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

func (c Config) ConnectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutMS) * time.Millisecond
}

func (c Config) Addr() string {
	return ":" + c.Port
}
