// Package config reads runtime settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	DB     DBConfig
	Redis  RedisConfig
	Push   PushConfig
}

type ServerConfig struct {
	Addr      string
	AdminUser string
}

type LoggerConfig struct {
	Level string
	Path  string
}

type DBConfig struct {
	Path string
}

// RedisConfig selects the Redis notification counter backend. An empty Addr
// keeps counters in SQLite.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PushConfig struct {
	Enabled            bool
	ExpoURL            string
	ExpoAccessToken    string
	FCMCredentialsFile string
	Timeout            time.Duration
}

// Load reads the configuration. Missing variables fall back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Addr:      getEnv("FIELDSTOCK_ADDR", ":8080"),
			AdminUser: getEnv("FIELDSTOCK_ADMIN_USER", "Admin"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Path:  getEnv("LOG_FILE", ""),
		},
		DB: DBConfig{
			Path: getEnv("FIELDSTOCK_DB", "fieldstock.sqlite3"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Push: PushConfig{
			Enabled:            getEnvBool("PUSH_ENABLED", true),
			ExpoURL:            getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
			ExpoAccessToken:    getEnv("EXPO_ACCESS_TOKEN", ""),
			FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
			Timeout:            getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
