package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	LogLevel  string
	LogFormat string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// RedisConfig is optional: an empty Addr disables the cache.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	TTL            time.Duration
	ConnectTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	connectTimeout := getEnvSeconds("DB_CONNECT_TIMEOUT", 10)
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 5000),
			ReadTimeout:  getEnvSeconds("READ_TIMEOUT", 15),
			WriteTimeout: getEnvSeconds("WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvSeconds("IDLE_TIMEOUT", 60),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "catalog"),
			Collection:     getEnv("MONGODB_COLLECTION", "items"),
			ConnectTimeout: connectTimeout,
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             getEnvInt("REDIS_DB", 0),
			TTL:            getEnvSeconds("CACHE_TTL", 300),
			ConnectTimeout: connectTimeout,
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer env value", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvSeconds(key string, defaultVal int) time.Duration {
	return time.Duration(getEnvInt(key, defaultVal)) * time.Second
}
