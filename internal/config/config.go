package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port     string
	DBDSN    string
	LogFile  string
	LogLevel string

	// Purchases must resolve a shipping address (explicit or default).
	RequireAddress bool
	// Seed demo catalog and users on an empty database.
	SeedDemo bool

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads the environment, after merging an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		DBDSN:          getEnv("DB_DSN", "ecommerce.db"), // sqlite file in project root
		LogFile:        getEnv("LOG_FILE", "./ecommerce.log"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequireAddress: getBool("REQUIRE_ADDRESS", true),
		SeedDemo:       getBool("SEED_DEMO", true),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		CacheTTL:       time.Duration(getInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		KafkaBrokers:   splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "orders"),
	}
	return cfg
}

// Fields renders the non-secret settings for the startup log line.
func (c Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("db_dsn", c.DBDSN),
		zap.String("log_file", c.LogFile),
		zap.String("log_level", c.LogLevel),
		zap.Bool("require_address", c.RequireAddress),
		zap.Bool("seed_demo", c.SeedDemo),
		zap.String("redis_addr", c.RedisAddr),
		zap.Duration("cache_ttl", c.CacheTTL),
		zap.Strings("kafka_brokers", c.KafkaBrokers),
		zap.String("kafka_topic", c.KafkaTopic),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		if pt := strings.TrimSpace(p); pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
