package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment. The chat client only
// needs BackendURL and HTTPTimeout; the rest configures the relay.
type Config struct {
	BackendURL  string
	HTTPTimeout time.Duration

	Port           string
	DBDriver       string
	DBDSN          string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	NatsURL        string
	NatsSubject    string
	AllowedOrigins []string

	LogLevel string
	LogFile  string
}

const (
	DefaultBackendURL  = "http://localhost:5000"
	DefaultHTTPTimeout = 10 * time.Second
	DefaultPort        = "5000"
	DefaultDBDriver    = "sqlite"
	DefaultDBDSN       = "clinic-chat.db"
	DefaultNatsSubject = "clinic.chat"
)

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BackendURL:     getEnv("BACKEND_URL", DefaultBackendURL),
		HTTPTimeout:    DefaultHTTPTimeout,
		Port:           getEnv("PORT", DefaultPort),
		DBDriver:       getEnv("DB_DRIVER", DefaultDBDriver),
		DBDSN:          getEnv("DB_DSN", DefaultDBDSN),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "clinic"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		NatsURL:        os.Getenv("NATS_URL"),
		NatsSubject:    getEnv("NATS_SUBJECT", DefaultNatsSubject),
		AllowedOrigins: []string{"*"},
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
	}

	if raw := os.Getenv("HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			// plain integers are read as seconds
			secs, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", raw, err)
			}
			d = time.Duration(secs) * time.Second
		}
		cfg.HTTPTimeout = d
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}

	switch cfg.DBDriver {
	case "sqlite", "mysql", "mongo":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
