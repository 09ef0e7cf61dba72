package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MemoryStore      bool

	JWTSecret      string
	AllowedOrigins []string

	HTTPTimeoutSec   int
	ElementWaitSec   int
	RelayAckSec      int
	MaxUploadWorkers int
	UploadRateMs     int
	MaxRetries       int

	GraphAPIBase string
	ChromeBin    string
	RelayLocal   bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "realestatesync"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "realestatesync123"),
		PostgresDB:       getEnv("POSTGRES_DB", "realestatesync_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MemoryStore:      getEnvBool("MEMORY_STORE", false),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},

		HTTPTimeoutSec:   getEnvInt("HTTP_TIMEOUT_SEC", 30),
		ElementWaitSec:   getEnvInt("ELEMENT_WAIT_SEC", 30),
		RelayAckSec:      getEnvInt("RELAY_ACK_SEC", 5),
		MaxUploadWorkers: getEnvInt("MAX_UPLOAD_WORKERS", 3),
		UploadRateMs:     getEnvInt("UPLOAD_RATE_MS", 500),
		MaxRetries:       getEnvInt("MAX_RETRIES", 2),

		GraphAPIBase: getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v19.0"),
		ChromeBin:    getEnv("CHROME_BIN", ""),
		RelayLocal:   getEnvBool("RELAY_LOCAL", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
