package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	// AccessCode is the single shared password that gates operator actions
	AccessCode string
	JWTSecret  string

	// RedisAddr enables the cross-instance change feed bridge when set
	RedisAddr string

	// Puzzles is the raw comma-separated puzzle definition list, parsed by LoadPuzzles
	Puzzles string

	// Tapes is the raw comma-separated tape seed list, consumed by database.Populate
	Tapes string

	// EventWindowSeconds is the duration of a global event (default 12 hours)
	EventWindowSeconds int64

	AllowedOrigins string
	ServerPort     string
)

// LoadEnv loads environment variables from the .env file if present
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	PostgresHost = getEnv("POSTGRES_HOST", "localhost")
	PostgresPort = getEnv("POSTGRES_PORT", "5432")
	PostgresUser = getEnv("POSTGRES_USER", "postgres")
	PostgresPassword = getEnv("POSTGRES_PASSWORD", "postgres")
	PostgresDB = getEnv("POSTGRES_DB", "vault")

	AccessCode = getEnv("VAULT_ACCESS_CODE", "")
	JWTSecret = getEnv("JWT_SECRET", "")

	RedisAddr = getEnv("REDIS_ADDR", "")

	Puzzles = getEnv("VAULT_PUZZLES", "")
	Tapes = getEnv("VAULT_TAPES", "")

	EventWindowSeconds = getEnvInt64("EVENT_WINDOW_SECONDS", 12*60*60)

	AllowedOrigins = getEnv("ALLOWED_ORIGINS", "*")
	ServerPort = getEnv("SERVER_PORT", "8080")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			log.Printf("Invalid value for %s, using default: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}
