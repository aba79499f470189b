package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv                 string
	LogLevel               slog.Level
	ApiServicePort         string
	ApiGrpcPort            string
	PostgreSQLHost         string
	PostgreSQLPort         int64
	PostgreSQLUser         string
	PostgreSQLPassword     string
	PostgreSQLDatabase     string
	JWTSecret              string
	AccessTokenExpiration  int64
	RefreshTokenExpiration int64
	RememberMeExpiration   int64
	StoreTimeout           int64 // Upper bound for a single store operation, in seconds
	AuthRequired           bool
	AuthCode               string
	LockoutThreshold       int64
	LockoutCooldown        int64
	RedisHost              string
	RedisPort              int64
	RedisPassword          string
	RedisDatabase          int64
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),                  // Default development
		LogLevel:               getLogLevel(),                                     // Default INFO
		ApiServicePort:         getEnv("API_SERVICE_PORT", "8080"),                // Default 8080
		ApiGrpcPort:            getEnv("API_GRPC_PORT", "50052"),                  // Default 50052 (health probes)
		PostgreSQLHost:         getEnv("POSTGRESQL_HOST", "db"),                   // Default db
		PostgreSQLPort:         getEnvAsInt64("POSTGRESQL_PORT", 5432),            // Default 5432
		PostgreSQLUser:         getEnv("POSTGRESQL_USER", "wikigen_user"),         // Default user
		PostgreSQLPassword:     getEnv("POSTGRESQL_PASSWORD", "wikigen_password"), // Default password
		PostgreSQLDatabase:     getEnv("POSTGRESQL_DATABASE", "wikigen_db"),       // Default database name
		JWTSecret:              getEnv("JWT_SECRET", "wikigen_secret"),            // Default secret key
		AccessTokenExpiration:  getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 900),     // Default 15 minutes
		RefreshTokenExpiration: getEnvAsInt64("REFRESH_TOKEN_EXPIRATION", 604800), // Default 7 days
		RememberMeExpiration:   getEnvAsInt64("REMEMBER_ME_EXPIRATION", 2592000),  // Default 30 days
		StoreTimeout:           getEnvAsInt64("STORE_TIMEOUT", 5),                 // Default 5 seconds
		AuthRequired:           getEnvAsBool("AUTH_REQUIRED", true),               // Default required
		AuthCode:               getEnv("AUTH_CODE", ""),                           // Default disabled
		LockoutThreshold:       getEnvAsInt64("LOCKOUT_THRESHOLD", 5),             // Default 5 failures
		LockoutCooldown:        getEnvAsInt64("LOCKOUT_COOLDOWN", 900),            // Default 15 minutes
		RedisHost:              getEnv("REDIS_HOST", "redis"),                     // Default redis
		RedisPort:              getEnvAsInt64("REDIS_PORT", 6379),                 // Default 6379
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),                      // Default empty
		RedisDatabase:          getEnvAsInt64("REDIS_DATABASE", 0),                // Default 0
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
