package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisURL        string
	RedisClientName string

	// Server
	Port        string
	FrontendURL string

	// Game settings
	WaitForOpponentSeconds int
	InactiveTimeoutSeconds int
	GameOverLingerSeconds  int

	// Matchmaking
	MatchmakerPollSeconds   int
	MatchmakerLockSeconds   int
	QueueStatusPollSeconds  int

	// Invitations
	InviteExpirySeconds     int
	InviteSweepPollSeconds  int

	// WebSocket
	WSMessagesPerSecond int
	WSMessageBurst      int

	// Security
	JWTSecret        string
	TokenExpiryHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/pongarena?sslmode=disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		// Redis
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisClientName: getEnv("REDIS_CLIENT_NAME", "pongarena"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Game settings
		WaitForOpponentSeconds: getEnvInt("WAIT_FOR_OPPONENT_SECONDS", 10),
		InactiveTimeoutSeconds: getEnvInt("INACTIVE_TIMEOUT_SECONDS", 300),
		GameOverLingerSeconds:  getEnvInt("GAME_OVER_LINGER_SECONDS", 2),

		// Matchmaking
		MatchmakerPollSeconds:  getEnvInt("MATCHMAKER_POLL_SECONDS", 5),
		MatchmakerLockSeconds:  getEnvInt("MATCHMAKER_LOCK_SECONDS", 10),
		QueueStatusPollSeconds: getEnvInt("QUEUE_STATUS_POLL_SECONDS", 5),

		// Invitations
		InviteExpirySeconds:    getEnvInt("INVITE_EXPIRY_SECONDS", 300),
		InviteSweepPollSeconds: getEnvInt("INVITE_SWEEP_POLL_SECONDS", 30),

		// WebSocket
		WSMessagesPerSecond: getEnvInt("WS_MESSAGES_PER_SECOND", 30),
		WSMessageBurst:      getEnvInt("WS_MESSAGE_BURST", 30),

		// Security
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		TokenExpiryHours: getEnvInt("TOKEN_EXPIRY_HOURS", 24),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
