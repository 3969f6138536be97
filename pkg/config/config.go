package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Which remote backend to use: official requires OAuth tokens,
	// rettiwt requires the sidecar service.
	TwitterOfficial     bool
	TwitterClientID     string
	TwitterClientSecret string
	TwitterAccessToken  string
	TwitterRefreshToken string

	RettiwtServiceURL string
	RettiwtUsername   string
	RettiwtCookies    string

	PostsTTL       time.Duration
	ConnectionsTTL time.Duration
	ArchiveDir     string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	postsTTL := 15 * time.Minute
	if ttl := os.Getenv("POSTS_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			postsTTL = parsed
		}
	}

	connectionsTTL := 60 * time.Minute
	if ttl := os.Getenv("CONNECTIONS_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			connectionsTTL = parsed
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		TwitterOfficial:     getEnv("TWITTER_OFFICIAL", "false") == "true",
		TwitterClientID:     getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		TwitterAccessToken:  getEnv("TWITTER_ACCESS_TOKEN", ""),
		TwitterRefreshToken: getEnv("TWITTER_REFRESH_TOKEN", ""),

		RettiwtServiceURL: getEnv("RETTIWT_SERVICE_URL", "http://localhost:3001"),
		RettiwtUsername:   getEnv("RETTIWT_USERNAME", ""),
		RettiwtCookies:    getEnv("RETTIWT_COOKIES", ""),

		PostsTTL:       postsTTL,
		ConnectionsTTL: connectionsTTL,
		ArchiveDir:     getEnv("ARCHIVE_DIR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
