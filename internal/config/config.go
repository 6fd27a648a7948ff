package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// RedditClientID, RedditClientSecret and RedditUserAgent identify the
	// Reddit application used for application-only OAuth.
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string

	// RedditAuthURL hosts the token endpoint; RedditAPIURL serves listings.
	RedditAuthURL string
	RedditAPIURL  string

	// RequestsPerMinute paces outgoing Reddit requests.
	RequestsPerMinute int

	// MaxAttempts bounds how often a rate-limited collection is issued.
	MaxAttempts int

	// DatabasePath is the SQLite run archive. Empty disables the archive.
	DatabasePath string

	// RunRetention is how long archived runs are kept.
	RunRetention time.Duration

	// SentimentCacheSize is the number of scored texts kept in memory.
	SentimentCacheSize int

	// SentimentModelURL is the inference endpoint of the transformer
	// classifier. Empty disables transformer labels.
	SentimentModelURL   string
	SentimentModel      string
	SentimentModelToken string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; it never
// overrides variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := intFromEnv("PORT", 3000)
	if err != nil {
		return nil, err
	}

	clientID := os.Getenv("REDDIT_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("REDDIT_CLIENT_ID is required")
	}
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("REDDIT_CLIENT_SECRET is required")
	}
	userAgent := os.Getenv("REDDIT_USER_AGENT")
	if userAgent == "" {
		return nil, fmt.Errorf("REDDIT_USER_AGENT is required")
	}

	rpm, err := intFromEnv("REDDIT_REQUESTS_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}
	if rpm < 1 {
		return nil, fmt.Errorf("REDDIT_REQUESTS_PER_MINUTE must be positive")
	}

	maxAttempts, err := intFromEnv("COLLECT_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("COLLECT_MAX_ATTEMPTS must be at least 1")
	}

	retention := 7 * 24 * time.Hour
	if v := os.Getenv("RUN_RETENTION"); v != "" {
		retention, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_RETENTION: %w", err)
		}
	}

	cacheSize, err := intFromEnv("SENTIMENT_CACHE_SIZE", 4096)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                port,
		RedditClientID:      clientID,
		RedditClientSecret:  clientSecret,
		RedditUserAgent:     userAgent,
		RedditAuthURL:       envOrDefault("REDDIT_AUTH_URL", "https://www.reddit.com"),
		RedditAPIURL:        envOrDefault("REDDIT_API_URL", "https://oauth.reddit.com"),
		RequestsPerMinute:   rpm,
		MaxAttempts:         maxAttempts,
		DatabasePath:        os.Getenv("DATABASE_PATH"),
		RunRetention:        retention,
		SentimentCacheSize:  cacheSize,
		SentimentModelURL:   os.Getenv("SENTIMENT_MODEL_URL"),
		SentimentModel:      envOrDefault("SENTIMENT_MODEL", "distilbert-base-uncased-finetuned-sst-2-english"),
		SentimentModelToken: os.Getenv("SENTIMENT_MODEL_TOKEN"),
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
