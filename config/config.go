// Package config loads settings from environment variables. A .env file in
// the working directory is read first when present; variables already set
// in the environment win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the API server configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Messages  MessagesConfig
	RateLimit RateLimitConfig
	Directory DirectoryConfig
	LogLevel  string
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string // empty means no CORS headers
}

type DatabaseConfig struct {
	Path string // SQLite file, or ":memory:"
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type MessagesConfig struct {
	PageSize int
}

// RateLimitConfig throttles sends: at most Max messages per Window, then a
// Cooldown.
type RateLimitConfig struct {
	Max      int
	Window   time.Duration
	Cooldown time.Duration
}

type DirectoryConfig struct {
	CacheTTL time.Duration
}

// Load reads the server configuration. JWT_SECRET is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}
	accessExpiry, err := getInt("JWT_ACCESS_EXPIRY_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	pageSize, err := getInt("MESSAGES_PAGE_SIZE", 30)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 || pageSize > 200 {
		return nil, fmt.Errorf("MESSAGES_PAGE_SIZE must be between 1 and 200, got %d", pageSize)
	}
	rateMax, err := getInt("MESSAGE_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getInt("MESSAGE_RATE_WINDOW_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	rateCooldown, err := getInt("MESSAGE_RATE_COOLDOWN_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getInt("DIRECTORY_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/shopchat.db"),
		},
		JWT: JWTConfig{
			Secret:            jwtSecret,
			AccessTokenExpiry: time.Duration(accessExpiry) * time.Minute,
		},
		Messages: MessagesConfig{
			PageSize: pageSize,
		},
		RateLimit: RateLimitConfig{
			Max:      rateMax,
			Window:   time.Duration(rateWindow) * time.Second,
			Cooldown: time.Duration(rateCooldown) * time.Second,
		},
		Directory: DirectoryConfig{
			CacheTTL: time.Duration(cacheTTL) * time.Second,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Addr returns host:port for http.Server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL         string
	Token          string
	ConversationID string
	Timeout        time.Duration
	DirectoryTTL   time.Duration
	LogFile        string
	LogLevel       string
}

// LoadClient reads the terminal client configuration. SHOPCHAT_TOKEN is
// required; the conversation may also be picked on the command line.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	timeout, err := getInt("SHOPCHAT_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	directoryTTL, err := getInt("SHOPCHAT_DIRECTORY_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	token := getEnv("SHOPCHAT_TOKEN", "")
	if token == "" {
		return nil, fmt.Errorf("SHOPCHAT_TOKEN environment variable is required")
	}

	return &ClientConfig{
		APIURL:         getEnv("SHOPCHAT_API_URL", "http://localhost:9090"),
		Token:          token,
		ConversationID: getEnv("SHOPCHAT_CONVERSATION", ""),
		Timeout:        time.Duration(timeout) * time.Second,
		DirectoryTTL:   time.Duration(directoryTTL) * time.Second,
		LogFile:        getEnv("SHOPCHAT_LOG_FILE", "shopchat-tui.log"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
