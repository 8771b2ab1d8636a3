package env

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppEnv           = "APP_ENV"
	Port             = "PORT"
	APIPort          = "API_PORT"
	AllowedOrigin    = "ALLOWED_ORIGIN"
	RedisURL         = "REDIS_URL"
	RedisPass        = "REDIS_PASS"
	RelayInstanceID  = "RELAY_INSTANCE_ID"
	RelaySendBuffer  = "RELAY_SEND_BUFFER"
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	UserSecretKey    = "USER_SECRET"
	LogBackend       = "LOG_BACKEND"
	LogLevel         = "LOG_LEVEL"
)

const DefaultAllowedOrigin = "http://localhost:3000"

// Load reads a .env file from the working directory when one exists.
// Variables already present in the process environment win.
func Load() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// Require fails with the first missing key.
func Require(keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			return fmt.Errorf("env: required environment variable not set: %s", key)
		}
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}

func GetDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(AppEnv))) {
	case "prod", "production":
		return true
	}
	return false
}
