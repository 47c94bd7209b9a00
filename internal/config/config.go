package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDSN          string
	JWTSecret      string
	WSAuthRequired bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration

	// AI provider (translation)
	AIProvider        string
	OllamaBaseURL     string
	OllamaModel       string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
	DefaultLanguage   string

	// rabbitMQ (lifecycle events); empty URL disables publishing
	RabbitURL        string
	RabbitExchange   string
	RabbitQueue      string // archive worker queue
	RabbitRetryDelay time.Duration
	RabbitMaxRetries int

	// realtime
	MsgRatePerSec  float64
	MsgBurst       int
	WSSendBuffer   int
	WSPingInterval time.Duration
}

// Load reads the process environment. Malformed values fall back to defaults.
func Load() Config {
	exchange := envString("RABBIT_EXCHANGE", "chat_events")

	return Config{
		HTTPAddr: envString("HTTP_ADDR", ":8080"),

		// mysql: app:apppass@tcp(127.0.0.1:3306)/lingochat?charset=utf8mb4&parseTime=true&loc=Local
		DBDSN:          envString("DB_DSN", "file:lingochat.db?_pragma=busy_timeout(5000)"),
		JWTSecret:      envString("JWT_SECRET", "dev-secret-change-me"),
		WSAuthRequired: envBool("WS_AUTH_REQUIRED"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0, 0),
		ProfileCacheTTL: envDuration("PROFILE_CACHE_TTL", 10*time.Minute),

		AIProvider:        envString("AI_PROVIDER", "ollama"),
		OllamaBaseURL:     envString("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       envString("OLLAMA_MODEL", "llama3:latest"),
		OpenRouterBaseURL: envString("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   envString("OPENROUTER_MODEL", "openrouter/auto"),
		OpenRouterSiteURL: os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName: os.Getenv("OPENROUTER_APP_NAME"),
		DefaultLanguage:   envString("DEFAULT_LANGUAGE", "en"),

		RabbitURL:        os.Getenv("RABBIT_URL"),
		RabbitExchange:   exchange,
		RabbitQueue:      envString("RABBIT_QUEUE", exchange+".archive"),
		RabbitRetryDelay: envDuration("RABBIT_RETRY_DELAY", 5*time.Second),
		RabbitMaxRetries: envInt("RABBIT_MAX_RETRIES", 3, 0),

		MsgRatePerSec:  envFloat("MSG_RATE_PER_SEC", 5),
		MsgBurst:       envInt("MSG_BURST", 10, 0),
		WSSendBuffer:   envInt("WS_SEND_BUFFER", 64, 1),
		WSPingInterval: envDuration("WS_PING_INTERVAL", 30*time.Second),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns def when the value is missing, malformed or below min.
func envInt(key string, def, min int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n < min {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
