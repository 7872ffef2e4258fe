package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// WhatsApp provider credentials. Whichever set is present decides
	// which outbound sender gets built.
	WhatsAppProvider  string
	ZAPIBaseURL       string
	ZAPIInstanceID    string
	ZAPIToken         string
	EvolutionBaseURL  string
	EvolutionAPIKey   string
	EvolutionInstance string

	// AI assistant
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AssistantName   string
	AnalysisTimeout time.Duration

	// Admin escalation email
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AdminAlertEmail   string

	// Webhook idempotency window for provider redeliveries.
	DedupTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		WhatsAppProvider:  strings.ToLower(strings.TrimSpace(getEnv("WHATSAPP_PROVIDER", "auto"))),
		ZAPIBaseURL:       getEnv("ZAPI_BASE_URL", "https://api.z-api.io"),
		ZAPIInstanceID:    getEnv("ZAPI_INSTANCE_ID", ""),
		ZAPIToken:         getEnv("ZAPI_TOKEN", ""),
		EvolutionBaseURL:  getEnv("EVOLUTION_BASE_URL", ""),
		EvolutionAPIKey:   getEnv("EVOLUTION_API_KEY", ""),
		EvolutionInstance: getEnv("EVOLUTION_INSTANCE", ""),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AssistantName:   getEnv("ASSISTANT_NAME", "Consultora Bone Heal"),
		AnalysisTimeout: getEnvAsDuration("ANALYSIS_TIMEOUT", 8*time.Second),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Bone Heal CRM"),
		AdminAlertEmail:   getEnv("ADMIN_ALERT_EMAIL", ""),

		DedupTTL: getEnvAsDuration("WEBHOOK_DEDUP_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
