package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// LLM credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Models
	ClassifierModel    string
	ExtractionModel    string
	ExtractionMaxTurns int
	Temperature        float64

	// Storage / server
	DBPath   string
	HTTPPort int
	DevMode  bool

	// Scheduling
	PulseIntervalSeconds int
	DefaultTimezone      string

	// Billing - Google Play
	GooglePlayPackageName    string
	GoogleServiceAccountFile string

	// Billing - App Store
	AppStoreKeyID          string
	AppStoreIssuerID       string
	AppStoreBundleID       string
	AppStorePrivateKeyFile string

	// Email notifications
	ResendAPIKey      string
	ResendFromAddress string
}

func LoadFromEnv() *Config {
	return &Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		ClassifierModel:    getEnvOrDefault("EFFORTLESS_CLASSIFIER_MODEL", "gpt-4o-mini"),
		ExtractionModel:    getEnvOrDefault("EFFORTLESS_EXTRACTION_MODEL", "claude-sonnet-4-20250514"),
		ExtractionMaxTurns: getEnvAsIntOrDefault("EFFORTLESS_EXTRACTION_MAX_TURNS", 5),
		Temperature:        getEnvAsFloatOrDefault("EFFORTLESS_TEMPERATURE", 0.1),

		DBPath:   getEnvOrDefault("EFFORTLESS_DB_PATH", "./effortless.db"),
		HTTPPort: getEnvAsIntOrDefault("EFFORTLESS_HTTP_PORT", 8080),
		DevMode:  getEnvAsBoolOrDefault("EFFORTLESS_DEV_MODE", false),

		PulseIntervalSeconds: getEnvAsIntOrDefault("EFFORTLESS_PULSE_INTERVAL_SECONDS", 60),
		DefaultTimezone:      getEnvOrDefault("EFFORTLESS_DEFAULT_TIMEZONE", "Europe/Berlin"),

		GooglePlayPackageName:    os.Getenv("GOOGLE_PLAY_PACKAGE_NAME"),
		GoogleServiceAccountFile: getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "./service-account.json"),

		AppStoreKeyID:          os.Getenv("APPSTORE_KEY_ID"),
		AppStoreIssuerID:       os.Getenv("APPSTORE_ISSUER_ID"),
		AppStoreBundleID:       os.Getenv("APPSTORE_BUNDLE_ID"),
		AppStorePrivateKeyFile: getEnvOrDefault("APPSTORE_PRIVATE_KEY_FILE", "./appstore-key.p8"),

		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		ResendFromAddress: getEnvOrDefault("RESEND_FROM_ADDRESS", "Effortless <notify@effortless.app>"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
