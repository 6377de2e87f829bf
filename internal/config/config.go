package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Twilio credentials and sending addresses
	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioSMSFrom             string
	TwilioWhatsAppFrom        string
	TwilioMessagingServiceSID string
	TwilioContentSID          string

	// Outreach message composition
	BookingURL            string
	BusinessForwardNumber string

	// Shared secret for internal webhook-to-webhook calls
	InternalWebhookSecret string

	// Webhook rate limiting (requests/sec per IP and burst)
	WebhookRate  float64
	WebhookBurst int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		TwilioAccountSID:          getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:           getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioSMSFrom:             getEnv("TWILIO_SMS_FROM", ""),
		TwilioWhatsAppFrom:        getEnv("TWILIO_WHATSAPP_FROM", ""),
		TwilioMessagingServiceSID: getEnv("TWILIO_MESSAGING_SERVICE_SID", ""),
		TwilioContentSID:          getEnv("TWILIO_CONTENT_SID", ""),

		BookingURL:            getEnv("BOOKING_URL", ""),
		BusinessForwardNumber: getEnv("BUSINESS_FORWARD_NUMBER", ""),

		InternalWebhookSecret: getEnv("INTERNAL_WEBHOOK_SECRET", ""),

		WebhookRate:  getEnvAsFloat("WEBHOOK_RATE", 10),
		WebhookBurst: getEnvAsInt("WEBHOOK_BURST", 30),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
