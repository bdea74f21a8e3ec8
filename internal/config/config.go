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
	Version       string
	PublicBaseURL string

	// Voice provider (Twilio)
	VoiceProvider    string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Outbound call placement timeout
	CallTimeout time.Duration

	// Storage (DynamoDB)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	LeadsTable          string
	CallEventsTable     string

	// Ops alerts
	AlertsEnabled   bool
	AlertsFromEmail string
	AlertsToEmail   string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Version:       getEnv("APP_VERSION", "1.0.0"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		VoiceProvider:    strings.ToLower(strings.TrimSpace(getEnv("VOICE_PROVIDER", "twilio"))),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		CallTimeout: getEnvAsDuration("CALL_TIMEOUT", 15*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		LeadsTable:          getEnv("LEADS_TABLE", "leads"),
		CallEventsTable:     getEnv("CALL_EVENTS_TABLE", "call_events"),

		AlertsEnabled:   getEnvAsBool("ALERTS_ENABLED", false),
		AlertsFromEmail: getEnv("ALERTS_FROM_EMAIL", ""),
		AlertsToEmail:   getEnv("ALERTS_TO_EMAIL", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// WatcherConfig holds the watcher agent's configuration.
type WatcherConfig struct {
	Env      string
	LogLevel string
	Enabled  bool

	// SourceURL is the marketplace endpoint polled for new leads.
	SourceURL string
	// BackendURL is the relay backend base URL leads are forwarded to.
	BackendURL   string
	PollInterval time.Duration
	HTTPTimeout  time.Duration

	// TradiePhone and the DND hours are stamped onto forwarded leads that
	// do not carry their own.
	TradiePhone  string
	DNDStartHour *int
	DNDEndHour   *int

	RedisAddr     string
	RedisPassword string
}

// LoadWatcher reads watcher configuration from environment variables
func LoadWatcher() *WatcherConfig {
	return &WatcherConfig{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Enabled:  getEnvAsBool("WATCHER_ENABLED", true),

		SourceURL:    getEnv("WATCHER_SOURCE_URL", ""),
		BackendURL:   getEnv("WATCHER_BACKEND_URL", "http://localhost:8080"),
		PollInterval: getEnvAsDuration("WATCHER_POLL_INTERVAL", time.Minute),
		HTTPTimeout:  getEnvAsDuration("WATCHER_HTTP_TIMEOUT", 10*time.Second),

		TradiePhone:  getEnv("WATCHER_TRADIE_PHONE", ""),
		DNDStartHour: getEnvAsIntPtr("WATCHER_DND_START_HOUR"),
		DNDEndHour:   getEnvAsIntPtr("WATCHER_DND_END_HOUR"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

// getEnvAsIntPtr retrieves an optional integer environment variable
func getEnvAsIntPtr(key string) *int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return nil
	}
	return &value
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
