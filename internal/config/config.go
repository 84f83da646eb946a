// Package config provides configuration loading and management for the
// route analyzer service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/swap-route-analyzer/internal/engine"
	"github.com/yourorg/swap-route-analyzer/internal/risk"
	"github.com/yourorg/swap-route-analyzer/internal/scoring"
)

// ConfigurationError reports malformed static configuration. It is fatal at
// startup, never per request.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Config holds all service configuration.
type Config struct {
	// HTTP server port
	Port string

	// Default weight profile applied when a request names none
	DefaultProfile string

	// External quote service endpoint and demo-mode switch
	QuoteURL string
	DemoMode bool

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Request handling
	RequestTimeout time.Duration

	// Quote guard thresholds for the quote-analyze path
	GuardMaxImpactPct   float64
	GuardMinCandidates  int
	GuardMaxOutputSwing float64
	GuardResetDelay     time.Duration

	// Rate limiting applied to the analysis endpoints
	RateLimitRPS   float64
	RateLimitBurst int

	// Optional response signing
	SigningEnabled    bool
	SignatureValidity time.Duration

	// Optional webhook export of analysis summaries
	ExportEnabled       bool
	ExportBatchSize     int
	ExportInterval      string
	ExportWebhookURL    string
	ExportWebhookAPIKey string

	// Engine configuration assembled from the tables below
	Engine engine.Options
}

// Load creates a Config from environment variables. Table-valued settings
// (reputation, thresholds) accept JSON blobs; anything malformed is a
// ConfigurationError, not a silent default.
func Load() (Config, error) {
	cfg := Config{
		Port:           GetEnvOrDefault("PORT", "8080"),
		DefaultProfile: strings.ToLower(GetEnvOrDefault("DEFAULT_PROFILE", scoring.ProfileBalanced)),
		QuoteURL:       GetEnvOrDefault("QUOTE_URL", "https://quote-api.jup.ag/v6"),
		DemoMode:       GetEnvAsBool("DEMO_MODE", false),
		OtelEndpoint:   GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout: GetEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),

		GuardMaxImpactPct:   GetEnvAsFloat("GUARD_MAX_IMPACT", 15.0),
		GuardMinCandidates:  GetEnvAsInt("GUARD_MIN_CANDIDATES", 1),
		GuardMaxOutputSwing: GetEnvAsFloat("GUARD_MAX_OUTPUT_SWING", 0.5),
		GuardResetDelay:     GetEnvAsDuration("GUARD_RESET_DELAY", 2*time.Minute),

		RateLimitRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: GetEnvAsInt("RATE_LIMIT_BURST", 20),

		SigningEnabled:    GetEnvAsBool("RESPONSE_SIGNING_ENABLED", false),
		SignatureValidity: GetEnvAsDuration("SIGNATURE_VALIDITY", 5*time.Minute),

		ExportEnabled:       GetEnvAsBool("EXPORT_ENABLED", false),
		ExportBatchSize:     GetEnvAsInt("EXPORT_BATCH_SIZE", 50),
		ExportInterval:      GetEnvOrDefault("EXPORT_INTERVAL", "1m"),
		ExportWebhookURL:    GetEnvOrDefault("EXPORT_WEBHOOK_URL", ""),
		ExportWebhookAPIKey: GetEnvOrDefault("EXPORT_WEBHOOK_API_KEY", ""),
	}

	opts := engine.DefaultOptions()
	opts.DefaultProfile = cfg.DefaultProfile

	if raw := os.Getenv("REPUTATION_TABLE"); raw != "" {
		table := map[string]float64{}
		if err := json.Unmarshal([]byte(raw), &table); err != nil {
			return Config{}, &ConfigurationError{Field: "REPUTATION_TABLE", Err: err}
		}
		// Overrides merge into the built-in seed rather than replacing it.
		for name, score := range table {
			opts.Extraction.ReputationTable[strings.ToLower(name)] = score
		}
	}

	opts.Extraction.NeutralReliability = GetEnvAsFloat("NEUTRAL_RELIABILITY", opts.Extraction.NeutralReliability)
	opts.Extraction.NeutralLiquidity = GetEnvAsFloat("NEUTRAL_LIQUIDITY", opts.Extraction.NeutralLiquidity)
	opts.Extraction.GasConversionRate = GetEnvAsFloat("GAS_CONVERSION_RATE", opts.Extraction.GasConversionRate)
	opts.Extraction.DepthSaturation = GetEnvAsFloat("DEPTH_SATURATION", opts.Extraction.DepthSaturation)

	opts.Thresholds = risk.Thresholds{
		LowMaxImpactPct:    GetEnvAsFloat("RISK_LOW_MAX_IMPACT", opts.Thresholds.LowMaxImpactPct),
		LowMaxHops:         GetEnvAsInt("RISK_LOW_MAX_HOPS", opts.Thresholds.LowMaxHops),
		LowMinReliability:  GetEnvAsFloat("RISK_LOW_MIN_RELIABILITY", opts.Thresholds.LowMinReliability),
		HighMinImpactPct:   GetEnvAsFloat("RISK_HIGH_MIN_IMPACT", opts.Thresholds.HighMinImpactPct),
		HighMinHops:        GetEnvAsInt("RISK_HIGH_MIN_HOPS", opts.Thresholds.HighMinHops),
		HighMaxReliability: GetEnvAsFloat("RISK_HIGH_MAX_RELIABILITY", opts.Thresholds.HighMaxReliability),
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return Config{}, &ConfigurationError{Field: "risk thresholds", Err: err}
	}

	if _, ok := opts.Profiles[cfg.DefaultProfile]; !ok {
		return Config{}, &ConfigurationError{
			Field: "DEFAULT_PROFILE",
			Err:   fmt.Errorf("unknown profile %q", cfg.DefaultProfile),
		}
	}

	cfg.Engine = opts
	return cfg, nil
}

// GetEnv retrieves an environment variable and whether it exists.
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default
// value if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value.
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value.
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value.
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
