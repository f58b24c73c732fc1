// Package config defines the global configuration structure for the PayGate
// service. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value (the Stripe secret key) aborts startup. Per-feature
// secrets — the webhook signing secret, the publishable key, the price
// identifiers — are allowed to be absent at startup and fail lazily at the
// dependent route with a configuration error.
package config

import (
	"time"

	"paygate/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for PayGate. It is populated
// once during process initialization and never modified. Components receive
// only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"paygate"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Stripe   StripeConfig
	Security SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// StripeConfig holds Stripe credentials, price mappings, and per-call
// resilience tuning.
//
// PriceIDs maps each enumerated price key to its Stripe price identifier and
// is supplied as envconfig map syntax, e.g.
//
//	STRIPE_PRICE_IDS="5:price_aaa,9:price_bbb,13:price_ccc,17.67:price_ddd"
type StripeConfig struct {
	SecretKey      SecretString `envconfig:"STRIPE_SECRET_KEY" validate:"required"`
	PublishableKey string       `envconfig:"STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  SecretString `envconfig:"STRIPE_WEBHOOK_SECRET"`

	PriceIDs            map[string]string `envconfig:"STRIPE_PRICE_IDS"`
	SubscriptionPriceID string            `envconfig:"STRIPE_SUBSCRIPTION_PRICE_ID"`

	// TrialDays is the trial period granted on new subscriptions before the
	// first charge. Zero disables the trial.
	TrialDays int `envconfig:"SUBSCRIPTION_TRIAL_DAYS" default:"7"`

	// SetupFutureUsageOffSession sets setup_future_usage=off_session on
	// payment intents, permitting later off-session charges with the same
	// payment method.
	SetupFutureUsageOffSession bool `envconfig:"SETUP_FUTURE_USAGE_OFF_SESSION" default:"false"`

	// Timeout is the upper bound applied to every outbound Stripe call.
	Timeout time.Duration `envconfig:"STRIPE_TIMEOUT" default:"20s"`
}

// SecurityConfig holds CORS settings for the storefront origin.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
