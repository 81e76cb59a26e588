// Package config provides gateway configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds gateway configuration.
type Config struct {
	// HTTP listener and URL layout. BaseURL is the leading path segment of
	// every route (e.g. "api" yields /api/v1/services).
	HTTPAddr string `envconfig:"GATEWAY_HTTP_ADDR" default:"0.0.0.0:8080"`
	BaseURL  string `envconfig:"GATEWAY_BASE_URL" default:"api"`

	// Service definitions file (empty = try config/services.json then services.json)
	ServicesFile string `envconfig:"GATEWAY_SERVICES_FILE"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"GATEWAY_REQUEST_TIMEOUT" default:"25s"`
	HandlerTimeout time.Duration `envconfig:"GATEWAY_HANDLER_TIMEOUT" default:"20s"`

	// Auth. Mode "static" uses AUTH_STATIC_TOKENS ("token:subject,...");
	// mode "jwt" verifies bearer tokens against AUTH_JWT_SECRET.
	AuthMode           string `envconfig:"AUTH_MODE" default:"static"`
	AuthJWTSecret      string `envconfig:"AUTH_JWT_SECRET"`
	AuthJWTIssuer      string `envconfig:"AUTH_JWT_ISSUER"`
	AuthStaticTokens   string `envconfig:"AUTH_STATIC_TOKENS"`
	AuthVerboseDenials bool   `envconfig:"AUTH_VERBOSE_DENIALS" default:"false"`

	// Validation
	CoerceTypes bool `envconfig:"VALIDATION_COERCE_TYPES" default:"false"`

	// COMMS: connect to standalone NATS at COMMSURL (empty = events disabled).
	COMMSURL             string `envconfig:"COMMS_URL"`
	COMMSName            string `envconfig:"SERVICE_NAME" default:"restrpc-gateway"`
	DispatchEventSubject string `envconfig:"DISPATCH_EVENT_SUBJECT"`

	// Database (empty = idempotent replay kept in memory)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the gateway server.
func (c *Config) ValidateForServe() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%s - GATEWAY_BASE_URL must not be empty", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_HANDLER_TIMEOUT must be positive", logPrefix)
	}
	switch c.AuthMode {
	case "static":
	case "jwt":
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("%s - AUTH_JWT_SECRET is required when AUTH_MODE=jwt", logPrefix)
		}
	default:
		return fmt.Errorf("%s - AUTH_MODE must be %q or %q, got %q", logPrefix, "static", "jwt", c.AuthMode)
	}
	return nil
}
