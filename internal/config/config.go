// Package config provides centralized configuration management for the
// Aurora core. Configuration is loaded from environment variables with
// sensible defaults. Required configuration that is missing causes the
// application to fail fast with a helpful error message.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Transport
	ListenAddress string

	// Document store (external, schema-less record store)
	MongoURI      string
	MongoDatabase string

	// Shared KV / pub-sub store
	RedisURI string

	// Auth
	JWTSecret     string
	OIDCIssuerURL string
	OIDCClientID  string

	// Space limits
	MaxSpaceCount int

	// RPC transport tuning
	HeartbeatTimeout  time.Duration
	MediaTokenTimeout time.Duration
	OutboundQueueSize int
	SlowClientTimeout time.Duration

	// Connection-accept rate limiting (per source IP)
	ConnectRatePerSec float64
	ConnectRateBurst  int

	// Optional media-node fleet cross-check (ops enrichment only)
	K8sMediaNodeNamespace string
	K8sMediaNodeSelector  string

	// Optional cold-storage mirror of call history
	CallArchiveS3Bucket string
}

// Default values.
const (
	DefaultListenAddress     = "0.0.0.0:9000"
	DefaultMaxSpaceCount     = 200
	DefaultHeartbeatTimeout  = 20 * time.Second
	DefaultMediaTokenTimeout = 10 * time.Second
	DefaultOutboundQueueSize = 256
	DefaultSlowClientTimeout = 2 * time.Second
	DefaultConnectRatePerSec = 5
	DefaultConnectRateBurst  = 20
	DefaultK8sMediaSelector  = "app=media-node"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors holds multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddress:        DefaultListenAddress,
		MaxSpaceCount:        DefaultMaxSpaceCount,
		HeartbeatTimeout:     DefaultHeartbeatTimeout,
		MediaTokenTimeout:    DefaultMediaTokenTimeout,
		OutboundQueueSize:    DefaultOutboundQueueSize,
		SlowClientTimeout:    DefaultSlowClientTimeout,
		ConnectRatePerSec:    DefaultConnectRatePerSec,
		ConnectRateBurst:     DefaultConnectRateBurst,
		K8sMediaNodeSelector: DefaultK8sMediaSelector,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	var parseErrors ValidationErrors

	if v := os.Getenv("LISTEN_ADDRESS"); v != "" {
		c.ListenAddress = v
	}

	c.MongoURI = os.Getenv("MONGODB_URI")
	c.MongoDatabase = os.Getenv("MONGODB_DATABASE")
	c.JWTSecret = os.Getenv("JWT_SECRET")
	c.RedisURI = os.Getenv("REDIS_URI")

	c.OIDCIssuerURL = os.Getenv("OIDC_ISSUER_URL")
	c.OIDCClientID = os.Getenv("OIDC_CLIENT_ID")
	c.K8sMediaNodeNamespace = os.Getenv("K8S_MEDIA_NODE_NAMESPACE")
	if v := os.Getenv("K8S_MEDIA_NODE_SELECTOR"); v != "" {
		c.K8sMediaNodeSelector = v
	}
	c.CallArchiveS3Bucket = os.Getenv("CALL_ARCHIVE_S3_BUCKET")

	if v := os.Getenv("MAX_SPACE_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrors = append(parseErrors, ValidationError{
				Field:   "MAX_SPACE_COUNT",
				Message: fmt.Sprintf("invalid integer: %q", v),
			})
		} else {
			c.MaxSpaceCount = n
		}
	}

	if d, err := envMillis("HEARTBEAT_TIMEOUT_MS", &parseErrors); err == nil && d > 0 {
		c.HeartbeatTimeout = d
	}
	if d, err := envMillis("MEDIA_TOKEN_TIMEOUT_MS", &parseErrors); err == nil && d > 0 {
		c.MediaTokenTimeout = d
	}
	if d, err := envMillis("SLOW_CLIENT_TIMEOUT_MS", &parseErrors); err == nil && d > 0 {
		c.SlowClientTimeout = d
	}

	if v := os.Getenv("OUTBOUND_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			parseErrors = append(parseErrors, ValidationError{
				Field:   "OUTBOUND_QUEUE_SIZE",
				Message: fmt.Sprintf("must be a positive integer, got %q", v),
			})
		} else {
			c.OutboundQueueSize = n
		}
	}

	if v := os.Getenv("CONNECT_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			parseErrors = append(parseErrors, ValidationError{
				Field:   "CONNECT_RATE_PER_SEC",
				Message: fmt.Sprintf("must be a positive number, got %q", v),
			})
		} else {
			c.ConnectRatePerSec = f
		}
	}

	if v := os.Getenv("CONNECT_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			parseErrors = append(parseErrors, ValidationError{
				Field:   "CONNECT_RATE_BURST",
				Message: fmt.Sprintf("must be a positive integer, got %q", v),
			})
		} else {
			c.ConnectRateBurst = n
		}
	}

	if len(parseErrors) > 0 {
		return parseErrors
	}
	return nil
}

func envMillis(name string, errs *ValidationErrors) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		*errs = append(*errs, ValidationError{
			Field:   name,
			Message: fmt.Sprintf("must be a positive integer number of milliseconds, got %q", v),
		})
		return 0, fmt.Errorf("invalid %s", name)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.MongoURI == "" {
		errs = append(errs, ValidationError{Field: "MONGODB_URI", Message: "is required"})
	}
	if c.MongoDatabase == "" {
		errs = append(errs, ValidationError{Field: "MONGODB_DATABASE", Message: "is required"})
	}
	if c.JWTSecret == "" {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "is required"})
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "must be at least 32 characters"})
	}
	if c.RedisURI == "" {
		errs = append(errs, ValidationError{Field: "REDIS_URI", Message: "is required"})
	}
	if c.MaxSpaceCount <= 0 {
		errs = append(errs, ValidationError{
			Field:   "MAX_SPACE_COUNT",
			Message: fmt.Sprintf("must be positive, got %d", c.MaxSpaceCount),
		})
	}
	if (c.OIDCIssuerURL == "") != (c.OIDCClientID == "") {
		errs = append(errs, ValidationError{
			Field:   "OIDC_ISSUER_URL",
			Message: "OIDC_ISSUER_URL and OIDC_CLIENT_ID must be set together",
		})
	}

	return errs
}

// MustLoad loads configuration and exits the process if it fails.
// Use this at application startup, where configuration errors are fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: failed to load configuration\n\n%s\n", err)
		os.Exit(1)
	}
	return cfg
}
