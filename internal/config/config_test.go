package config

import (
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDRESS", "MONGODB_URI", "MONGODB_DATABASE", "JWT_SECRET", "REDIS_URI",
		"MAX_SPACE_COUNT", "HEARTBEAT_TIMEOUT_MS", "MEDIA_TOKEN_TIMEOUT_MS",
		"OUTBOUND_QUEUE_SIZE", "CONNECT_RATE_PER_SEC", "CONNECT_RATE_BURST",
		"OIDC_ISSUER_URL", "OIDC_CLIENT_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when required env vars are unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "aurora")
	t.Setenv("JWT_SECRET", "0123456789012345678901234567890123")
	t.Setenv("REDIS_URI", "redis://localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.ListenAddress, DefaultListenAddress)
	}
	if cfg.MaxSpaceCount != DefaultMaxSpaceCount {
		t.Errorf("MaxSpaceCount = %d, want %d", cfg.MaxSpaceCount, DefaultMaxSpaceCount)
	}
	if cfg.HeartbeatTimeout != DefaultHeartbeatTimeout {
		t.Errorf("HeartbeatTimeout = %v, want %v", cfg.HeartbeatTimeout, DefaultHeartbeatTimeout)
	}
}

func TestLoad_OIDCPairRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "aurora")
	t.Setenv("JWT_SECRET", "0123456789012345678901234567890123")
	t.Setenv("REDIS_URI", "redis://localhost:6379")
	t.Setenv("OIDC_ISSUER_URL", "https://issuer.example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when OIDC_ISSUER_URL is set without OIDC_CLIENT_ID")
	}
}

func TestLoad_ShortJWTSecretRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "aurora")
	t.Setenv("JWT_SECRET", "too-short")
	t.Setenv("REDIS_URI", "redis://localhost:6379")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject a JWT_SECRET shorter than 32 characters")
	}
}
