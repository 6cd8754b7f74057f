package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	accessSecretEnvVar  = "ACCESS_TOKEN_SECRET"
	refreshSecretEnvVar = "REFRESH_TOKEN_SECRET"
	accessExpiryEnvVar  = "ACCESS_TOKEN_EXPIRY_MINUTES"
	refreshExpiryEnvVar = "REFRESH_TOKEN_EXPIRY_HOURS"
	issuerEnvVar        = "TOKEN_ISSUER"
)

type TokenConfig interface {
	GetAccessTokenSecret() string
	GetRefreshTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetTokenIssuer() string
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetAccessTokenSecret() string {
	return GetEnv(accessSecretEnvVar, "")
}

func (Token) GetRefreshTokenSecret() string {
	return GetEnv(refreshSecretEnvVar, "")
}

func (Token) GetAccessTokenExpiry() time.Duration {
	return durationFromEnv(accessExpiryEnvVar, time.Minute, 15*time.Minute)
}

func (Token) GetRefreshTokenExpiry() time.Duration {
	return durationFromEnv(refreshExpiryEnvVar, time.Hour, 168*time.Hour)
}

func (Token) GetTokenIssuer() string {
	return GetEnv(issuerEnvVar, "go-access-server")
}

// ValidateTokenSecrets fails fast at startup if the two signing secrets are
// missing or identical. Class separation relies on the secrets being disjoint.
func ValidateTokenSecrets(cfg TokenConfig) error {
	access := cfg.GetAccessTokenSecret()
	refresh := cfg.GetRefreshTokenSecret()
	if access == "" {
		return fmt.Errorf("%s is not set", accessSecretEnvVar)
	}
	if refresh == "" {
		return fmt.Errorf("%s is not set", refreshSecretEnvVar)
	}
	if access == refresh {
		return fmt.Errorf("%s and %s must differ", accessSecretEnvVar, refreshSecretEnvVar)
	}
	return nil
}

func durationFromEnv(envVar string, unit, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return time.Duration(n) * unit
}
