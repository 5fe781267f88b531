package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	AdminKey     string
	AdminKeyHash string // optional bcrypt hash; takes precedence over AdminKey
	JWTSecret    string
	JWTIssuer    string
	JWTDuration  time.Duration
}

func LoadAuthConfig() AuthConfig {
	key := os.Getenv("BOOKREC_ADMIN_KEY")
	if key == "" {
		// dev default (change for demo / production)
		key = "sri2026books"
	}

	secret := os.Getenv("BOOKREC_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("BOOKREC_JWT_ISSUER")
	if issuer == "" {
		issuer = "bookrec"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("BOOKREC_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		AdminKey:     key,
		AdminKeyHash: os.Getenv("BOOKREC_ADMIN_KEY_HASH"),
		JWTSecret:    secret,
		JWTIssuer:    issuer,
		JWTDuration:  duration,
	}
}
