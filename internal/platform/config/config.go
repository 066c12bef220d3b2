// Copyright (c) 2026 Klokain. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only. Changing enabled
    OAuth2 providers or token lifetimes requires a process restart.
  - DI-Friendly: Passed to core components (DB, Redis, providers) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the osTicket API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational identity store (the osTicket database)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	// Migrations only cover the tables this API owns (auth tokens, external
	// identity mappings); the osTicket core tables are never created here.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis) for volatile OAuth2 login state
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing. A single process-wide shared secret and algorithm.
	JWTSecretKey             string `env:"JWT_SECRET_KEY,required"`
	JWTAlgorithm             string `env:"JWT_ALGORITHM"                    envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES"  envDefault:"30"`
	RefreshTokenExpireDays   int    `env:"JWT_REFRESH_TOKEN_EXPIRE_DAYS"    envDefault:"7"`

	// External identity federation.
	//
	// AutoCreateUsersFromExternal is accepted for forward compatibility but
	// provisioning is not implemented: an unmapped external identity is
	// rejected either way, only the failure message changes.
	AutoCreateUsersFromExternal bool   `env:"AUTO_CREATE_USERS_FROM_EXTERNAL" envDefault:"false"`
	OAuth2RedirectBaseURL       string `env:"OAUTH2_REDIRECT_BASE_URL"`

	// Keycloak provider
	KeycloakEnabled      bool   `env:"KEYCLOAK_ENABLED"       envDefault:"false"`
	KeycloakServerURL    string `env:"KEYCLOAK_SERVER_URL"`
	KeycloakRealm        string `env:"KEYCLOAK_REALM"         envDefault:"master"`
	KeycloakClientID     string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret string `env:"KEYCLOAK_CLIENT_SECRET"`

	// Microsoft Entra (Azure AD) provider
	MicrosoftEnabled      bool   `env:"MICROSOFT_ENABLED"       envDefault:"false"`
	MicrosoftTenantID     string `env:"MICROSOFT_TENANT_ID"`
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("config: unsupported JWT algorithm %q (only HS256 is supported)", cfg.JWTAlgorithm)
	}

	return cfg, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
