package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	// HTTP server
	Port        string
	GinMode     string
	Environment string
	FrontendURL string
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	// Auth
	JWTSecret         string
	JWTIssuer         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	DataEncryptionKey string

	// Rate limiting
	RateLimit  int
	RateWindow time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string

	// Email
	ResendAPIKey string
	EmailFrom    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("environment", "development")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("cors_origins", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("data_backend", BackendMongo)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "family_budget")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "Budget Famille")
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("data_encryption_key", "")
	v.SetDefault("rate_limit", 100)
	v.SetDefault("rate_window", time.Minute)
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "family_budget")
	v.SetDefault("resend_api_key", "")
	v.SetDefault("email_from", "Budget Famille <noreply@budgetfamille.com>")
}

// Load reads configuration from the environment. Keys map to upper-case
// variables, so "jwt_secret" comes from JWT_SECRET.
func Load() *Config {
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetString("port"),
		GinMode:     v.GetString("gin_mode"),
		Environment: v.GetString("environment"),
		FrontendURL: v.GetString("frontend_url"),
		CORSOrigins: splitList(v.GetString("cors_origins")),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),

		DataBackend:   strings.ToLower(v.GetString("data_backend")),
		MongoURI:      v.GetString("mongo_uri"),
		MongoDatabase: v.GetString("mongo_database"),
		DatabaseURL:   v.GetString("database_url"),

		JWTSecret:         v.GetString("jwt_secret"),
		JWTIssuer:         v.GetString("jwt_issuer"),
		AccessTokenTTL:    v.GetDuration("access_token_ttl"),
		RefreshTokenTTL:   v.GetDuration("refresh_token_ttl"),
		DataEncryptionKey: v.GetString("data_encryption_key"),

		RateLimit:  v.GetInt("rate_limit"),
		RateWindow: v.GetDuration("rate_window"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),

		ResendAPIKey: v.GetString("resend_api_key"),
		EmailFrom:    v.GetString("email_from"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction reports whether sensitive values must be masked in logs.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release" || c.Environment == "production"
}

// AllowedOrigins is the frontend URL followed by any extra CORS origins.
func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	for _, o := range c.CORSOrigins {
		if o != c.FrontendURL {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("invalid gin mode '%s': must be one of [debug release test]", c.GinMode))
	}

	switch c.DataBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			problems = append(problems, "MONGO_URI is required when using mongo backend")
		}
		if c.MongoDatabase == "" {
			problems = append(problems, "MONGO_DATABASE is required when using mongo backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using postgres backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]",
			c.DataBackend, BackendMongo, BackendPostgres, BackendMemory))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters in production")
	}
	if c.AccessTokenTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		problems = append(problems, "REFRESH_TOKEN_TTL must be positive")
	}

	if c.DataEncryptionKey != "" && len(c.DataEncryptionKey) != 32 {
		problems = append(problems, "DATA_ENCRYPTION_KEY must be exactly 32 characters")
	} else if c.DataEncryptionKey == "" && c.IsProduction() {
		problems = append(problems, "DATA_ENCRYPTION_KEY is required in production")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.RateLimit <= 0 {
		problems = append(problems, "RATE_LIMIT must be positive")
	}
	if c.RateWindow <= 0 {
		problems = append(problems, "RATE_WINDOW must be positive")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}
