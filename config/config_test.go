package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		GinMode:         "debug",
		Environment:     "development",
		LogLevel:        "info",
		LogFormat:       "text",
		DataBackend:     BackendMemory,
		JWTSecret:       "dev-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		RateLimit:       100,
		RateWindow:      time.Minute,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMongo, cfg.DataBackend)
	assert.Equal(t, "family_budget", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/budget")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("RATE_LIMIT", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.DataBackend)
	assert.Equal(t, "postgres://localhost/budget", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, wantErr: "invalid port 'http'"},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }, wantErr: "between 1 and 65535"},
		{name: "bad gin mode", mutate: func(c *Config) { c.GinMode = "prod" }, wantErr: "invalid gin mode"},
		{name: "unknown backend", mutate: func(c *Config) { c.DataBackend = "sqlite" }, wantErr: "invalid data backend"},
		{name: "postgres without url", mutate: func(c *Config) { c.DataBackend = BackendPostgres }, wantErr: "DATABASE_URL is required"},
		{name: "mongo without uri", mutate: func(c *Config) { c.DataBackend = BackendMongo; c.MongoDatabase = "x" }, wantErr: "MONGO_URI is required"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET is required"},
		{name: "short secret in production", mutate: func(c *Config) {
			c.Environment = "production"
			c.DataEncryptionKey = "0123456789abcdef0123456789abcdef"
		}, wantErr: "at least 32 characters"},
		{name: "bad encryption key", mutate: func(c *Config) { c.DataEncryptionKey = "short" }, wantErr: "exactly 32 characters"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "invalid log format"},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit = 0 }, wantErr: "RATE_LIMIT must be positive"},
		{name: "bad amqp scheme", mutate: func(c *Config) { c.AMQPURL = "http://rabbit"; c.AMQPExchange = "x" }, wantErr: "must be 'amqp' or 'amqps'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.JWTSecret = ""
	cfg.RateWindow = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "RATE_WINDOW must be positive")
}

func TestAllowedOrigins(t *testing.T) {
	cfg := validConfig()
	cfg.FrontendURL = "http://localhost:3000"
	cfg.CORSOrigins = []string{"http://localhost:3000", "https://budgetfamille.com"}

	assert.Equal(t, []string{"http://localhost:3000", "https://budgetfamille.com"}, cfg.AllowedOrigins())
}

func TestIsProduction(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.IsProduction())
	cfg.GinMode = "release"
	assert.True(t, cfg.IsProduction())
}
