package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/pricing?sslmode=disable")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("AI_PROVIDER", "openai")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres://u:p@db:5432/pricing?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, AIProviderOpenAI, cfg.AIProvider)
	assert.True(t, cfg.ModelScoringEnabled())
	assert.Equal(t, 30*time.Second, cfg.ActiveConfigTTL)
	assert.Equal(t, 10*time.Minute, cfg.FXCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.Equal(t, "TRY", cfg.BaseCurrency)
	assert.Equal(t, 1000.0, cfg.DefaultHourlyRate)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "NONE")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DEFAULT_HOURLY_RATE", "1250.5")
	t.Setenv("ACTIVE_CONFIG_TTL", "5s")
	t.Setenv("BASE_CURRENCY", "try")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.ModelScoringEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 1250.5, cfg.DefaultHourlyRate)
	assert.Equal(t, 5*time.Second, cfg.ActiveConfigTTL)
	assert.Equal(t, "TRY", cfg.BaseCurrency)
}

func TestLoad_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "mystery")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDatabaseURL_FromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "pricing")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "customs")

	assert.Equal(t, "postgres://pricing:p%40ss@db:5432/customs?sslmode=disable", getDatabaseURL())
}
