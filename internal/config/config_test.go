package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://viloai:pw@db:5432/viloai")
	t.Setenv("AI_PROVIDER", "Keyword")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, "postgres://viloai:pw@db:5432/viloai", cfg.Database.URL)
	assert.Equal(t, ProviderKeyword, cfg.AI.Provider)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.ContextWindow)
	assert.Equal(t, 5, cfg.Pipeline.ContextMaxTurns)
	assert.Equal(t, "https://graph.facebook.com", cfg.Instagram.GraphBaseURL)
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  jwt_secret: from-file
database:
  use_in_memory: true
ai:
  provider: anthropic
anthropic:
  api_key: sk-ant-test
pipeline:
  context_window: 5m
  default_monthly_limit: 0
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Server.JWTSecret)
	assert.True(t, cfg.Database.UseInMemory)
	assert.Equal(t, ProviderAnthropic, cfg.AI.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ContextWindow)
	assert.Equal(t, 0, cfg.Pipeline.DefaultMonthlyLimit)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{JWTSecret: "x"},
			Database: DatabaseConfig{URL: "postgres://localhost/db"},
			AI:       AIConfig{Provider: ProviderOpenAI},
			OpenAI:   OpenAIConfig{APIKey: "sk-test"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing jwt secret", func(c *Config) { c.Server.JWTSecret = "" }, false},
		{"missing database", func(c *Config) { c.Database.URL = "" }, false},
		{"in memory database", func(c *Config) { c.Database.URL = ""; c.Database.UseInMemory = true }, true},
		{"openai without key", func(c *Config) { c.OpenAI.APIKey = "" }, false},
		{"keyword needs no key", func(c *Config) { c.AI.Provider = ProviderKeyword; c.OpenAI.APIKey = "" }, true},
		{"unknown provider", func(c *Config) { c.AI.Provider = "gemini" }, false},
		{"negative limit", func(c *Config) { c.Pipeline.DefaultMonthlyLimit = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
