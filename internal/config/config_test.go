package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projecthub.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearEnv neutralizes overrides the host environment might carry.
func clearEnv(t *testing.T) {
	for _, key := range []string{"PROJECTHUB_INSTANCE", "PROJECTHUB_ADDR", "DATABASE_PATH", "REDIS_URL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `version: "1.0"
instance: acme
server:
  addr: ":8080"
  read_timeout: 5s
database:
  path: data/hub.db
auth:
  session_ttl: 24h
  max_login_attempts: 3
i18n:
  locales: [en, fr, de]
  default_locale: en
policies:
  project.delete: 'member.role == "OWNER"'
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "acme", config.Instance)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, 5*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, config.Server.WriteTimeout, "unset fields get defaults")
	assert.Equal(t, "data/hub.db", config.Database.Path)
	assert.Equal(t, 24*time.Hour, config.Auth.SessionTTL)
	assert.Equal(t, 3, config.Auth.MaxLoginAttempts)
	assert.Equal(t, "en", config.I18n.DefaultLocale)
	assert.Equal(t, `member.role == "OWNER"`, config.Policies["project.delete"])
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/projecthub.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
server:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_PATH", "/tmp/override.db")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("PROJECTHUB_INSTANCE", "staging")

	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", config.Database.Path)
	assert.Equal(t, "redis://cache:6379/1", config.Redis.URL)
	assert.Equal(t, "staging", config.Instance)
}

func TestDefault(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())

	assert.Equal(t, "default", config.Instance)
	assert.Equal(t, ":3000", config.Server.Addr)
	assert.Equal(t, "projecthub.db", config.Database.Path)
	assert.Equal(t, "redis://localhost:6379/0", config.Redis.URL)
	assert.Equal(t, 10, config.Auth.BcryptCost)
	assert.Equal(t, 5, config.Auth.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, config.Auth.LockoutWindow)
	assert.Equal(t, "projecthub_session", config.Auth.CookieName)
	assert.Equal(t, []string{"en", "fr"}, config.I18n.Locales)
	assert.Equal(t, "fr", config.I18n.DefaultLocale)
	assert.Equal(t, int64(4<<20), config.Attachments.MaxFileSize)
	assert.True(t, *config.Logging.JSON)
	assert.False(t, config.Auth.Google.Enabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unsupported version", func(c *Config) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"instance with colon", func(c *Config) { c.Instance = "a:b" }, "instance: must not contain"},
		{"non-redis URL", func(c *Config) { c.Redis.URL = "http://localhost" }, "redis.url"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 3 }, "auth.bcrypt_cost"},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 32 }, "auth.bcrypt_cost"},
		{"negative attempts", func(c *Config) { c.Auth.MaxLoginAttempts = -1 }, "auth.max_login_attempts"},
		{"short session ttl", func(c *Config) { c.Auth.SessionTTL = time.Second }, "auth.session_ttl"},
		{"partial google config", func(c *Config) { c.Auth.Google.ClientID = "id" }, "auth.google"},
		{"default locale not listed", func(c *Config) { c.I18n.DefaultLocale = "de" }, "i18n.default_locale 'de'"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"empty policy", func(c *Config) { c.Policies = map[string]string{"project.delete": " "} }, "policies.project.delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("complete google config enables provider", func(t *testing.T) {
		c := Default()
		c.Auth.Google = GoogleConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost:3000/api/auth/google/callback"}
		require.NoError(t, c.Validate())
		assert.True(t, c.Auth.Google.Enabled())
	})
}

func TestApplyEnv_IgnoresEmptyValues(t *testing.T) {
	c := Default()
	env := map[string]string{"LOG_LEVEL": "", "PROJECTHUB_ADDR": ":9999"}
	c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, ":9999", c.Server.Addr)
}
