package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for configuration unless --config says otherwise.
const DefaultPath = "projecthub.yml"

// Config represents the top-level projecthub.yml configuration
type Config struct {
	Version     string            `yaml:"version"`
	Instance    string            `yaml:"instance"` // Namespaces every Redis key and channel
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	I18n        I18nConfig        `yaml:"i18n"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Logging     LoggingConfig     `yaml:"logging"`
	Policies    map[string]string `yaml:"policies,omitempty"` // action -> CEL expression
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig locates the SQLite file
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig locates the Redis server holding sessions and events
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig controls sessions, password hashing and sign-in throttling
type AuthConfig struct {
	SessionTTL       time.Duration `yaml:"session_ttl"`
	BcryptCost       int           `yaml:"bcrypt_cost"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LockoutWindow    time.Duration `yaml:"lockout_window"`
	CookieName       string        `yaml:"cookie_name"`
	CookieSecure     bool          `yaml:"cookie_secure"`
	Google           GoogleConfig  `yaml:"google"`
}

// GoogleConfig holds OAuth client credentials. The provider is off unless all three are set.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether Google sign-in is fully configured
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// I18nConfig lists supported locales
type I18nConfig struct {
	Locales       []string `yaml:"locales"`
	DefaultLocale string   `yaml:"default_locale"`
}

// AttachmentsConfig controls upload storage and limits
type AttachmentsConfig struct {
	Dir          string   `yaml:"dir"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	AllowedTypes []string `yaml:"allowed_types"` // Content-type prefixes, e.g. "image/"
}

// LoggingConfig selects the zap configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  *bool  `yaml:"json,omitempty"` // Default: true
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{Version: "1.0"}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Instance == "" {
		c.Instance = "default"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "projecthub.db"
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Auth.MaxLoginAttempts == 0 {
		c.Auth.MaxLoginAttempts = 5
	}
	if c.Auth.LockoutWindow == 0 {
		c.Auth.LockoutWindow = 15 * time.Minute
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "projecthub_session"
	}
	if len(c.I18n.Locales) == 0 {
		c.I18n.Locales = []string{"en", "fr"}
	}
	if c.I18n.DefaultLocale == "" {
		c.I18n.DefaultLocale = "fr"
	}
	if c.Attachments.Dir == "" {
		c.Attachments.Dir = "uploads"
	}
	if c.Attachments.MaxFileSize == 0 {
		c.Attachments.MaxFileSize = 4 << 20
	}
	if len(c.Attachments.AllowedTypes) == 0 {
		c.Attachments.AllowedTypes = []string{"image/", "application/pdf"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.JSON == nil {
		on := true
		c.Logging.JSON = &on
	}
}

// Validate applies defaults and performs strict validation on the configuration
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if strings.ContainsAny(c.Instance, ": ") {
		return fmt.Errorf("instance: must not contain ':' or spaces, got '%s'", c.Instance)
	}

	if _, err := url.Parse(c.Redis.URL); err != nil || !strings.HasPrefix(c.Redis.URL, "redis") {
		return fmt.Errorf("redis.url: must be a redis:// or rediss:// URL, got '%s'", c.Redis.URL)
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.MaxLoginAttempts < 0 {
		return fmt.Errorf("auth.max_login_attempts must be >= 0 (0 = unlimited), got %d", c.Auth.MaxLoginAttempts)
	}
	if c.Auth.SessionTTL < time.Minute {
		return fmt.Errorf("auth.session_ttl must be at least 1m, got %s", c.Auth.SessionTTL)
	}

	g := c.Auth.Google
	if (g.ClientID != "" || g.ClientSecret != "" || g.RedirectURL != "") && !g.Enabled() {
		return fmt.Errorf("auth.google: client_id, client_secret and redirect_url must all be set to enable Google sign-in")
	}

	found := false
	for _, l := range c.I18n.Locales {
		if l == c.I18n.DefaultLocale {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("i18n.default_locale '%s' is not listed in i18n.locales", c.I18n.DefaultLocale)
	}

	if c.Attachments.MaxFileSize < 0 {
		return fmt.Errorf("attachments.max_file_size must be positive, got %d", c.Attachments.MaxFileSize)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: invalid level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	for action, expr := range c.Policies {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("policies.%s: expression is required", action)
		}
	}

	return nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("PROJECTHUB_INSTANCE", &c.Instance)
	set("PROJECTHUB_ADDR", &c.Server.Addr)
	set("DATABASE_PATH", &c.Database.Path)
	set("REDIS_URL", &c.Redis.URL)
	set("GOOGLE_CLIENT_ID", &c.Auth.Google.ClientID)
	set("GOOGLE_CLIENT_SECRET", &c.Auth.Google.ClientSecret)
	set("GOOGLE_REDIRECT_URL", &c.Auth.Google.RedirectURL)
	set("LOG_LEVEL", &c.Logging.Level)
}

// Load reads projecthub.yml from the specified path, applies environment overrides and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Parse decodes YAML without validating it
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &config, nil
}
