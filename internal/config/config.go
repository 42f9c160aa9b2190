// Package config loads the server configuration from YAML with
// environment-variable overrides on top. Every field has a usable
// default so a bare deployment runs on sqlite with local paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Server struct {
		Addr              string `yaml:"addr"`                // Listen address, host:port.
		BaseURL           string `yaml:"base_url"`            // Public origin used in emailed links.
		WebRoot           string `yaml:"web_root"`            // Static site directory.
		TrustProxyHeaders bool   `yaml:"trust_proxy_headers"` // Honor X-Forwarded-For / -Proto.
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"dsn"` // sqlite path or postgres DSN.
	} `yaml:"database"`

	Auth struct {
		CookieName   string `yaml:"cookie_name"`   // Session cookie name.
		SecureCookie *bool  `yaml:"secure_cookie"` // Force the Secure attribute; nil derives it per request.

		Login struct {
			Limit   int    `yaml:"limit"`
			Window  string `yaml:"window"`
			Lockout string `yaml:"lockout"`
		} `yaml:"login"`
		Reset struct {
			Limit   int    `yaml:"limit"`
			Window  string `yaml:"window"`
			Lockout string `yaml:"lockout"`
		} `yaml:"reset"`
	} `yaml:"auth"`

	Audit struct {
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"audit"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		STARTTLS bool   `yaml:"starttls"` // Require STARTTLS instead of opportunistic.
	} `yaml:"smtp"`

	Email struct {
		SupportAddress string `yaml:"support_address"` // Contact form recipient.
	} `yaml:"email"`

	Posters struct {
		CacheDir string `yaml:"cache_dir"` // Disk cache for uploaded poster images.
	} `yaml:"posters"`

	Logging struct {
		File       string `yaml:"file"` // Empty logs to stderr only.
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Level      string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates durations. A missing file is not an error;
// the result is defaults plus environment.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errParse := yaml.Unmarshal(b, &c); errParse != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errParse)
			}
		case errors.Is(errRead, os.ErrNotExist):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	for _, d := range []string{
		c.Auth.Login.Window, c.Auth.Login.Lockout,
		c.Auth.Reset.Window, c.Auth.Reset.Lockout,
	} {
		if _, errParse := time.ParseDuration(d); errParse != nil {
			return nil, fmt.Errorf("config: bad duration %q: %w", d, errParse)
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.WebRoot == "" {
		c.Server.WebRoot = "web"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "data/whatsnominated.db"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "whatsnominated_admin_session"
	}
	if c.Auth.Login.Limit == 0 {
		c.Auth.Login.Limit = 10
	}
	if c.Auth.Login.Window == "" {
		c.Auth.Login.Window = "15m"
	}
	if c.Auth.Login.Lockout == "" {
		c.Auth.Login.Lockout = "15m"
	}
	if c.Auth.Reset.Limit == 0 {
		c.Auth.Reset.Limit = 5
	}
	if c.Auth.Reset.Window == "" {
		c.Auth.Reset.Window = "15m"
	}
	if c.Auth.Reset.Lockout == "" {
		c.Auth.Reset.Lockout = "15m"
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 90
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Posters.CacheDir == "" {
		c.Posters.CacheDir = "data/posters"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("WEB_ROOT"); ok {
		c.Server.WebRoot = v
	}
	if v, ok := getEnvBool("TRUST_PROXY_HEADERS"); ok {
		c.Server.TrustProxyHeaders = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_NAME"); ok {
		c.Auth.CookieName = v
	}
	if v, ok := getEnvBool("AUTH_SECURE_COOKIE"); ok {
		c.Auth.SecureCookie = &v
	}
	if v, ok := getEnvInt("AUTH_LOGIN_LIMIT"); ok {
		c.Auth.Login.Limit = v
	}
	if v, ok := getEnvStr("AUTH_LOGIN_WINDOW"); ok {
		c.Auth.Login.Window = v
	}
	if v, ok := getEnvStr("AUTH_LOGIN_LOCKOUT"); ok {
		c.Auth.Login.Lockout = v
	}
	if v, ok := getEnvInt("AUTH_RESET_LIMIT"); ok {
		c.Auth.Reset.Limit = v
	}
	if v, ok := getEnvStr("AUTH_RESET_WINDOW"); ok {
		c.Auth.Reset.Window = v
	}
	if v, ok := getEnvStr("AUTH_RESET_LOCKOUT"); ok {
		c.Auth.Reset.Lockout = v
	}
	if v, ok := getEnvInt("AUDIT_RETENTION_DAYS"); ok {
		c.Audit.RetentionDays = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvBool("SMTP_STARTTLS"); ok {
		c.SMTP.STARTTLS = v
	}
	if v, ok := getEnvStr("SUPPORT_EMAIL"); ok {
		c.Email.SupportAddress = v
	}
	if v, ok := getEnvStr("POSTER_CACHE_DIR"); ok {
		c.Posters.CacheDir = v
	}
	if v, ok := getEnvStr("LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
}

// LoginDuration returns the parsed login window and lockout. Load already
// validated both strings.
func (c *Config) LoginDuration() (window, lockout time.Duration) {
	window, _ = time.ParseDuration(c.Auth.Login.Window)
	lockout, _ = time.ParseDuration(c.Auth.Login.Lockout)
	return window, lockout
}

// ResetDuration returns the parsed reset window and lockout.
func (c *Config) ResetDuration() (window, lockout time.Duration) {
	window, _ = time.ParseDuration(c.Auth.Reset.Window)
	lockout, _ = time.ParseDuration(c.Auth.Reset.Lockout)
	return window, lockout
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
