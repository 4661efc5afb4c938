// Package config loads the server configuration from a TOML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server holds listener and HTTP settings.
type Server struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	TLSCert        string   `toml:"tls_cert"`
	TLSKey         string   `toml:"tls_key"`
	RateLimit      int      `toml:"rate_limit"`
	PublicURL      string   `toml:"public_url"`
}

// Sources describes where category files are fetched from. An empty
// BaseURL serves them from Root on the local filesystem.
type Sources struct {
	BaseURL        string `toml:"base_url"`
	Root           string `toml:"root"`
	PrimaryDir     string `toml:"primary_dir"`
	ExtendedDir    string `toml:"extended_dir"`
	Manifest       string `toml:"manifest"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Cache struct {
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

type Refresh struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Sources Sources `toml:"sources"`
	Cache   Cache   `toml:"cache"`
	Refresh Refresh `toml:"refresh"`
	Logging Logging `toml:"logging"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173", "https://localhost:5173"},
			RateLimit:      60,
			PublicURL:      "https://quizla.se",
		},
		Sources: Sources{
			Root:           ".",
			PrimaryDir:     "data",
			ExtendedDir:    "data/kategori",
			Manifest:       "index.json",
			TimeoutSeconds: 8,
		},
		Cache:   Cache{Path: "quizla-cache.db", TTLHours: 24},
		Refresh: Refresh{Enabled: true, IntervalMinutes: 60},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file is not an error; the bool reports whether one
// was read.
func Load(path string) (*Config, bool, error) {
	cfg := Default()
	exists := false

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("open config: %w", err)
		default:
			defer f.Close()
			if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
				return nil, false, fmt.Errorf("parse config: %w", err)
			}
			exists = true
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, exists, err
	}
	return &cfg, exists, nil
}

// ApplyEnv overrides file values with PORT, ALLOWED_ORIGINS, TLS_CERT,
// TLS_KEY, QUIZLA_BASE_URL, QUIZLA_SOURCES_URL, QUIZLA_CACHE_PATH and
// QUIZLA_LOG_LEVEL when set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("PORT", &c.Server.Port)
	set("TLS_CERT", &c.Server.TLSCert)
	set("TLS_KEY", &c.Server.TLSKey)
	set("QUIZLA_BASE_URL", &c.Server.PublicURL)
	set("QUIZLA_SOURCES_URL", &c.Sources.BaseURL)
	set("QUIZLA_CACHE_PATH", &c.Cache.Path)
	set("QUIZLA_LOG_LEVEL", &c.Logging.Level)

	var origins string
	set("ALLOWED_ORIGINS", &origins)
	if origins != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
}

// TLS reports whether both certificate and key are configured.
func (c *Config) TLS() bool { return c.Server.TLSCert != "" && c.Server.TLSKey != "" }

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLHours) * time.Hour }

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMinutes) * time.Minute
}
