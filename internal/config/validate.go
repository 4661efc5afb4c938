package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if c.Cache.Path == "" {
		return errors.New("cache.path must be set (use :memory: for a throwaway cache)")
	}
	if c.Cache.TTLHours <= 0 {
		return errors.New("cache.ttl_hours must be positive")
	}
	if c.Refresh.Enabled && c.Refresh.IntervalMinutes <= 0 {
		return errors.New("refresh.interval_minutes must be positive when refresh is enabled")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateServer() error {
	p, err := strconv.Atoi(c.Server.Port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("server.port: invalid value %q", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if err := absoluteURL("server.public_url", c.Server.PublicURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSources() error {
	if c.Sources.BaseURL == "" && c.Sources.Root == "" {
		return errors.New("sources.base_url or sources.root must be set")
	}
	if c.Sources.BaseURL != "" {
		if err := absoluteURL("sources.base_url", c.Sources.BaseURL); err != nil {
			return err
		}
	}
	if c.Sources.TimeoutSeconds <= 0 {
		return errors.New("sources.timeout_seconds must be positive")
	}
	return nil
}

func absoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute URL", field, raw)
	}
	return nil
}
