package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the configuration for valid values. The API key is not
// required: a missing key is reported per request.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout))
	}

	if c.Engine.Model == "" {
		errs = append(errs, errors.New("engine.model is required"))
	}
	if c.Engine.BaseURL != "" {
		u, err := url.Parse(c.Engine.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("engine.base_url must be an http(s) URL, got %q", c.Engine.BaseURL))
		}
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"engine.connect_timeout", c.Engine.ConnectTimeout},
		{"engine.idle_timeout", c.Engine.IdleTimeout},
		{"engine.request_timeout", c.Engine.RequestTimeout},
	}
	for _, to := range timeouts {
		if to.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", to.name, to.d))
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
