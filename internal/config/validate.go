package config

import (
	"fmt"
	"strings"
)

var validChannels = map[string]bool{
	"orderbook_delta":     true,
	"ticker":              true,
	"trade":               true,
	"user_orders":         true,
	"fill":                true,
	"market_lifecycle_v2": true,
}

// Validate checks that the configuration is usable. It is called after
// defaults have been applied, so only genuinely required fields and
// out-of-range values are reported.
func (c *Config) Validate() error {
	var errs []string

	if c.Auth.KeyID == "" {
		errs = append(errs, "auth.key_id is required")
	}
	if c.Auth.PrivateKeyPath == "" {
		errs = append(errs, "auth.private_key_path is required")
	}

	if !strings.HasPrefix(c.API.WSURL, "ws://") && !strings.HasPrefix(c.API.WSURL, "wss://") {
		errs = append(errs, fmt.Sprintf("api.ws_url must be a ws:// or wss:// URL, got %q", c.API.WSURL))
	}
	if !strings.HasPrefix(c.API.RestURL, "http://") && !strings.HasPrefix(c.API.RestURL, "https://") {
		errs = append(errs, fmt.Sprintf("api.rest_url must be an http:// or https:// URL, got %q", c.API.RestURL))
	}

	if c.Connection.BackoffBaseWait > c.Connection.BackoffMaxWait {
		errs = append(errs, "connection.backoff_base_wait must not exceed connection.backoff_max_wait")
	}
	if c.Router.DriftThreshold < 1 {
		errs = append(errs, "router.drift_threshold must be at least 1")
	}

	for i, sub := range c.Subscriptions {
		if !validChannels[sub.Channel] {
			errs = append(errs, fmt.Sprintf("subscriptions[%d]: unknown channel %q", i, sub.Channel))
		}
	}

	if c.Database.Enabled() {
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required when database.host is set")
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required when database.host is set")
		}
		if c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, "database.min_conns must not exceed database.max_conns")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
