package store

import (
	"fmt"
	"net/url"

	"github.com/jmels/kalshi-stream/internal/config"
)

// BuildConnString renders a postgres:// URL from config. The password is
// percent-encoded so credentials with reserved characters survive parsing;
// sslmode falls back to "prefer" when unset.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
