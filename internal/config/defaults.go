package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL          = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultWSURL            = "wss://api.elections.kalshi.com/trade-api/ws/v2"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadTimeout      = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultBackoffBaseWait  = 1 * time.Second
	DefaultBackoffMaxWait   = 60 * time.Second
	DefaultEventBufferSize  = 4096
	DefaultDriftThreshold   = 10
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultBatchSize        = 1000
	DefaultFlushInterval    = 1 * time.Second
)

func (c *Config) applyDefaults() {
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(DefaultAPITimeout)
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	if c.Connection.ReadTimeout == 0 {
		c.Connection.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Connection.BackoffBaseWait == 0 {
		c.Connection.BackoffBaseWait = Duration(DefaultBackoffBaseWait)
	}
	if c.Connection.BackoffMaxWait == 0 {
		c.Connection.BackoffMaxWait = Duration(DefaultBackoffMaxWait)
	}

	if c.Router.EventBufferSize == 0 {
		c.Router.EventBufferSize = DefaultEventBufferSize
	}
	if c.Router.DriftThreshold == 0 {
		c.Router.DriftThreshold = DefaultDriftThreshold
	}

	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = Duration(DefaultFlushInterval)
	}
}
