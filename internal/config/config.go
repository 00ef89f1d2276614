package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for a streamer instance.
type Config struct {
	API           APIConfig            `yaml:"api"`
	Auth          AuthConfig           `yaml:"auth"`
	Connection    ConnectionConfig     `yaml:"connection"`
	Router        RouterConfig         `yaml:"router"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	Database      DBConfig             `yaml:"database"`
	Recorder      RecorderConfig       `yaml:"recorder"`
}

// APIConfig holds the Kalshi endpoints.
type APIConfig struct {
	RestURL    string   `yaml:"rest_url"`
	WSURL      string   `yaml:"ws_url"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

// AuthConfig points at the signing credential. The private key is loaded
// once at startup and never logged.
type AuthConfig struct {
	KeyID          string `yaml:"key_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// ConnectionConfig holds WebSocket lifecycle settings.
type ConnectionConfig struct {
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	ReadTimeout      Duration `yaml:"read_timeout"`
	WriteTimeout     Duration `yaml:"write_timeout"`
	BackoffBaseWait  Duration `yaml:"backoff_base_wait"`
	BackoffMaxWait   Duration `yaml:"backoff_max_wait"`
}

// RouterConfig holds frame dispatch settings.
type RouterConfig struct {
	EventBufferSize int `yaml:"event_buffer_size"`
	DriftThreshold  int `yaml:"drift_threshold"`
}

// SubscriptionConfig is one channel subscription issued at startup.
type SubscriptionConfig struct {
	Channel string   `yaml:"channel"`
	Markets []string `yaml:"markets"`
}

// DBConfig holds the TimescaleDB connection for the recorder. Leaving Host
// empty disables recording.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// RecorderConfig holds batch writer settings.
type RecorderConfig struct {
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// Duration parses human-readable durations ("30s", "1m") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("couldn't parse duration: %w", err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
