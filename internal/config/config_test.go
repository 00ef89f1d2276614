package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
auth:
  key_id: test-key-id
  private_key_path: /tmp/key.pem
`

func TestLoad_Minimal(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.KeyID != "test-key-id" {
		t.Errorf("KeyID = %q, want test-key-id", cfg.Auth.KeyID)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled when host is empty")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "auth: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_KALSHI_KEY_ID", "env-key-id")
	t.Setenv("TEST_KALSHI_DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
auth:
  key_id: ${TEST_KALSHI_KEY_ID}
  private_key_path: /tmp/key.pem
database:
  host: localhost
  name: kalshi
  user: kalshi
  password: ${TEST_KALSHI_DB_PASSWORD}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.KeyID != "env-key-id" {
		t.Errorf("KeyID = %q, want env-key-id", cfg.Auth.KeyID)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("Password = %q, want s3cret", cfg.Database.Password)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}

	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("RestURL = %q, want default", cfg.API.RestURL)
	}
	if cfg.API.WSURL != DefaultWSURL {
		t.Errorf("WSURL = %q, want default", cfg.API.WSURL)
	}
	if cfg.Connection.BackoffBaseWait.Duration() != time.Second {
		t.Errorf("BackoffBaseWait = %v, want 1s", cfg.Connection.BackoffBaseWait.Duration())
	}
	if cfg.Connection.BackoffMaxWait.Duration() != 60*time.Second {
		t.Errorf("BackoffMaxWait = %v, want 60s", cfg.Connection.BackoffMaxWait.Duration())
	}
	if cfg.Router.EventBufferSize != DefaultEventBufferSize {
		t.Errorf("EventBufferSize = %d, want %d", cfg.Router.EventBufferSize, DefaultEventBufferSize)
	}
	if cfg.Recorder.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.Recorder.BatchSize, DefaultBatchSize)
	}
}

func TestLoadWithDefaults_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, minimalConfig + `
connection:
  read_timeout: 45s
router:
  drift_threshold: 5
`)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Connection.ReadTimeout.Duration() != 45*time.Second {
		t.Errorf("ReadTimeout = %v, want 45s", cfg.Connection.ReadTimeout.Duration())
	}
	if cfg.Router.DriftThreshold != 5 {
		t.Errorf("DriftThreshold = %d, want 5", cfg.Router.DriftThreshold)
	}
}

func TestDuration_Unmarshal(t *testing.T) {
	path := writeConfig(t, minimalConfig + `
connection:
  handshake_timeout: 1m30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Connection.HandshakeTimeout.Duration(); got != 90*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 90s", got)
	}
}

func TestDuration_InvalidString(t *testing.T) {
	path := writeConfig(t, minimalConfig + `
connection:
  handshake_timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing key id",
			mutate:  func(c *Config) { c.Auth.KeyID = "" },
			wantErr: "auth.key_id",
		},
		{
			name:    "missing private key path",
			mutate:  func(c *Config) { c.Auth.PrivateKeyPath = "" },
			wantErr: "auth.private_key_path",
		},
		{
			name:    "bad ws url scheme",
			mutate:  func(c *Config) { c.API.WSURL = "https://example.com" },
			wantErr: "api.ws_url",
		},
		{
			name: "backoff base exceeds max",
			mutate: func(c *Config) {
				c.Connection.BackoffBaseWait = Duration(2 * time.Minute)
			},
			wantErr: "backoff_base_wait",
		},
		{
			name: "unknown channel",
			mutate: func(c *Config) {
				c.Subscriptions = []SubscriptionConfig{{Channel: "orderbook_snapshot_v9"}}
			},
			wantErr: "unknown channel",
		},
		{
			name: "database missing name",
			mutate: func(c *Config) {
				c.Database.Host = "localhost"
				c.Database.User = "kalshi"
			},
			wantErr: "database.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, minimalConfig)
			cfg, err := LoadWithDefaults(path)
			if err != nil {
				t.Fatalf("LoadWithDefaults: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
