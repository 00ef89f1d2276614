package connection

import (
	"errors"
	"time"
)

// Errors
var (
	// ErrAuthRejected means the server refused the signed handshake
	// (bad signature, expired timestamp, revoked key). Retrying with a
	// re-signed request would likely repeat the rejection, so this is
	// terminal: Run returns it instead of backing off.
	ErrAuthRejected = errors.New("handshake authentication rejected")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Config holds connection manager settings.
type Config struct {
	URL              string        // WebSocket URL (e.g., wss://api.elections.kalshi.com/trade-api/ws/v2)
	HandshakeTimeout time.Duration // Dial timeout
	ReadTimeout      time.Duration // Max silence (no frames, no pings) before the connection is dead
	WriteTimeout     time.Duration // Write deadline for outbound frames
	BackoffBaseWait  time.Duration // First reconnect delay
	BackoffMaxWait   time.Duration // Reconnect delay cap
}

// DefaultConfig returns sensible defaults. The read timeout is a multiple of
// the server's ping interval (~10s): total silence that long means the
// connection is dead.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BackoffBaseWait:  1 * time.Second,
		BackoffMaxWait:   60 * time.Second,
	}
}

// nextBackoff doubles the reconnect delay, capped at max.
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
