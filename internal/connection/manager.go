package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmels/kalshi-stream/internal/auth"
	"github.com/jmels/kalshi-stream/internal/router"
)

// Manager owns one signed WebSocket connection at a time and drives the
// lifecycle state machine: connect → run → fail → backoff → reconnect.
// Every attempt signs the handshake fresh; stale headers are never reused.
type Manager struct {
	cfg    Config
	signer *auth.Signer
	router *router.Router
	dialer Dialer
	logger *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewManager creates a Manager. The router receives every inbound frame and
// is rebound (with automatic resubscription) after each reconnect.
func NewManager(cfg Config, signer *auth.Signer, r *router.Router, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BackoffBaseWait == 0 {
		cfg.BackoffBaseWait = def.BackoffBaseWait
	}
	if cfg.BackoffMaxWait == 0 {
		cfg.BackoffMaxWait = def.BackoffMaxWait
	}

	return &Manager{
		cfg:    cfg,
		signer: signer,
		router: r,
		dialer: &wsDialer{
			handshakeTimeout: cfg.HandshakeTimeout,
			writeTimeout:     cfg.WriteTimeout,
			readTimeout:      cfg.ReadTimeout,
		},
		logger: logger,
		state:  StateDisconnected,
	}
}

// SetDialer replaces the transport dialer. Used by tests.
func (m *Manager) SetDialer(d Dialer) {
	m.dialer = d
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	m.mu.Unlock()

	if old != s {
		m.logger.Debug("connection state", "from", old.String(), "to", s.String())
	}
}

// Run is the single consumer loop. It blocks until ctx is canceled (returns
// nil) or a fatal configuration/authentication error occurs (returns it).
// All transport failures are retried with exponential backoff: 1s doubling
// to the 60s cap, reset after any successful connect.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setState(StateDisconnected)

	wait := m.cfg.BackoffBaseWait

	for {
		if ctx.Err() != nil {
			m.setState(StateClosing)
			return nil
		}

		m.setState(StateConnecting)
		conn, err := m.connect(ctx)
		if err != nil {
			if isFatal(err) {
				m.setState(StateClosing)
				return err
			}
			if ctx.Err() != nil {
				m.setState(StateClosing)
				return nil
			}

			m.logger.Warn("connect failed", "error", err, "retry_in", wait)
			if !m.backoff(ctx, wait) {
				return nil
			}
			wait = nextBackoff(wait, m.cfg.BackoffMaxWait)
			continue
		}

		m.setState(StateConnected)
		wait = m.cfg.BackoffBaseWait // reset on success
		m.logger.Info("connected", "url", m.cfg.URL)

		err = m.session(ctx, conn)
		m.router.Unbind() // discards books; no cross-connection continuity
		conn.Close()

		if ctx.Err() != nil {
			m.setState(StateClosing)
			m.logger.Info("connection closed", "reason", "shutdown")
			return nil
		}

		m.logger.Warn("connection lost", "error", err, "retry_in", wait)
		if !m.backoff(ctx, wait) {
			return nil
		}
		wait = nextBackoff(wait, m.cfg.BackoffMaxWait)
	}
}

// backoff sleeps for the current interval. Returns false when the stop
// signal interrupted the sleep.
func (m *Manager) backoff(ctx context.Context, wait time.Duration) bool {
	m.setState(StateBackoff)
	select {
	case <-ctx.Done():
		m.setState(StateClosing)
		return false
	case <-time.After(wait):
		return true
	}
}

// connect signs the handshake and dials. Signing failures and authentication
// rejections are fatal; everything else is a retryable transport failure.
func (m *Manager) connect(ctx context.Context) (Conn, error) {
	signed, err := m.signer.SignHandshake()
	if err != nil {
		return nil, &fatalError{fmt.Errorf("sign handshake: %w", err)}
	}

	header := http.Header{}
	for k, v := range signed.Headers(m.signer.KeyID()) {
		header.Set(k, v)
	}

	conn, resp, err := m.dialer.Dial(ctx, m.cfg.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &fatalError{fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)}
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

// session binds the router (re-issuing subscriptions) and reads frames until
// the transport fails, the router reports protocol drift, or ctx is canceled.
func (m *Manager) session(ctx context.Context, conn Conn) error {
	// Unblock the blocking read promptly on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := m.router.Bind(&connSender{conn}); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if err := m.router.Handle(data, time.Now()); err != nil {
			// Protocol drift: force a reconnect through the backoff path.
			return err
		}
	}
}

// connSender adapts a Conn to the router's Sender.
type connSender struct {
	conn Conn
}

func (s *connSender) Send(data []byte) error {
	return s.conn.WriteMessage(data)
}

// fatalError marks configuration/authentication failures that must surface
// to the caller instead of entering the backoff path.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
