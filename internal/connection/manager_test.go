package connection

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jmels/kalshi-stream/internal/auth"
	"github.com/jmels/kalshi-stream/internal/book"
	"github.com/jmels/kalshi-stream/internal/router"
)

// fakeConn is a scriptable transport.
type fakeConn struct {
	mu   sync.Mutex
	sent [][]byte

	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return nil, io.EOF // server closed
		}
		return f, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// dialResult scripts one Dial outcome.
type dialResult struct {
	conn *fakeConn
	resp *http.Response
	err  error
}

// fakeDialer records handshake headers and pops scripted results.
type fakeDialer struct {
	mu      sync.Mutex
	headers []http.Header
	results []dialResult
}

func (d *fakeDialer) Dial(_ context.Context, _ string, header http.Header) (Conn, *http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.headers = append(d.headers, header.Clone())
	if len(d.results) == 0 {
		return nil, nil, errors.New("no more scripted dials")
	}
	res := d.results[0]
	d.results = d.results[1:]
	if res.err != nil {
		return nil, res.resp, res.err
	}
	return res.conn, nil, nil
}

func (d *fakeDialer) attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.headers)
}

func newTestManager(t *testing.T, d Dialer) (*Manager, *router.Router) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := auth.NewSigner("test-key", key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	r := router.New(router.DefaultConfig(), book.NewStore(nil), nil)
	cfg := Config{
		URL:             "wss://example.test/trade-api/ws/v2",
		BackoffBaseWait: 5 * time.Millisecond,
		BackoffMaxWait:  20 * time.Millisecond,
	}
	m := NewManager(cfg, signer, r, nil)
	m.SetDialer(d)
	return m, r
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNextBackoff_Schedule(t *testing.T) {
	base := 1 * time.Second
	max := 60 * time.Second

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}

	wait := base
	for i, w := range want {
		if wait != w {
			t.Errorf("attempt %d: wait = %v, want %v", i+1, wait, w)
		}
		wait = nextBackoff(wait, max)
	}
}

func TestManager_FreshSignaturePerAttempt(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{results: []dialResult{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{conn: conn},
	}}
	m, _ := newTestManager(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, func() bool { return d.attempts() >= 3 }, "never reached third dial attempt")
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v, want nil on shutdown", err)
	}

	// Every attempt must carry a distinct signature; timestamps never go back.
	sigs := make(map[string]bool)
	var lastTS string
	for i, h := range d.headers {
		sig := h.Get(auth.HeaderSignature)
		ts := h.Get(auth.HeaderTimestamp)
		if sig == "" || ts == "" {
			t.Fatalf("attempt %d missing auth headers", i+1)
		}
		if sigs[sig] {
			t.Errorf("attempt %d reused a signature", i+1)
		}
		sigs[sig] = true
		if ts < lastTS && len(ts) == len(lastTS) {
			t.Errorf("attempt %d timestamp went backwards: %s < %s", i+1, ts, lastTS)
		}
		lastTS = ts
	}
}

func TestManager_AuthRejectionIsTerminal(t *testing.T) {
	d := &fakeDialer{results: []dialResult{
		{resp: &http.Response{StatusCode: http.StatusUnauthorized}, err: errors.New("bad handshake")},
	}}
	m, _ := newTestManager(t, d)

	err := m.Run(context.Background())
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("Run returned %v, want ErrAuthRejected", err)
	}
	if d.attempts() != 1 {
		t.Errorf("dialed %d times, want 1 (no retry on auth rejection)", d.attempts())
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", m.State())
	}
}

func TestManager_ResubscribesAfterReconnect(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	d := &fakeDialer{results: []dialResult{{conn: first}, {conn: second}}}
	m, r := newTestManager(t, d)

	if err := r.Subscribe(router.ChannelTicker, "MKT-A", "MKT-B"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, func() bool { return first.sentCount() >= 1 }, "no subscribe on first connection")

	// Server drops the connection; the identical subscribe command must be
	// issued on the replacement before any frame is accepted.
	close(first.frames)
	waitFor(t, func() bool { return second.sentCount() >= 1 }, "no subscribe after reconnect")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v, want nil on shutdown", err)
	}

	type params struct {
		Channels      []string `json:"channels"`
		MarketTickers []string `json:"market_tickers"`
	}
	var a, b struct {
		Cmd    string `json:"cmd"`
		Params params `json:"params"`
	}
	if err := json.Unmarshal(first.sent[0], &a); err != nil {
		t.Fatalf("first command: %v", err)
	}
	if err := json.Unmarshal(second.sent[0], &b); err != nil {
		t.Fatalf("second command: %v", err)
	}
	if a.Cmd != "subscribe" || b.Cmd != "subscribe" {
		t.Fatalf("cmds = %q/%q, want subscribe", a.Cmd, b.Cmd)
	}
	if len(b.Params.MarketTickers) != 2 || b.Params.MarketTickers[0] != a.Params.MarketTickers[0] {
		t.Errorf("resubscribe params differ: %+v vs %+v", a.Params, b.Params)
	}
}

func TestManager_BooksClearedOnDisconnect(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	d := &fakeDialer{results: []dialResult{{conn: first}, {conn: second}}}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := auth.NewSigner("test-key", key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	store := book.NewStore(nil)
	r := router.New(router.DefaultConfig(), store, nil)
	m := NewManager(Config{
		URL:             "wss://example.test/trade-api/ws/v2",
		BackoffBaseWait: 5 * time.Millisecond,
		BackoffMaxWait:  20 * time.Millisecond,
	}, signer, r, nil)
	m.SetDialer(d)

	if err := r.Subscribe(router.ChannelOrderbook, "MKT-A"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, func() bool { return first.sentCount() >= 1 }, "no subscribe on first connection")

	snapshot := `{"type":"orderbook_snapshot","sid":1,"seq":1,"msg":{"market_ticker":"MKT-A","yes":[[50,10]],"no":[]}}`
	first.frames <- []byte(snapshot)

	// Wait for the book update to surface on the event stream.
	select {
	case <-r.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no book update event")
	}

	waitFor(t, func() bool { return store.Synced("MKT-A") }, "book never synced")

	close(first.frames)
	waitFor(t, func() bool { return second.sentCount() >= 1 }, "no reconnect")

	// The old book must not leak across connections: it stays unsynchronized
	// until the new connection delivers its own snapshot.
	if store.Synced("MKT-A") {
		t.Error("book survived the reconnect without a fresh snapshot")
	}

	cancel()
	<-done
}

func TestManager_StopDuringBackoffIsPrompt(t *testing.T) {
	d := &fakeDialer{} // every dial fails: scripted results exhausted
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	signer, _ := auth.NewSigner("test-key", key)
	r := router.New(router.DefaultConfig(), book.NewStore(nil), nil)

	cfg := Config{
		URL:             "wss://example.test/trade-api/ws/v2",
		BackoffBaseWait: 30 * time.Second, // would block shutdown if not interruptible
		BackoffMaxWait:  60 * time.Second,
	}
	m := NewManager(cfg, signer, r, nil)
	m.SetDialer(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, func() bool { return d.attempts() >= 1 }, "never dialed")
	start := time.Now()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after cancel")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("shutdown took %v, backoff sleep was not interrupted", elapsed)
	}
}

func TestManager_ProtocolDriftForcesReconnect(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	d := &fakeDialer{results: []dialResult{{conn: first}, {conn: second}}}
	m, _ := newTestManager(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, func() bool { return d.attempts() >= 1 }, "never dialed")

	// A sustained run of malformed frames must be treated as a connection
	// health failure, not tolerated forever.
	for i := 0; i < router.DefaultConfig().DriftThreshold; i++ {
		first.frames <- []byte("{{drift")
	}

	waitFor(t, func() bool { return d.attempts() >= 2 }, "drift did not force a reconnect")

	cancel()
	<-done
}
