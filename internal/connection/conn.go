package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the minimal transport surface the manager drives. Implemented by
// gorilla/websocket in production and by fakes in tests.
type Conn interface {
	// ReadMessage blocks until the next inbound frame or the read deadline.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one outbound text frame.
	WriteMessage(data []byte) error

	// SetReadDeadline bounds the next ReadMessage.
	SetReadDeadline(t time.Time) error

	// Close tears down the transport. Safe to call concurrently with reads.
	Close() error
}

// Dialer opens a transport connection with the given handshake headers.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error)
}

// wsDialer dials real WebSocket connections.
type wsDialer struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	readTimeout      time.Duration
}

func (d *wsDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.handshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}

	c := &wsConn{ws: ws, writeTimeout: d.writeTimeout, readTimeout: d.readTimeout}

	// The server initiates pings; answer with protocol-level pongs and treat
	// each ping as traffic by extending the read deadline.
	ws.SetPingHandler(func(data string) error {
		ws.SetReadDeadline(time.Now().Add(d.readTimeout))
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	return c, resp, nil
}

// wsConn adapts *websocket.Conn to Conn with serialized writes.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration

	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.ws.Close()
}
