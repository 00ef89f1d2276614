// Package connection implements the connection manager.
//
// The manager owns one WebSocket connection at a time and drives an explicit
// state machine: Disconnected → Connecting → Connected → Backoff →
// Connecting, with Closing entered from any state on shutdown. Each connect
// attempt signs the handshake fresh (the timestamp is part of the signed
// payload), reconnect delays follow 1, 2, 4, ... capped at 60 seconds and
// reset after any successful connect, and total read silence beyond the
// configured timeout is treated as a dead connection.
//
// A single consumer loop (Run) owns all connection-scoped state; the only
// suspension points are the blocking read and the backoff sleep, both
// interruptible by context cancellation.
package connection
