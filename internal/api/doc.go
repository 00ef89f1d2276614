// Package api provides the signed Kalshi REST client.
//
// Endpoints:
//   - Production: https://api.elections.kalshi.com/trade-api/v2
//   - Demo: https://demo-api.kalshi.co/trade-api/v2
//
// Public endpoints (markets, order books, trades, exchange status) work
// without credentials; portfolio and order endpoints require a signer. Every
// request attempt is signed fresh: the timestamp is part of the signed
// payload and stale timestamps are rejected.
package api
