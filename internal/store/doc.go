// Package store persists streamed market data to TimescaleDB.
//
// It provides the connection pool plus a batching recorder that consumes
// typed events from the router and writes trades and ticker updates with
// append-only semantics (never update, only insert).
package store
