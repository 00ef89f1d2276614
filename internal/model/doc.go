// Package model defines the typed events delivered to consumers of the
// streaming engine.
//
// Conventions:
//   - Prices: integer cents (1-99 for book levels)
//   - Exchange timestamps: int64 Unix seconds as sent on the wire
//   - IDs: string for tickers, uuid.UUID for trade/order IDs
package model
