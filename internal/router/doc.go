// Package router implements the channel router: the outbound
// subscribe/unsubscribe command protocol and inbound frame dispatch.
//
// Channels partition into two kinds. Market-scoped channels
// (orderbook_delta, ticker, trade) require an explicit market_tickers list in
// the subscribe command; account-scoped and global channels (user_orders,
// fill, market_lifecycle_v2) take none. Subscriptions do not survive a
// reconnect, so the router re-issues every desired subscription when the
// connection manager binds a fresh transport.
package router
