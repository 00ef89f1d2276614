package router

import (
	"encoding/json"
	"errors"
)

// Errors
var (
	// ErrProtocolDrift signals a sustained run of unparseable frames. The
	// connection manager treats it as a connection health failure.
	ErrProtocolDrift = errors.New("sustained malformed frames (protocol drift)")

	ErrNotBound       = errors.New("no active connection")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrMarketsMissing = errors.New("channel requires market tickers")
)

// Channel names understood by the exchange.
const (
	ChannelOrderbook  = "orderbook_delta"
	ChannelTicker     = "ticker"
	ChannelTrade      = "trade"
	ChannelUserOrders = "user_orders"
	ChannelFills      = "fill"
	ChannelLifecycle  = "market_lifecycle_v2"
)

// marketScoped channels require an explicit market_tickers list in the
// subscribe command. The rest are account-scoped or global.
var marketScoped = map[string]bool{
	ChannelOrderbook: true,
	ChannelTicker:    true,
	ChannelTrade:     true,
}

// knownChannels is the closed set of channels Subscribe accepts.
var knownChannels = map[string]bool{
	ChannelOrderbook:  true,
	ChannelTicker:     true,
	ChannelTrade:      true,
	ChannelUserOrders: true,
	ChannelFills:      true,
	ChannelLifecycle:  true,
}

// Config holds router tuning knobs.
type Config struct {
	// EventBufferSize is the capacity of the outbound event channel.
	EventBufferSize int

	// DriftThreshold is the number of consecutive malformed frames that
	// escalates to a forced reconnect.
	DriftThreshold int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		EventBufferSize: 4096,
		DriftThreshold:  10,
	}
}

// Sender writes one outbound frame to the active connection.
type Sender interface {
	Send(data []byte) error
}

// command is an outbound subscribe/unsubscribe frame.
type command struct {
	ID     int    `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params"`
}

// subscribeParams are parameters for a subscribe command.
type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers,omitempty"`
}

// unsubscribeParams are parameters for an unsubscribe command.
type unsubscribeParams struct {
	SIDs []int64 `json:"sids"`
}

// envelope is the common shape of every inbound frame.
type envelope struct {
	ID   int             `json:"id"`
	Type string          `json:"type"`
	SID  int64           `json:"sid"`
	Seq  int64           `json:"seq"`
	Msg  json.RawMessage `json:"msg"`
}

// subscribedMsg is the payload of a "subscribed" response.
type subscribedMsg struct {
	SID     int64  `json:"sid"`
	Channel string `json:"channel"`
}

// errorMsg is the payload of an "error" response.
type errorMsg struct {
	Code    string `json:"code"`
	Message string `json:"msg"`
}

// Wire payloads for data frames.

type snapshotMsg struct {
	MarketTicker string  `json:"market_ticker"`
	Yes          [][]int `json:"yes"` // [[price_cents, quantity], ...]
	No           [][]int `json:"no"`
}

type deltaMsg struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	Delta        int    `json:"delta"`
	Side         string `json:"side"`
	TS           int64  `json:"ts"`
}

type tickerMsg struct {
	MarketTicker string `json:"market_ticker"`
	LastPrice    int    `json:"last_price"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	NoBid        int    `json:"no_bid"`
	Volume       int64  `json:"volume"`
	OpenInterest int64  `json:"open_interest"`
	TS           int64  `json:"ts"`
}

type tradeMsg struct {
	MarketTicker string `json:"market_ticker"`
	TradeID      string `json:"trade_id"`
	YesPrice     int    `json:"yes_price"`
	NoPrice      int    `json:"no_price"`
	Count        int    `json:"count"`
	TakerSide    string `json:"taker_side"`
	TS           int64  `json:"ts"`
}

type orderMsg struct {
	OrderID        string `json:"order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"`
	Action         string `json:"action"`
	Side           string `json:"side"`
	YesPrice       int    `json:"yes_price"`
	RemainingCount int    `json:"remaining_count"`
	FilledCount    int    `json:"filled_count"`
	TS             int64  `json:"ts"`
}

type fillMsg struct {
	FillID    string `json:"fill_id"`
	OrderID   string `json:"order_id"`
	Ticker    string `json:"market_ticker"`
	Side      string `json:"side"`
	Action    string `json:"action"`
	YesPrice  int    `json:"yes_price"`
	Count     int    `json:"count"`
	FeeCost   int64  `json:"fee_cost"`
	IsTaker   bool   `json:"is_taker"`
	TS        int64  `json:"ts"`
}

type lifecycleMsg struct {
	MarketTicker    string `json:"market_ticker"`
	Status          string `json:"status"`
	SettlementValue *int   `json:"settlement_value"`
	TS              int64  `json:"ts"`
}
