package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is a typed market or account event decoded from one inbound frame.
// The concrete type identifies the channel the frame arrived on.
type Event interface {
	// EventKind returns the wire channel tag, e.g. "ticker" or "fill".
	EventKind() string
}

// Ticker is a best bid/ask/last update for one market.
type Ticker struct {
	Ticker       string
	LastPrice    int // cents
	YesBid       int
	YesAsk       int
	NoBid        int
	Volume       int64
	OpenInterest int64
	ExchangeTS   int64 // Unix seconds from the exchange
	ReceivedAt   time.Time
}

func (Ticker) EventKind() string { return "ticker" }

// Trade is a public trade from the trade tape.
type Trade struct {
	TradeID    uuid.UUID
	Ticker     string
	YesPrice   int // cents
	NoPrice    int
	Count      int    // contracts
	TakerSide  string // "yes" or "no"
	ExchangeTS int64
	ReceivedAt time.Time
}

func (Trade) EventKind() string { return "trade" }

// OrderUpdate is a lifecycle event for one of the account's own orders.
type OrderUpdate struct {
	OrderID        uuid.UUID
	Ticker         string
	Status         string // resting, partially_filled, filled, canceled
	Action         string // buy or sell
	Side           string // "yes" or "no"
	YesPrice       int
	RemainingCount int
	FilledCount    int
	ExchangeTS     int64
	ReceivedAt     time.Time
}

func (OrderUpdate) EventKind() string { return "user_orders" }

// Fill is an execution against one of the account's own orders.
type Fill struct {
	FillID     uuid.UUID
	OrderID    uuid.UUID
	Ticker     string
	Side       string // purchased side, "yes" or "no"
	Action     string // buy or sell
	YesPrice   int
	Count      int
	FeeCents   int64
	IsTaker    bool
	ExchangeTS int64
	ReceivedAt time.Time
}

func (Fill) EventKind() string { return "fill" }

// Lifecycle is a market state change (open → closed → determined → settled).
// SettlementValue is set once the market resolves: 100 = YES, 0 = NO.
type Lifecycle struct {
	Ticker          string
	Status          string
	SettlementValue *int
	ExchangeTS      int64
	ReceivedAt      time.Time
}

func (Lifecycle) EventKind() string { return "market_lifecycle_v2" }

// BookUpdate signals that the local order book for a market changed. The
// materialized book is read from the book store, never carried in the event.
type BookUpdate struct {
	Ticker     string
	ReceivedAt time.Time
}

func (BookUpdate) EventKind() string { return "orderbook_delta" }
