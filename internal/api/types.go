package api

// ExchangeStatus is the response from GET /exchange/status.
type ExchangeStatus struct {
	ExchangeActive bool `json:"exchange_active"`
	TradingActive  bool `json:"trading_active"`
}

// Market is a tradeable prediction market as returned by the REST API.
type Market struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"`
	MarketType   string `json:"market_type"`
	Result       string `json:"result"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	LastPrice    int    `json:"last_price"`
	Volume       int64  `json:"volume"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
}

// MarketsResponse is a page of markets.
type MarketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// marketResponse wraps a single market.
type marketResponse struct {
	Market Market `json:"market"`
}

// GetMarketsOptions filters a markets query.
type GetMarketsOptions struct {
	Limit        int
	Cursor       string
	EventTicker  string
	SeriesTicker string
	Status       string // open, unopened, closed, settled
	Tickers      []string
}

// Event groups related markets under one series, e.g. all strike prices of
// the same daily index close.
type Event struct {
	EventTicker   string   `json:"event_ticker"`
	SeriesTicker  string   `json:"series_ticker"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"sub_title"`
	Category      string   `json:"category"`
	Status        string   `json:"status"`
	MarketTickers []string `json:"markets"`
}

// EventsResponse is a page of events.
type EventsResponse struct {
	Events []Event `json:"events"`
	Cursor string  `json:"cursor"`
}

// eventResponse wraps a single event.
type eventResponse struct {
	Event Event `json:"event"`
}

// GetEventsOptions filters an events query.
type GetEventsOptions struct {
	Limit        int
	Cursor       string
	SeriesTicker string
	Status       string
}

// Series is the top of the market hierarchy: a recurring question template
// whose instances are events.
type Series struct {
	Ticker            string   `json:"ticker"`
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	Frequency         string   `json:"frequency"`
	Tags              []string `json:"tags"`
	SettlementSources []string `json:"settlement_sources"`
}

// seriesResponse wraps a single series.
type seriesResponse struct {
	Series Series `json:"series"`
}

// SeriesListResponse is the full series list for a category.
type SeriesListResponse struct {
	Series []Series `json:"series"`
}

// Orderbook is the REST order book: yes and no bids as [price, qty] pairs
// sorted best price first. Asks are implied (no_ask = 100 - yes_bid).
type Orderbook struct {
	Yes [][]int `json:"yes"`
	No  [][]int `json:"no"`
}

// orderbookResponse wraps the REST order book payload.
type orderbookResponse struct {
	Orderbook Orderbook `json:"orderbook"`
}

// PublicTrade is one entry of the public trade tape.
type PublicTrade struct {
	TradeID   string `json:"trade_id"`
	Ticker    string `json:"ticker"`
	YesPrice  int    `json:"yes_price"`
	NoPrice   int    `json:"no_price"`
	Count     int    `json:"count"`
	TakerSide string `json:"taker_side"`
	CreatedAt string `json:"created_time"`
}

// TradesResponse is a page of public trades.
type TradesResponse struct {
	Trades []PublicTrade `json:"trades"`
	Cursor string        `json:"cursor"`
}

// Balance is the account balance in integer cents.
type Balance struct {
	Balance        int64 `json:"balance"`
	PortfolioValue int64 `json:"portfolio_value"`
	UpdatedTS      int64 `json:"updated_ts"`
}

// MarketPosition is a net position in one market. Position > 0 is net yes,
// < 0 is net no.
type MarketPosition struct {
	Ticker         string `json:"ticker"`
	Position       int    `json:"position"`
	TotalTraded    int64  `json:"total_traded"`
	MarketExposure int64  `json:"market_exposure"`
	RealizedPnL    int64  `json:"realized_pnl"`
	FeesPaid       int64  `json:"fees_paid"`
}

// PositionsResponse is a page of market positions.
type PositionsResponse struct {
	MarketPositions []MarketPosition `json:"market_positions"`
	Cursor          string           `json:"cursor"`
}

// Fill is one execution against the account's orders.
type Fill struct {
	FillID    string `json:"fill_id"`
	OrderID   string `json:"order_id"`
	Ticker    string `json:"ticker"`
	Side      string `json:"side"`
	Action    string `json:"action"`
	YesPrice  int    `json:"yes_price"`
	NoPrice   int    `json:"no_price"`
	Count     int    `json:"count"`
	IsTaker   bool   `json:"is_taker"`
	CreatedAt string `json:"created_time"`
}

// FillsResponse is a page of fills.
type FillsResponse struct {
	Fills  []Fill `json:"fills"`
	Cursor string `json:"cursor"`
}

// Settlement is a resolved market's payout for this account.
type Settlement struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	MarketResult string `json:"market_result"` // "yes" or "no"
	YesCount     int    `json:"yes_count"`
	YesTotalCost int64  `json:"yes_total_cost"`
	NoCount      int    `json:"no_count"`
	NoTotalCost  int64  `json:"no_total_cost"`
	Revenue      int64  `json:"revenue"`
	SettledTime  string `json:"settled_time"`
}

// SettlementsResponse is a page of settlements.
type SettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
	Cursor      string       `json:"cursor"`
}

// Order is the account's own order.
type Order struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"`
	Side           string `json:"side"`
	Action         string `json:"action"`
	Type           string `json:"type"`
	YesPrice       int    `json:"yes_price"`
	NoPrice        int    `json:"no_price"`
	Count          int    `json:"count"`
	RemainingCount int    `json:"remaining_count"`
	CreatedAt      string `json:"created_time"`
}

// CreateOrderRequest places a new order. Count is whole contracts; YesPrice
// is cents (1-99). ClientOrderID makes retries idempotent.
type CreateOrderRequest struct {
	Ticker        string `json:"ticker"`
	Side          string `json:"side"`   // "yes" or "no"
	Action        string `json:"action"` // "buy" or "sell"
	Type          string `json:"type"`   // "limit" or "market"
	Count         int    `json:"count"`
	YesPrice      int    `json:"yes_price,omitempty"`
	NoPrice       int    `json:"no_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// GetOrdersOptions filters an orders query.
type GetOrdersOptions struct {
	Ticker      string
	EventTicker string
	Status      string // resting, canceled, executed
	Limit       int
	Cursor      string
}

// OrdersResponse is a page of the account's orders.
type OrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// AmendOrderRequest rebooks a resting order at a new price. Amend is an
// atomic cancel + rebook: the server issues a new order ID and cancels the
// old one, so queue position is lost.
type AmendOrderRequest struct {
	Ticker               string `json:"ticker"`
	Side                 string `json:"side"`
	Action               string `json:"action"`
	Count                int    `json:"count"`
	YesPrice             int    `json:"yes_price,omitempty"`
	NoPrice              int    `json:"no_price,omitempty"`
	ClientOrderID        string `json:"client_order_id,omitempty"`
	UpdatedClientOrderID string `json:"updated_client_order_id,omitempty"`
}

// DecreaseOrderRequest shrinks a resting order's quantity in place, keeping
// queue position. Exactly one of ReduceBy or ReduceTo is set.
type DecreaseOrderRequest struct {
	ReduceBy int `json:"reduce_by,omitempty"`
	ReduceTo int `json:"reduce_to,omitempty"`
}

// orderResponse wraps a single order.
type orderResponse struct {
	Order Order `json:"order"`
}
