package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmels/kalshi-stream/internal/book"
	"github.com/jmels/kalshi-stream/internal/model"
)

// Router owns the subscribe/unsubscribe protocol and demultiplexes inbound
// frames: book frames mutate the order book store, everything else becomes a
// typed event on Events(). The server holds no subscription state across
// connections, so desired subscriptions are re-issued on every Bind.
type Router struct {
	cfg    Config
	logger *slog.Logger
	store  *book.Store

	mu sync.Mutex
	// desired is the subscription table that survives reconnects:
	// channel → set of market tickers (empty set for global channels).
	desired map[string]map[string]struct{}
	// pending maps outbound command IDs to the channel they subscribe.
	pending map[int]string
	// active maps server-assigned SIDs to channels for unsubscribe.
	active map[int64]string
	nextID int
	sender Sender

	malformed int // consecutive malformed frames

	events chan model.Event
}

// New creates a Router that applies book frames to store.
func New(cfg Config, store *book.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = DefaultConfig().DriftThreshold
	}
	return &Router{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		desired: make(map[string]map[string]struct{}),
		pending: make(map[int]string),
		active:  make(map[int64]string),
		events:  make(chan model.Event, cfg.EventBufferSize),
	}
}

// Events returns the typed event stream for external collaborators. Events
// are dropped with a warning when the consumer falls behind.
func (r *Router) Events() <-chan model.Event {
	return r.events
}

// Subscribe registers interest in a channel and, when a connection is bound,
// issues the subscribe command immediately. Market-scoped channels require at
// least one market ticker; account-scoped channels take none.
func (r *Router) Subscribe(channel string, markets ...string) error {
	if !knownChannels[channel] {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if marketScoped[channel] && len(markets) == 0 {
		return fmt.Errorf("%w: %q", ErrMarketsMissing, channel)
	}
	if !marketScoped[channel] && len(markets) > 0 {
		return fmt.Errorf("channel %q is account-scoped and takes no market tickers", channel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.desired[channel]
	if !ok {
		set = make(map[string]struct{})
		r.desired[channel] = set
	}
	added := make([]string, 0, len(markets))
	for _, m := range markets {
		if _, dup := set[m]; !dup {
			set[m] = struct{}{}
			added = append(added, m)
		}
	}
	if !marketScoped[channel] || len(added) > 0 {
		if r.sender != nil {
			return r.sendSubscribeLocked(channel)
		}
	}
	return nil
}

// Unsubscribe removes interest in a channel and, when connected, issues an
// unsubscribe command for its active SIDs.
func (r *Router) Unsubscribe(channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.desired, channel)

	var sids []int64
	for sid, ch := range r.active {
		if ch == channel {
			sids = append(sids, sid)
			delete(r.active, sid)
		}
	}
	if r.sender == nil || len(sids) == 0 {
		return nil
	}

	r.nextID++
	cmd := command{ID: r.nextID, Cmd: "unsubscribe", Params: unsubscribeParams{SIDs: sids}}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal unsubscribe: %w", err)
	}
	return r.sender.Send(data)
}

// Bind attaches a freshly connected transport and re-issues every desired
// subscription. Called by the connection manager on each transition into
// Connected.
func (r *Router) Bind(s Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sender = s
	r.pending = make(map[int]string)
	r.active = make(map[int64]string)
	r.malformed = 0

	channels := make([]string, 0, len(r.desired))
	for ch := range r.desired {
		channels = append(channels, ch)
	}
	sort.Strings(channels) // deterministic command order

	for _, ch := range channels {
		if err := r.sendSubscribeLocked(ch); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
	}
	return nil
}

// Unbind detaches the transport and discards all connection-scoped state,
// including the order books. Desired subscriptions are kept for the next Bind.
func (r *Router) Unbind() {
	r.mu.Lock()
	r.sender = nil
	r.pending = make(map[int]string)
	r.active = make(map[int64]string)
	r.malformed = 0
	r.mu.Unlock()

	r.store.Clear()
}

// sendSubscribeLocked issues one subscribe command for a channel. Caller
// holds r.mu.
func (r *Router) sendSubscribeLocked(channel string) error {
	if r.sender == nil {
		return ErrNotBound
	}

	params := subscribeParams{Channels: []string{channel}}
	if marketScoped[channel] {
		for m := range r.desired[channel] {
			params.MarketTickers = append(params.MarketTickers, m)
		}
		sort.Strings(params.MarketTickers)
	}

	r.nextID++
	cmd := command{ID: r.nextID, Cmd: "subscribe", Params: params}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := r.sender.Send(data); err != nil {
		return err
	}
	r.pending[cmd.ID] = channel

	r.logger.Debug("subscribe sent",
		"id", cmd.ID,
		"channel", channel,
		"markets", len(params.MarketTickers),
	)
	return nil
}

// Handle dispatches one inbound frame. It returns ErrProtocolDrift when the
// run of consecutive malformed frames crosses the configured threshold; the
// caller must then force a reconnect.
func (r *Router) Handle(data []byte, receivedAt time.Time) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return r.noteMalformed(err)
	}

	switch env.Type {
	case "subscribed", "unsubscribed", "error", "ok":
		r.handleResponse(env)

	case "orderbook_snapshot":
		var msg snapshotMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		r.store.ApplySnapshot(msg.MarketTicker, toLevels(msg.Yes), toLevels(msg.No))
		r.logger.Debug("book snapshot applied",
			"ticker", msg.MarketTicker,
			"yes_levels", len(msg.Yes),
			"no_levels", len(msg.No),
		)
		r.publish(model.BookUpdate{Ticker: msg.MarketTicker, ReceivedAt: receivedAt})

	case "orderbook_delta":
		var msg deltaMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		err := r.store.ApplyDelta(msg.MarketTicker, book.Side(msg.Side), msg.Price, msg.Delta)
		if errors.Is(err, book.ErrNotSynced) {
			// Delta before snapshot: drop, the market stays unsynchronized
			// until the next snapshot arrives.
			r.logger.Warn("delta before snapshot, dropped",
				"ticker", msg.MarketTicker,
				"price", msg.Price,
				"delta", msg.Delta,
			)
			break
		}
		if err != nil {
			return r.noteMalformed(err)
		}
		r.publish(model.BookUpdate{Ticker: msg.MarketTicker, ReceivedAt: receivedAt})

	case "ticker":
		var msg tickerMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		r.publish(model.Ticker{
			Ticker:       msg.MarketTicker,
			LastPrice:    msg.LastPrice,
			YesBid:       msg.YesBid,
			YesAsk:       msg.YesAsk,
			NoBid:        msg.NoBid,
			Volume:       msg.Volume,
			OpenInterest: msg.OpenInterest,
			ExchangeTS:   msg.TS,
			ReceivedAt:   receivedAt,
		})

	case "trade":
		var msg tradeMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		id, err := uuid.Parse(msg.TradeID)
		if err != nil {
			return r.noteMalformed(fmt.Errorf("trade_id: %w", err))
		}
		r.publish(model.Trade{
			TradeID:    id,
			Ticker:     msg.MarketTicker,
			YesPrice:   msg.YesPrice,
			NoPrice:    msg.NoPrice,
			Count:      msg.Count,
			TakerSide:  msg.TakerSide,
			ExchangeTS: msg.TS,
			ReceivedAt: receivedAt,
		})

	case "user_orders", "order_created", "order_updated":
		var msg orderMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		id, err := uuid.Parse(msg.OrderID)
		if err != nil {
			return r.noteMalformed(fmt.Errorf("order_id: %w", err))
		}
		r.publish(model.OrderUpdate{
			OrderID:        id,
			Ticker:         msg.Ticker,
			Status:         msg.Status,
			Action:         msg.Action,
			Side:           msg.Side,
			YesPrice:       msg.YesPrice,
			RemainingCount: msg.RemainingCount,
			FilledCount:    msg.FilledCount,
			ExchangeTS:     msg.TS,
			ReceivedAt:     receivedAt,
		})

	case "fill":
		var msg fillMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		fillID, err := uuid.Parse(msg.FillID)
		if err != nil {
			return r.noteMalformed(fmt.Errorf("fill_id: %w", err))
		}
		orderID, err := uuid.Parse(msg.OrderID)
		if err != nil {
			return r.noteMalformed(fmt.Errorf("order_id: %w", err))
		}
		r.publish(model.Fill{
			FillID:     fillID,
			OrderID:    orderID,
			Ticker:     msg.Ticker,
			Side:       msg.Side,
			Action:     msg.Action,
			YesPrice:   msg.YesPrice,
			Count:      msg.Count,
			FeeCents:   msg.FeeCost,
			IsTaker:    msg.IsTaker,
			ExchangeTS: msg.TS,
			ReceivedAt: receivedAt,
		})

	case "market_lifecycle_v2", "market_lifecycle":
		var msg lifecycleMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			return r.noteMalformed(err)
		}
		r.publish(model.Lifecycle{
			Ticker:          msg.MarketTicker,
			Status:          msg.Status,
			SettlementValue: msg.SettlementValue,
			ExchangeTS:      msg.TS,
			ReceivedAt:      receivedAt,
		})

	default:
		// Unknown channel tag: ignore for forward compatibility.
		r.logger.Debug("ignoring unknown frame type", "type", env.Type)
	}

	// Any well-formed frame resets the drift counter.
	r.mu.Lock()
	r.malformed = 0
	r.mu.Unlock()
	return nil
}

// handleResponse correlates a command response with its pending subscribe.
func (r *Router) handleResponse(env envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch env.Type {
	case "subscribed":
		var msg subscribedMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			r.logger.Warn("unparseable subscribed response", "error", err)
			return
		}
		channel := msg.Channel
		if ch, ok := r.pending[env.ID]; ok {
			channel = ch
			delete(r.pending, env.ID)
		}
		r.active[msg.SID] = channel
		r.logger.Info("subscribed", "channel", channel, "sid", msg.SID)

	case "unsubscribed":
		r.logger.Debug("unsubscribed", "id", env.ID)

	case "error":
		var msg errorMsg
		if err := json.Unmarshal(env.Msg, &msg); err != nil {
			r.logger.Warn("unparseable error response", "error", err)
			return
		}
		channel := r.pending[env.ID]
		delete(r.pending, env.ID)
		r.logger.Warn("command rejected",
			"id", env.ID,
			"channel", channel,
			"code", msg.Code,
			"message", msg.Message,
		)

	case "ok":
		delete(r.pending, env.ID)
	}
}

// noteMalformed logs a dropped frame and escalates to ErrProtocolDrift when
// the consecutive run crosses the threshold. A run this long likely means
// protocol drift rather than one-off corruption.
func (r *Router) noteMalformed(cause error) error {
	r.mu.Lock()
	r.malformed++
	count := r.malformed
	r.mu.Unlock()

	r.logger.Warn("malformed frame dropped", "error", cause, "consecutive", count)

	if count >= r.cfg.DriftThreshold {
		return fmt.Errorf("%w: %d consecutive", ErrProtocolDrift, count)
	}
	return nil
}

// publish sends an event without blocking the consumer loop.
func (r *Router) publish(ev model.Event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("event buffer full, dropping", "kind", ev.EventKind())
	}
}

// toLevels converts wire [[price, quantity], ...] pairs to book levels.
func toLevels(pairs [][]int) []book.Level {
	out := make([]book.Level, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		out = append(out, book.Level{Price: p[0], Quantity: p[1]})
	}
	return out
}
