package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jmels/kalshi-stream/internal/config"
	"github.com/jmels/kalshi-stream/internal/model"
)

// batchSender is the slice of pgxpool.Pool the recorder needs. Tests
// substitute a fake.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// RecorderMetrics counts recorder activity since startup.
type RecorderMetrics struct {
	TradesInserted  int64
	TickersInserted int64
	Conflicts       int64
	Flushes         int64
	Errors          int64
}

// Recorder consumes typed events from the router and batch-writes trades
// and ticker updates. Events it does not persist (book updates, account
// events) are consumed and discarded so the event channel keeps draining.
type Recorder struct {
	cfg    config.RecorderConfig
	logger *slog.Logger

	// Input from the router
	events <-chan model.Event

	// Database
	db batchSender

	// Batching
	batchMu sync.Mutex
	trades  []tradeRow
	tickers []tickerRow
	metrics RecorderMetrics

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type tradeRow struct {
	TradeID    uuid.UUID
	Ticker     string
	YesPrice   int
	NoPrice    int
	Count      int
	TakerSide  string
	ExchangeTS int64
	ReceivedAt int64 // unix microseconds
}

type tickerRow struct {
	Ticker       string
	LastPrice    int
	YesBid       int
	YesAsk       int
	NoBid        int
	Volume       int64
	OpenInterest int64
	ExchangeTS   int64
	ReceivedAt   int64
}

// NewRecorder creates a Recorder reading from events and writing to db.
func NewRecorder(cfg config.RecorderConfig, events <-chan model.Event, db batchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:     cfg,
		events:  events,
		db:      db,
		logger:  logger,
		trades:  make([]tradeRow, 0, cfg.BatchSize),
		tickers: make([]tickerRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and flushing batches.
func (r *Recorder) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval.Duration(),
	)
}

// Stop shuts down the recorder and performs a final flush.
func (r *Recorder) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush uses the caller's context, ours is already cancelled.
	r.flush(ctx)
	r.logger.Info("recorder stopped")
}

// Stats returns current metrics.
func (r *Recorder) Stats() RecorderMetrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			r.handleEvent(ev)
		}
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush(r.ctx)
		}
	}
}

func (r *Recorder) handleEvent(ev model.Event) {
	var shouldFlush bool

	switch e := ev.(type) {
	case model.Trade:
		r.batchMu.Lock()
		r.trades = append(r.trades, transformTrade(e))
		shouldFlush = len(r.trades) >= r.cfg.BatchSize
		r.batchMu.Unlock()
	case model.Ticker:
		r.batchMu.Lock()
		r.tickers = append(r.tickers, transformTicker(e))
		shouldFlush = len(r.tickers) >= r.cfg.BatchSize
		r.batchMu.Unlock()
	default:
		// Book updates and account events are not persisted.
		return
	}

	if shouldFlush {
		r.flush(r.ctx)
	}
}

func transformTrade(t model.Trade) tradeRow {
	return tradeRow{
		TradeID:    t.TradeID,
		Ticker:     t.Ticker,
		YesPrice:   t.YesPrice,
		NoPrice:    t.NoPrice,
		Count:      t.Count,
		TakerSide:  t.TakerSide,
		ExchangeTS: t.ExchangeTS,
		ReceivedAt: t.ReceivedAt.UnixMicro(),
	}
}

func transformTicker(t model.Ticker) tickerRow {
	return tickerRow{
		Ticker:       t.Ticker,
		LastPrice:    t.LastPrice,
		YesBid:       t.YesBid,
		YesAsk:       t.YesAsk,
		NoBid:        t.NoBid,
		Volume:       t.Volume,
		OpenInterest: t.OpenInterest,
		ExchangeTS:   t.ExchangeTS,
		ReceivedAt:   t.ReceivedAt.UnixMicro(),
	}
}

// flush writes the pending batches. Trades and tickers flush together so a
// ticker-only period still drains on the interval.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	trades := r.trades
	tickers := r.tickers
	if len(trades) == 0 && len(tickers) == 0 {
		r.batchMu.Unlock()
		return
	}
	r.trades = make([]tradeRow, 0, r.cfg.BatchSize)
	r.tickers = make([]tickerRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (trade_id, ticker, yes_price, no_price, count, taker_side, exchange_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (trade_id) DO NOTHING
		`, t.TradeID, t.Ticker, t.YesPrice, t.NoPrice, t.Count, t.TakerSide, t.ExchangeTS, t.ReceivedAt)
	}
	for _, t := range tickers {
		batch.Queue(`
			INSERT INTO tickers (ticker, last_price, yes_bid, yes_ask, no_bid, volume, open_interest, exchange_ts, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, t.Ticker, t.LastPrice, t.YesBid, t.YesAsk, t.NoBid, t.Volume, t.OpenInterest, t.ExchangeTS, t.ReceivedAt)
	}

	conflicts, err := r.exec(ctx, batch)
	if err != nil {
		r.logger.Error("batch insert failed",
			"error", err,
			"trades", len(trades),
			"tickers", len(tickers),
		)
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.TradesInserted += int64(len(trades) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.TickersInserted += int64(len(tickers))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed batch",
		"trades", len(trades),
		"tickers", len(tickers),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (r *Recorder) exec(ctx context.Context, batch *pgx.Batch) (conflicts int, err error) {
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
