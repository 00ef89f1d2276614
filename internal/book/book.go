package book

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/btree"
)

// ErrNotSynced is returned when a delta arrives for a market that has not
// received a snapshot on the current connection.
var ErrNotSynced = errors.New("market not synchronized (no snapshot)")

// Side identifies one side of a binary market's book. Both sides are bids:
// resting YES buy orders and resting NO buy orders.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Level is one price level: an integer price in cents (1-99) and the resting
// quantity at that price. A level with quantity <= 0 is never stored.
type Level struct {
	Price    int
	Quantity int
}

func lessByPrice(a, b Level) bool { return a.Price < b.Price }

// sideBook holds one side's levels sorted by price.
type sideBook struct {
	levels *btree.BTreeG[Level]
}

func newSideBook() *sideBook {
	return &sideBook{levels: btree.NewG(8, lessByPrice)}
}

// apply adds delta to the quantity at price, removing the level when the
// result drops to zero or below.
func (sb *sideBook) apply(price, delta int) {
	current, found := sb.levels.Get(Level{Price: price})
	qty := delta
	if found {
		qty = current.Quantity + delta
	}

	if qty <= 0 {
		sb.levels.Delete(Level{Price: price})
		return
	}
	sb.levels.ReplaceOrInsert(Level{Price: price, Quantity: qty})
}

// top returns up to n levels, best (highest) price first.
func (sb *sideBook) top(n int) []Level {
	out := make([]Level, 0, min(n, sb.levels.Len()))
	sb.levels.Descend(func(lvl Level) bool {
		out = append(out, lvl)
		return n <= 0 || len(out) < n
	})
	return out
}

// all returns every level, best price first.
func (sb *sideBook) all() []Level {
	return sb.top(0)
}

// marketBook is the full local book for one market.
type marketBook struct {
	yes *sideBook
	no  *sideBook
}

// Snapshot is an immutable copy of one market's book handed to readers.
// Levels are ordered best price first.
type Snapshot struct {
	Ticker string
	Yes    []Level
	No     []Level
}

// BestBid returns the highest-priced level on a side, if any.
func (s Snapshot) BestBid(side Side) (Level, bool) {
	levels := s.Yes
	if side == SideNo {
		levels = s.No
	}
	if len(levels) == 0 {
		return Level{}, false
	}
	return levels[0], true
}

// Store owns the authoritative in-memory order books for all subscribed
// markets. Writes come only from the connection's consumer loop, strictly in
// frame arrival order; the lock exists so external collaborators can query
// consistent snapshots at any time.
type Store struct {
	mu     sync.RWMutex
	books  map[string]*marketBook
	logger *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		books:  make(map[string]*marketBook),
		logger: logger,
	}
}

// ApplySnapshot replaces all state for a market. This is the synchronization
// point after which deltas become meaningful.
func (s *Store) ApplySnapshot(ticker string, yes, no []Level) {
	mb := &marketBook{yes: newSideBook(), no: newSideBook()}
	for _, lvl := range yes {
		if lvl.Quantity > 0 {
			mb.yes.levels.ReplaceOrInsert(lvl)
		}
	}
	for _, lvl := range no {
		if lvl.Quantity > 0 {
			mb.no.levels.ReplaceOrInsert(lvl)
		}
	}

	s.mu.Lock()
	s.books[ticker] = mb
	s.mu.Unlock()
}

// ApplyDelta adds a signed quantity change to one price level. A delta for a
// market with no snapshot on the current connection is rejected with
// ErrNotSynced and must be dropped by the caller.
func (s *Store) ApplyDelta(ticker string, side Side, price, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.books[ticker]
	if !ok {
		return ErrNotSynced
	}

	switch side {
	case SideYes:
		mb.yes.apply(price, delta)
	case SideNo:
		mb.no.apply(price, delta)
	default:
		return fmt.Errorf("invalid side: %q", side)
	}
	return nil
}

// Snapshot returns a deep copy of a market's current book. The second return
// is false until the first snapshot frame for the market has been applied.
func (s *Store) Snapshot(ticker string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mb, ok := s.books[ticker]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Ticker: ticker,
		Yes:    mb.yes.all(),
		No:     mb.no.all(),
	}, true
}

// TopLevels returns up to n best-priced levels on one side of a market.
func (s *Store) TopLevels(ticker string, side Side, n int) ([]Level, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mb, ok := s.books[ticker]
	if !ok {
		return nil, false
	}
	if side == SideNo {
		return mb.no.top(n), true
	}
	return mb.yes.top(n), true
}

// Synced reports whether a snapshot has been applied for the market on the
// current connection.
func (s *Store) Synced(ticker string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.books[ticker]
	return ok
}

// Markets returns the tickers with a synchronized book.
func (s *Store) Markets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.books))
	for ticker := range s.books {
		out = append(out, ticker)
	}
	return out
}

// Clear discards all books. Called on disconnect: the protocol guarantees no
// cross-connection continuity, so state must be rebuilt from fresh snapshots.
func (s *Store) Clear() {
	s.mu.Lock()
	s.books = make(map[string]*marketBook)
	s.mu.Unlock()
}
