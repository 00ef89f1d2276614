// Package book implements the local order book store.
//
// Each subscribed market's book is reconciled from exactly one snapshot
// (full replace) followed by an ordered sequence of deltas. The result is
// deterministic: it depends only on the frame sequence, never on how frames
// were chunked at the transport layer. Books are discarded on disconnect and
// rebuilt from the snapshot sent after resubscribing.
package book
