package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stopbot/client"
)

// Quote is the top-of-book for one token, recomputed on every read. A side
// with no resting orders (or only non-physical prices at 0 or 1) is absent.
type Quote struct {
	Bid    float64
	Ask    float64
	HasBid bool
	HasAsk bool
}

// QuoteSource answers "what is the top-of-book for token X right now".
type QuoteSource interface {
	GetQuote(ctx context.Context, tokenID string) (Quote, error)
}

// BookSource fetches a raw order-book snapshot.
type BookSource interface {
	GetBook(ctx context.Context, tokenID string) (*client.BookResponse, error)
}

// QuoteReader derives quotes from REST book snapshots.
type QuoteReader struct {
	books BookSource
}

func NewQuoteReader(books BookSource) *QuoteReader {
	return &QuoteReader{books: books}
}

func (r *QuoteReader) GetQuote(ctx context.Context, tokenID string) (Quote, error) {
	book, err := r.books.GetBook(ctx, tokenID)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return QuoteFromLevels(book.Bids, book.Asks), nil
}

// QuoteFromLevels computes best bid as the maximum bid level and best ask as
// the minimum ask level, ignoring levels at or outside (0,1).
func QuoteFromLevels(bids, asks []client.PriceLevel) Quote {
	var q Quote
	for _, lvl := range bids {
		p := float64(lvl.Price)
		if p <= 0 || p >= 1 {
			continue
		}
		if !q.HasBid || p > q.Bid {
			q.Bid = p
			q.HasBid = true
		}
	}
	for _, lvl := range asks {
		p := float64(lvl.Price)
		if p <= 0 || p >= 1 {
			continue
		}
		if !q.HasAsk || p < q.Ask {
			q.Ask = p
			q.HasAsk = true
		}
	}
	return q
}

type cachedQuote struct {
	quote Quote
	at    time.Time
}

// QuoteCache serves quotes pushed over the market stream and falls back to
// a reader when the cached entry is missing or stale. Push and pull deliver
// the same shape; both go through the same derivation.
type QuoteCache struct {
	mu       sync.RWMutex
	quotes   map[string]cachedQuote
	fallback QuoteSource
	maxAge   time.Duration
	now      func() time.Time
}

func NewQuoteCache(fallback QuoteSource, maxAge time.Duration) *QuoteCache {
	return &QuoteCache{
		quotes:   make(map[string]cachedQuote),
		fallback: fallback,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

func (qc *QuoteCache) GetQuote(ctx context.Context, tokenID string) (Quote, error) {
	qc.mu.RLock()
	entry, ok := qc.quotes[tokenID]
	qc.mu.RUnlock()

	if ok && qc.now().Sub(entry.at) <= qc.maxAge {
		return entry.quote, nil
	}

	if qc.fallback == nil {
		return Quote{}, ErrQuoteUnavailable
	}
	return qc.fallback.GetQuote(ctx, tokenID)
}

// ApplyBook replaces the cached quote for a token from a full book push.
func (qc *QuoteCache) ApplyBook(msg client.BookMessage) {
	qc.put(msg.AssetID, QuoteFromLevels(msg.Bids, msg.Asks))
}

// ApplyBestBidAsk replaces the cached quote from a top-of-book push.
func (qc *QuoteCache) ApplyBestBidAsk(msg client.BestBidAskMessage) {
	bid := float64(msg.BestBid)
	ask := float64(msg.BestAsk)
	q := Quote{
		Bid:    bid,
		Ask:    ask,
		HasBid: bid > 0 && bid < 1,
		HasAsk: ask > 0 && ask < 1,
	}
	qc.put(msg.AssetID, q)
}

func (qc *QuoteCache) put(tokenID string, q Quote) {
	qc.mu.Lock()
	qc.quotes[tokenID] = cachedQuote{quote: q, at: qc.now()}
	qc.mu.Unlock()
}
