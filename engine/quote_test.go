package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopbot/client"
)

type fakeBookSource struct {
	books map[string]*client.BookResponse
	err   error
	calls int
}

func (f *fakeBookSource) GetBook(ctx context.Context, tokenID string) (*client.BookResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	book, ok := f.books[tokenID]
	if !ok {
		return &client.BookResponse{AssetID: tokenID}, nil
	}
	return book, nil
}

func levels(prices ...float64) []client.PriceLevel {
	out := make([]client.PriceLevel, 0, len(prices))
	for _, p := range prices {
		out = append(out, client.PriceLevel{Price: client.StringFloat64(p), Size: 100})
	}
	return out
}

func TestQuoteFromLevels_BestOfEachSide(t *testing.T) {
	q := QuoteFromLevels(levels(0.40, 0.52, 0.48), levels(0.60, 0.55, 0.71))

	require.True(t, q.HasBid)
	require.True(t, q.HasAsk)
	assert.Equal(t, 0.52, q.Bid)
	assert.Equal(t, 0.55, q.Ask)
}

func TestQuoteFromLevels_EmptySidesAreAbsent(t *testing.T) {
	q := QuoteFromLevels(nil, levels(0.55))
	assert.False(t, q.HasBid)
	assert.True(t, q.HasAsk)

	q = QuoteFromLevels(levels(0.55), nil)
	assert.True(t, q.HasBid)
	assert.False(t, q.HasAsk)
}

func TestQuoteFromLevels_NonPhysicalPricesIgnored(t *testing.T) {
	q := QuoteFromLevels(levels(0, 1.0), levels(1.0, 0))
	assert.False(t, q.HasBid)
	assert.False(t, q.HasAsk)
}

func TestQuoteReader_TransportErrorIsQuoteUnavailable(t *testing.T) {
	reader := NewQuoteReader(&fakeBookSource{err: errors.New("connection refused")})

	_, err := reader.GetQuote(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestQuoteReader_DerivesFromSnapshot(t *testing.T) {
	books := &fakeBookSource{books: map[string]*client.BookResponse{
		"tok": {Bids: levels(0.44, 0.45), Asks: levels(0.47, 0.46)},
	}}
	reader := NewQuoteReader(books)

	q, err := reader.GetQuote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.45, q.Bid)
	assert.Equal(t, 0.46, q.Ask)
}

func TestQuoteCache_FreshEntrySkipsFallback(t *testing.T) {
	books := &fakeBookSource{}
	cache := NewQuoteCache(NewQuoteReader(books), time.Minute)

	cache.ApplyBestBidAsk(client.BestBidAskMessage{
		AssetID: "tok",
		BestBid: 0.48,
		BestAsk: 0.52,
	})

	q, err := cache.GetQuote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.48, q.Bid)
	assert.Equal(t, 0.52, q.Ask)
	assert.Zero(t, books.calls)
}

func TestQuoteCache_StaleEntryFallsBack(t *testing.T) {
	books := &fakeBookSource{books: map[string]*client.BookResponse{
		"tok": {Bids: levels(0.30), Asks: levels(0.35)},
	}}
	cache := NewQuoteCache(NewQuoteReader(books), time.Minute)

	cache.ApplyBestBidAsk(client.BestBidAskMessage{AssetID: "tok", BestBid: 0.48, BestAsk: 0.52})
	cache.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	q, err := cache.GetQuote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.30, q.Bid)
	assert.Equal(t, 1, books.calls)
}

func TestQuoteCache_BookPushReplacesQuote(t *testing.T) {
	cache := NewQuoteCache(nil, time.Minute)

	cache.ApplyBook(client.BookMessage{
		AssetID: "tok",
		Bids:    levels(0.41, 0.43),
		Asks:    levels(0.50, 0.49),
	})

	q, err := cache.GetQuote(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.43, q.Bid)
	assert.Equal(t, 0.49, q.Ask)
}

func TestQuoteCache_MissWithoutFallbackIsUnavailable(t *testing.T) {
	cache := NewQuoteCache(nil, time.Minute)

	_, err := cache.GetQuote(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}
