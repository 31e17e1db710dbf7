package fetcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"stock-ticker/cache"
	"stock-ticker/market"
)

// stubProvider answers from a scripted function and counts calls.
type stubProvider struct {
	name string

	mu    sync.Mutex
	calls int
	fn    func(symbol string) (*market.Quote, error)
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) GetQuote(_ context.Context, symbol string) (*market.Quote, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.fn(symbol)
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func quoteFrom(name string, symbol string, price float64) *market.Quote {
	abs, pct := market.ComputeChange(price, price-10)
	return &market.Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: price - 10,
		ChangeAbs:     abs,
		ChangePct:     pct,
		Volume:        1000,
		Source:        market.Source(name),
		FetchedAt:     time.Now(),
	}
}

func succeeding(name string, price float64) *stubProvider {
	return &stubProvider{name: name, fn: func(symbol string) (*market.Quote, error) {
		return quoteFrom(name, symbol, price), nil
	}}
}

func failing(name string, kind market.ErrorKind) *stubProvider {
	return &stubProvider{name: name, fn: func(symbol string) (*market.Quote, error) {
		return nil, market.NewFetchError(symbol, name, kind, errors.New("boom"))
	}}
}

// newTestFetcher disables call pacing and replaces the backoff sleep with a
// recorder, so tests never block.
func newTestFetcher(store *cache.Store, providers ...market.Provider) (*Fetcher, *[]time.Duration) {
	f := New(store, providers...)
	for _, ps := range f.chain {
		ps.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestCacheHitAvoidsProviderCall(t *testing.T) {
	primary := succeeding("NSE", 2800)
	store := cache.New(time.Hour)
	f, _ := newTestFetcher(store, primary)

	first, err := f.GetQuote(context.Background(), "RELIANCE.NS", false)
	require.NoError(t, err)
	require.Equal(t, 1, primary.callCount())

	second, err := f.GetQuote(context.Background(), "RELIANCE.NS", false)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.callCount(), "cached hit must not touch the provider")
	assert.Same(t, first, second, "cache serves the exact stored entry")
}

func TestForceBypassesCacheAndOverwrites(t *testing.T) {
	price := 100.0
	primary := &stubProvider{name: "NSE"}
	primary.fn = func(symbol string) (*market.Quote, error) {
		price += 1
		return quoteFrom("NSE", symbol, price), nil
	}
	store := cache.New(time.Hour)
	f, _ := newTestFetcher(store, primary)

	_, err := f.GetQuote(context.Background(), "TCS.NS", false)
	require.NoError(t, err)

	fresh, err := f.GetQuote(context.Background(), "TCS.NS", true)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.callCount())

	cached, ok := store.Get("TCS.NS")
	require.True(t, ok)
	assert.Same(t, fresh, cached, "force refresh overwrites the cache entry")
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	primary := failing("NSE", market.ErrNetwork)
	fallback := succeeding("Yahoo Finance", 1500)
	f, _ := newTestFetcher(cache.New(time.Hour), primary, fallback)

	quote, err := f.GetQuote(context.Background(), "INFY.NS", true)
	require.NoError(t, err)
	assert.Equal(t, market.SourceYahoo, quote.Source)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestNotFoundStillTriesFallback(t *testing.T) {
	// a scrip NSE does not list may still resolve via Yahoo
	primary := failing("NSE", market.ErrNotFound)
	fallback := succeeding("Yahoo Finance", 42)
	f, _ := newTestFetcher(cache.New(time.Hour), primary, fallback)

	quote, err := f.GetQuote(context.Background(), "BSE500.BO", true)
	require.NoError(t, err)
	assert.Equal(t, market.SourceYahoo, quote.Source)
}

func TestBothFailLeavesStaleCacheServable(t *testing.T) {
	store := cache.New(time.Hour)
	stale := quoteFrom("NSE", "SBIN.NS", 750)
	store.Put("SBIN.NS", stale)

	primary := failing("NSE", market.ErrNetwork)
	fallback := failing("Yahoo Finance", market.ErrMalformed)
	f, _ := newTestFetcher(store, primary, fallback)

	_, err := f.GetQuote(context.Background(), "SBIN.NS", true)
	require.Error(t, err)
	assert.Equal(t, market.ErrMalformed, market.KindOf(err), "the last cause is surfaced")

	cached, ok := store.Get("SBIN.NS")
	require.True(t, ok, "a failed fetch never evicts the stale entry")
	assert.Same(t, stale, cached)
}

func TestRateLimitBacksOffAndRetriesOnce(t *testing.T) {
	primary := failing("NSE", market.ErrRateLimited)
	fallback := succeeding("Yahoo Finance", 900)
	f, slept := newTestFetcher(cache.New(time.Hour), primary, fallback)

	quote, err := f.GetQuote(context.Background(), "ITC.NS", true)
	require.NoError(t, err)
	assert.Equal(t, market.SourceYahoo, quote.Source)
	assert.Equal(t, 2, primary.callCount(), "exactly one retry against the throttling provider")
	require.Equal(t, []time.Duration{time.Second}, *slept)

	// the next rate-limit response doubles the remembered backoff
	_, err = f.GetQuote(context.Background(), "ITC.NS", true)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestBackoffIsCappedAndResetsOnSuccess(t *testing.T) {
	ps := &providerState{}
	var waits []time.Duration
	for i := 0; i < 10; i++ {
		waits = append(waits, ps.nextBackoff())
	}
	assert.Equal(t, time.Second, waits[0])
	assert.Equal(t, 2*time.Second, waits[1])
	assert.Equal(t, backoffCap, waits[len(waits)-1])

	ps.backoff = 0 // what a successful call does
	assert.Equal(t, time.Second, ps.nextBackoff())
}

func TestGetQuotesPartialFailure(t *testing.T) {
	primary := &stubProvider{name: "NSE"}
	primary.fn = func(symbol string) (*market.Quote, error) {
		if symbol == "BADSYM.NS" {
			return nil, market.NewFetchError(symbol, "NSE", market.ErrNotFound, errors.New("no data"))
		}
		return quoteFrom("NSE", symbol, 100), nil
	}
	f, _ := newTestFetcher(cache.New(time.Hour), primary)

	batch := f.GetQuotes(context.Background(), []string{"tcs", "badsym", "TCS.NS", "infy"}, true)

	assert.Equal(t, []string{"TCS.NS", "BADSYM.NS", "INFY.NS"}, batch.Symbols, "normalized, deduped, order kept")
	assert.Equal(t, 1, batch.ErrorCount())

	good, ok := batch.Get("tcs")
	require.True(t, ok)
	require.NoError(t, good.Err)
	assert.Equal(t, "TCS.NS", good.Quote.Symbol)

	bad, ok := batch.Get("BADSYM.NS")
	require.True(t, ok)
	require.Error(t, bad.Err)
	assert.Equal(t, market.ErrNotFound, market.KindOf(bad.Err))
}

func TestForgetInvalidatesCacheEntry(t *testing.T) {
	store := cache.New(time.Hour)
	primary := succeeding("NSE", 100)
	f, _ := newTestFetcher(store, primary)

	_, err := f.GetQuote(context.Background(), "LT.NS", false)
	require.NoError(t, err)

	f.Forget("lt")
	_, ok := store.Get("LT.NS")
	assert.False(t, ok)
}
