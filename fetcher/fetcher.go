// Package fetcher implements the cache-then-primary-then-fallback quote
// fetch policy, with per-provider pacing and rate-limit backoff.
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"stock-ticker/cache"
	"stock-ticker/market"
	"stock-ticker/watchlist"
)

const (
	// minimum spacing between calls to the same provider
	callSpacing = 500 * time.Millisecond

	backoffBase   = time.Second
	backoffFactor = 2
	backoffCap    = 60 * time.Second
)

type providerState struct {
	provider market.Provider
	limiter  *rate.Limiter
	// wait applied on the next rate-limit response, doubles while a provider
	// keeps throttling us and resets on the first success
	backoff time.Duration
}

type Fetcher struct {
	store *cache.Store
	chain []*providerState

	// serializes all fetches: cache reads/overwrites must not race between
	// the scheduler worker and a concurrent manual refresh
	mu    sync.Mutex
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a fetcher over providers in priority order, first is primary.
func New(store *cache.Store, providers ...market.Provider) *Fetcher {
	f := &Fetcher{store: store, sleep: sleepContext}
	for _, p := range providers {
		f.chain = append(f.chain, &providerState{
			provider: p,
			limiter:  rate.NewLimiter(rate.Every(callSpacing), 1),
		})
	}
	return f
}

// GetQuote returns a quote for symbol, served from cache unless force is set
// or the entry has expired. A failed fetch never clobbers a cached entry.
func (f *Fetcher) GetQuote(ctx context.Context, symbol string, force bool) (*market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getQuoteLocked(ctx, watchlist.Normalize(symbol), force)
}

// Forget drops the cached entry for symbol, paired with watchlist removal.
func (f *Fetcher) Forget(symbol string) {
	f.store.Invalidate(watchlist.Normalize(symbol))
}

func (f *Fetcher) getQuoteLocked(ctx context.Context, symbol string, force bool) (*market.Quote, error) {
	if !force {
		if quote, ok := f.store.Get(symbol); ok {
			logrus.Debugf("Cache hit for %s", symbol)
			return quote, nil
		}
	}

	var lastErr error
	for _, ps := range f.chain {
		quote, err := f.tryProvider(ctx, ps, symbol)
		if err == nil {
			f.store.Put(symbol, quote)
			return quote, nil
		}
		lastErr = err
		logrus.WithError(err).Debugf("%s failed for %s", ps.provider.Name(), symbol)
	}
	return nil, lastErr
}

// tryProvider performs one paced provider call, retrying the same provider
// exactly once after a backoff when it reports rate limiting.
func (f *Fetcher) tryProvider(ctx context.Context, ps *providerState, symbol string) (*market.Quote, error) {
	quote, err := f.callPaced(ctx, ps, symbol)
	if err == nil {
		ps.backoff = 0
		return quote, nil
	}
	if market.KindOf(err) != market.ErrRateLimited {
		return nil, err
	}

	wait := ps.nextBackoff()
	logrus.Warnf("%s rate limited us, backing off %v before one retry", ps.provider.Name(), wait)
	if serr := f.sleep(ctx, wait); serr != nil {
		return nil, market.NewFetchError(symbol, ps.provider.Name(), market.ErrNetwork, serr)
	}
	quote, err = f.callPaced(ctx, ps, symbol)
	if err == nil {
		ps.backoff = 0
	}
	return quote, err
}

func (f *Fetcher) callPaced(ctx context.Context, ps *providerState, symbol string) (*market.Quote, error) {
	if err := ps.limiter.Wait(ctx); err != nil {
		return nil, market.NewFetchError(symbol, ps.provider.Name(), market.ErrNetwork, err)
	}
	return ps.provider.GetQuote(ctx, symbol)
}

func (ps *providerState) nextBackoff() time.Duration {
	if ps.backoff == 0 {
		ps.backoff = backoffBase
	} else {
		ps.backoff *= backoffFactor
		if ps.backoff > backoffCap {
			ps.backoff = backoffCap
		}
	}
	return ps.backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
