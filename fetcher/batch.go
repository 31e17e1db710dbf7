package fetcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"stock-ticker/market"
	"stock-ticker/watchlist"
)

// Result is one symbol's outcome inside a batch, exactly one of Quote or Err
// is set.
type Result struct {
	Quote *market.Quote
	Err   error
}

// Batch maps symbols to results while preserving the requested order.
type Batch struct {
	Symbols   []string
	Results   map[string]Result
	FetchedAt time.Time
}

func (b *Batch) Get(symbol string) (Result, bool) {
	r, ok := b.Results[watchlist.Normalize(symbol)]
	return r, ok
}

func (b *Batch) ErrorCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// GetQuotes fetches each symbol independently, a failure for one never aborts
// the batch. Duplicates collapse onto the first occurrence.
func (f *Fetcher) GetQuotes(ctx context.Context, symbols []string, force bool) *Batch {
	batch := &Batch{
		Results:   make(map[string]Result, len(symbols)),
		FetchedAt: time.Now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, raw := range symbols {
		symbol := watchlist.Normalize(raw)
		if symbol == "" {
			continue
		}
		if _, seen := batch.Results[symbol]; seen {
			continue
		}
		batch.Symbols = append(batch.Symbols, symbol)

		quote, err := f.getQuoteLocked(ctx, symbol, force)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to fetch %s", symbol)
			batch.Results[symbol] = Result{Err: err}
			continue
		}
		batch.Results[symbol] = Result{Quote: quote}
	}
	return batch
}
