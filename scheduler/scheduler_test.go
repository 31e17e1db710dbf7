package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-ticker/fetcher"
	"stock-ticker/market"
	"stock-ticker/watchlist"
)

// stubSource fabricates full-success batches, optionally blocking to simulate
// a slow network.
type stubSource struct {
	block   chan struct{} // when set, every fetch waits for a receive
	entered chan struct{} // signaled once per fetch on entry

	inFlight      int32
	maxInFlight   int32
	forcedFetches int32
}

func (s *stubSource) GetQuotes(_ context.Context, symbols []string, force bool) *fetcher.Batch {
	cur := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		max := atomic.LoadInt32(&s.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&s.maxInFlight, max, cur) {
			break
		}
	}
	if force {
		atomic.AddInt32(&s.forcedFetches, 1)
	}
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}

	batch := &fetcher.Batch{Results: make(map[string]fetcher.Result), FetchedAt: time.Now()}
	for _, symbol := range symbols {
		batch.Symbols = append(batch.Symbols, symbol)
		batch.Results[symbol] = fetcher.Result{Quote: &market.Quote{
			Symbol: symbol, Price: 100, Source: market.SourceNSE, FetchedAt: time.Now(),
		}}
	}
	return batch
}

// memSink records delivered batches.
type memSink struct {
	mu      sync.Mutex
	batches []*fetcher.Batch
}

func (m *memSink) Update(batch *fetcher.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestStartRejectsInvalidInterval(t *testing.T) {
	s := New(&stubSource{}, watchlist.New("TCS.NS"))
	assert.Error(t, s.Start(0))
	assert.Error(t, s.Start(-time.Second))
	assert.False(t, s.Running())
}

func TestTicksDeliverForcedBatchesToAllSinks(t *testing.T) {
	source := &stubSource{}
	first, second := &memSink{}, &memSink{}
	s := New(source, watchlist.New("TCS.NS", "INFY.NS"), first, second)

	require.NoError(t, s.Start(20 * time.Millisecond))
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return first.count() >= 2 && second.count() >= 2 })

	assert.Positive(t, atomic.LoadInt32(&source.forcedFetches), "auto-refresh must bypass the cache")
	first.mu.Lock()
	batch := first.batches[0]
	first.mu.Unlock()
	assert.Equal(t, []string{"TCS.NS", "INFY.NS"}, batch.Symbols)
}

func TestStopDiscardsInFlightTick(t *testing.T) {
	source := &stubSource{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	sink := &memSink{}
	s := New(source, watchlist.New("TCS.NS"), sink)

	require.NoError(t, s.Start(20 * time.Millisecond))

	<-source.entered // a tick is now fetching
	s.Stop()
	delivered := sink.count()

	close(source.block) // let the in-flight tick finish
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, delivered, sink.count(), "no sink update may land after Stop returns")
	assert.False(t, s.Running())
}

func TestStartWhileRunningRestarts(t *testing.T) {
	source := &stubSource{}
	sink := &memSink{}
	s := New(source, watchlist.New("TCS.NS"), sink)

	require.NoError(t, s.Start(time.Hour))
	require.NoError(t, s.Start(20 * time.Millisecond))
	defer s.Stop()

	assert.True(t, s.Running())
	waitFor(t, 2*time.Second, func() bool { return sink.count() >= 1 })
}

func TestOverlappingTicksAreSkipped(t *testing.T) {
	source := &stubSource{}
	block := make(chan struct{})
	source.block = block
	sink := &memSink{}
	s := New(source, watchlist.New("TCS.NS"), sink)

	require.NoError(t, s.Start(10 * time.Millisecond))
	defer s.Stop()

	// several periods elapse while the first tick is stuck fetching
	time.Sleep(80 * time.Millisecond)
	close(block)
	waitFor(t, 2*time.Second, func() bool { return sink.count() >= 1 })

	assert.Equal(t, int32(1), atomic.LoadInt32(&source.maxInFlight), "due ticks are skipped, never stacked")
}

func TestStopTwiceIsHarmless(t *testing.T) {
	s := New(&stubSource{}, watchlist.New("TCS.NS"))
	require.NoError(t, s.Start(time.Hour))
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestRefreshNowWorksWhileStopped(t *testing.T) {
	source := &stubSource{}
	sink := &memSink{}
	s := New(source, watchlist.New("TCS.NS"), sink)

	batch := s.RefreshNow(context.Background(), true)

	require.NotNil(t, batch)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, []string{"TCS.NS"}, batch.Symbols)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.forcedFetches))
}
