// Package scheduler drives the periodic refresh cycle: on every tick it
// fetches the whole watchlist fresh and hands the batch to each sink.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"stock-ticker/fetcher"
	"stock-ticker/market"
	"stock-ticker/watchlist"
)

// QuoteSource is what the scheduler needs from the fetcher.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string, force bool) *fetcher.Batch
}

// Sink consumes a refreshed batch. Sinks must tolerate per-symbol errors
// inside the batch without aborting their own update.
type Sink interface {
	Update(batch *fetcher.Batch)
}

type Scheduler struct {
	source QuoteSource
	watch  *watchlist.Watchlist
	sinks  []Sink

	// mu guards the run state and serializes sink delivery, so Stop returning
	// means no sink will be updated again
	mu      sync.Mutex
	running bool
	gen     uint64
	cron    *cron.Cron
	cancel  context.CancelFunc
}

func New(source QuoteSource, watch *watchlist.Watchlist, sinks ...Sink) *Scheduler {
	return &Scheduler{source: source, watch: watch, sinks: sinks}
}

// Start arms a repeating timer of the given period. Starting while already
// running restarts the timer, it never stacks. Ticks that come due while the
// previous one is still fetching are skipped, not queued.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("invalid refresh interval %v", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logrus.Debug("Scheduler already running, restarting")
		s.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	gen := s.gen

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger())),
	))
	c.Schedule(everySchedule(interval), cron.FuncJob(func() { s.tick(ctx, gen) }))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.running = true
	logrus.Infof("Auto refresh on every %v", interval)
	return nil
}

// everySchedule fires a fixed duration after each activation. cron's own
// ConstantDelaySchedule rounds delays up to whole seconds, this one doesn't.
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Stop cancels the timer. An in-flight tick completes but its result is
// discarded, no sink receives an update after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	s.cron.Stop()
	s.cron = nil
	logrus.Info("Auto refresh stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	started := time.Now()
	if !market.IsMarketOpen(started) {
		logrus.Debug("Market is closed, quotes reflect the last session")
	}
	symbols := s.watch.List()
	// auto-refresh always bypasses the cache, staleness here defeats the point
	batch := s.source.GetQuotes(ctx, symbols, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.gen != gen || ctx.Err() != nil {
		logrus.Debug("Discarding tick results, scheduler stopped mid-flight")
		return
	}
	for _, sink := range s.sinks {
		sink.Update(batch)
	}
	logrus.WithFields(logrus.Fields{
		"symbols":  len(batch.Symbols),
		"errors":   batch.ErrorCount(),
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Debug("Refresh tick completed")
}

// RefreshNow runs one fetch-and-deliver cycle on the calling goroutine,
// independent of the timer state. Manual refreshes default to force at the
// call sites, matching the explicit-user-action semantics.
func (s *Scheduler) RefreshNow(ctx context.Context, force bool) *fetcher.Batch {
	batch := s.source.GetQuotes(ctx, s.watch.List(), force)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sink := range s.sinks {
		sink.Update(batch)
	}
	return batch
}
