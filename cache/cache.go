// Package cache holds the most recently fetched quote per symbol until its
// TTL lapses. It is in-memory only, nothing survives a restart.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stock-ticker/market"
)

const DefaultTTL = time.Hour

type Store struct {
	ttl     time.Duration
	entries *gocache.Cache
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		entries: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached quote only while it is unexpired.
func (s *Store) Get(symbol string) (*market.Quote, bool) {
	v, ok := s.entries.Get(symbol)
	if !ok {
		return nil, false
	}
	return v.(*market.Quote), true
}

// Put overwrites any prior entry unconditionally, restarting the TTL.
func (s *Store) Put(symbol string, quote *market.Quote) {
	s.entries.Set(symbol, quote, s.ttl)
}

// Invalidate forces the next Get for symbol to miss regardless of expiry.
func (s *Store) Invalidate(symbol string) {
	s.entries.Delete(symbol)
}

func (s *Store) Len() int {
	return s.entries.ItemCount()
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}
