// Package watchlist keeps the ordered set of symbols being tracked.
package watchlist

import (
	"strings"
	"sync"
)

// DefaultSuffix is appended to symbols carrying no exchange qualifier.
const DefaultSuffix = ".NS"

// Normalize trims, uppercases and exchange-qualifies a raw symbol.
func Normalize(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	if !strings.Contains(symbol, ".") {
		symbol += DefaultSuffix
	}
	return symbol
}

// Watchlist is an ordered, duplicate-free symbol set. RemoveHook, when set,
// runs for every removed symbol so its cache entry can be dropped with it.
type Watchlist struct {
	RemoveHook func(symbol string)

	mu      sync.Mutex
	symbols []string
	index   map[string]struct{}
}

func New(symbols ...string) *Watchlist {
	w := &Watchlist{index: make(map[string]struct{})}
	for _, symbol := range symbols {
		w.Add(symbol)
	}
	return w
}

// Add appends a normalized symbol, reports whether it was newly added.
func (w *Watchlist) Add(symbol string) bool {
	symbol = Normalize(symbol)
	if symbol == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exist := w.index[symbol]; exist {
		return false
	}
	w.index[symbol] = struct{}{}
	w.symbols = append(w.symbols, symbol)
	return true
}

// Remove drops a symbol, reports whether it was present.
func (w *Watchlist) Remove(symbol string) bool {
	symbol = Normalize(symbol)
	w.mu.Lock()
	_, exist := w.index[symbol]
	if exist {
		delete(w.index, symbol)
		for i, s := range w.symbols {
			if s == symbol {
				w.symbols = append(w.symbols[:i], w.symbols[i+1:]...)
				break
			}
		}
	}
	hook := w.RemoveHook
	w.mu.Unlock()
	if exist && hook != nil {
		hook(symbol)
	}
	return exist
}

// List returns the tracked symbols in insertion order.
func (w *Watchlist) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

func (w *Watchlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.symbols)
}
