package market

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures so the fetcher can decide between
// retrying, falling back and giving up.
type ErrorKind int

const (
	// ErrNetwork covers transport failures and timeouts, worth a fallback.
	ErrNetwork ErrorKind = iota
	// ErrRateLimited means the provider told us to slow down.
	ErrRateLimited
	// ErrNotFound means the symbol is unknown upstream, retrying won't help.
	ErrNotFound
	// ErrMalformed means the provider answered with an undecodable payload.
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrRateLimited:
		return "rate-limited"
	case ErrNotFound:
		return "not-found"
	case ErrMalformed:
		return "malformed"
	}
	return "unknown"
}

// FetchError is the error value every failed provider call surfaces as.
// It is never swallowed: batch results carry it per symbol.
type FetchError struct {
	Symbol   string
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Provider, e.Kind, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func NewFetchError(symbol, provider string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Symbol: symbol, Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the classification from err, defaulting to ErrNetwork for
// plain transport errors that were not wrapped by a provider.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrNetwork
}
