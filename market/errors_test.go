package market

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	fe := NewFetchError("TCS.NS", "NSE", ErrRateLimited, errors.New("HTTP 429"))
	if KindOf(fe) != ErrRateLimited {
		t.Fatalf("Got kind %v", KindOf(fe))
	}

	wrapped := fmt.Errorf("tick failed: %w", fe)
	if KindOf(wrapped) != ErrRateLimited {
		t.Fatal("KindOf should see through wrapping")
	}

	if KindOf(errors.New("dial tcp: timeout")) != ErrNetwork {
		t.Fatal("Unclassified errors default to network")
	}
}

func TestFetchErrorMessage(t *testing.T) {
	fe := NewFetchError("TCS.NS", "NSE", ErrNotFound, errors.New("no data"))
	msg := fe.Error()
	for _, want := range []string{"NSE", "TCS.NS", "not-found", "no data"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("Error message %q should mention %q", msg, want)
		}
	}
	if !errors.Is(fe, fe.Err) {
		t.Fatal("FetchError should unwrap to its cause")
	}
}
