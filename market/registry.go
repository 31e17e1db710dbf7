package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stock-ticker/http"
)

// Provider is the contract every upstream data source implements: given a
// symbol, return a normalized quote or fail with a classified *FetchError.
type Provider interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Factory builds a provider on top of the shared HTTP client.
type Factory func(client *http.Client) Provider

var factories = make(map[string]Factory)

// Register is called from provider init functions.
func Register(name string, f Factory) {
	upper := strings.ToUpper(name)
	if _, exist := factories[upper]; exist {
		panic(fmt.Errorf("%q already exists in provider registry", name))
	}
	factories[upper] = f
}

// Create returns a provider by case-insensitive name, nil when unknown.
func Create(name string, client *http.Client) Provider {
	f, ok := factories[strings.ToUpper(name)]
	if !ok {
		return nil
	}
	return f(client)
}

// Names lists registered providers in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
