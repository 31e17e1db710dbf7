package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"stock-ticker/cache"
	"stock-ticker/config"
	"stock-ticker/fetcher"
	"stock-ticker/http"
	"stock-ticker/market"
	"stock-ticker/scheduler"
	"stock-ticker/watchlist"
	"stock-ticker/writer"
)

func buildProviders(cfg *config.Config, httpClient *http.Client) []market.Provider {
	var providers []market.Provider
	for _, name := range cfg.Providers {
		p := market.Create(name, httpClient)
		if p == nil {
			logrus.Warnf("Unknown provider %s, skipping", name)
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		logrus.Fatalf("No usable providers in %v", cfg.Providers)
	}
	return providers
}

func main() {
	cfg := config.Parse()
	if cfg.ListProviders {
		config.ListProvidersAndExit(market.Names())
	}

	httpClient := http.New(cfg)
	store := cache.New(cfg.CacheTTL)
	quoteFetcher := fetcher.New(store, buildProviders(cfg, httpClient)...)

	watch := watchlist.New(cfg.Symbols...)
	watch.RemoveHook = quoteFetcher.Forget
	if watch.Len() == 0 {
		logrus.Fatalln("No symbols to track")
	}

	sinks := []scheduler.Sink{writer.NewTableWriter()}
	if cfg.ExcelFile != "" {
		excelWriter, err := writer.NewExcelWriter(cfg.ExcelFile)
		if err != nil {
			logrus.Fatalf("Failed to open Excel workbook: %v", err)
		}
		defer excelWriter.Close()
		sinks = append(sinks, excelWriter)
	}

	refresher := scheduler.New(quoteFetcher, watch, sinks...)

	if !market.IsMarketOpen(time.Now()) {
		logrus.Info("Market is closed (NSE/BSE trade 09:15-15:30 IST, Mon-Fri), quotes reflect the last session")
	}

	// First paint before the timer takes over
	refresher.RefreshNow(context.Background(), true)
	if cfg.Refresh == 0 {
		return
	}

	if err := refresher.Start(time.Duration(cfg.Refresh) * time.Second); err != nil {
		logrus.Fatalf("Failed to start auto refresh: %v", err)
	}
	defer refresher.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
