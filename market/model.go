package market

import "time"

// Source identifies which upstream answered a quote request.
type Source string

const (
	SourceNSE   Source = "NSE"
	SourceYahoo Source = "Yahoo Finance"
)

// Quote is an immutable snapshot of one symbol at fetch time.
// ChangePct is nil when the previous close is zero or unknown.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	PreviousClose float64
	ChangeAbs     float64
	ChangePct     *float64
	Volume        int64
	High52        *float64
	Low52         *float64
	Source        Source
	FetchedAt     time.Time
}

// ComputeChange derives the absolute and percent change from a price and its
// previous close. Percent change is nil when previousClose is zero, so callers
// never divide by zero.
func ComputeChange(price, previousClose float64) (float64, *float64) {
	if previousClose == 0 {
		return 0, nil
	}
	abs := price - previousClose
	pct := abs / previousClose * 100
	return abs, &pct
}
