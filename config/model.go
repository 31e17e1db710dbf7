package config

import (
	"strings"
	"time"
)

const (
	ColumnSymbol    = "Symbol"
	ColumnName      = "Name"
	ColumnPrice     = "Price"
	ColumnPrevClose = "PrevClose"
	ColumnChange    = "Change"
	ColumnChangePct = "%Change"
	ColumnVolume    = "Volume"
	ColumnSource    = "Source"
	ColumnUpdated   = "Updated"
)

func supportedColumns() []string {
	return []string{ColumnSymbol, ColumnPrice, ColumnChange, ColumnChangePct,
		ColumnVolume, ColumnSource, ColumnUpdated}
}

func allColumns() []string {
	return []string{ColumnSymbol, ColumnName, ColumnPrice, ColumnPrevClose,
		ColumnChange, ColumnChangePct, ColumnVolume, ColumnSource, ColumnUpdated}
}

func knownColumn(name string) bool {
	for _, col := range allColumns() {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

type Config struct {
	Timeout       int           `mapstructure:"timeout"`
	Proxy         string        `mapstructure:"proxy"`
	Refresh       int           `mapstructure:"refresh"`
	Columns       []string      `mapstructure:"show"`
	Debug         bool          `mapstructure:"debug"`
	Symbols       []string      `mapstructure:"symbols"`
	Providers     []string      `mapstructure:"providers"`
	CacheTTL      time.Duration `mapstructure:"cache-ttl"`
	ExcelFile     string        `mapstructure:"excel-file"`
	LogFile       string        `mapstructure:"log-file"`
	ListProviders bool          `mapstructure:"list-providers"`
}

// DefaultSymbols are the NSE large caps tracked when the user specifies none.
func DefaultSymbols() []string {
	return []string{
		"RELIANCE.NS",
		"TCS.NS",
		"INFY.NS",
		"HDFCBANK.NS",
		"ICICIBANK.NS",
		"HINDUNILVR.NS",
		"BHARTIARTL.NS",
		"ITC.NS",
		"SBIN.NS",
		"KOTAKBANK.NS",
		"LT.NS",
		"HCLTECH.NS",
		"ASIANPAINT.NS",
		"MARUTI.NS",
		"TITAN.NS",
	}
}
