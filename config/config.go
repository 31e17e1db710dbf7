package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Will be set by go-build
var (
	Version string
	Rev     string
)

func Parse() *Config {
	// Set log format
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(colorable.NewColorableStderr()) // For Windows

	// Local .env, if any, before viper looks at the environment
	if err := godotenv.Load(); err == nil {
		logrus.Debugln("Loaded environment from .env")
	}

	showVersion := pflag.BoolP("version", "v", false, "Show version number")
	showHelp := pflag.BoolP("help", "h", false, "Show usage message")
	pflag.CommandLine.MarkHidden("help")
	pflag.BoolP("debug", "d", false, "Enable debug mode")
	pflag.BoolP("list-providers", "l", false, "List supported data providers")
	pflag.IntP("refresh", "r", 0, "Auto refresh on every specified seconds, "+
		"note both NSE and Yahoo rate limit aggressive polling, \ntoo frequent refresh may get your IP banned")
	var configFile string
	pflag.StringVarP(&configFile, "config-file", "c", "", "Config file path, "+
		"by default stock-ticker uses \"stock_ticker.yml\" \nin current directory or $HOME as config file")
	pflag.StringSliceP("show", "s", supportedColumns(), "Only show comma-separated columns")
	pflag.Duration("cache-ttl", time.Hour, "How long a fetched quote stays servable without a new provider call")
	pflag.String("excel-file", "", "Keep the given .xlsx workbook updated in place with every refresh")
	pflag.String("log-file", "", "Append logs to the given file (rotated) instead of stderr")
	pflag.StringP("proxy", "p", "", "Proxy used when sending HTTP request \n(eg. "+
		"\"http://localhost:7777\", \"https://localhost:7777\", \"socks5://localhost:1080\")")
	pflag.IntP("timeout", "t", 20, "HTTP request timeout in seconds")
	pflag.CommandLine.SortFlags = false
	pflag.Usage = showUsageAndExit
	pflag.Parse()

	if *showHelp {
		showUsageAndExit()
	}

	if *showVersion {
		fmt.Fprintf(os.Stderr, "Version %s", Version)
		if Rev != "" {
			fmt.Fprintf(os.Stderr, ", build %s", Rev)
		}
		fmt.Fprintln(os.Stderr)
		os.Exit(0)
	}

	viper.BindPFlags(pflag.CommandLine)
	viper.SetDefault("symbols", DefaultSymbols())
	viper.SetDefault("providers", []string{"NSE", "Yahoo Finance"})
	// Set configure file
	viper.SetConfigName("stock_ticker") // name of config file (without extension)
	viper.AddConfigPath(".")            // path to look for the config file in
	viper.AddConfigPath("$HOME")        // optionally look for config in the HOME directory
	viper.AddConfigPath("/etc")         // and /etc
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			logrus.Debugln("No config file found, using defaults")
		default:
			logrus.Warnf("Error reading config file: %v", err)
		}
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logrus.Fatalf("Failed to parse %q, error: %s\n", viper.ConfigFileUsed(), err)
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.LogFile != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}
	// Reject typos up front, a sink should never meet a column it can't render
	for _, col := range cfg.Columns {
		if !knownColumn(col) {
			logrus.Fatalf("Unknown column %q, supported columns: %s", col, strings.Join(allColumns(), ", "))
		}
	}
	if pflag.NArg() != 0 {
		// command-line symbols take precedence over config file and defaults
		cfg.Symbols = pflag.Args()
	}
	logrus.Debugln("Using config file:", viper.ConfigFileUsed())
	return &cfg
}

func showUsageAndExit() {
	// Print usage message and exit
	fmt.Fprintf(os.Stderr, "\nUsage: %s [Options] [Symbol1 Symbol2 ...]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "\nTrack NSE/BSE stock quotes in the terminal, optionally mirroring them into an Excel workbook")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	pflag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nSymbols:")
	fmt.Fprintln(os.Stderr, "  Space-separated stock symbols, NSE style (eg. \"RELIANCE.NS TCS.NS SBIN\")."+
		" A symbol without an exchange suffix gets \".NS\" appended.")
	os.Exit(0)
}

func ListProvidersAndExit(providers []string) {
	fmt.Fprintln(os.Stderr, "Supported data providers:")
	for _, name := range providers {
		fmt.Fprintf(os.Stderr, " %s\n", name)
	}
	os.Exit(0)
}
