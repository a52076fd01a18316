package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/pivotloom-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int
	// Loader flags (override config if set)
	flagThreshold      float64
	flagKeepDuplicates bool
	flagLenient        bool
	flagMaxRows        int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "pivotloom",
	Short: "PivotLoom CLI: pivot, summarize and chart tabular data",
	Long: `PivotLoom loads CSV, TSV, pasted text or XLSX data, cleans it, and lets you filter,
pivot, add grand totals, chart and export the result from the command line or over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", describeError(err))
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.pivotloom/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug output")
	pf.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds for --url inputs (overrides config)")
	pf.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	pf.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	pf.Float64Var(&flagThreshold, "numeric-threshold", 0, "share of parseable cells above which a column is numeric (overrides config)")
	pf.BoolVar(&flagKeepDuplicates, "keep-duplicates", false, "keep exact duplicate rows (overrides config)")
	pf.BoolVar(&flagLenient, "lenient-numbers", false, `read "12%" and "1,234" as numbers and trim text cells (overrides config)`)
	pf.IntVar(&flagMaxRows, "max-rows", 0, "reject inputs with more data rows (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("numeric-threshold") && flagThreshold > 0 && flagThreshold < 1 {
		cfg.NumericThreshold = flagThreshold
	}
	if f.Changed("keep-duplicates") {
		cfg.KeepDuplicates = flagKeepDuplicates
	}
	if f.Changed("lenient-numbers") {
		cfg.LenientNumbers = flagLenient
	}
	if f.Changed("max-rows") && flagMaxRows >= 0 {
		cfg.MaxRows = flagMaxRows
	}
}
