package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/pivotloom-cli/internal/config"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set PivotLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "numeric_threshold: %.3f\n", cfg.NumericThreshold)
		fmt.Fprintf(out, "unknown_label: %s\n", cfg.UnknownLabel)
		fmt.Fprintf(out, "decimal_separator: %q\n", cfg.DecimalSeparator)
		fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		fmt.Fprintf(out, "keep_duplicates: %t\n", cfg.KeepDuplicates)
		fmt.Fprintf(out, "lenient_numbers: %t\n", cfg.LenientNumbers)
		if cfg.MaxRows > 0 {
			fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		}
		if cfg.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", cfg.Sheet)
		}
		fmt.Fprintf(out, "default_aggregator: %s\n", cfg.DefaultAggregator)
		fmt.Fprintf(out, "total_label: %s\n", cfg.TotalLabel)
		fmt.Fprintf(out, "row_number_field: %s\n", cfg.RowNumberField)
		fmt.Fprintf(out, "top_values: %d\n", cfg.TopValues)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "api_token: %s\n", mask(cfg.APIToken))
		fmt.Fprintf(out, "cache_entries: %d\n", cfg.CacheEntries)
		fmt.Fprintf(out, "allow_url_uploads: %t\n", cfg.AllowURLs)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(out, "fetch_max_mb: %d\n", cfg.FetchMaxMB)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(floor int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < floor {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "numeric_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 || f >= 1 {
			return fmt.Errorf("invalid float for numeric_threshold: %v (use 0 < x < 1)", val)
		}
		c.NumericThreshold = f
	case "unknown_label":
		c.UnknownLabel = val
	case "decimal_separator", "thousands_separator":
		if len([]rune(val)) > 1 {
			return fmt.Errorf("%s must be a single character", key)
		}
		if key == "decimal_separator" {
			c.DecimalSeparator = val
		} else {
			c.ThousandsSeparator = val
		}
	case "keep_duplicates", "lenient_numbers", "allow_url_uploads":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		switch key {
		case "keep_duplicates":
			c.KeepDuplicates = b
		case "lenient_numbers":
			c.LenientNumbers = b
		default:
			c.AllowURLs = b
		}
	case "max_rows":
		c.MaxRows, err = atoi(0)
	case "sheet":
		c.Sheet = val
	case "default_aggregator":
		agg, perr := pivot.ParseAggregator(val)
		if perr != nil {
			return perr
		}
		c.DefaultAggregator = string(agg)
	case "total_label":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("total_label must not be empty")
		}
		c.TotalLabel = val
	case "row_number_field":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("row_number_field must not be empty")
		}
		c.RowNumberField = val
	case "top_values":
		c.TopValues, err = atoi(1)
	case "server_addr":
		c.ServerAddr = val
	case "api_token":
		c.APIToken = val
	case "cache_entries":
		c.CacheEntries, err = atoi(1)
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(1)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(1)
	case "fetch_max_mb":
		c.FetchMaxMB, err = atoi(1)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
