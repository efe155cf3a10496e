package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/mempool/internal/config"
	"github.com/joshuapare/mempool/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	envFiles []string

	// env is loaded before every command runs.
	env config.Env

	// printer groups digits in reports.
	printer = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "poolbench",
	Short: "Exercise and inspect the mempool allocator",
	Long: `poolbench drives the mempool block allocator with synthetic workloads
and reports timings, engine counters and block layout. Pool settings come from
MEMPOOL_* environment variables, optionally seeded from .env files.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return loadEnv() },
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringSliceVar(&envFiles, "env-file", []string{".env"}, "Load settings from these .env files if present")
}

// loadEnv reads configuration and sets up logging. Verbose mode forces debug
// logging on.
func loadEnv() error {
	var err error
	env, err = config.Load(envFiles...)
	if err != nil {
		return err
	}
	opts, err := env.LoggerOptions()
	if err != nil {
		return err
	}
	if verbose {
		opts.Enabled = true
		opts.Level = slog.LevelDebug
	}
	return logger.Init(opts)
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
