package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	storecmd "github.com/onshopfront/lumberjack/internal/cmd/store"
	cfgpkg "github.com/onshopfront/lumberjack/internal/config"
	logpkg "github.com/onshopfront/lumberjack/pkg/log"
)

func main() {
	// Respect LUMBERJACK_LOG_LEVEL / _FORMAT for CLI output.
	level := os.Getenv("LUMBERJACK_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if os.Getenv("LUMBERJACK_LOG_FORMAT") == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger.
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "lumberjack",
		Short: "Lumberjack log-capture CLI",
		Long:  "Lumberjack persists captured log records. This CLI inspects and maintains a local capture store.",
	}

	dataDirCmd := &cobra.Command{
		Use:   "data-dir",
		Short: "Print the default data directory",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cfgpkg.DefaultDataDir())
		},
	}
	rootCmd.AddCommand(dataDirCmd)

	rootCmd.AddCommand(storecmd.NewStoreCommand(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
