package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newLogger(verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:     "mediagit",
		Short:   "A content-addressed versioning system for large media files",
		Long:    "MediaGit provides Git-like commits, trees, branches, and merges over a chunked, deduplicated, delta-compressed object store tuned for multi-megabyte to multi-gigabyte binary assets.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging to stderr")

	rootCmd.AddCommand(
		newInitCommand(&verbose),
		newHashObjectCommand(&verbose),
		newCatFileCommand(&verbose),
		newGCCommand(&verbose),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
