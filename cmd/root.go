package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ddir",
	Short: "ddir: hierarchical data stores on plain directories",
	Long: `ddir maps groups, tabular datasets and raw blob directories onto an
ordinary directory tree. Every element is a directory with a small JSON
descriptor; dataset payloads are single SQLite files. The tree stays
browsable with regular shell tools and mountable over NFS.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
