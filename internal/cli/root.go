// Package cli implements the omr command-line interface.
//
// The main command is grade, which runs the full batch over a directory of
// scanned answer-sheet pages and writes the consolidated answer table, the
// failure report, and per-page diagnostic overlays. The audit command opens
// a viewer over the overlays; config init writes a starter configuration.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion records the build information shown by --version. Values are
// injected by the main package via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the omr CLI. All commands log to stderr at info level, or
// debug with --verbose.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "omr",
		Short:        "omr decodes scanned exam answer sheets",
		Long:         `omr aligns scanned answer-sheet pages against a bubble layout, classifies every bubble as filled or blank, and assembles per-student answers into a consolidated table.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("omr %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newGradeCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newConfigCmd())

	return root.ExecuteContext(context.Background())
}
