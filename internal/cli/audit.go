package cli

import (
	"github.com/spf13/cobra"

	"omr-grader/internal/config"
	"omr-grader/ui/audit"
)

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <overlay-dir>",
		Short: "Browse diagnostic overlays in a viewer window",
		Long: `Browse the annotated overlay images written by grade.

Overlays show every sampled bubble region on the normalized page: gray
boxes for blank bubbles, red for filled, green dots for printed decimal
points and fraction bars. Use it to review pages the failure report
flagged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return audit.Run(args[0])
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage decoding configuration",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if err := config.WriteExample(path); err != nil {
				return err
			}
			logger.Info("config written", "path", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "out", "o", "omr.toml", "where to write the config")

	cmd.AddCommand(initCmd)
	return cmd
}
