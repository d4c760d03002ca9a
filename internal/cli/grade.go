package cli

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"omr-grader/internal/config"
	"omr-grader/internal/layout"
	"omr-grader/internal/marker"
	"omr-grader/internal/pipeline"
	"omr-grader/internal/report"
	"omr-grader/internal/sample"
)

// gradeOpts holds the grade command's flags.
type gradeOpts struct {
	layoutPath string
	markerPath string
	configPath string
	outDir     string
	workers    int
	noOverlay  bool
}

func newGradeCmd() *cobra.Command {
	var opts gradeOpts

	cmd := &cobra.Command{
		Use:   "grade <input-dir>",
		Short: "Decode a directory of scanned answer-sheet pages",
		Long: `Decode a directory of scanned answer-sheet pages.

The input directory holds one numbered subdirectory per page, each with
files named "<student>_<page>.<ext>" ("_r" before the extension marks a
replacement scan). Outputs land in the --out directory: answers.csv,
failures.csv, and an overlays/ directory of annotated pages.

Example:
  omr grade scans/ --layout bubbles.csv --marker marker.png --out results/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.layoutPath, "layout", "l", "", "bubble layout CSV (required)")
	cmd.Flags().StringVarP(&opts.markerPath, "marker", "m", "", "corner marker template image (required)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "results", "output directory")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file (defaults apply when omitted)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "page worker count (default: one per CPU core)")
	cmd.Flags().BoolVar(&opts.noOverlay, "no-overlay", false, "skip writing diagnostic overlays")
	_ = cmd.MarkFlagRequired("layout")
	_ = cmd.MarkFlagRequired("marker")

	return cmd
}

func runGrade(cmd *cobra.Command, inputDir string, opts gradeOpts) error {
	logger := loggerFromContext(cmd.Context())
	prog := newProgress(logger)

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if opts.workers > 0 {
		cfg.Run.Workers = opts.workers
	}
	if opts.noOverlay {
		cfg.Run.Overlay = false
	}

	table, err := layout.Load(opts.layoutPath)
	if err != nil {
		return err
	}
	logger.Debug("layout loaded", "bubbles", table.Len(), "pages", len(table.Pages()))

	frame := sample.NewFrame(cfg.Page.DPI, cfg.Page.WidthPt, cfg.Page.HeightPt)
	sizePx := int(math.Round(frame.PtToPx(2 * cfg.Marker.RadiusPt)))
	tmpl, err := marker.Load(opts.markerPath, sizePx)
	if err != nil {
		return err
	}
	defer tmpl.Close()

	scans, skipped, err := pipeline.ScanInput(inputDir)
	if err != nil {
		return err
	}
	for _, path := range skipped {
		logger.Warn("ignoring file outside the naming scheme", "path", path)
	}
	logger.Info("scanning pages", "pages", len(scans), "workers", cfg.WorkerCount())

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.New(cfg, table, tmpl, logger, filepath.Join(opts.outDir, "overlays"))
	answers, failures := p.Run(cmd.Context(), scans)

	if err := report.SaveAnswers(filepath.Join(opts.outDir, "answers.csv"), answers); err != nil {
		return err
	}
	if err := report.SaveFailures(filepath.Join(opts.outDir, "failures.csv"), failures); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Decoded %d pages for %d students, %d failures",
		len(scans), len(answers.Students()), len(failures)))
	if len(failures) > 0 {
		logger.Warn("some pages need review", "report", filepath.Join(opts.outDir, "failures.csv"))
	}
	return nil
}
