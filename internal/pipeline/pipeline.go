// Package pipeline drives the end-to-end batch: discover scanned pages,
// align and decode each one on a worker pool, then merge the per-page
// answers into the consolidated table.
//
// Per-page problems are values, not errors: a page that cannot be aligned
// or decoded lands in the failure report and the batch continues. Only
// environmental faults (unreadable input tree, unwritable outputs) abort
// the run.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"omr-grader/internal/alignment"
	"omr-grader/internal/assemble"
	"omr-grader/internal/config"
	"omr-grader/internal/decode"
	"omr-grader/internal/layout"
	"omr-grader/internal/marker"
	"omr-grader/internal/overlay"
	"omr-grader/internal/report"
	"omr-grader/internal/sample"
	"omr-grader/internal/scanimg"
)

// Pipeline holds everything shared across page workers. All fields are
// read-only once the pipeline is constructed, so workers need no locking.
type Pipeline struct {
	cfg        config.Config
	table      *layout.Table
	tmpl       *marker.Template
	frame      sample.Frame
	logger     *log.Logger
	overlayDir string
}

// New builds a pipeline. overlayDir may be empty when overlays are
// disabled in the configuration.
func New(cfg config.Config, table *layout.Table, tmpl *marker.Template, logger *log.Logger, overlayDir string) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		table:      table,
		tmpl:       tmpl,
		frame:      sample.NewFrame(cfg.Page.DPI, cfg.Page.WidthPt, cfg.Page.HeightPt),
		logger:     logger,
		overlayDir: overlayDir,
	}
}

// pageResult carries one worker's output back to the merge phase.
type pageResult struct {
	scan     PageScan
	answers  []decode.Answer
	failures []report.Failure
}

// Run processes every scan and returns the merged answer table plus all
// per-page failures. Pages are decoded concurrently; merging is
// single-threaded and ordered (originals before replacements, input order
// within each class) so reruns over the same input produce identical
// tables and reports. Cancelling the context stops dispatching new pages;
// pages already in flight finish.
func (p *Pipeline) Run(ctx context.Context, scans []PageScan) (*assemble.Table, []report.Failure) {
	if p.overlayDir != "" && p.cfg.Run.Overlay {
		if err := os.MkdirAll(p.overlayDir, 0o755); err != nil {
			p.logger.Error("overlay directory unavailable, overlays disabled", "dir", p.overlayDir, "err", err)
			p.overlayDir = ""
		}
	}

	results := make([]pageResult, len(scans))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.WorkerCount(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processPage(scans[i])
			}
		}()
	}

dispatch:
	for i := range scans {
		select {
		case jobs <- i:
		case <-ctx.Done():
			p.logger.Warn("run cancelled, finishing in-flight pages", "remaining", len(scans)-i)
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return p.merge(results)
}

// merge folds the per-page results into the answer table. Replacement
// scans apply after every original so a replacement always wins, and
// duplicate-submission conflicts surface as failures.
func (p *Pipeline) merge(results []pageResult) (*assemble.Table, []report.Failure) {
	table := assemble.NewTable()
	var failures []report.Failure

	apply := func(r pageResult) {
		failures = append(failures, r.failures...)
		if r.answers == nil {
			return
		}
		conflicts := table.Merge(r.scan.StudentID, r.scan.Page, r.answers, r.scan.Replacement)
		for _, c := range conflicts {
			failures = append(failures, report.Failure{
				StudentID: c.StudentID,
				Page:      c.Page,
				Reason:    report.ReasonDuplicate,
				Detail:    fmt.Sprintf("%s: %q vs %q", c.Column, c.Existing, c.Incoming),
			})
		}
	}

	for _, r := range results {
		if !r.scan.Replacement {
			apply(r)
		}
	}
	for _, r := range results {
		if r.scan.Replacement {
			apply(r)
		}
	}

	report.SortFailures(failures)
	return table, failures
}

// processPage runs the full read-align-sample-decode chain for one scan.
// It never returns an error; every problem becomes a failure entry and a
// nil answer set.
func (p *Pipeline) processPage(scan PageScan) pageResult {
	res := pageResult{scan: scan}
	fail := func(reason report.Reason, detail string) pageResult {
		res.failures = append(res.failures, report.Failure{
			StudentID: scan.StudentID,
			Page:      scan.Page,
			Reason:    reason,
			Detail:    detail,
		})
		return res
	}

	if !p.table.HasPage(scan.Page) {
		p.logger.Warn("no layout for page", "student", scan.StudentID, "page", scan.Page)
		return fail(report.ReasonMissingLayout, fmt.Sprintf("page %d not in bubble layout", scan.Page))
	}

	if scanimg.IsTIFF(scan.Path) {
		if dpi, err := scanimg.DPI(scan.Path); err == nil && math.Abs(dpi-p.cfg.Page.DPI) > 1 {
			p.logger.Warn("scan resolution differs from configured density",
				"path", scan.Path, "scan_dpi", dpi, "configured_dpi", p.cfg.Page.DPI)
		}
	}

	img := gocv.IMRead(scan.Path, gocv.IMReadGrayScale)
	if img.Empty() {
		p.logger.Warn("unreadable image", "path", scan.Path)
		return fail(report.ReasonUnreadableImage, scan.Path)
	}
	defer img.Close()

	aligned, err := alignment.AlignPage(img, p.tmpl, p.frame, alignment.Options{
		MinConfidence: p.cfg.Marker.Confidence,
		EdgeOffsetPt:  p.cfg.Marker.EdgeOffsetPt,
	})
	if err != nil {
		p.logger.Warn("alignment failed", "student", scan.StudentID, "page", scan.Page, "err", err)
		return fail(report.ReasonAlignmentFailed, err.Error())
	}
	defer aligned.Aligned.Close()

	readings := sample.ReadBubbles(aligned.Aligned, p.frame, p.table.Page(scan.Page), p.cfg.Bubble.RadiusPt)
	answers, marks := decode.Page(readings, p.table, decode.Params{
		MinJump: p.cfg.Threshold.MinJump,
		Clamp:   p.cfg.Threshold.Clamp,
	})

	for _, a := range answers {
		if a.Ambiguous {
			p.logger.Warn("ambiguous bubbles", "student", scan.StudentID, "page", scan.Page, "column", a.ColumnKey())
			res.failures = append(res.failures, report.Failure{
				StudentID: scan.StudentID,
				Page:      scan.Page,
				Reason:    report.ReasonAmbiguousBubble,
				Detail:    a.ColumnKey(),
			})
		}
	}

	if p.overlayDir != "" && p.cfg.Run.Overlay {
		name := fmt.Sprintf("%s_%d", scan.StudentID, scan.Page)
		if scan.Replacement {
			name += "_r"
		}
		path := filepath.Join(p.overlayDir, name+".png")
		if err := overlay.Write(path, aligned.Aligned, marks); err != nil {
			p.logger.Error("overlay write failed", "path", path, "err", err)
		}
	}

	p.logger.Debug("page decoded",
		"student", scan.StudentID,
		"page", scan.Page,
		"confidence", aligned.Confidence,
		"answers", len(answers),
	)
	res.answers = answers
	return res
}
