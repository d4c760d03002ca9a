// Package config holds the tunable constants that govern decoding behavior.
//
// Every value that used to be a magic number in the scanning scripts is a
// named field here with its documented default, so the same binary can run
// several configurations side by side (tests included). Configs are plain
// values passed into the pipeline constructor; nothing in this package is
// process-global.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the full set of decoding parameters.
type Config struct {
	Marker    Marker    `toml:"marker"`
	Bubble    Bubble    `toml:"bubble"`
	Threshold Threshold `toml:"threshold"`
	Page      Page      `toml:"page"`
	Run       Run       `toml:"run"`
}

// Marker configures corner-marker detection.
type Marker struct {
	// Confidence is the minimum normalized template-correlation score for a
	// corner match. A page with any corner below this is unreadable.
	Confidence float64 `toml:"confidence"`
	// RadiusPt is the printed marker radius in design points.
	RadiusPt float64 `toml:"radius_pt"`
	// EdgeOffsetPt is the distance of each marker center from the two
	// nearest page edges, in design points.
	EdgeOffsetPt float64 `toml:"edge_offset_pt"`
}

// Bubble configures bubble sampling.
type Bubble struct {
	// RadiusPt is the printed bubble radius in design points.
	RadiusPt float64 `toml:"radius_pt"`
}

// Threshold configures the fill/no-fill decision boundary.
type Threshold struct {
	// Clamp is the maximum admissible threshold intensity (0-255). Groups of
	// uniformly dark-but-unfilled bubbles never classify as filled above it.
	Clamp float64 `toml:"clamp"`
	// MinJump is the smallest intensity gap treated as a real separation
	// between inked and blank clusters.
	MinJump float64 `toml:"min_jump"`
}

// Page describes the canonical page geometry.
type Page struct {
	// DPI is the pixel density of the canonical normalized image.
	DPI float64 `toml:"dpi"`
	// WidthPt and HeightPt are the page dimensions in design points
	// (1 pt = 1/72 inch). Defaults are US Letter.
	WidthPt  float64 `toml:"width_pt"`
	HeightPt float64 `toml:"height_pt"`
}

// Run configures batch execution.
type Run struct {
	// Workers is the page worker pool size; 0 means one per CPU core.
	Workers int `toml:"workers"`
	// Overlay enables writing annotated diagnostic images.
	Overlay bool `toml:"overlay"`
}

// Default returns the configuration with the documented defaults.
func Default() Config {
	return Config{
		Marker: Marker{
			Confidence:   0.6,
			RadiusPt:     10,
			EdgeOffsetPt: 30,
		},
		Bubble: Bubble{
			RadiusPt: 7,
		},
		Threshold: Threshold{
			Clamp:   210,
			MinJump: 25,
		},
		Page: Page{
			DPI:      200,
			WidthPt:  612,
			HeightPt: 792,
		},
		Run: Run{
			Workers: 0,
			Overlay: true,
		},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are an error so a
// typo cannot silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Marker.Confidence < 0 || c.Marker.Confidence > 1 {
		return fmt.Errorf("marker.confidence %.3f outside [0,1]", c.Marker.Confidence)
	}
	if c.Marker.RadiusPt <= 0 || c.Marker.EdgeOffsetPt <= 0 {
		return fmt.Errorf("marker radius and edge offset must be positive")
	}
	if c.Bubble.RadiusPt <= 0 {
		return fmt.Errorf("bubble.radius_pt must be positive")
	}
	if c.Threshold.Clamp <= 0 || c.Threshold.Clamp > 255 {
		return fmt.Errorf("threshold.clamp %.1f outside (0,255]", c.Threshold.Clamp)
	}
	if c.Threshold.MinJump < 0 {
		return fmt.Errorf("threshold.min_jump must not be negative")
	}
	if c.Page.DPI <= 0 || c.Page.WidthPt <= 0 || c.Page.HeightPt <= 0 {
		return fmt.Errorf("page dpi and dimensions must be positive")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative")
	}
	return nil
}

// WorkerCount resolves the configured worker count, defaulting to the number
// of CPU cores.
func (c Config) WorkerCount() int {
	if c.Run.Workers > 0 {
		return c.Run.Workers
	}
	return runtime.NumCPU()
}

// WriteExample writes a commented example config with the default values.
func WriteExample(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Default())
}
