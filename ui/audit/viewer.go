// Package audit provides the overlay review window.
//
// The viewer pages through the annotated overlay images a grading run
// wrote, one page per screen, so a human can check flagged pages without
// leaving the tool.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"omr-grader/internal/scanimg"
)

// Run opens the viewer over a directory of overlay images and blocks until
// the window closes.
func Run(dir string) error {
	files, err := listOverlays(dir)
	if err != nil {
		return err
	}

	v := &viewer{files: files}
	v.show()
	return nil
}

// listOverlays returns the image files in dir, sorted by name so pages of
// one student group together.
func listOverlays(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read overlay directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no overlay images in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

type viewer struct {
	files []string
	index int

	image *canvas.Image
	label *widget.Label
}

func (v *viewer) show() {
	a := app.New()
	w := a.NewWindow("Overlay Audit")

	v.image = &canvas.Image{FillMode: canvas.ImageFillContain}
	v.label = widget.NewLabel("")

	prev := widget.NewButton("< Prev", func() { v.step(-1) })
	next := widget.NewButton("Next >", func() { v.step(1) })
	nav := container.NewHBox(prev, v.label, next)

	w.SetContent(container.NewBorder(nil, nav, nil, nil, v.image))
	w.Resize(fyne.NewSize(850, 1100))

	v.load()
	w.ShowAndRun()
}

func (v *viewer) step(delta int) {
	v.index = (v.index + delta + len(v.files)) % len(v.files)
	v.load()
}

func (v *viewer) load() {
	path := v.files[v.index]
	img, err := scanimg.Decode(path)
	if err != nil {
		v.label.SetText(fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return
	}
	v.image.Image = img
	v.image.Refresh()
	v.label.SetText(fmt.Sprintf("%s  (%d/%d)", filepath.Base(path), v.index+1, len(v.files)))
}
