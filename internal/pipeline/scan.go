package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PageScan is one discovered input image awaiting processing.
type PageScan struct {
	Path        string
	StudentID   string
	Page        int
	Replacement bool
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// ScanInput discovers scanned pages under root. The expected layout is one
// numbered directory per page, each holding files named
// "<student>_<page>.<ext>", with an "_r" suffix before the extension marking
// a replacement scan. Files that do not fit the naming scheme are returned
// in skipped rather than treated as errors; an empty or malformed tree is.
func ScanInput(root string) (scans []PageScan, skipped []string, err error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read input root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		page, err := strconv.Atoi(entry.Name())
		if err != nil || page < 1 {
			skipped = append(skipped, filepath.Join(root, entry.Name()))
			continue
		}

		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("read page directory %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			path := filepath.Join(dir, f.Name())
			scan, ok := parseScanName(f.Name(), page)
			if !ok {
				skipped = append(skipped, path)
				continue
			}
			scan.Path = path
			scans = append(scans, scan)
		}
	}

	if len(scans) == 0 {
		return nil, skipped, fmt.Errorf("no scanned pages found under %s", root)
	}

	sort.Slice(scans, func(i, j int) bool {
		a, b := scans[i], scans[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return !a.Replacement && b.Replacement
	})
	return scans, skipped, nil
}

// parseScanName decodes "<student>_<page>[_r].<ext>". Student IDs may
// themselves contain underscores, so the name is parsed from the right.
func parseScanName(name string, page int) (PageScan, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExts[ext] {
		return PageScan{}, false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	scan := PageScan{Page: page}
	if strings.HasSuffix(stem, "_r") {
		scan.Replacement = true
		stem = strings.TrimSuffix(stem, "_r")
	}

	i := strings.LastIndex(stem, "_")
	if i <= 0 {
		return PageScan{}, false
	}
	n, err := strconv.Atoi(stem[i+1:])
	if err != nil || n != page {
		return PageScan{}, false
	}
	scan.StudentID = stem[:i]
	if scan.StudentID == "" {
		return PageScan{}, false
	}
	return scan, true
}
