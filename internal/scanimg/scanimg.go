// Package scanimg decodes scanner output files and reads their embedded
// resolution metadata. Scanners in the field produce PNG, JPEG and TIFF;
// the TIFF decoder comes from golang.org/x/image.
package scanimg

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Decode reads and decodes an image file in any supported format.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// IsTIFF reports whether the path has a TIFF extension.
func IsTIFF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// DPI extracts the resolution from TIFF metadata. Scanner output usually
// carries the scan resolution here, which lets the pipeline flag pages
// scanned at a different density than the run expects.
func DPI(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	header := make([]byte, 8)
	if _, err := f.Read(header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, fmt.Errorf("%s: not a TIFF file", path)
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := f.Seek(int64(ifdOffset), 0); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(f, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches unless stated otherwise

	for i := uint16(0); i < numEntries; i++ {
		entry := make([]byte, 12)
		if _, err := f.Read(entry); err != nil {
			return 0, err
		}

		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 {
				xRes = readRational(f, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readRational(f, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 {
				resUnit = uint16(valueOffset)
			}
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if resUnit == 3 { // per centimeter
		dpi *= 2.54
	}
	if dpi == 0 {
		return 0, fmt.Errorf("%s: no resolution metadata", path)
	}
	return dpi, nil
}

// readRational reads a TIFF RATIONAL (two uint32s) at the given offset,
// restoring the file position afterwards.
func readRational(f *os.File, offset int64, byteOrder binary.ByteOrder) float64 {
	pos, _ := f.Seek(0, 1)
	defer f.Seek(pos, 0)

	if _, err := f.Seek(offset, 0); err != nil {
		return 0
	}
	var num, denom uint32
	if err := binary.Read(f, byteOrder, &num); err != nil {
		return 0
	}
	if err := binary.Read(f, byteOrder, &denom); err != nil {
		return 0
	}
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
