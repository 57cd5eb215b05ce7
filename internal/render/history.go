// Package render turns per-tick tracks into rasters: one pixel row per tick,
// organisms placed by position and coloured by whether they sit in the safe
// zone.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"evolab/internal/core"
	"evolab/internal/experiments/zone"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrEmptyHistory is returned when saving a history with no rows.
var ErrEmptyHistory = errors.New("render: history has no rows")

// ErrUnknownFormat is returned for image extensions without an encoder.
var ErrUnknownFormat = errors.New("render: unknown image format")

// Column maps a position in [-1, 1] onto a pixel column in [0, width).
// Out-of-range positions clamp to the edges.
func Column(pos float64, width int) int {
	x := int(math.Floor((pos + 1) / 2 * float64(width)))
	if x < 0 {
		return 0
	}
	if x >= width {
		return width - 1
	}
	return x
}

// Rasterize draws one tick into row. Zone bounds are drawn first and are
// never covered; organisms take the first free column at or to the right of
// their position, stepping over bounds. When the row is full to the right
// edge the last column is reused unless it holds a bound. NaN positions are
// skipped.
func Rasterize(row []uint8, tr core.Track) {
	for i := range row {
		row[i] = CellEmpty
	}
	width := len(row)
	if width == 0 {
		return
	}
	z := zone.Zone{Low: tr.ZoneLow, High: tr.ZoneHigh}
	if tr.HasZone {
		row[Column(tr.ZoneLow, width)] = CellBoundary
		row[Column(tr.ZoneHigh, width)] = CellBoundary
	}
	for _, pos := range tr.Positions {
		if math.IsNaN(pos) {
			continue
		}
		x := Column(pos, width)
		for x+1 < width && row[x] != CellEmpty {
			x++
		}
		if row[x] == CellBoundary {
			continue
		}
		switch {
		case !tr.HasZone:
			row[x] = CellPlain
		case z.Contains(pos):
			row[x] = CellInside
		default:
			row[x] = CellOutside
		}
	}
}

// History accumulates one rasterized row per recorded tick.
type History struct {
	width int
	rows  [][]uint8
}

// NewHistory returns a history whose rows are width pixels wide.
func NewHistory(width int) *History {
	if width <= 0 {
		width = 1
	}
	return &History{width: width}
}

// Width returns the row width in pixels.
func (h *History) Width() int { return h.width }

// Len returns the number of recorded rows.
func (h *History) Len() int { return len(h.rows) }

// Record rasterizes a track as the next row.
func (h *History) Record(tr core.Track) {
	row := make([]uint8, h.width)
	Rasterize(row, tr)
	h.rows = append(h.rows, row)
}

// Row returns the cells of row y.
func (h *History) Row(y int) []uint8 { return h.rows[y] }

// Image paints the history into an RGBA image, oldest tick at the top.
func (h *History) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, h.width, len(h.rows)))
	for y, row := range h.rows {
		start := y * img.Stride
		fillPaletteRGBA(img.Pix[start:start+h.width*4], row, Palette)
	}
	return img
}

// Save writes the history to path, picking the encoder from the extension.
func (h *History) Save(path string) error {
	if len(h.rows) == 0 {
		return ErrEmptyHistory
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("render: create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create image: %w", err)
	}
	if err := Encode(f, h.Image(), format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("render: close image: %w", err)
	}
	return nil
}

// FormatFromPath returns "png", "bmp" or "tiff" for the file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return "png", nil
	case ".bmp":
		return "bmp", nil
	case ".tif", ".tiff":
		return "tiff", nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
}

// Encode writes img to w in the named format.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case "png":
		err = png.Encode(w, img)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("render: encode %s: %w", format, err)
	}
	return nil
}
