package render

import "evolab/internal/core"

// Scroll is a fixed-height history window for live display: the newest tick
// is the bottom row and older rows scroll off the top.
type Scroll struct {
	grid *core.ByteGrid
	rows int
	pix  []byte
}

// NewScroll allocates a w by h window.
func NewScroll(w, h int) *Scroll {
	g := core.NewByteGrid(w, h)
	return &Scroll{grid: g, pix: make([]byte, g.W*g.H*4)}
}

// Size returns the window dimensions.
func (s *Scroll) Size() (int, int) { return s.grid.W, s.grid.H }

// Push scrolls the window and rasterizes tr into the bottom row.
func (s *Scroll) Push(tr core.Track) {
	s.grid.ScrollUp()
	Rasterize(s.grid.Row(s.grid.H-1), tr)
	if s.rows < s.grid.H {
		s.rows++
	}
}

// Rows returns how many rows hold data.
func (s *Scroll) Rows() int { return s.rows }

// Reset clears the window.
func (s *Scroll) Reset() {
	s.grid.Clear()
	s.rows = 0
}

// At returns the cell class at (x, y).
func (s *Scroll) At(x, y int) uint8 { return s.grid.At(x, y) }

// Pixels returns the window as RGBA bytes. The slice is reused between
// calls.
func (s *Scroll) Pixels() []byte {
	fillPaletteRGBA(s.pix, s.grid.Cells(), Palette)
	return s.pix
}
