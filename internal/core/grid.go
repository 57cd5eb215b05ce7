package core

// ByteGrid stores a 2D grid of byte-sized cell values in row-major order.
// Rendering uses it as a history raster: one row per tick.
type ByteGrid struct {
	W, H int
	data []uint8
}

// NewByteGrid allocates a grid with the given dimensions.
func NewByteGrid(w, h int) *ByteGrid {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &ByteGrid{W: w, H: h, data: make([]uint8, w*h)}
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *ByteGrid) Cells() []uint8 { return g.data }

// Index returns the linear slice index for coordinates (x, y).
func (g *ByteGrid) Index(x, y int) int { return y*g.W + x }

// Row returns the cells of row y as a sub-slice of the backing buffer.
func (g *ByteGrid) Row(y int) []uint8 {
	return g.data[y*g.W : (y+1)*g.W]
}

// At returns the value at (x, y); out-of-range coordinates read as 0.
func (g *ByteGrid) At(x, y int) uint8 {
	if x < 0 || x >= g.W || y < 0 || y >= g.H {
		return 0
	}
	return g.data[g.Index(x, y)]
}

// Set writes v at (x, y), ignoring out-of-range coordinates.
func (g *ByteGrid) Set(x, y int, v uint8) {
	if x < 0 || x >= g.W || y < 0 || y >= g.H {
		return
	}
	g.data[g.Index(x, y)] = v
}

// ScrollUp moves every row up by one, discarding the top row, and clears the
// bottom row so it can receive the newest tick.
func (g *ByteGrid) ScrollUp() {
	copy(g.data, g.data[g.W:])
	last := g.Row(g.H - 1)
	for i := range last {
		last[i] = 0
	}
}

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() {
	for i := range g.data {
		g.data[i] = 0
	}
}
