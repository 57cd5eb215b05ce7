package render

import "image/color"

// Cell classes written into history rows.
const (
	CellEmpty uint8 = iota
	CellBoundary
	CellInside
	CellOutside
	CellPlain
)

// Palette maps cell classes onto colours.
var Palette = []color.RGBA{
	CellEmpty:    {A: 255},
	CellBoundary: {B: 255, A: 255},
	CellInside:   {G: 255, A: 255},
	CellOutside:  {R: 255, A: 255},
	CellPlain:    {R: 255, G: 255, B: 255, A: 255},
}

// fillPaletteRGBA converts cell values into RGBA pixels using a palette. When
// the palette is empty the buffer is cleared to transparent black. Values past
// the end of the palette use its last colour.
func fillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		for i := range cells {
			base := i * 4
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
		}
		return
	}

	last := len(palette) - 1
	for i, c := range cells {
		idx := int(c)
		if idx > last {
			idx = last
		}
		base := i * 4
		col := palette[idx]
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}
