//go:build ebiten

package render

import "github.com/hajimehoshi/ebiten/v2"

// GridPainter uploads a Scroll window to an ebiten image and draws it
// scaled.
type GridPainter struct {
	img *ebiten.Image
	w   int
	h   int
}

// NewGridPainter allocates the backing image.
func NewGridPainter(w, h int) *GridPainter {
	return &GridPainter{img: ebiten.NewImage(w, h), w: w, h: h}
}

// Blit draws the scroll window onto screen at the given integer scale.
func (p *GridPainter) Blit(screen *ebiten.Image, s *Scroll, scale int) {
	if scale <= 0 {
		scale = 1
	}
	if w, h := s.Size(); w != p.w || h != p.h {
		p.img = ebiten.NewImage(w, h)
		p.w, p.h = w, h
	}
	p.img.WritePixels(s.Pixels())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	screen.DrawImage(p.img, op)
}
