//go:build ebiten

package ui

import (
	"image/color"

	"evolab/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// HUD renders the metrics and parameter panel to the right of the history
// view.
type HUD struct {
	exp        core.Experiment
	width      int
	panel      *ebiten.Image
	lastHeight int
	lines      []string
}

// NewHUD constructs a HUD for the provided experiment and panel width.
func NewHUD(exp core.Experiment, width int) *HUD {
	if width < 0 {
		width = 0
	}
	return &HUD{exp: exp, width: width}
}

// Width returns the panel width in pixels.
func (h *HUD) Width() int {
	if h == nil {
		return 0
	}
	return h.width
}

// Update refreshes the cached panel text.
func (h *HUD) Update(paused bool) {
	if h == nil {
		return
	}
	h.lines = append(Lines(h.exp, paused), append([]string{""}, Help()...)...)
}

// Draw paints the HUD panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	y := panelPadding + headerBaseline
	for i, line := range h.lines {
		if y > height-panelPadding {
			break
		}
		col := color.RGBA{R: 220, G: 220, B: 230, A: 255}
		if i == 0 {
			col = color.RGBA{R: 200, G: 200, B: 210, A: 255}
		}
		text.Draw(h.panel, line, face, panelPadding, y, col)
		y += lineHeight
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

const (
	panelPadding   = 12
	lineHeight     = 16
	headerBaseline = 6
)
