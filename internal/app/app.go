//go:build ebiten

package app

import (
	"time"

	"evolab/internal/core"
	"evolab/internal/render"
	"evolab/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts an experiment to the ebiten.Game interface. The history view
// scrolls up one row per tick; the HUD sits to its right.
type Game struct {
	exp     core.Experiment
	tracker core.Tracker
	scroll  *render.Scroll
	painter *render.GridPainter
	hud     *ui.HUD
	timer   *core.FixedStep

	scale    int
	paused   bool
	tickOnce bool
	seed     int64
}

// New constructs a Game. width and height size the history view in cells.
func New(exp core.Experiment, width, height, scale, tps int, seed int64) *Game {
	tracker, _ := exp.(core.Tracker)
	g := &Game{
		exp:     exp,
		tracker: tracker,
		scroll:  render.NewScroll(width, height),
		painter: render.NewGridPainter(width, height),
		hud:     ui.NewHUD(exp, hudWidth),
		timer:   core.NewFixedStep(tps),
		scale:   scale,
		seed:    seed,
	}
	g.push()
	return g
}

// Reset reinitializes the experiment with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.exp.Reset(seed)
	g.scroll.Reset()
	g.tickOnce = false
	g.push()
}

// Update handles per-frame logic and advances the experiment at the
// configured tick rate.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}

	due := g.timer.ShouldStep()
	if g.exp.Tick() < g.exp.MaxTick() && ((!g.paused && due) || g.tickOnce) {
		g.exp.Step()
		g.push()
		g.tickOnce = false
	}
	g.hud.Update(g.paused)
	return nil
}

func (g *Game) push() {
	if g.tracker == nil {
		return
	}
	g.scroll.Push(g.tracker.Track())
}

// Draw renders the history view and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.scroll, g.scale)
	w, h := g.scroll.Size()
	g.hud.Draw(screen, w*g.scale, h*g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.scroll.Size()
	return w*g.scale + g.hud.Width(), h * g.scale
}

const hudWidth = 260
