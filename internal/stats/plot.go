package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when a plot would have no points.
var ErrNoData = errors.New("stats: no samples to plot")

// Plot draws one line per metric name against the tick axis and saves it.
// The image format follows the file extension (png, svg, pdf, ...).
func (s Series) Plot(title, path string, names ...string) error {
	if len(s) == 0 {
		return ErrNoData
	}
	if len(names) == 0 {
		names = []string{"population"}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Value"

	for i, name := range names {
		pts := make(plotter.XYs, 0, len(s))
		for _, sample := range s {
			v, ok := sample.Value(name)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(sample.Tick), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("stats: line for %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("stats: save plot %s: %w", path, err)
	}
	return nil
}
