package trackers

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotReturns saves a learning curve of episodic returns to filename.
// The image format is determined by the file extension.
func PlotReturns(returns []float64, title, filename string) error {
	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = "Episodes"
	p.Y.Label.Text = "Return"

	pts := make(plotter.XYs, len(returns))
	for i := range returns {
		pts[i].X = float64(i)
		pts[i].Y = returns[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plotReturns: could not create line plotter: %v",
			err)
	}
	p.Add(line)
	p.Legend.Add("Return", line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("plotReturns: could not save plot: %v", err)
	}
	return nil
}
