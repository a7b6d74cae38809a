package creso

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/creso-ml/creso/pkg/errors"
)

// PlotLoss renders the loss curve to an image file. The format follows the
// path extension (.png, .svg, .pdf).
func (h *TrainingHistory) PlotLoss(path string) error {
	if len(h.LossCurve) == 0 {
		return errors.New("creso: PlotLoss: empty loss curve")
	}

	p := plot.New()
	p.Title.Text = "training loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	pts := make(plotter.XYs, len(h.LossCurve))
	for i, loss := range h.LossCurve {
		pts[i].X = float64(i)
		pts[i].Y = loss
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "creso: PlotLoss")
	}
	p.Add(line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "creso: PlotLoss")
	}
	return nil
}
