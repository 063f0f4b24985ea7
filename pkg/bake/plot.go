package bake

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
)

// Plot builds a chart of rotation angle over time for labels, or every
// baked label when none are given.
func (c *Clip) Plot(labels ...bonemap.Label) (*plot.Plot, error) {
	if len(labels) == 0 {
		labels = c.Labels()
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s rotation", c.Rig)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "angle (deg)"
	p.Legend.Top = true

	for i, l := range labels {
		keys := c.Bones[l]
		if len(keys) == 0 {
			continue
		}
		angles := c.Angles(l)
		pts := make(plotter.XYs, len(keys))
		for j, k := range keys {
			pts[j] = plotter.XY{X: k.Time, Y: angles[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", l, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(l.String(), line)
	}
	return p, nil
}

// SavePlot writes the rotation chart to path. The image format follows
// the file extension.
func (c *Clip) SavePlot(path string, labels ...bonemap.Label) error {
	p, err := c.Plot(labels...)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
