package main

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/stream.report/internal/analysis"
)

// plotProfile renders the full profile as a scatter with the Pareto frontier
// overlaid as a connected line, bandwidth on X and accuracy on Y.
func plotProfile(path string, profile []analysis.ProfilePoint, frontier analysis.Frontier) error {
	p := plot.New()
	p.Title.Text = "Bandwidth/Accuracy Profile"
	p.X.Label.Text = "Bandwidth (bps)"
	p.Y.Label.Text = "Accuracy"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	profilePts := make(plotter.XYs, 0, len(profile))
	for _, pt := range profile {
		profilePts = append(profilePts, plotter.XY{X: pt.BandwidthBPS, Y: pt.Accuracy})
	}
	scatter, err := plotter.NewScatter(profilePts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	p.Add(scatter)
	p.Legend.Add("profile", scatter)

	frontierPts := make(plotter.XYs, 0, len(frontier))
	for _, pt := range frontier {
		frontierPts = append(frontierPts, plotter.XY{X: pt.BandwidthBPS, Y: pt.Accuracy})
	}
	line, pts, err := plotter.NewLinePoints(frontierPts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 31, G: 158, B: 137, A: 255}
	line.Width = vg.Points(1)
	pts.GlyphStyle.Radius = vg.Points(4)
	pts.GlyphStyle.Color = line.Color
	p.Add(line, pts)
	p.Legend.Add("frontier", line)

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
