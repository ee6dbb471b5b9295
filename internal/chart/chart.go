// Package chart renders wells, stations and the reference point as a scatter plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/mawngo/wellsite/internal/atomicfile"
	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var ErrLabelCount = errors.New("chart: one cluster label per well required")

var (
	// Width and Height are the default canvas size.
	Width  = 10 * vg.Inch
	Height = 8 * vg.Inch

	stationColor   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	referenceColor = color.RGBA{R: 20, G: 60, B: 220, A: 255}
	wellColor      = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// Scene is everything drawn on one plot.
type Scene struct {
	Wells     []orb.Point
	Labels    []int
	K         int
	Stations  []orb.Point
	Reference *orb.Point

	Title  string
	XLabel string
	YLabel string
}

// New builds the plot. Wells are coloured by cluster id along a continuous colour map.
func New(s Scene) (*plot.Plot, error) {
	if len(s.Labels) != len(s.Wells) {
		return nil, fmt.Errorf("%w: %d labels, %d wells", ErrLabelCount, len(s.Labels), len(s.Wells))
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	cm := moreland.Kindlmann()
	cm.SetMin(0)
	cm.SetMax(float64(max(1, s.K-1)))

	wells, err := plotter.NewScatter(xys(s.Wells))
	if err != nil {
		return nil, fmt.Errorf("wells: %w", err)
	}
	wells.GlyphStyle.Shape = draw.CircleGlyph{}
	wells.GlyphStyle.Radius = vg.Points(4)
	wells.GlyphStyle.Color = wellColor
	wells.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		gs := wells.GlyphStyle
		if c, err := cm.At(float64(s.Labels[i])); err == nil {
			gs.Color = c
		}
		return gs
	}
	p.Add(wells)
	p.Legend.Add("Wells", wells)

	stations, err := plotter.NewScatter(xys(s.Stations))
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}
	stations.GlyphStyle.Shape = draw.PyramidGlyph{}
	stations.GlyphStyle.Radius = vg.Points(9)
	stations.GlyphStyle.Color = stationColor
	p.Add(stations)
	p.Legend.Add("Stations", stations)

	all := append(append([]orb.Point{}, s.Wells...), s.Stations...)
	if s.Reference != nil {
		ref, err := plotter.NewScatter(xys([]orb.Point{*s.Reference}))
		if err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
		ref.GlyphStyle.Shape = draw.BoxGlyph{}
		ref.GlyphStyle.Radius = vg.Points(8)
		ref.GlyphStyle.Color = referenceColor
		p.Add(ref)
		p.Legend.Add("First station", ref)
		all = append(all, *s.Reference)
	}

	pad(p, orb.MultiPoint(all).Bound())
	return p, nil
}

// pad widens the axes so glyphs on the extremes are not clipped.
func pad(p *plot.Plot, b orb.Bound) {
	d := max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1], 1) * 0.05
	p.X.Min, p.X.Max = b.Min[0]-d, b.Max[0]+d
	p.Y.Min, p.Y.Max = b.Min[1]-d, b.Max[1]+d
}

func xys(ps []orb.Point) plotter.XYs {
	out := make(plotter.XYs, len(ps))
	for i, pt := range ps {
		out[i].X = pt.X()
		out[i].Y = pt.Y()
	}
	return out
}

// Save renders the scene to path; the format follows the file extension (png, svg, pdf, ...).
func Save(path string, s Scene) error {
	p, err := New(s)
	if err != nil {
		return err
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", format, err)
	}
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
