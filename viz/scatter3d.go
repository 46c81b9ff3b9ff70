package viz

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

const (
	scatterWidth  = 6.4 * vg.Inch
	scatterHeight = 4.8 * vg.Inch
)

// Point3 is a point in data coordinates.
type Point3 struct {
	X, Y, Z float64
}

// Axes3 names the three axes and fixes their lower bound at zero.
type Axes3 struct {
	X, Y, Z string
}

var (
	sampleColor    = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	highlightColor = color.RGBA{R: 0x1f, G: 0x3f, B: 0xd4, A: 0xff}
	axisColor      = color.Gray{Y: 0x40}
	floorColor     = color.Gray{Y: 0xc0}
)

// projection maps data coordinates to the plane with a fixed isometric view:
// each axis is normalised to [0, 1], x runs down-right, y down-left and z up.
type projection struct {
	max [3]float64
}

func newProjection(points []Point3) projection {
	var pr projection
	for i := range pr.max {
		pr.max[i] = 1
	}
	if len(points) == 0 {
		return pr
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	for i, vs := range [][]float64{xs, ys, zs} {
		if m := floats.Max(vs); m > 0 {
			pr.max[i] = niceCeil(m)
		}
	}
	return pr
}

var (
	cos30 = math.Cos(math.Pi / 6)
	sin30 = math.Sin(math.Pi / 6)
)

func (pr projection) project(p Point3) plotter.XY {
	u, v, w := p.X/pr.max[0], p.Y/pr.max[1], p.Z/pr.max[2]
	return plotter.XY{
		X: (u - v) * cos30,
		Y: w - (u+v)*sin30,
	}
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

// Scatter3D draws samples as red points in a projected 3-D box. When
// highlight is non-nil it is drawn as a larger blue point with a dashed
// vertical line down to the XY plane.
func Scatter3D(samples []Point3, highlight *Point3, axes Axes3) (p *plot.Plot, err error) {
	defer errors.Recover(&err, "viz.Scatter3D")

	all := samples
	if highlight != nil {
		all = append(append([]Point3(nil), samples...), *highlight)
	}
	for _, pt := range all {
		if err := errors.CheckNumericalStability("viz.Scatter3D", []float64{pt.X, pt.Y, pt.Z}, 0); err != nil {
			return nil, err
		}
	}
	pr := newProjection(all)

	p = plot.New()
	p.HideAxes()
	p.Legend.Top = true

	if err := addFrame(p, pr, axes); err != nil {
		return nil, err
	}

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = pr.project(s)
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "viz: samples")
	}
	sc.GlyphStyle.Color = sampleColor
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)
	p.Legend.Add("Datos", sc)

	if highlight != nil {
		h := pr.project(*highlight)
		base := pr.project(Point3{X: highlight.X, Y: highlight.Y})

		drop, err := plotter.NewLine(plotter.XYs{base, h})
		if err != nil {
			return nil, errors.Wrap(err, "viz: projection line")
		}
		drop.LineStyle.Color = highlightColor
		drop.LineStyle.Width = vg.Points(2)
		drop.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

		hs, err := plotter.NewScatter(plotter.XYs{h})
		if err != nil {
			return nil, errors.Wrap(err, "viz: highlight")
		}
		hs.GlyphStyle.Color = highlightColor
		hs.GlyphStyle.Shape = draw.CircleGlyph{}
		hs.GlyphStyle.Radius = vg.Points(6)

		p.Add(drop, hs)
		p.Legend.Add("Predicción", hs)
		p.Legend.Add("Proyección vertical", drop)
	}
	return p, nil
}

// addFrame draws the floor outline, the three axes with end-point ticks
// and the axis names.
func addFrame(p *plot.Plot, pr projection, axes Axes3) error {
	mx, my, mz := pr.max[0], pr.max[1], pr.max[2]

	floor, err := plotter.NewLine(plotter.XYs{
		pr.project(Point3{X: mx}),
		pr.project(Point3{X: mx, Y: my}),
		pr.project(Point3{Y: my}),
	})
	if err != nil {
		return errors.Wrap(err, "viz: floor")
	}
	floor.LineStyle.Color = floorColor
	floor.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(floor)

	origin := pr.project(Point3{})
	ends := []Point3{{X: mx}, {Y: my}, {Z: mz}}
	for _, end := range ends {
		l, err := plotter.NewLine(plotter.XYs{origin, pr.project(end)})
		if err != nil {
			return errors.Wrap(err, "viz: axis")
		}
		l.LineStyle.Color = axisColor
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
	}

	names := plotter.XYLabels{
		XYs: plotter.XYs{
			pr.project(Point3{X: mx * 1.12}),
			pr.project(Point3{Y: my * 1.12}),
			pr.project(Point3{Z: mz * 1.08}),
		},
		Labels: []string{axes.X, axes.Y, axes.Z},
	}
	ticks := plotter.XYLabels{}
	for i, end := range ends {
		for _, f := range []float64{0.5, 1} {
			pt := Point3{X: end.X * f, Y: end.Y * f, Z: end.Z * f}
			ticks.XYs = append(ticks.XYs, pr.project(pt))
			ticks.Labels = append(ticks.Labels, strconv.FormatFloat(pr.max[i]*f, 'g', 4, 64))
		}
	}

	for _, set := range []plotter.XYLabels{names, ticks} {
		lb, err := plotter.NewLabels(set)
		if err != nil {
			return errors.Wrap(err, "viz: axis labels")
		}
		for i := range lb.TextStyle {
			lb.TextStyle[i].XAlign = text.XCenter
			lb.TextStyle[i].YAlign = text.YCenter
			lb.TextStyle[i].Color = axisColor
		}
		p.Add(lb)
	}
	return nil
}

// Scatter3DPNG renders Scatter3D as PNG bytes.
func Scatter3DPNG(samples []Point3, highlight *Point3, axes Axes3) ([]byte, error) {
	p, err := Scatter3D(samples, highlight, axes)
	if err != nil {
		return nil, err
	}
	return renderPNG(p, scatterWidth, scatterHeight)
}
