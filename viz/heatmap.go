package viz

import (
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/ventureml/metrics"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Heatmap size, 6×5 inches.
const (
	heatmapWidth  = 6 * vg.Inch
	heatmapHeight = 5 * vg.Inch
)

// DefaultTickLabels are the binary class ticks, negative class first.
var DefaultTickLabels = []string{"No (0)", "Sí (1)"}

// bluesClasses is the largest ColorBrewer "Blues" scheme.
const bluesClasses = 9

// Blues returns the sequential ColorBrewer "Blues" palette, light to dark.
func Blues() (palette.Palette, error) {
	p, err := brewer.GetPalette(brewer.TypeSequential, "Blues", bluesClasses)
	if err != nil {
		return nil, errors.Wrap(err, "viz: Blues palette")
	}
	return p, nil
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ.
// Grid row 0 is drawn at the bottom, so matrix rows are flipped to keep the
// first true class on top.
type confusionGrid struct {
	counts [][]int
}

func (g confusionGrid) Dims() (c, r int)   { return len(g.counts[0]), len(g.counts) }
func (g confusionGrid) Z(c, r int) float64 { return float64(g.counts[len(g.counts)-1-r][c]) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// ConfusionHeatmap builds an annotated heatmap of cm: rows are true labels
// (y axis "Real"), columns predictions (x axis "Predicho").
func ConfusionHeatmap(cm metrics.ConfusionMatrix, title string, ticks []string) (p *plot.Plot, err error) {
	defer errors.Recover(&err, "viz.ConfusionHeatmap")

	n := len(cm.Counts)
	if n == 0 {
		return nil, errors.NewValueError("viz.ConfusionHeatmap", "empty confusion matrix")
	}
	if len(ticks) != n {
		return nil, errors.NewDimensionError("viz.ConfusionHeatmap", n, len(ticks), 0)
	}

	pal, err := Blues()
	if err != nil {
		return nil, err
	}
	grid := confusionGrid{counts: cm.Counts}
	hm := plotter.NewHeatMap(grid, pal)
	lo, hi := hm.Min, hm.Max
	if hi <= lo {
		hm.Max = lo + 1
	}

	p = plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicho"
	p.Y.Label.Text = "Real"
	p.Add(hm)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, t := range ticks {
		xTicks[i] = plot.Tick{Value: float64(i), Label: t}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: t}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	annot := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	dark := make([]bool, 0, n*n)
	mid := (hm.Min + hm.Max) / 2
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := grid.Z(c, r)
			annot.XYs = append(annot.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			annot.Labels = append(annot.Labels, strconv.Itoa(int(v)))
			dark = append(dark, v > mid)
		}
	}
	labels, err := plotter.NewLabels(annot)
	if err != nil {
		return nil, errors.Wrap(err, "viz: annotations")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
		labels.TextStyle[i].Font.Size = vg.Points(14)
		if dark[i] {
			labels.TextStyle[i].Color = color.White
		} else {
			labels.TextStyle[i].Color = color.Black
		}
	}
	p.Add(labels)
	return p, nil
}

// SaveConfusionHeatmap renders cm to a PNG at path, overwriting any
// previous image.
func SaveConfusionHeatmap(path string, cm metrics.ConfusionMatrix, title string) error {
	p, err := ConfusionHeatmap(cm, title, tickLabels(len(cm.Counts)))
	if err != nil {
		return err
	}
	return savePNG(path, p, heatmapWidth, heatmapHeight)
}

func tickLabels(n int) []string {
	if n == len(DefaultTickLabels) {
		return DefaultTickLabels
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}
