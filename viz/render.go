package viz

import (
	"bytes"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// DPI is the resolution of every rendered PNG.
const DPI = 120

// writePNG draws p on a w×h canvas and encodes it as PNG.
func writePNG(out io.Writer, p *plot.Plot, w, h vg.Length) error {
	return errors.SafeExecute("viz.writePNG", func() error {
		c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(DPI), vgimg.UseBackgroundColor(color.White))
		p.Draw(draw.New(c))
		if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(out); err != nil {
			return errors.Wrap(err, "viz: encode png")
		}
		return nil
	})
}

// renderPNG returns p encoded as PNG bytes.
func renderPNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	var buf bytes.Buffer
	if err := writePNG(&buf, p, w, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// savePNG writes p to path, creating the directory and replacing any
// existing file. The file is written next to path and renamed into place so
// concurrent readers never see a partial image.
func savePNG(path string, p *plot.Plot, w, h vg.Length) error {
	data, err := renderPNG(p, w, h)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "viz: create %s", filepath.Dir(path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".viz-*.png")
	if err != nil {
		return errors.Wrap(err, "viz: create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "viz: write %s", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "viz: chmod %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "viz: write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "viz: replace %s", path)
	}
	return nil
}
