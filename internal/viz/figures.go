package viz

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/facerhythm/facerhythm/internal/trace"
)

const (
	figWidth  = 10 * vg.Inch
	figHeight = 5 * vg.Inch
)

// TraceFigure writes a PNG of per-point displacement over frames. At most
// maxPoints trajectories are drawn to keep the legend readable.
func TraceFigure(tr *trace.Trace, path string, maxPoints int) error {
	p := plot.New()
	p.Title.Text = "Point displacement"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Displacement (px)"

	n := tr.Points
	if maxPoints > 0 && n > maxPoints {
		n = maxPoints
	}
	colors := generateColors(n)
	for i := 0; i < n; i++ {
		disp := tr.Displacement(i)
		pts := make(plotter.XYs, len(disp))
		for f, v := range disp {
			pts[f] = plotter.XY{X: float64(f), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("pt %d", i), line)
	}
	p.Legend.Top = true

	return p.Save(figWidth, figHeight, path)
}

// ComponentsFigure writes a PNG of component time courses, one line per
// column of the scores matrix.
func ComponentsFigure(scores *mat.Dense, explained []float64, path, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Score"

	rows, cols := scores.Dims()
	colors := generateColors(cols)
	for c := 0; c < cols; c++ {
		pts := make(plotter.XYs, rows)
		for r := 0; r < rows; r++ {
			pts[r] = plotter.XY{X: float64(r), Y: scores.At(r, c)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[c]
		line.Width = vg.Points(1)
		p.Add(line)

		label := fmt.Sprintf("comp %d", c)
		if c < len(explained) {
			label = fmt.Sprintf("comp %d (%.1f%%)", c, explained[c]*100)
		}
		p.Legend.Add(label, line)
	}
	p.Legend.Top = true

	return p.Save(figWidth, figHeight, path)
}

// FactorsFigure writes one PNG per tensor mode, lines being the factor
// columns. Paths are derived from base as <base>_mode<n>.png.
func FactorsFigure(factors [3]*mat.Dense, base string, modeNames [3]string) ([]string, error) {
	var out []string
	for m := 0; m < 3; m++ {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Factor mode %d (%s)", m, modeNames[m])
		p.X.Label.Text = modeNames[m]
		p.Y.Label.Text = "Weight"

		rows, cols := factors[m].Dims()
		colors := generateColors(cols)
		for c := 0; c < cols; c++ {
			pts := make(plotter.XYs, rows)
			for r := 0; r < rows; r++ {
				pts[r] = plotter.XY{X: float64(r), Y: factors[m].At(r, c)}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return out, err
			}
			line.Color = colors[c]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("factor %d", c), line)
		}
		p.Legend.Top = true

		path := fmt.Sprintf("%s_mode%d.png", base, m)
		if err := p.Save(figWidth, figHeight, path); err != nil {
			return out, err
		}
		out = append(out, filepath.Clean(path))
	}
	return out, nil
}

// powerGrid adapts a frames x bins power matrix to the heat map interface.
type powerGrid struct {
	power    [][]float64 // timebins x freqs
	freqs    []float64
	timeStep float64
}

func (g powerGrid) Dims() (int, int)   { return len(g.power), len(g.freqs) }
func (g powerGrid) X(c int) float64    { return float64(c) * g.timeStep }
func (g powerGrid) Y(r int) float64    { return g.freqs[r] }
func (g powerGrid) Z(c, r int) float64 { return g.power[c][r] }

// SpectrogramFigure writes a PNG heat map of one spectrogram,
// time on x and frequency on y.
func SpectrogramFigure(power [][]float64, freqs []float64, timeStep float64, path, title string) error {
	if len(power) == 0 || len(freqs) == 0 {
		return fmt.Errorf("empty spectrogram")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"

	grid := powerGrid{power: power, freqs: freqs, timeStep: timeStep}
	hm := plotter.NewHeatMap(grid, palette.Heat(16, 255))
	p.Add(hm)

	return p.Save(figWidth, figHeight, path)
}

// generateColors spreads n distinct hues over the color wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
