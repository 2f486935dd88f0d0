// Package viz renders analysis results: quick asciigraph plots for the
// terminal and gonum/plot PNG figures written under the project's viz
// directory.
package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/facerhythm/facerhythm/internal/trace"
)

// TerminalPlot renders one series as an ASCII chart.
func TerminalPlot(series []float64, caption string, width, height int) string {
	if len(series) < 2 {
		return fmt.Sprintf("%s: not enough samples to plot", caption)
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// TerminalTrace plots the displacement of up to maxPoints trajectories,
// one chart per point.
func TerminalTrace(tr *trace.Trace, maxPoints, width, height int) string {
	n := tr.Points
	if n > maxPoints {
		n = maxPoints
	}
	var b strings.Builder
	for p := 0; p < n; p++ {
		disp := tr.Displacement(p)
		b.WriteString(TerminalPlot(disp, fmt.Sprintf("point %d displacement (px)", p), width, height))
		b.WriteString("\n\n")
	}
	if tr.Points > n {
		fmt.Fprintf(&b, "(%d more points not shown)\n", tr.Points-n)
	}
	return b.String()
}

// TerminalSpectrum plots mean power per frequency bin.
func TerminalSpectrum(power [][]float64, freqs []float64, width, height int) string {
	if len(power) == 0 || len(freqs) == 0 {
		return "empty spectrogram"
	}
	mean := make([]float64, len(freqs))
	for _, row := range power {
		for b, v := range row {
			if b < len(mean) {
				mean[b] += v
			}
		}
	}
	for b := range mean {
		mean[b] /= float64(len(power))
	}
	caption := fmt.Sprintf("mean power, %.2f-%.2f Hz", freqs[0], freqs[len(freqs)-1])
	return TerminalPlot(mean, caption, width, height)
}
