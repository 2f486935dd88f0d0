package spectral

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/facerhythm/facerhythm/internal/decomp"
	"github.com/facerhythm/facerhythm/internal/trace"
)

// LogPower computes a constant-Q style power spectrogram by projecting
// Hann-windowed FFT frames onto a triangular filter bank with log-spaced
// centers. Returns frames x len(freqs) power along with the bin centers.
func LogPower(signal []float64, o Options) ([][]float64, []float64, error) {
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	if len(signal) < o.Window {
		return nil, nil, fmt.Errorf("signal length %d shorter than analysis window %d", len(signal), o.Window)
	}
	freqs := Frequencies(o)
	if len(freqs) == 0 {
		return nil, nil, fmt.Errorf("no frequency bins between %f and %f Hz", o.FreqMin, o.FreqMax)
	}

	// Frames are zero-padded to a power of two before the FFT.
	n := nextPow2(o.Window)
	win := hann(o.Window)
	binHz := o.SampleRate / float64(n)
	bank := filterBank(freqs, o, binHz, n/2+1)

	numFrames := (len(signal)-o.Window)/o.Hop + 1
	out := make([][]float64, numFrames)
	frame := make([]float64, n)
	for t := 0; t < numFrames; t++ {
		for i := range frame {
			frame[i] = 0
		}
		off := t * o.Hop
		for i := 0; i < o.Window; i++ {
			frame[i] = signal[off+i] * win[i]
		}

		spec := fft.FFTReal(frame)
		power := make([]float64, n/2+1)
		for j := range power {
			re, im := real(spec[j]), imag(spec[j])
			power[j] = re*re + im*im
		}

		row := make([]float64, len(freqs))
		for b, filt := range bank {
			var acc float64
			for _, w := range filt {
				acc += w.weight * power[w.bin]
			}
			row[b] = acc
		}
		out[t] = row
	}
	return out, freqs, nil
}

type tap struct {
	bin    int
	weight float64
}

// filterBank builds one triangular filter per log-spaced center, with
// edges at the neighboring centers. Weights are normalized so each filter
// sums to one; filters too narrow to cover a linear bin stay empty.
func filterBank(freqs []float64, o Options, binHz float64, bins int) [][]tap {
	ratio := pow2inv(o.BinsPerOctave)
	bank := make([][]tap, len(freqs))
	for b, fc := range freqs {
		lo := fc / ratio
		hi := fc * ratio
		if b > 0 {
			lo = freqs[b-1]
		}
		if b < len(freqs)-1 {
			hi = freqs[b+1]
		}

		var taps []tap
		var total float64
		for j := 0; j < bins; j++ {
			f := float64(j) * binHz
			if f <= lo || f >= hi {
				continue
			}
			var w float64
			if f <= fc {
				w = (f - lo) / (fc - lo)
			} else {
				w = (hi - f) / (hi - fc)
			}
			taps = append(taps, tap{bin: j, weight: w})
			total += w
		}
		if total > 0 {
			for i := range taps {
				taps[i].weight /= total
			}
		}
		bank[b] = taps
	}
	return bank
}

func pow2inv(bpo int) float64 {
	return math.Pow(2, 1/float64(bpo))
}

// Result bundles one spectral analysis run: per-series power stacked as a
// series x freqs x timebins tensor, ready for TCA.
type Result struct {
	Freqs    []float64
	TimeBins int
	Series   int // points * 2, y then x per point
	Tensor   *decomp.Tensor3
	TimeStep float64 // seconds per bin
}

// Analyze runs the log-spaced spectrogram over every point's y and x
// offset series and stacks the results. Series order matches the
// displacement matrix: point 0 y, point 0 x, point 1 y, ...
func Analyze(tr *trace.Trace, o Options) (*Result, error) {
	if tr.Frames < o.Window {
		return nil, fmt.Errorf("trace of %d frames shorter than analysis window %d", tr.Frames, o.Window)
	}

	off := tr.Offsets()
	var tensor *decomp.Tensor3
	var freqs []float64
	series := tr.Points * 2
	timeBins := 0

	for p := 0; p < tr.Points; p++ {
		for axis := 0; axis < 2; axis++ {
			power, fr, err := LogPower(off.Series(p, axis), o)
			if err != nil {
				return nil, fmt.Errorf("point %d axis %d: %w", p, axis, err)
			}
			if tensor == nil {
				freqs = fr
				timeBins = len(power)
				tensor = decomp.NewTensor3(series, len(fr), timeBins)
			}
			row := p*2 + axis
			for t, bins := range power {
				for b, v := range bins {
					tensor.Set(row, b, t, v)
				}
			}
		}
	}

	return &Result{
		Freqs:    freqs,
		TimeBins: timeBins,
		Series:   series,
		Tensor:   tensor,
		TimeStep: float64(o.Hop) / o.SampleRate,
	}, nil
}
