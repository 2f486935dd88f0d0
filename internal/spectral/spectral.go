// Package spectral turns trajectory time series into power spectrograms:
// a plain short-time Fourier transform and a constant-Q style log-spaced
// filter bank, both framed by the window/hop settings from the config.
package spectral

import (
	"fmt"
	"math"

	"github.com/r9y9/gossp/stft"

	"github.com/facerhythm/facerhythm/internal/config"
)

// Options carries the frame geometry and frequency range for one analysis.
// SampleRate is in Hz; for trajectories it is the video frame rate.
type Options struct {
	Window        int
	Hop           int
	FreqMin       float64
	FreqMax       float64
	BinsPerOctave int
	SampleRate    float64
}

// FromConfig builds Options from the spectral config section, falling back
// to the session frame rate when no explicit sample rate is set.
func FromConfig(cfg config.SpectralConfig, fps float64) Options {
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = fps
	}
	return Options{
		Window:        cfg.Window,
		Hop:           cfg.Hop,
		FreqMin:       cfg.FreqMin,
		FreqMax:       cfg.FreqMax,
		BinsPerOctave: cfg.BinsPerOctave,
		SampleRate:    sr,
	}
}

func (o Options) validate() error {
	if o.Window < 2 || o.Hop < 1 {
		return fmt.Errorf("spectral frame geometry invalid: window=%d hop=%d", o.Window, o.Hop)
	}
	if o.SampleRate <= 0 {
		return fmt.Errorf("spectral sample rate must be positive, got %f", o.SampleRate)
	}
	if o.FreqMin <= 0 || o.FreqMax <= o.FreqMin {
		return fmt.Errorf("spectral frequency range invalid: [%f, %f]", o.FreqMin, o.FreqMax)
	}
	if o.BinsPerOctave < 1 {
		return fmt.Errorf("spectral bins_per_octave must be >= 1, got %d", o.BinsPerOctave)
	}
	return nil
}

// Frequencies returns the log-spaced bin centers, FreqMin scaled by
// 2^(i/BinsPerOctave) up to FreqMax inclusive.
func Frequencies(o Options) []float64 {
	var freqs []float64
	for i := 0; ; i++ {
		f := o.FreqMin * math.Pow(2, float64(i)/float64(o.BinsPerOctave))
		if f > o.FreqMax*(1+1e-12) {
			break
		}
		freqs = append(freqs, f)
	}
	return freqs
}

// STFTPower computes a one-sided power spectrogram, frames x (window/2+1).
func STFTPower(signal []float64, o Options) ([][]float64, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if len(signal) < o.Window {
		return nil, fmt.Errorf("signal length %d shorter than analysis window %d", len(signal), o.Window)
	}

	s := stft.New(o.Hop, o.Window)
	spec := s.STFT(signal)

	half := o.Window/2 + 1
	out := make([][]float64, len(spec))
	for i, frame := range spec {
		row := make([]float64, half)
		for j := 0; j < half && j < len(frame); j++ {
			re, im := real(frame[j]), imag(frame[j])
			row[j] = re*re + im*im
		}
		out[i] = row
	}
	return out, nil
}

// hann is the periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
