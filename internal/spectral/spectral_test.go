package spectral

import (
	"math"
	"testing"

	"github.com/facerhythm/facerhythm/internal/trace"
)

func testOptions() Options {
	return Options{
		Window:        256,
		Hop:           64,
		FreqMin:       0.5,
		FreqMax:       15,
		BinsPerOctave: 12,
		SampleRate:    100,
	}
}

func sine(n int, freq, sr float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sr)
	}
	return out
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func TestFrequenciesLogSpaced(t *testing.T) {
	freqs := Frequencies(testOptions())
	if len(freqs) == 0 {
		t.Fatal("no frequency bins generated")
	}
	if freqs[0] != 0.5 {
		t.Errorf("first bin = %f, want 0.5", freqs[0])
	}
	if freqs[len(freqs)-1] > 15.000001 {
		t.Errorf("last bin = %f exceeds freq_max", freqs[len(freqs)-1])
	}
	ratio := math.Pow(2, 1.0/12.0)
	for i := 1; i < len(freqs); i++ {
		if math.Abs(freqs[i]/freqs[i-1]-ratio) > 1e-9 {
			t.Fatalf("bins %d..%d not log spaced: ratio %f", i-1, i, freqs[i]/freqs[i-1])
		}
	}
}

func TestSTFTPowerFindsTone(t *testing.T) {
	o := testOptions()
	sig := sine(1024, 10, o.SampleRate)

	spec, err := STFTPower(sig, o)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec) == 0 {
		t.Fatal("empty spectrogram")
	}

	// 10 Hz at 100 Hz sampling with a 256-sample window lands near
	// linear bin 26.
	peak := argmax(spec[len(spec)/2])
	want := int(math.Round(10 / (o.SampleRate / float64(o.Window))))
	if peak < want-2 || peak > want+2 {
		t.Errorf("peak at bin %d, want near %d", peak, want)
	}
}

func TestLogPowerFindsTone(t *testing.T) {
	o := testOptions()
	sig := sine(1024, 10, o.SampleRate)

	spec, freqs, err := LogPower(sig, o)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec) == 0 {
		t.Fatal("empty spectrogram")
	}

	peak := argmax(spec[len(spec)/2])
	got := freqs[peak]
	if got < 8.5 || got > 11.5 {
		t.Errorf("peak at %f Hz, want near 10", got)
	}
}

func TestLogPowerShortSignal(t *testing.T) {
	o := testOptions()
	if _, _, err := LogPower(sine(100, 5, o.SampleRate), o); err == nil {
		t.Error("expected error for signal shorter than window")
	}
}

func TestSTFTPowerBadOptions(t *testing.T) {
	o := testOptions()
	o.FreqMax = o.FreqMin
	if _, err := STFTPower(sine(1024, 5, 100), o); err == nil {
		t.Error("expected error for degenerate frequency range")
	}
	o = testOptions()
	o.Hop = 0
	if _, err := STFTPower(sine(1024, 5, 100), o); err == nil {
		t.Error("expected error for zero hop")
	}
}

func TestAnalyzeTensorShape(t *testing.T) {
	o := testOptions()
	o.Window = 64
	o.Hop = 16

	// Two points oscillating at different rates.
	tr := trace.New(256, 2)
	for f := 0; f < 256; f++ {
		t0 := float64(f) / o.SampleRate
		tr.Set(f, 0, 30+2*math.Sin(2*math.Pi*4*t0), 40)
		tr.Set(f, 1, 60, 20+2*math.Sin(2*math.Pi*9*t0))
	}

	res, err := Analyze(tr, o)
	if err != nil {
		t.Fatal(err)
	}
	if res.Series != 4 {
		t.Errorf("series = %d, want 4", res.Series)
	}
	if res.Tensor.I != 4 || res.Tensor.J != len(res.Freqs) || res.Tensor.K != res.TimeBins {
		t.Errorf("tensor %dx%dx%d inconsistent with result fields", res.Tensor.I, res.Tensor.J, res.Tensor.K)
	}
	wantBins := (256-64)/16 + 1
	if res.TimeBins != wantBins {
		t.Errorf("time bins = %d, want %d", res.TimeBins, wantBins)
	}
	if res.TimeStep != 16/o.SampleRate {
		t.Errorf("time step = %f", res.TimeStep)
	}
}

func TestAnalyzeShortTrace(t *testing.T) {
	o := testOptions()
	if _, err := Analyze(trace.New(10, 1), o); err == nil {
		t.Error("expected error for trace shorter than window")
	}
}
