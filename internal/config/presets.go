package config

import "sort"

// Presets are named parameter bundles for common recording setups.
// Values land on top of DefaultConfig, so zero fields keep defaults.
var Presets = map[string]*Config{
	// Close-up face video at typical webcam or behavior-rig frame rates.
	"face_close": {
		ROI:  ROIConfig{Spacing: 8},
		Flow: FlowConfig{WindowSize: 21, PyramidLevels: 3, MaxIterations: 30, Epsilon: 0.01, ViolationDistance: 15, Backend: "auto"},
		Clean: CleanConfig{
			ViolationDistance: 15, FreezeWindow: 5, InterpolateGaps: 15, RemoveOffset: true,
		},
		Spectral: SpectralConfig{Window: 512, Hop: 32, FreqMin: 0.5, FreqMax: 20, BinsPerOctave: 16},
		TCA:      TCAConfig{Rank: 10, MaxIterations: 300, Tolerance: 1e-7, Variant: "spectral"},
	},
	// Whole-head field of view: coarser grid, larger search window.
	"head_wide": {
		ROI:  ROIConfig{Spacing: 16},
		Flow: FlowConfig{WindowSize: 31, PyramidLevels: 4, MaxIterations: 30, Epsilon: 0.03, ViolationDistance: 30, Backend: "auto"},
		Clean: CleanConfig{
			ViolationDistance: 30, FreezeWindow: 8, InterpolateGaps: 20, RemoveOffset: true,
		},
		Spectral: SpectralConfig{Window: 256, Hop: 32, FreqMin: 0.5, FreqMax: 10, BinsPerOctave: 12},
		TCA:      TCAConfig{Rank: 6, MaxIterations: 200, Tolerance: 1e-6, Variant: "positional"},
	},
	// Long overnight sessions: cheaper tracking, fewer components.
	"long_session": {
		ROI:  ROIConfig{Spacing: 20},
		Flow: FlowConfig{WindowSize: 15, PyramidLevels: 2, MaxIterations: 15, Epsilon: 0.05, ViolationDistance: 25, Backend: "auto"},
		Clean: CleanConfig{
			ViolationDistance: 25, FreezeWindow: 10, InterpolateGaps: 30, RemoveOffset: true,
		},
		PCA:      PCAConfig{Components: 5},
		Spectral: SpectralConfig{Window: 1024, Hop: 128, FreqMin: 0.1, FreqMax: 8, BinsPerOctave: 8},
		TCA:      TCAConfig{Rank: 4, MaxIterations: 150, Tolerance: 1e-5, Variant: "positional"},
	},
}

// GetPreset returns a copy of the named preset merged over the defaults,
// or nil when no such preset exists.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	if p.ROI.Spacing != 0 {
		cfg.ROI.Spacing = p.ROI.Spacing
	}
	if p.Flow.WindowSize != 0 {
		cfg.Flow = p.Flow
	}
	if p.Clean.ViolationDistance != 0 {
		cfg.Clean = p.Clean
	}
	if p.PCA.Components != 0 {
		cfg.PCA = p.PCA
	}
	if p.Spectral.Window != 0 {
		cfg.Spectral = p.Spectral
	}
	if p.TCA.Rank != 0 {
		cfg.TCA = p.TCA
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
