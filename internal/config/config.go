package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPointSpacing      = 12
	DefaultWindowSize        = 15
	DefaultPyramidLevels     = 3
	DefaultMaxIterations     = 20
	DefaultEpsilon           = 0.03
	DefaultViolationDistance = 20.0
	DefaultFreezeWindow      = 5
	DefaultInterpolateGaps   = 15
	DefaultComponents        = 10
	DefaultSpectralWindow    = 256
	DefaultSpectralHop       = 32
	DefaultBinsPerOctave     = 12
	DefaultFreqMin           = 0.5
	DefaultFreqMax           = 15.0
	DefaultRank              = 8
	DefaultTCAIterations     = 200
	DefaultTCATolerance      = 1e-6
)

// Config holds all parameters for one analysis run. One section per
// pipeline stage, persisted as config_<run>.yaml inside the project's
// configs directory.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Paths    PathsConfig    `yaml:"paths"`
	Video    VideoConfig    `yaml:"video"`
	ROI      ROIConfig      `yaml:"roi"`
	Flow     FlowConfig     `yaml:"flow"`
	Clean    CleanConfig    `yaml:"clean"`
	PCA      PCAConfig      `yaml:"pca"`
	Spectral SpectralConfig `yaml:"spectral"`
	TCA      TCAConfig      `yaml:"tca"`
}

type GeneralConfig struct {
	RunName      string `yaml:"run_name"`
	DateCreated  string `yaml:"date_created"`
	DateModified string `yaml:"date_modified"`
}

type PathsConfig struct {
	Project  string `yaml:"project"`
	Sessions string `yaml:"sessions"`
	Analysis string `yaml:"analysis"`
	Viz      string `yaml:"viz"`
	Config   string `yaml:"config"`
}

// Session is one recording session: a named directory of videos.
type Session struct {
	Name   string   `yaml:"name"`
	Videos []string `yaml:"videos"`
	Frames int      `yaml:"frames"`
	FPS    float64  `yaml:"fps"`
	Width  int      `yaml:"width"`
	Height int      `yaml:"height"`
}

type VideoConfig struct {
	SessionPrefix string    `yaml:"session_prefix"`
	Sessions      []Session `yaml:"sessions"`
}

type ROIConfig struct {
	PointsFile string `yaml:"points_file"`
	MaskFile   string `yaml:"mask_file"`
	Spacing    int    `yaml:"spacing"`
}

type FlowConfig struct {
	WindowSize        int     `yaml:"window_size"`
	PyramidLevels     int     `yaml:"pyramid_levels"`
	MaxIterations     int     `yaml:"max_iterations"`
	Epsilon           float64 `yaml:"epsilon"`
	ViolationDistance float64 `yaml:"violation_distance"`
	Backend           string  `yaml:"backend"`
	Workers           int     `yaml:"workers"`
}

type CleanConfig struct {
	ViolationDistance float64 `yaml:"violation_distance"`
	FreezeWindow      int     `yaml:"freeze_window"`
	InterpolateGaps   int     `yaml:"interpolate_gaps"`
	RemoveOffset      bool    `yaml:"remove_offset"`
}

type PCAConfig struct {
	Components int  `yaml:"components"`
	ZScore     bool `yaml:"zscore"`
}

type SpectralConfig struct {
	Window        int     `yaml:"window"`
	Hop           int     `yaml:"hop"`
	FreqMin       float64 `yaml:"freq_min"`
	FreqMax       float64 `yaml:"freq_max"`
	BinsPerOctave int     `yaml:"bins_per_octave"`
	SampleRate    float64 `yaml:"sample_rate"`
}

type TCAConfig struct {
	Rank          int     `yaml:"rank"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Seed          int64   `yaml:"seed"`
	Variant       string  `yaml:"variant"`
}

func DefaultConfig() *Config {
	return &Config{
		Video: VideoConfig{
			SessionPrefix: "session",
		},
		ROI: ROIConfig{
			Spacing: DefaultPointSpacing,
		},
		Flow: FlowConfig{
			WindowSize:        DefaultWindowSize,
			PyramidLevels:     DefaultPyramidLevels,
			MaxIterations:     DefaultMaxIterations,
			Epsilon:           DefaultEpsilon,
			ViolationDistance: DefaultViolationDistance,
			Backend:           "auto",
		},
		Clean: CleanConfig{
			ViolationDistance: DefaultViolationDistance,
			FreezeWindow:      DefaultFreezeWindow,
			InterpolateGaps:   DefaultInterpolateGaps,
			RemoveOffset:      true,
		},
		PCA: PCAConfig{
			Components: DefaultComponents,
		},
		Spectral: SpectralConfig{
			Window:        DefaultSpectralWindow,
			Hop:           DefaultSpectralHop,
			FreqMin:       DefaultFreqMin,
			FreqMax:       DefaultFreqMax,
			BinsPerOctave: DefaultBinsPerOctave,
		},
		TCA: TCAConfig{
			Rank:          DefaultRank,
			MaxIterations: DefaultTCAIterations,
			Tolerance:     DefaultTCATolerance,
			Variant:       "positional",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the sections every stage depends on. Stage-specific
// checks live with the stages; this catches values that would make any
// run nonsensical.
func (c *Config) Validate() error {
	if c.Flow.WindowSize < 3 || c.Flow.WindowSize%2 == 0 {
		return fmt.Errorf("flow window_size must be odd and >= 3, got %d", c.Flow.WindowSize)
	}
	if c.Flow.PyramidLevels < 1 {
		return fmt.Errorf("flow pyramid_levels must be >= 1, got %d", c.Flow.PyramidLevels)
	}
	if c.ROI.Spacing < 1 {
		return fmt.Errorf("roi spacing must be >= 1, got %d", c.ROI.Spacing)
	}
	if c.Spectral.Hop < 1 || c.Spectral.Window < 2 {
		return fmt.Errorf("spectral window/hop invalid: window=%d hop=%d", c.Spectral.Window, c.Spectral.Hop)
	}
	if c.Spectral.FreqMin <= 0 || c.Spectral.FreqMax <= c.Spectral.FreqMin {
		return fmt.Errorf("spectral frequency range invalid: [%f, %f]", c.Spectral.FreqMin, c.Spectral.FreqMax)
	}
	if c.TCA.Rank < 1 {
		return fmt.Errorf("tca rank must be >= 1, got %d", c.TCA.Rank)
	}
	return nil
}
