package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/facerhythm/facerhythm/internal/config"
	"github.com/facerhythm/facerhythm/internal/pipeline"
	"github.com/facerhythm/facerhythm/internal/project"
	"github.com/facerhythm/facerhythm/internal/rois"
	"github.com/facerhythm/facerhythm/internal/video"
)

const (
	frameW    = 64
	frameH    = 48
	numFrames = 160
	fps       = 100.0
)

// textureSource synthesizes a sinusoidal texture translating slowly over
// time, which gives the tracker gradients everywhere in the frame.
type textureSource struct {
	next int
}

func (s *textureSource) Next() (*video.Frame, error) {
	if s.next >= numFrames {
		return nil, io.EOF
	}
	t := float64(s.next) / fps
	dx := 1.5 * math.Sin(2*math.Pi*2*t)
	dy := 1.0 * math.Sin(2*math.Pi*3*t)

	pix := make([]uint8, frameW*frameH)
	for y := 0; y < frameH; y++ {
		for x := 0; x < frameW; x++ {
			v := 128 + 60*math.Sin((float64(x)-dx)/3.0)*math.Cos((float64(y)-dy)/3.0)
			pix[y*frameW+x] = uint8(v)
		}
	}
	f := &video.Frame{Index: s.next, Width: frameW, Height: frameH, Pix: pix}
	s.next++
	return f, nil
}

func (s *textureSource) Close() error { return nil }

var _ = Describe("Pipeline", func() {
	var (
		ctx  context.Context
		proj *project.Project
		cfg  *config.Config
		pl   *pipeline.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir := GinkgoT().TempDir()

		var err error
		proj, err = project.Setup(filepath.Join(dir, "proj"), filepath.Join(dir, "sessions"), "test", false)
		Expect(err).NotTo(HaveOccurred())

		proj, cfg, err = project.Open(proj.ConfigPath)
		Expect(err).NotTo(HaveOccurred())

		cfg.Video.Sessions = []config.Session{{
			Name:   "session1",
			Videos: []string{"session1/cam0.mp4"},
			Frames: numFrames,
			FPS:    fps,
			Width:  frameW,
			Height: frameH,
		}}

		polyPath := filepath.Join(dir, "rois.yaml")
		poly := rois.Polygon{
			{Y: 8, X: 8}, {Y: 8, X: 56}, {Y: 40, X: 56}, {Y: 40, X: 8},
		}
		Expect(rois.SavePolygons(polyPath, []rois.Polygon{poly})).To(Succeed())
		cfg.ROI.PointsFile = polyPath
		cfg.ROI.Spacing = 8

		cfg.Flow.WindowSize = 9
		cfg.Flow.PyramidLevels = 2
		cfg.Flow.Backend = "cpu"

		cfg.Spectral.Window = 32
		cfg.Spectral.Hop = 8
		cfg.Spectral.FreqMin = 1
		cfg.Spectral.FreqMax = 20
		cfg.Spectral.BinsPerOctave = 4

		cfg.TCA.Rank = 2
		cfg.TCA.MaxIterations = 100

		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		pl, err = pipeline.New(proj, cfg, log)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { pl.Close() })
	})

	Describe("running the analysis stages in order", func() {
		It("produces outputs and run_info entries for every stage", func() {
			Expect(pl.ROI(ctx)).To(Succeed())
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pl.Clean(ctx)).To(Succeed())
			Expect(pl.PCA(ctx)).To(Succeed())
			Expect(pl.Spectra(ctx)).To(Succeed())
			Expect(pl.TCA(ctx)).To(Succeed())

			info, err := proj.LoadRunInfo()
			Expect(err).NotTo(HaveOccurred())
			for _, stage := range []string{"roi", "track", "clean", "pca", "spectra", "tca"} {
				Expect(info).To(HaveKey(stage), "missing run_info entry for %s", stage)
				Expect(info[stage].RunID).NotTo(BeEmpty())
			}

			runs, err := pl.Store().List()
			Expect(err).NotTo(HaveOccurred())
			Expect(len(runs)).To(Equal(6))

			// Figures land under the viz tree.
			Expect(filepath.Join(proj.VizDir(), "positional", "pca_scores.png")).To(BeAnExistingFile())
			Expect(filepath.Join(proj.VizDir(), "spectral", "spectrogram.png")).To(BeAnExistingFile())
			Expect(filepath.Join(proj.VizDir(), "positional", "tca_factors_mode2.png")).To(BeAnExistingFile())
		})

		It("tracks the texture with few violations", func() {
			Expect(pl.ROI(ctx)).To(Succeed())
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())

			meta, err := pl.Store().Latest("track")
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Metrics["violations"]).To(BeNumerically("==", 0))
			Expect(meta.Metrics["lost_fraction"]).To(BeNumerically("<", 0.5))
		})

		It("returns the run metrics to the caller", func() {
			Expect(pl.ROI(ctx)).To(Succeed())
			metrics, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())
			Expect(metrics).To(HaveKey("mean_displacement"))
			Expect(metrics).To(HaveKey("lost_fraction"))

			meta, err := pl.Store().Latest("track")
			Expect(err).NotTo(HaveOccurred())
			Expect(metrics["violations"]).To(Equal(meta.Metrics["violations"]))
		})

		It("records clean stage statistics", func() {
			Expect(pl.ROI(ctx)).To(Succeed())
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pl.Clean(ctx)).To(Succeed())

			meta, err := pl.Store().Latest("clean")
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Params).To(HaveKey("input"))
		})
	})

	Describe("stage preconditions", func() {
		It("refuses to track without a roi run", func() {
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).To(MatchError(ContainSubstring("roi stage")))
		})

		It("refuses to clean without a track run", func() {
			Expect(pl.Clean(ctx)).NotTo(Succeed())
		})

		It("refuses an unknown tca variant", func() {
			cfg.TCA.Variant = "banana"
			Expect(pl.ROI(ctx)).To(Succeed())
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())
			err = pl.TCA(ctx)
			Expect(err).To(MatchError(ContainSubstring("unknown tca variant")))
		})

		It("requires sessions before roi", func() {
			cfg.Video.Sessions = nil
			err := pl.ROI(ctx)
			Expect(err).To(MatchError(ContainSubstring("import stage")))
		})
	})

	Describe("spectral tca variant", func() {
		It("folds the stored tensor back for decomposition", func() {
			Expect(pl.ROI(ctx)).To(Succeed())
			_, err := pl.TrackSource(ctx, &textureSource{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pl.Clean(ctx)).To(Succeed())
			Expect(pl.Spectra(ctx)).To(Succeed())

			cfg.TCA.Variant = "spectral"
			Expect(pl.TCA(ctx)).To(Succeed())

			meta, err := pl.Store().Latest("tca")
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Params["variant"]).To(Equal("spectral"))
			Expect(filepath.Join(proj.VizDir(), "spectral", "tca_factors_mode1.png")).To(BeAnExistingFile())
		})
	})
})

var _ = Describe("Project layout", func() {
	It("creates the expected directories", func() {
		dir := GinkgoT().TempDir()
		proj, err := project.Setup(filepath.Join(dir, "p"), "", "run1", false)
		Expect(err).NotTo(HaveOccurred())

		for _, sub := range []string{"configs", "analysis", "viz/positional", "viz/spectral"} {
			fi, err := os.Stat(filepath.Join(proj.Root, sub))
			Expect(err).NotTo(HaveOccurred())
			Expect(fi.IsDir()).To(BeTrue())
		}
	})
})
