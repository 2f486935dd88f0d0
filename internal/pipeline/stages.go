package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/facerhythm/facerhythm/internal/config"
	"github.com/facerhythm/facerhythm/internal/decomp"
	"github.com/facerhythm/facerhythm/internal/flow"
	"github.com/facerhythm/facerhythm/internal/rois"
	"github.com/facerhythm/facerhythm/internal/spectral"
	"github.com/facerhythm/facerhythm/internal/store"
	"github.com/facerhythm/facerhythm/internal/trace"
	"github.com/facerhythm/facerhythm/internal/video"
	"github.com/facerhythm/facerhythm/internal/viz"
)

// Import scans the sessions directory, probes every video, and writes the
// session list back into the config.
func (p *Pipeline) Import(ctx context.Context) error {
	started := time.Now()

	sessions, err := video.ScanSessions(p.cfg.Paths.Sessions, p.cfg.Video.SessionPrefix)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found under %s", p.cfg.Paths.Sessions)
	}
	sessions, err = video.ProbeSessions(ctx, sessions)
	if err != nil {
		return err
	}

	p.cfg.Video.Sessions = sessions
	if err := p.proj.SaveConfig(p.cfg); err != nil {
		return err
	}

	m := store.NewMatrix(len(sessions), 4, []string{"frames", "fps", "width", "height"})
	names := make([]string, len(sessions))
	for i, s := range sessions {
		m.Set(i, 0, float64(s.Frames))
		m.Set(i, 1, s.FPS)
		m.Set(i, 2, float64(s.Width))
		m.Set(i, 3, float64(s.Height))
		names[i] = s.Name
		p.log.Info("imported session", "name", s.Name, "videos", len(s.Videos), "frames", s.Frames, "fps", s.FPS)
	}
	runID, err := p.store.SaveMatrix(StageImport, map[string]any{"prefix": p.cfg.Video.SessionPrefix}, nil, m)
	if err != nil {
		return err
	}
	return p.recordStage(StageImport, runID, started, map[string]any{"prefix": p.cfg.Video.SessionPrefix}, names)
}

// ROI rasterizes the polygon file into a mask and seeds the tracking grid.
func (p *Pipeline) ROI(ctx context.Context) error {
	started := time.Now()

	sess, err := p.firstSession()
	if err != nil {
		return err
	}
	mask, err := p.loadMask(sess)
	if err != nil {
		return err
	}
	seeds, err := rois.SeedPoints(mask, p.cfg.ROI.Spacing)
	if err != nil {
		return err
	}
	p.log.Info("seeded roi grid", "mask_px", mask.Count(), "points", len(seeds))

	m := store.NewMatrix(len(seeds), 2, []string{"y", "x"})
	for i, pt := range seeds {
		m.Set(i, 0, pt.Y)
		m.Set(i, 1, pt.X)
	}
	params := map[string]any{
		"spacing":     p.cfg.ROI.Spacing,
		"points_file": p.cfg.ROI.PointsFile,
		"mask_file":   p.cfg.ROI.MaskFile,
	}
	metrics := map[string]float64{"points": float64(len(seeds)), "mask_px": float64(mask.Count())}
	runID, err := p.store.SaveMatrix(StageROI, params, metrics, m)
	if err != nil {
		return err
	}
	return p.recordStage(StageROI, runID, started, params, nil)
}

// Track runs optic flow over the first session's videos. The run metrics
// are returned so callers like the live view can present them.
func (p *Pipeline) Track(ctx context.Context, observers ...flow.Observer) (map[string]float64, error) {
	sess, err := p.firstSession()
	if err != nil {
		return nil, err
	}
	if len(sess.Videos) == 0 {
		return nil, fmt.Errorf("session %s has no videos", sess.Name)
	}
	src := newMultiSource(ctx, sess.Videos, sess.Width, sess.Height)
	defer src.Close()
	return p.TrackSource(ctx, src, observers...)
}

// TrackSource runs the tracker against any frame source, which keeps the
// stage testable without video files on disk.
func (p *Pipeline) TrackSource(ctx context.Context, src video.FrameSource, observers ...flow.Observer) (map[string]float64, error) {
	started := time.Now()

	seeds, err := p.loadSeeds()
	if err != nil {
		return nil, err
	}

	prm := flow.Params{
		WindowSize:    p.cfg.Flow.WindowSize,
		PyramidLevels: p.cfg.Flow.PyramidLevels,
		MaxIterations: p.cfg.Flow.MaxIterations,
		Epsilon:       p.cfg.Flow.Epsilon,
	}
	backend := flow.SelectBackend(p.cfg.Flow.Backend, p.cfg.Flow.Workers)
	p.log.Info("tracking", "backend", backend.Name(), "points", len(seeds), "window", prm.WindowSize, "levels", prm.PyramidLevels)

	tracker := flow.NewTracker(backend, prm, p.cfg.Flow.ViolationDistance)
	for _, m := range flow.DefaultMetrics() {
		tracker.AddMetric(m)
	}
	for _, o := range observers {
		tracker.AddObserver(o)
	}

	tr, metrics, err := tracker.Run(ctx, src, seeds)
	if err != nil {
		return nil, err
	}
	if !tr.IsValid() {
		return nil, fmt.Errorf("tracker produced NaN or Inf positions, refusing to save")
	}

	params := map[string]any{
		"window_size":        prm.WindowSize,
		"pyramid_levels":     prm.PyramidLevels,
		"max_iterations":     prm.MaxIterations,
		"epsilon":            prm.Epsilon,
		"violation_distance": p.cfg.Flow.ViolationDistance,
		"backend":            backend.Name(),
	}
	runID, err := p.store.SaveMatrix(StageTrack, params, metrics, traceMatrix(tr))
	if err != nil {
		return nil, err
	}
	if err := p.recordStage(StageTrack, runID, started, params, nil); err != nil {
		return nil, err
	}
	return metrics, nil
}

// Clean repairs violation gaps in the latest tracking output.
func (p *Pipeline) Clean(ctx context.Context) error {
	started := time.Now()

	meta, err := p.store.Latest(StageTrack)
	if err != nil {
		return err
	}
	tr, err := p.loadTrace(meta.ID)
	if err != nil {
		return err
	}

	cleaned, stats, err := trace.Clean(tr, p.cfg.Clean)
	if err != nil {
		return err
	}
	p.log.Info("cleaned trace", "violations", stats.Violations, "interpolated", stats.Interpolated, "held", stats.Held)

	params := map[string]any{
		"violation_distance": p.cfg.Clean.ViolationDistance,
		"freeze_window":      p.cfg.Clean.FreezeWindow,
		"interpolate_gaps":   p.cfg.Clean.InterpolateGaps,
		"remove_offset":      p.cfg.Clean.RemoveOffset,
		"input":              meta.ID,
	}
	metrics := map[string]float64{
		"violations":      float64(stats.Violations),
		"points_affected": float64(stats.PointsAffected),
		"interpolated":    float64(stats.Interpolated),
		"held":            float64(stats.Held),
	}
	runID, err := p.store.SaveMatrix(StageClean, params, metrics, traceMatrix(cleaned))
	if err != nil {
		return err
	}
	return p.recordStage(StageClean, runID, started, params, nil)
}

// PCA decomposes the latest trace into components and writes the score
// figure under viz/positional.
func (p *Pipeline) PCA(ctx context.Context) error {
	started := time.Now()

	tr, input, err := p.latestTrace()
	if err != nil {
		return err
	}
	res, err := decomp.PCA(decomp.TraceMatrix(tr), p.cfg.PCA.Components, p.cfg.PCA.ZScore)
	if err != nil {
		return err
	}

	rows, cols := res.Scores.Dims()
	names := make([]string, cols)
	for i := range names {
		names[i] = fmt.Sprintf("comp%d", i)
	}
	m := store.NewMatrix(rows, cols, names)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, res.Scores.At(i, j))
		}
	}

	metrics := map[string]float64{}
	for i, v := range res.ExplainedVariance {
		metrics[fmt.Sprintf("explained_var_%d", i)] = v
	}
	params := map[string]any{"components": res.Components, "zscore": p.cfg.PCA.ZScore, "input": input}
	runID, err := p.store.SaveMatrix(StagePCA, params, metrics, m)
	if err != nil {
		return err
	}

	figure := filepath.Join(p.proj.VizDir(), "positional", "pca_scores.png")
	if err := viz.ComponentsFigure(res.Scores, res.ExplainedVariance, figure, "PCA component scores"); err != nil {
		return fmt.Errorf("pca figure: %w", err)
	}
	return p.recordStage(StagePCA, runID, started, params, []string{figure})
}

// Spectra computes the log-spaced power spectrogram tensor of the latest
// trace and writes a mean spectrogram figure under viz/spectral.
func (p *Pipeline) Spectra(ctx context.Context) error {
	started := time.Now()

	tr, input, err := p.latestTrace()
	if err != nil {
		return err
	}
	opts := spectral.FromConfig(p.cfg.Spectral, p.sessionFPS())
	res, err := spectral.Analyze(tr, opts)
	if err != nil {
		return err
	}
	p.log.Info("spectral analysis", "series", res.Series, "freq_bins", len(res.Freqs), "time_bins", res.TimeBins)

	params := map[string]any{
		"window":          opts.Window,
		"hop":             opts.Hop,
		"freq_min":        opts.FreqMin,
		"freq_max":        opts.FreqMax,
		"bins_per_octave": opts.BinsPerOctave,
		"sample_rate":     opts.SampleRate,
		"input":           input,
	}
	runID, err := p.store.SaveTensor(StageSpectra, params, nil, res.Series, len(res.Freqs), res.TimeBins, res.Tensor.Data())
	if err != nil {
		return err
	}

	// Mean power across series for the overview figure.
	mean := make([][]float64, res.TimeBins)
	for t := 0; t < res.TimeBins; t++ {
		mean[t] = make([]float64, len(res.Freqs))
		for b := range res.Freqs {
			var acc float64
			for s := 0; s < res.Series; s++ {
				acc += res.Tensor.At(s, b, t)
			}
			mean[t][b] = acc / float64(res.Series)
		}
	}
	figure := filepath.Join(p.proj.VizDir(), "spectral", "spectrogram.png")
	if err := viz.SpectrogramFigure(mean, res.Freqs, res.TimeStep, figure, "Mean power spectrogram"); err != nil {
		return fmt.Errorf("spectrogram figure: %w", err)
	}
	return p.recordStage(StageSpectra, runID, started, params, []string{figure})
}

// TCA runs the CP decomposition on either the positional tensor or the
// spectral one, per the configured variant.
func (p *Pipeline) TCA(ctx context.Context) error {
	started := time.Now()

	var tensor *decomp.Tensor3
	var input, vizSub string
	modeNames := [3]string{"point", "axis", "frame"}

	switch p.cfg.TCA.Variant {
	case "spectral":
		meta, err := p.store.Latest(StageSpectra)
		if err != nil {
			return err
		}
		m, full, err := p.store.LoadMatrix(meta.ID)
		if err != nil {
			return err
		}
		if len(full.Shape) != 3 {
			return fmt.Errorf("run %s is not a tensor", meta.ID)
		}
		tensor, err = decomp.SpectralTensor(full.Shape[0], full.Shape[1], full.Shape[2], m.Data)
		if err != nil {
			return err
		}
		input = meta.ID
		vizSub = "spectral"
		modeNames = [3]string{"series", "frequency", "time"}
	case "", "positional":
		tr, in, err := p.latestTrace()
		if err != nil {
			return err
		}
		tensor = decomp.TraceTensor(tr)
		input = in
		vizSub = "positional"
	default:
		return fmt.Errorf("unknown tca variant %q (want positional or spectral)", p.cfg.TCA.Variant)
	}

	opts := decomp.CPOptions{
		Rank:    p.cfg.TCA.Rank,
		MaxIter: p.cfg.TCA.MaxIterations,
		Tol:     p.cfg.TCA.Tolerance,
		Seed:    p.cfg.TCA.Seed,
	}
	res, err := decomp.CPALS(tensor, opts)
	if err != nil {
		return err
	}
	p.log.Info("tca converged", "rank", res.Rank, "fit", res.Fit, "iterations", res.Iterations)

	// The time-mode factors are the primary output.
	timeFactors := res.Factors[2]
	rows, cols := timeFactors.Dims()
	names := make([]string, cols)
	for i := range names {
		names[i] = fmt.Sprintf("factor%d", i)
	}
	m := store.NewMatrix(rows, cols, names)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, timeFactors.At(i, j))
		}
	}

	metrics := map[string]float64{"fit": res.Fit, "iterations": float64(res.Iterations)}
	for i, l := range res.Lambda {
		metrics[fmt.Sprintf("lambda_%d", i)] = l
	}
	params := map[string]any{
		"rank":    opts.Rank,
		"variant": vizSub,
		"input":   input,
	}
	runID, err := p.store.SaveMatrix(StageTCA, params, metrics, m)
	if err != nil {
		return err
	}

	base := filepath.Join(p.proj.VizDir(), vizSub, "tca_factors")
	figures, err := viz.FactorsFigure(res.Factors, base, modeNames)
	if err != nil {
		return fmt.Errorf("tca figures: %w", err)
	}
	return p.recordStage(StageTCA, runID, started, params, figures)
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageImport, p.Import},
		{StageROI, p.ROI},
		{StageTrack, func(ctx context.Context) error { _, err := p.Track(ctx); return err }},
		{StageClean, p.Clean},
		{StagePCA, p.PCA},
		{StageSpectra, p.Spectra},
		{StageTCA, p.TCA},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s stage: %w", s.name, err)
		}
	}
	return nil
}

func (p *Pipeline) firstSession() (*config.Session, error) {
	if len(p.cfg.Video.Sessions) == 0 {
		return nil, fmt.Errorf("no sessions in config: run the import stage first")
	}
	return &p.cfg.Video.Sessions[0], nil
}

func (p *Pipeline) sessionFPS() float64 {
	if len(p.cfg.Video.Sessions) > 0 {
		return p.cfg.Video.Sessions[0].FPS
	}
	return 0
}

// loadMask builds the tracking region from either a precomputed mask image
// or the polygon points file. Mask geometry must match the video frames.
func (p *Pipeline) loadMask(sess *config.Session) (*rois.Mask, error) {
	if p.cfg.ROI.MaskFile != "" {
		mask, err := rois.LoadMaskImage(p.cfg.ROI.MaskFile)
		if err != nil {
			return nil, err
		}
		if mask.Width != sess.Width || mask.Height != sess.Height {
			return nil, fmt.Errorf("mask %dx%d does not match video %dx%d",
				mask.Width, mask.Height, sess.Width, sess.Height)
		}
		return mask, nil
	}
	if p.cfg.ROI.PointsFile == "" {
		return nil, fmt.Errorf("no roi points_file or mask_file configured")
	}
	polys, err := rois.LoadPolygons(p.cfg.ROI.PointsFile)
	if err != nil {
		return nil, err
	}
	return rois.MaskFromPolygons(polys, sess.Width, sess.Height)
}

func (p *Pipeline) loadSeeds() ([]rois.Point, error) {
	meta, err := p.store.Latest(StageROI)
	if err != nil {
		return nil, fmt.Errorf("no roi run found: run the roi stage first (%w)", err)
	}
	m, _, err := p.store.LoadMatrix(meta.ID)
	if err != nil {
		return nil, err
	}
	if m.Cols != 2 {
		return nil, fmt.Errorf("run %s is not a seed list: %d columns", meta.ID, m.Cols)
	}
	seeds := make([]rois.Point, m.Rows)
	for i := range seeds {
		seeds[i] = rois.Point{Y: m.At(i, 0), X: m.At(i, 1)}
	}
	return seeds, nil
}
