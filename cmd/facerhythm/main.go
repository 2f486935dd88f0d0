package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/facerhythm/facerhythm/internal/config"
	"github.com/facerhythm/facerhythm/internal/pipeline"
	"github.com/facerhythm/facerhythm/internal/project"
	"github.com/facerhythm/facerhythm/internal/store"
	"github.com/facerhythm/facerhythm/internal/trace"
	"github.com/facerhythm/facerhythm/internal/tui"
	"github.com/facerhythm/facerhythm/internal/viz"
)

var (
	configPath string
	verbose    bool

	// init
	sessionsPath string
	runName      string
	overwrite    bool
	presetName   string

	// import
	sessionPrefix string

	// roi
	pointsFile string
	maskFile   string
	spacing    int

	// track
	windowSize    int
	pyramidLevels int
	maxIterations int
	epsilon       float64
	violationDist float64
	backendName   string
	workers       int

	// clean
	freezeWindow    int
	interpolateGaps int
	removeOffset    bool

	// pca
	components int
	zscore     bool

	// spectra
	specWindow int
	specHop    int
	freqMin    float64
	freqMax    float64
	binsPerOct int
	sampleRate float64

	// tca
	rank       int
	tcaIters   int
	tcaVariant string
	tcaSeed    int64

	// export
	outFile string

	// plot
	plotColumn int
)

var log *slog.Logger

func main() {
	rootCmd := &cobra.Command{
		Use:           "facerhythm",
		Short:         "dense facial motion analysis: optic flow, PCA, spectral decomposition, TCA",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
			}))
			slog.SetDefault(log)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a project config_<run>.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	initCmd := &cobra.Command{
		Use:   "init [project-dir]",
		Short: "create a project directory and its run config",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
	initCmd.Flags().StringVar(&sessionsPath, "sessions", "", "directory holding the session videos")
	initCmd.Flags().StringVar(&runName, "run-name", "run1", "name of the analysis run")
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "regenerate the config if it exists")
	initCmd.Flags().StringVar(&presetName, "preset", "", "start from a named parameter preset")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "scan the sessions directory and probe every video",
		RunE:  runImport,
	}
	importCmd.Flags().StringVar(&sessionPrefix, "prefix", "", "only import sessions whose name contains this prefix")

	roiCmd := &cobra.Command{
		Use:   "roi",
		Short: "rasterize ROI polygons and seed the tracking grid",
		RunE:  runROI,
	}
	roiCmd.Flags().StringVar(&pointsFile, "points-file", "", "yaml file of ROI polygons")
	roiCmd.Flags().StringVar(&maskFile, "mask-file", "", "precomputed mask image (overrides the points file)")
	roiCmd.Flags().IntVar(&spacing, "spacing", config.DefaultPointSpacing, "grid spacing in pixels")

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "run optic-flow point tracking over the session videos",
		RunE:  runTrack,
	}
	addTrackFlags(trackCmd)

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "repair violation gaps in the tracked trajectories",
		RunE:  runClean,
	}
	cleanCmd.Flags().Float64Var(&violationDist, "violation-distance", config.DefaultViolationDistance, "outlier distance from the anchor in pixels")
	cleanCmd.Flags().IntVar(&freezeWindow, "freeze-window", config.DefaultFreezeWindow, "frames to widen around each violation")
	cleanCmd.Flags().IntVar(&interpolateGaps, "interpolate-gaps", config.DefaultInterpolateGaps, "longest gap to interpolate linearly")
	cleanCmd.Flags().BoolVar(&removeOffset, "remove-offset", true, "subtract each point's anchor position")

	pcaCmd := &cobra.Command{
		Use:   "pca",
		Short: "decompose trajectories into principal components",
		RunE:  runPCA,
	}
	pcaCmd.Flags().IntVar(&components, "components", config.DefaultComponents, "number of components to keep (0 = all)")
	pcaCmd.Flags().BoolVar(&zscore, "zscore", false, "z-score features before the decomposition")

	spectraCmd := &cobra.Command{
		Use:   "spectra",
		Short: "compute log-spaced power spectrograms per point",
		RunE:  runSpectra,
	}
	spectraCmd.Flags().IntVar(&specWindow, "window", config.DefaultSpectralWindow, "analysis window in frames")
	spectraCmd.Flags().IntVar(&specHop, "hop", config.DefaultSpectralHop, "hop between windows in frames")
	spectraCmd.Flags().Float64Var(&freqMin, "freq-min", config.DefaultFreqMin, "lowest bin center in Hz")
	spectraCmd.Flags().Float64Var(&freqMax, "freq-max", config.DefaultFreqMax, "highest bin center in Hz")
	spectraCmd.Flags().IntVar(&binsPerOct, "bins-per-octave", config.DefaultBinsPerOctave, "frequency bins per octave")
	spectraCmd.Flags().Float64Var(&sampleRate, "sample-rate", 0, "sample rate in Hz (default: session fps)")

	tcaCmd := &cobra.Command{
		Use:   "tca",
		Short: "run the CP tensor decomposition",
		RunE:  runTCA,
	}
	tcaCmd.Flags().IntVar(&rank, "rank", config.DefaultRank, "number of tensor components")
	tcaCmd.Flags().IntVar(&tcaIters, "iterations", config.DefaultTCAIterations, "ALS iteration cap")
	tcaCmd.Flags().StringVar(&tcaVariant, "variant", "", "tensor to decompose: positional or spectral")
	tcaCmd.Flags().Int64Var(&tcaSeed, "seed", 0, "random seed for the factor init")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "execute every stage in order",
		RunE:  runAll,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored stage outputs",
		RunE:  runList,
	}

	showCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "show metadata and metrics of one stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "export one stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "output file (default: stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run-id]",
		Short: "export one stored run's payload as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outFile, "out", "", "output file (default: stdout)")

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot one column of a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().IntVar(&plotColumn, "col", 0, "column index to plot")

	figureCmd := &cobra.Command{
		Use:   "figure",
		Short: "write a displacement figure for the latest trace",
		RunE:  runFigure,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "track with a live terminal view",
		RunE:  runLive,
	}
	addTrackFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available parameter presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(initCmd, importCmd, roiCmd, trackCmd, cleanCmd, pcaCmd,
		spectraCmd, tcaCmd, runCmd, listCmd, showCmd, exportCmd, exportCSVCmd,
		plotCmd, figureCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addTrackFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&windowSize, "window", config.DefaultWindowSize, "solver window edge in pixels (odd)")
	cmd.Flags().IntVar(&pyramidLevels, "levels", config.DefaultPyramidLevels, "pyramid levels")
	cmd.Flags().IntVar(&maxIterations, "iterations", config.DefaultMaxIterations, "solver iteration cap per level")
	cmd.Flags().Float64Var(&epsilon, "epsilon", config.DefaultEpsilon, "solver convergence threshold")
	cmd.Flags().Float64Var(&violationDist, "violation-distance", config.DefaultViolationDistance, "per-step distance that freezes a point")
	cmd.Flags().StringVar(&backendName, "backend", "", "compute backend: auto, cpu, cuda")
	cmd.Flags().IntVar(&workers, "workers", 0, "tracking goroutines (0 = NumCPU)")
}

// signalContext cancels on SIGINT/SIGTERM so a long tracking run still
// saves its partial trace.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openPipeline loads the project behind --config and opens its store.
func openPipeline() (*project.Project, *config.Config, *pipeline.Pipeline, error) {
	if configPath == "" {
		return nil, nil, nil, fmt.Errorf("--config is required (point it at configs/config_<run>.yaml)")
	}
	proj, cfg, err := project.Open(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	pl, err := pipeline.New(proj, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return proj, cfg, pl, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := args[0]

	proj, err := project.Setup(projectDir, sessionsPath, runName, overwrite)
	if err != nil {
		return err
	}

	if presetName != "" {
		preset := config.GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset %q (available: %v)", presetName, config.ListPresets())
		}
		_, cfg, err := project.Open(proj.ConfigPath)
		if err != nil {
			return err
		}
		preset.General = cfg.General
		preset.Paths = cfg.Paths
		preset.Video = cfg.Video
		if err := proj.SaveConfig(preset); err != nil {
			return err
		}
	}

	log.Info("project ready", "dir", projectDir, "config", proj.ConfigPath)
	fmt.Println(proj.ConfigPath)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	_, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("prefix") {
		cfg.Video.SessionPrefix = sessionPrefix
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.Import(ctx)
}

func runROI(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("points-file") {
		cfg.ROI.PointsFile = pointsFile
	}
	if cmd.Flags().Changed("mask-file") {
		cfg.ROI.MaskFile = maskFile
	}
	if cmd.Flags().Changed("spacing") {
		cfg.ROI.Spacing = spacing
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.ROI(ctx)
}

// applyTrackFlags copies changed track flags into the config.
func applyTrackFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("window") {
		cfg.Flow.WindowSize = windowSize
	}
	if cmd.Flags().Changed("levels") {
		cfg.Flow.PyramidLevels = pyramidLevels
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Flow.MaxIterations = maxIterations
	}
	if cmd.Flags().Changed("epsilon") {
		cfg.Flow.Epsilon = epsilon
	}
	if cmd.Flags().Changed("violation-distance") {
		cfg.Flow.ViolationDistance = violationDist
	}
	if cmd.Flags().Changed("backend") {
		cfg.Flow.Backend = backendName
	}
	if cmd.Flags().Changed("workers") {
		cfg.Flow.Workers = workers
	}
}

func runTrack(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	applyTrackFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	_, err = pl.Track(ctx)
	return err
}

func runClean(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("violation-distance") {
		cfg.Clean.ViolationDistance = violationDist
	}
	if cmd.Flags().Changed("freeze-window") {
		cfg.Clean.FreezeWindow = freezeWindow
	}
	if cmd.Flags().Changed("interpolate-gaps") {
		cfg.Clean.InterpolateGaps = interpolateGaps
	}
	if cmd.Flags().Changed("remove-offset") {
		cfg.Clean.RemoveOffset = removeOffset
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.Clean(ctx)
}

func runPCA(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("components") {
		cfg.PCA.Components = components
	}
	if cmd.Flags().Changed("zscore") {
		cfg.PCA.ZScore = zscore
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.PCA(ctx)
}

func runSpectra(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("window") {
		cfg.Spectral.Window = specWindow
	}
	if cmd.Flags().Changed("hop") {
		cfg.Spectral.Hop = specHop
	}
	if cmd.Flags().Changed("freq-min") {
		cfg.Spectral.FreqMin = freqMin
	}
	if cmd.Flags().Changed("freq-max") {
		cfg.Spectral.FreqMax = freqMax
	}
	if cmd.Flags().Changed("bins-per-octave") {
		cfg.Spectral.BinsPerOctave = binsPerOct
	}
	if cmd.Flags().Changed("sample-rate") {
		cfg.Spectral.SampleRate = sampleRate
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.Spectra(ctx)
}

func runTCA(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if cmd.Flags().Changed("rank") {
		cfg.TCA.Rank = rank
	}
	if cmd.Flags().Changed("iterations") {
		cfg.TCA.MaxIterations = tcaIters
	}
	if cmd.Flags().Changed("variant") {
		cfg.TCA.Variant = tcaVariant
	}
	if cmd.Flags().Changed("seed") {
		cfg.TCA.Seed = tcaSeed
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pl.TCA(ctx)
}

func runAll(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return pl.Run(ctx)
}

func runList(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	runs, err := pl.Store().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tTIME")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", run.ID, run.Stage, run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	meta, err := pl.Store().Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("id:     %s\n", meta.ID)
	fmt.Printf("stage:  %s\n", meta.Stage)
	fmt.Printf("time:   %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("shape:  %v\n", meta.Shape)
	if len(meta.Params) > 0 {
		fmt.Println("params:")
		keys := make([]string, 0, len(meta.Params))
		for k := range meta.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, meta.Params[k])
		}
	}
	if len(meta.Metrics) > 0 {
		fmt.Println("metrics:")
		keys := make([]string, 0, len(meta.Metrics))
		for k := range meta.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %.6f\n", k, meta.Metrics[k])
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if outFile != "" {
		if err := pl.Store().ExportJSONFile(outFile, args[0]); err != nil {
			return err
		}
		log.Info("exported run", "id", args[0], "file", outFile)
		return nil
	}
	return pl.Store().ExportJSON(os.Stdout, args[0])
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	if outFile != "" {
		if err := pl.Store().ExportCSVFile(outFile, args[0]); err != nil {
			return err
		}
		log.Info("exported run", "id", args[0], "file", outFile)
		return nil
	}
	return pl.Store().ExportCSV(os.Stdout, args[0])
}

func runPlot(cmd *cobra.Command, args []string) error {
	_, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	m, meta, err := pl.Store().LoadMatrix(args[0])
	if err != nil {
		return err
	}

	// Trace and spectra runs get their dedicated renderings; --col picks a
	// single column out of anything else.
	if !cmd.Flags().Changed("col") {
		switch meta.Stage {
		case pipeline.StageTrack, pipeline.StageClean:
			tr, err := trace.FromData(m.Rows, m.Cols/2, m.Data)
			if err != nil {
				return err
			}
			fmt.Println(viz.TerminalTrace(tr, 6, 70, 12))
			return nil
		case pipeline.StageSpectra:
			if len(meta.Shape) == 3 {
				power := spectraPower(m, meta.Shape)
				fmt.Println(viz.TerminalSpectrum(power, spectraFreqs(meta.Params, meta.Shape[1]), 70, 12))
				return nil
			}
		}
	}

	if plotColumn < 0 || plotColumn >= m.Cols {
		return fmt.Errorf("column %d out of range (run has %d columns)", plotColumn, m.Cols)
	}
	series := make([]float64, m.Rows)
	for i := range series {
		series[i] = m.At(i, plotColumn)
	}
	label := strconv.Itoa(plotColumn)
	if plotColumn < len(meta.Columns) {
		label = meta.Columns[plotColumn]
	}
	fmt.Println(viz.TerminalPlot(series, fmt.Sprintf("%s / %s", meta.Stage, label), 70, 12))
	return nil
}

// spectraPower folds a flattened series x freqs x timebins run back into a
// timebins x freqs power matrix averaged over the series.
func spectraPower(m *store.Matrix, shape []int) [][]float64 {
	series, nf, nt := shape[0], shape[1], shape[2]
	power := make([][]float64, nt)
	for t := 0; t < nt; t++ {
		power[t] = make([]float64, nf)
		for f := 0; f < nf; f++ {
			var acc float64
			for s := 0; s < series; s++ {
				acc += m.At(s*nf+f, t)
			}
			power[t][f] = acc / float64(series)
		}
	}
	return power
}

// spectraFreqs rebuilds the log-spaced bin centers from the run's stored
// parameters, falling back to bin indices when they are missing.
func spectraFreqs(params map[string]any, bins int) []float64 {
	fmin, ok1 := params["freq_min"].(float64)
	bpo, ok2 := params["bins_per_octave"].(float64)
	freqs := make([]float64, bins)
	for i := range freqs {
		if ok1 && ok2 && bpo > 0 {
			freqs[i] = fmin * math.Pow(2, float64(i)/bpo)
		} else {
			freqs[i] = float64(i)
		}
	}
	return freqs
}

func runFigure(cmd *cobra.Command, args []string) error {
	proj, _, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	tr, input, err := latestTraceFor(pl)
	if err != nil {
		return err
	}
	path := filepath.Join(proj.VizDir(), "positional", "trace.png")
	if err := viz.TraceFigure(tr, path, 12); err != nil {
		return err
	}
	log.Info("wrote figure", "file", path, "input", input)
	return nil
}

// latestTraceFor prefers the cleaned trace and falls back to the raw one.
func latestTraceFor(pl *pipeline.Pipeline) (*trace.Trace, string, error) {
	for _, stage := range []string{pipeline.StageClean, pipeline.StageTrack} {
		meta, err := pl.Store().Latest(stage)
		if err != nil {
			continue
		}
		m, _, err := pl.Store().LoadMatrix(meta.ID)
		if err != nil {
			return nil, "", err
		}
		tr, err := trace.FromData(m.Rows, m.Cols/2, m.Data)
		if err != nil {
			return nil, "", err
		}
		return tr, meta.ID, nil
	}
	return nil, "", fmt.Errorf("no trace stored yet: run the track stage first")
}

func runLive(cmd *cobra.Command, args []string) error {
	proj, cfg, pl, err := openPipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	applyTrackFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := proj.SaveConfig(cfg); err != nil {
		return err
	}
	if len(cfg.Video.Sessions) == 0 {
		return fmt.Errorf("no sessions in config: run import first")
	}
	sess := cfg.Video.Sessions[0]

	ctx, cancel := signalContext()
	defer cancel()

	obs := tui.NewChannelObserver(64)
	done := make(chan tui.DoneMsg, 1)
	go func() {
		metrics, err := pl.Track(ctx, obs)
		obs.Close()
		done <- tui.DoneMsg{Metrics: metrics, Err: err}
	}()

	model := tui.NewModel(sess.Name, sess.Width, sess.Height, sess.Frames, obs.Steps(), done)
	_, err = tea.NewProgram(model).Run()
	return err
}
