// Package pipeline orchestrates the analysis stages over one project:
// import, roi, track, clean, pca, spectra, tca. Each stage reads its
// inputs from the store, writes its outputs back, and records itself in
// the project's run_info.json.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/facerhythm/facerhythm/internal/config"
	"github.com/facerhythm/facerhythm/internal/project"
	"github.com/facerhythm/facerhythm/internal/store"
	"github.com/facerhythm/facerhythm/internal/trace"
)

// Stage names, also used as store stage keys and run_info entries.
const (
	StageImport  = "import"
	StageROI     = "roi"
	StageTrack   = "track"
	StageClean   = "clean"
	StagePCA     = "pca"
	StageSpectra = "spectra"
	StageTCA     = "tca"
)

// Stages is the canonical execution order.
var Stages = []string{StageImport, StageROI, StageTrack, StageClean, StagePCA, StageSpectra, StageTCA}

type Pipeline struct {
	proj  *project.Project
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger
}

// New opens the project's store. The caller owns the config and is
// responsible for Close.
func New(proj *project.Project, cfg *config.Config, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	st, err := store.Open(proj.AnalysisDir())
	if err != nil {
		return nil, err
	}
	return &Pipeline{proj: proj, cfg: cfg, store: st, log: log}, nil
}

func (p *Pipeline) Close() error { return p.store.Close() }

// Store exposes the underlying run store for commands that list or export.
func (p *Pipeline) Store() *store.Store { return p.store }

// recordStage appends the stage entry to run_info.json and logs a warning
// when a previous entry for the same stage gets overwritten.
func (p *Pipeline) recordStage(stage, runID string, started time.Time, params map[string]any, outputs []string) error {
	info := project.StageInfo{
		RunID:     runID,
		Timestamp: started,
		Elapsed:   time.Since(started).Seconds(),
		Params:    params,
		Outputs:   outputs,
	}
	replaced, err := p.proj.SaveStageInfo(stage, info)
	if err != nil {
		return fmt.Errorf("record %s stage: %w", stage, err)
	}
	if replaced {
		p.log.Warn("overwriting previous stage entry in run_info", "stage", stage)
	}
	p.log.Info("stage complete", "stage", stage, "run_id", runID, "elapsed", info.Elapsed)
	return nil
}

// latestTrace loads the newest cleaned trace, falling back to the raw
// tracking output when the clean stage has not run.
func (p *Pipeline) latestTrace() (*trace.Trace, string, error) {
	for _, stage := range []string{StageClean, StageTrack} {
		meta, err := p.store.Latest(stage)
		if err != nil {
			continue
		}
		tr, err := p.loadTrace(meta.ID)
		if err != nil {
			return nil, "", err
		}
		return tr, meta.ID, nil
	}
	return nil, "", fmt.Errorf("no trace available: run the track stage first")
}

func (p *Pipeline) loadTrace(runID string) (*trace.Trace, error) {
	m, _, err := p.store.LoadMatrix(runID)
	if err != nil {
		return nil, err
	}
	if m.Cols%2 != 0 {
		return nil, fmt.Errorf("run %s is not a trace: %d columns", runID, m.Cols)
	}
	return trace.FromData(m.Rows, m.Cols/2, m.Data)
}

// traceMatrix flattens a trace for storage, labeling columns p<i>_y, p<i>_x.
func traceMatrix(tr *trace.Trace) *store.Matrix {
	cols := make([]string, 0, tr.Points*2)
	for i := 0; i < tr.Points; i++ {
		cols = append(cols, fmt.Sprintf("p%d_y", i), fmt.Sprintf("p%d_x", i))
	}
	m := store.NewMatrix(tr.Frames, tr.Points*2, cols)
	copy(m.Data, tr.Data())
	return m
}
