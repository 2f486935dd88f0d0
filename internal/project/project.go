// Package project manages the per-dataset project directory: the layout,
// the run config, and the run_info.json bookkeeping file that records the
// parameters of every stage that has executed.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/facerhythm/facerhythm/internal/config"
)

const (
	configsDir  = "configs"
	analysisDir = "analysis"
	vizDir      = "viz"
	runInfoFile = "run_info.json"

	timeLayout = "2006-01-02 15:04:05"
)

// Project is an opened project directory.
type Project struct {
	Root       string
	ConfigPath string
}

// Setup creates the project layout and generates the run config if it does
// not exist yet (or overwrite is set). Safe to call on an existing project.
func Setup(projectPath, sessionsPath, runName string, overwrite bool) (*Project, error) {
	dirs := []string{
		projectPath,
		filepath.Join(projectPath, configsDir),
		filepath.Join(projectPath, analysisDir),
		filepath.Join(projectPath, vizDir),
		filepath.Join(projectPath, vizDir, "positional"),
		filepath.Join(projectPath, vizDir, "spectral"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("create project directory %s: %w", d, err)
		}
	}
	if sessionsPath != "" {
		if err := os.MkdirAll(sessionsPath, 0755); err != nil {
			return nil, fmt.Errorf("create sessions directory: %w", err)
		}
	}

	configPath := filepath.Join(projectPath, configsDir, fmt.Sprintf("config_%s.yaml", runName))
	if _, err := os.Stat(configPath); os.IsNotExist(err) || overwrite {
		if err := generateConfig(configPath, projectPath, sessionsPath, runName); err != nil {
			return nil, err
		}
	}

	return &Project{Root: projectPath, ConfigPath: configPath}, nil
}

// Open locates an existing project from its config file path.
func Open(configPath string) (*Project, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open project config: %w", err)
	}
	if cfg.Paths.Project == "" {
		return nil, nil, fmt.Errorf("config %s has no project path", configPath)
	}
	return &Project{Root: cfg.Paths.Project, ConfigPath: configPath}, cfg, nil
}

func generateConfig(configPath, projectPath, sessionsPath, runName string) error {
	cfg := config.DefaultConfig()
	now := time.Now().Format(timeLayout)
	cfg.General.RunName = runName
	cfg.General.DateCreated = now
	cfg.General.DateModified = now
	cfg.Paths = config.PathsConfig{
		Project:  projectPath,
		Sessions: sessionsPath,
		Analysis: filepath.Join(projectPath, analysisDir),
		Viz:      filepath.Join(projectPath, vizDir),
		Config:   configPath,
	}
	return config.Save(configPath, cfg)
}

// SaveConfig persists the config back into the project, refreshing the
// modification timestamp.
func (p *Project) SaveConfig(cfg *config.Config) error {
	cfg.General.DateModified = time.Now().Format(timeLayout)
	return config.Save(p.ConfigPath, cfg)
}

// AnalysisDir returns the directory holding stage outputs.
func (p *Project) AnalysisDir() string { return filepath.Join(p.Root, analysisDir) }

// VizDir returns the directory holding saved figures.
func (p *Project) VizDir() string { return filepath.Join(p.Root, vizDir) }

// StageInfo is what one pipeline stage records about itself after running.
type StageInfo struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Elapsed   float64        `json:"elapsed_seconds"`
	Params    map[string]any `json:"params"`
	Outputs   []string       `json:"outputs"`
}

// RunInfo maps stage name to the info of its most recent run.
type RunInfo map[string]StageInfo

// LoadRunInfo reads run_info.json, returning an empty map when the file
// does not exist yet.
func (p *Project) LoadRunInfo() (RunInfo, error) {
	path := filepath.Join(p.Root, runInfoFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunInfo{}, nil
		}
		return nil, err
	}
	info := RunInfo{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return info, nil
}

// SaveStageInfo appends (or replaces) one stage's entry in run_info.json.
// Returns true when an existing entry was replaced, so callers can warn.
func (p *Project) SaveStageInfo(stage string, info StageInfo) (bool, error) {
	all, err := p.LoadRunInfo()
	if err != nil {
		return false, err
	}
	_, replaced := all[stage]
	all[stage] = info

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return false, err
	}
	path := filepath.Join(p.Root, runInfoFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return replaced, nil
}
