// Package store persists stage outputs under the project's analysis
// directory. Every result lands in its own run directory with a
// metadata.json and a CSV payload, and gets a row in a sqlite registry so
// later stages can find the latest output of an earlier one.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	baseDir string
	reg     *Registry
}

// Open prepares the analysis directory and its registry database.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create analysis dir: %w", err)
	}
	reg, err := OpenRegistry(filepath.Join(baseDir, "facerhythm.db"))
	if err != nil {
		return nil, err
	}
	return &Store{baseDir: baseDir, reg: reg}, nil
}

func (s *Store) Close() error {
	return s.reg.Close()
}

func (s *Store) BaseDir() string { return s.baseDir }

// RunMeta describes one stored stage output.
type RunMeta struct {
	ID        string             `json:"id"`
	Stage     string             `json:"stage"`
	Timestamp time.Time          `json:"timestamp"`
	Params    map[string]any     `json:"params,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Shape     []int              `json:"shape"`
	Columns   []string           `json:"columns,omitempty"`
	Path      string             `json:"path"`
}

// Matrix is a row-major 2D block with optional column labels.
type Matrix struct {
	Rows, Cols int
	Columns    []string
	Data       []float64
}

func NewMatrix(rows, cols int, columns []string) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Columns: columns, Data: make([]float64, rows*cols)}
}

func (m *Matrix) At(i, j int) float64     { return m.Data[i*m.Cols+j] }
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// SaveMatrix writes one stage output and registers it. The registry row is
// inserted only after the files are safely on disk.
func (s *Store) SaveMatrix(stage string, params map[string]any, metrics map[string]float64, m *Matrix) (string, error) {
	return s.save(stage, params, metrics, []int{m.Rows, m.Cols}, m.Columns, m.Rows, m.Cols, m.Data)
}

// SaveTensor flattens a third-order block to (i*j) x k rows. The original
// shape is recorded in the metadata for reassembly.
func (s *Store) SaveTensor(stage string, params map[string]any, metrics map[string]float64, i, j, k int, data []float64) (string, error) {
	if len(data) != i*j*k {
		return "", fmt.Errorf("tensor data length %d does not match %dx%dx%d", len(data), i, j, k)
	}
	return s.save(stage, params, metrics, []int{i, j, k}, nil, i*j, k, data)
}

func (s *Store) save(stage string, params map[string]any, metrics map[string]float64, shape []int, columns []string, rows, cols int, data []float64) (string, error) {
	runID := fmt.Sprintf("%s_%d_%s", stage, time.Now().Unix(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMeta{
		ID:        runID,
		Stage:     stage,
		Timestamp: time.Now(),
		Params:    params,
		Metrics:   metrics,
		Shape:     shape,
		Columns:   columns,
		Path:      runDir,
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "data.csv"), columns, rows, cols, data); err != nil {
		return "", err
	}

	if err := s.reg.Insert(meta); err != nil {
		return "", fmt.Errorf("register run %s: %w", runID, err)
	}
	return runID, nil
}

// LoadMatrix reads one stored output back along with its metadata. Tensor
// runs come back as their flattened (i*j) x k matrix; the metadata shape
// tells the caller how to fold it.
func (s *Store) LoadMatrix(runID string) (*Matrix, *RunMeta, error) {
	meta, err := s.LoadMeta(runID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, "data.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	start := 0
	if len(meta.Columns) > 0 && len(records) > 0 {
		start = 1 // header row
	}
	rows := len(records) - start
	if rows < 0 {
		rows = 0
	}
	cols := 0
	if rows > 0 {
		cols = len(records[start])
	}

	m := NewMatrix(rows, cols, meta.Columns)
	for i := 0; i < rows; i++ {
		rec := records[start+i]
		for j := 0; j < cols && j < len(rec); j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s row %d col %d: %w", runID, i, j, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, meta, nil
}

// LoadMeta reads the metadata.json of one run directory.
func (s *Store) LoadMeta(runID string) (*RunMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// List returns the registry rows, newest first.
func (s *Store) List() ([]RunMeta, error) { return s.reg.List() }

// Latest returns the newest run of the given stage.
func (s *Store) Latest(stage string) (*RunMeta, error) {
	meta, err := s.reg.Latest(stage)
	if err != nil {
		return nil, err
	}
	return s.LoadMeta(meta.ID)
}

// Get resolves a run ID through the registry and loads its full metadata.
func (s *Store) Get(runID string) (*RunMeta, error) {
	if _, err := s.reg.Get(runID); err != nil {
		return nil, err
	}
	return s.LoadMeta(runID)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, columns []string, rows, cols int, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(columns) > 0 {
		if err := w.Write(columns); err != nil {
			return err
		}
	}
	row := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = strconv.FormatFloat(data[i*cols+j], 'f', 6, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
