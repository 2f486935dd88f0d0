package store

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
)

// ExportData is the JSON shape of one exported run: the metadata plus the
// payload folded back into rows.
type ExportData struct {
	ID      string             `json:"id"`
	Stage   string             `json:"stage"`
	Params  map[string]any     `json:"params,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Shape   []int              `json:"shape"`
	Columns []string           `json:"columns,omitempty"`
	Rows    [][]float64        `json:"rows"`
}

// ExportJSON writes a stored run to the given writer as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	m, meta, err := s.LoadMatrix(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		ID:      meta.ID,
		Stage:   meta.Stage,
		Params:  meta.Params,
		Metrics: meta.Metrics,
		Shape:   meta.Shape,
		Columns: meta.Columns,
		Rows:    make([][]float64, m.Rows),
	}
	for i := 0; i < m.Rows; i++ {
		row := make([]float64, m.Cols)
		for j := 0; j < m.Cols; j++ {
			row[j] = m.At(i, j)
		}
		data.Rows[i] = row
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSONFile writes a stored run to a new file at path.
func (s *Store) ExportJSONFile(path, runID string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ExportJSON(f, runID)
}

// ExportCSV writes a stored run's payload as CSV, with a header row when
// the run carries column names.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	m, meta, err := s.LoadMatrix(runID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if len(meta.Columns) == m.Cols {
		if err := cw.Write(meta.Columns); err != nil {
			return err
		}
	}
	record := make([]string, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSVFile writes a stored run's payload to a new CSV file at path.
func (s *Store) ExportCSVFile(path, runID string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ExportCSV(f, runID)
}
