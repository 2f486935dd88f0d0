package store

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "analysis"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadMatrix(t *testing.T) {
	s := openTestStore(t)

	m := NewMatrix(3, 2, []string{"y", "x"})
	for i := 0; i < 3; i++ {
		m.Set(i, 0, float64(i))
		m.Set(i, 1, float64(i)*10)
	}

	params := map[string]any{"window_size": 15.0}
	metrics := map[string]float64{"lost_fraction": 0.1}
	id, err := s.SaveMatrix("track", params, metrics, m)
	require.NoError(t, err)
	assert.Contains(t, id, "track_")

	got, meta, err := s.LoadMatrix(id)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, meta.Shape)
	assert.Equal(t, []string{"y", "x"}, meta.Columns)
	assert.Equal(t, 0.1, meta.Metrics["lost_fraction"])
	assert.Equal(t, m.Rows, got.Rows)
	assert.Equal(t, m.Cols, got.Cols)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, m.At(i, 1), got.At(i, 1), 1e-9)
	}
}

func TestSaveTensorRoundTrip(t *testing.T) {
	s := openTestStore(t)

	data := make([]float64, 2*3*4)
	for i := range data {
		data[i] = float64(i)
	}
	id, err := s.SaveTensor("spectra", nil, nil, 2, 3, 4, data)
	require.NoError(t, err)

	got, meta, err := s.LoadMatrix(id)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, meta.Shape)
	assert.Equal(t, 6, got.Rows)
	assert.Equal(t, 4, got.Cols)
	assert.InDelta(t, 23.0, got.At(5, 3), 1e-9)

	_, err = s.SaveTensor("spectra", nil, nil, 2, 3, 4, data[:10])
	assert.Error(t, err)
}

func TestLatestAndList(t *testing.T) {
	s := openTestStore(t)

	m := NewMatrix(1, 1, nil)
	first, err := s.SaveMatrix("pca", nil, nil, m)
	require.NoError(t, err)
	second, err := s.SaveMatrix("pca", nil, nil, m)
	require.NoError(t, err)
	_, err = s.SaveMatrix("track", nil, nil, m)
	require.NoError(t, err)

	latest, err := s.Latest("pca")
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	runs, err := s.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	// Newest first.
	assert.Equal(t, "track", runs[0].Stage)

	_, err = s.Latest("tca")
	assert.Error(t, err)

	_, err = s.Get("nope")
	assert.Error(t, err)
	got, err := s.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "pca", got.Stage)
}

func TestExportJSON(t *testing.T) {
	s := openTestStore(t)

	m := NewMatrix(2, 2, []string{"a", "b"})
	m.Set(0, 0, 1)
	m.Set(1, 1, 4)
	id, err := s.SaveMatrix("clean", map[string]any{"freeze_window": 5.0}, nil, m)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(&buf, id))

	var out ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "clean", out.Stage)
	assert.Equal(t, 5.0, out.Params["freeze_window"])
	require.Len(t, out.Rows, 2)
	assert.Equal(t, 4.0, out.Rows[1][1])
}

func TestExportCSV(t *testing.T) {
	s := openTestStore(t)

	m := NewMatrix(2, 2, []string{"a", "b"})
	m.Set(0, 0, 1.5)
	m.Set(1, 1, 4)
	id, err := s.SaveMatrix("clean", nil, nil, m)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf, id))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a,b", lines[0])
	assert.Equal(t, "1.5,0", lines[1])
	assert.Equal(t, "0,4", lines[2])
}

func TestRegistrySurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "analysis")
	s, err := Open(dir)
	require.NoError(t, err)

	id, err := s.SaveMatrix("import", nil, nil, NewMatrix(1, 1, nil))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	meta, err := s2.Latest("import")
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
}
