// Package rois turns region-of-interest polygons into boolean pixel masks
// and seeds the tracking point grid inside them.
package rois

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a pixel coordinate. Y before X, matching the row-major order
// the rest of the pipeline uses.
type Point struct {
	Y float64 `yaml:"y"`
	X float64 `yaml:"x"`
}

// Polygon is the closed boundary of one ROI.
type Polygon []Point

// Mask is a boolean image with the same geometry as the video frames.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

func (m *Mask) At(y, x int) bool {
	if y < 0 || y >= m.Height || x < 0 || x >= m.Width {
		return false
	}
	return m.Bits[y*m.Width+x]
}

func (m *Mask) set(y, x int) {
	if y >= 0 && y < m.Height && x >= 0 && x < m.Width {
		m.Bits[y*m.Width+x] = true
	}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Union merges other into m. Geometries must match.
func (m *Mask) Union(other *Mask) error {
	if other.Width != m.Width || other.Height != m.Height {
		return fmt.Errorf("mask size mismatch: %dx%d vs %dx%d", other.Width, other.Height, m.Width, m.Height)
	}
	for i, b := range other.Bits {
		if b {
			m.Bits[i] = true
		}
	}
	return nil
}

// Rasterize fills the polygon into a mask of the given frame size using
// even-odd scanline filling.
func Rasterize(poly Polygon, width, height int) (*Mask, error) {
	if len(poly) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 points, got %d", len(poly))
	}
	m := NewMask(width, height)

	for y := 0; y < height; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		n := len(poly)
		for i := 0; i < n; i++ {
			a, b := poly[i], poly[(i+1)%n]
			if (a.Y <= fy && b.Y > fy) || (b.Y <= fy && a.Y > fy) {
				t := (fy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		if len(xs) < 2 {
			continue
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(xs[i] + 0.5); float64(x) < xs[i+1]; x++ {
				m.set(y, x)
			}
		}
	}
	return m, nil
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// LoadPolygons reads ROI boundaries from a yaml file: a list of polygons,
// each a list of {y, x} points.
func LoadPolygons(path string) ([]Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var polys []Polygon
	if err := yaml.Unmarshal(data, &polys); err != nil {
		return nil, fmt.Errorf("parse ROI points file %s: %w", path, err)
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("ROI points file %s contains no polygons", path)
	}
	return polys, nil
}

// SavePolygons writes ROI boundaries in the format LoadPolygons reads.
func SavePolygons(path string, polys []Polygon) error {
	data, err := yaml.Marshal(polys)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MaskFromPolygons rasterizes every polygon and unions them into a single
// tracking region.
func MaskFromPolygons(polys []Polygon, width, height int) (*Mask, error) {
	combined := NewMask(width, height)
	for i, poly := range polys {
		m, err := Rasterize(poly, width, height)
		if err != nil {
			return nil, fmt.Errorf("roi %d: %w", i, err)
		}
		if err := combined.Union(m); err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// SeedPoints lays a regular grid of points with the given spacing inside
// the mask. The grid is offset by spacing/2 so points sit away from the
// ROI boundary.
func SeedPoints(m *Mask, spacing int) ([]Point, error) {
	if spacing < 1 {
		return nil, fmt.Errorf("spacing must be >= 1, got %d", spacing)
	}
	var pts []Point
	for y := spacing / 2; y < m.Height; y += spacing {
		for x := spacing / 2; x < m.Width; x += spacing {
			if m.At(y, x) {
				pts = append(pts, Point{Y: float64(y), X: float64(x)})
			}
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no points seeded: mask empty or spacing %d too coarse", spacing)
	}
	return pts, nil
}
