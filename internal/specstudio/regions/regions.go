// Package regions reads region description files: a floorplan partitioned into named
// regions, stored as a sectioned text file whose Regions section holds a JSON array.
package regions

import (
	"path/filepath"
	"strings"
)

// Region is one named area of the floorplan.
type Region struct {
	Name       string        `json:"name" yaml:"name"`
	Type       string        `json:"type" yaml:"type"`
	Color      []int         `json:"color,omitempty" yaml:"color,omitempty"`
	Position   []float64     `json:"position,omitempty" yaml:"position,omitempty"`
	Size       []float64     `json:"size,omitempty" yaml:"size,omitempty"`
	Points     [][]float64   `json:"points,omitempty" yaml:"points,omitempty"`
	HoleList   [][][]float64 `json:"holeList,omitempty" yaml:"holeList,omitempty"`
	IsObstacle bool          `json:"isObstacle" yaml:"isObstacle"`
}

// Descriptor is the parsed form of one region file.
type Descriptor struct {
	Name       string   `json:"name" yaml:"name"`
	Path       string   `json:"path" yaml:"path"`
	Background string   `json:"background,omitempty" yaml:"background,omitempty"`
	Regions    []Region `json:"regions" yaml:"regions"`
	Obstacles  []string `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
}

// RegionNames returns the region names in file order.
func (d *Descriptor) RegionNames() []string {
	names := make([]string, 0, len(d.Regions))
	for _, r := range d.Regions {
		names = append(names, r.Name)
	}
	return names
}

// Parser is the region-file collaborator used by the pipeline.
type Parser interface {
	// Load parses the region file at path.
	Load(path string) (*Descriptor, error)
	// ExtractSummary returns the regions of the file at path in the shape sent to editors.
	ExtractSummary(path string) ([]Region, error)
}

func baseName(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
