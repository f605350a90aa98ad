// Package regionstest builds region files for tests.
package regionstest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/sjson"
)

// RegionsJSON returns a Regions array with one square region per name.
func RegionsJSON(names ...string) string {
	doc := "[]"
	for i, name := range names {
		x := float64(i * 100)
		region := `{"type":"poly","color":[0,128,255],"holeList":[]}`
		region, _ = sjson.Set(region, "name", name)
		region, _ = sjson.Set(region, "position", []float64{x, 0})
		region, _ = sjson.Set(region, "size", []float64{100, 100})
		region, _ = sjson.Set(region, "points", [][]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}})
		doc, _ = sjson.SetRaw(doc, "-1", region)
	}
	return doc
}

// Content renders a region file around regionsJSON. obstacles are listed in the
// Obstacles section.
func Content(regionsJSON string, obstacles ...string) string {
	var b strings.Builder
	b.WriteString("# This is a region definition file for the LTLMoP toolkit.\n")
	b.WriteString("# Format details are described at the beginning of each section below.\n")
	b.WriteString("# Note that all values are separated by *tabs*.\n\n")
	b.WriteString("Background: # Relative path of background image file\nNone\n\n")
	b.WriteString("CalibrationPoints: # Vertices to use for map calibration: (vertex_region_name, vertex_index)\n\n")
	b.WriteString("Obstacles: # Names of regions to treat as obstacles\n")
	for _, o := range obstacles {
		b.WriteString(o + "\n")
	}
	b.WriteString("\nRegions: # Stored as JSON string\n")
	b.WriteString(regionsJSON)
	b.WriteString("\n\nTransitions: # Region 1 Name, Region 2 Name, Bidirectional transition faces\n")
	return b.String()
}

// WriteFile writes a region file named name into dir with one region per entry of
// names and returns its path.
func WriteFile(tb testing.TB, dir, name string, names ...string) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(Content(RegionsJSON(names...))), 0o600); err != nil {
		tb.Fatal(fmt.Errorf("writing region file: %w", err))
	}
	return p
}
