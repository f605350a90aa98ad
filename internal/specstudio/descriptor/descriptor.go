// Package descriptor turns loosely structured request fields into a typed project
// descriptor and moves descriptors to and from the sectioned spec file format consumed
// by the synthesis compiler.
package descriptor

import (
	"github.com/tansive/specstudio/internal/specstudio/regions"
)

// CompileOptions are the recognised compiler flags. Decompose is always true.
type CompileOptions struct {
	Convexify            bool   `json:"convexify" yaml:"convexify"`
	FastSlow             bool   `json:"fastslow" yaml:"fastslow"`
	Symbolic             bool   `json:"symbolic" yaml:"symbolic"`
	Decompose            bool   `json:"decompose" yaml:"decompose"`
	UseRegionBitEncoding bool   `json:"use_region_bit_encoding" yaml:"use_region_bit_encoding"`
	Synthesizer          string `json:"synthesizer" yaml:"synthesizer" validate:"omitempty,oneof=jtlv slugs"`
	Parser               string `json:"parser" yaml:"parser" validate:"omitempty,oneof=structured slurp ltl"`
}

// ProjectDescriptor aggregates everything needed to write one spec file. Name lists keep
// caller order and duplicates. A descriptor without a region is valid but cannot be
// compiled.
type ProjectDescriptor struct {
	SpecText         string              `json:"specText" yaml:"specText"`
	AllSensors       []string            `json:"all_sensors" yaml:"all_sensors"`
	EnabledSensors   []string            `json:"enabled_sensors" yaml:"enabled_sensors"`
	AllActuators     []string            `json:"all_actuators" yaml:"all_actuators"`
	EnabledActuators []string            `json:"enabled_actuators" yaml:"enabled_actuators"`
	AllCustoms       []string            `json:"all_customs" yaml:"all_customs"`
	Options          CompileOptions      `json:"compile_options" yaml:"compile_options"`
	RegionFile       string              `json:"regionFile" yaml:"regionFile"`
	Region           *regions.Descriptor `json:"-" yaml:"region,omitempty"`
}

// New returns an empty descriptor with non-nil lists and decompose set.
func New() *ProjectDescriptor {
	d := &ProjectDescriptor{}
	d.normalize()
	return d
}

// HasRegion reports whether a region description is attached.
func (d *ProjectDescriptor) HasRegion() bool {
	return d.Region != nil
}

// RegionPath returns the path of the attached region file, or "".
func (d *ProjectDescriptor) RegionPath() string {
	if d.Region == nil {
		return ""
	}
	return d.Region.Path
}

// RegionNames returns the names of the attached regions; empty when region-less.
func (d *ProjectDescriptor) RegionNames() []string {
	if d.Region == nil {
		return []string{}
	}
	return d.Region.RegionNames()
}

// normalize makes every list non-nil, drops empty names and forces decompose.
func (d *ProjectDescriptor) normalize() {
	d.AllSensors = compact(d.AllSensors)
	d.EnabledSensors = compact(d.EnabledSensors)
	d.AllActuators = compact(d.AllActuators)
	d.EnabledActuators = compact(d.EnabledActuators)
	d.AllCustoms = compact(d.AllCustoms)
	d.Options.Decompose = true
}

func compact(s []string) []string {
	out := make([]string, 0, len(s))
	for _, name := range s {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
