package descriptor

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	settingsBanner      = "======== SETTINGS ========"
	specificationBanner = "======== SPECIFICATION ========"
	defaultConfigName   = "Untitled configuration"
)

var (
	sectionHeader = regexp.MustCompile(`^(\w+):\s*(#.*)?$`)
	optionLine    = regexp.MustCompile(`^(\w+):\s*(.*)$`)

	optionKeys = map[string]bool{
		"convexify":               true,
		"fastslow":                true,
		"symbolic":                true,
		"decompose":               true,
		"use_region_bit_encoding": true,
		"synthesizer":             true,
		"parser":                  true,
	}
)

// Encode writes d in the sectioned spec file format. The spec text is written verbatim
// after the Spec header followed by a newline. Declared names carry their state; the
// enabled lists are also written in their own sections, in caller order with duplicates,
// and are what Decode reads back. Empty names cannot be represented and are skipped.
func Encode(w io.Writer, d *ProjectDescriptor) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("# This is a specification definition file for the LTLMoP toolkit.\n")
	p("# Format details are described at the beginning of each section below.\n")
	p("\n\n%s\n\n", settingsBanner)

	p("Actions: # List of action propositions and their state (enabled = 1, disabled = 0)\n")
	writeStates(bw, d.AllActuators, d.EnabledActuators)
	p("\n")

	o := d.Options
	p("CompileOptions:\n")
	p("convexify: %s\n", pyBool(o.Convexify))
	p("fastslow: %s\n", pyBool(o.FastSlow))
	p("symbolic: %s\n", pyBool(o.Symbolic))
	p("decompose: %s\n", pyBool(true))
	p("use_region_bit_encoding: %s\n", pyBool(o.UseRegionBitEncoding))
	p("%s\n", strings.TrimRight("synthesizer: "+o.Synthesizer, " "))
	p("%s\n", strings.TrimRight("parser: "+o.Parser, " "))
	p("\n")

	p("CurrentConfigName:\n%s\n\n", defaultConfigName)

	p("Customs: # List of custom propositions\n")
	writeNames(bw, d.AllCustoms)
	p("\n")

	p("EnabledActions: # Enabled action propositions in request order\n")
	writeNames(bw, d.EnabledActuators)
	p("\n")

	p("EnabledSensors: # Enabled sensor propositions in request order\n")
	writeNames(bw, d.EnabledSensors)
	p("\n")

	p("RegionFile: # Relative path of region description file\n")
	if d.RegionFile != "" {
		p("%s\n", d.RegionFile)
	}
	p("\n")

	p("Sensors: # List of sensor propositions and their state (enabled = 1, disabled = 0)\n")
	writeStates(bw, d.AllSensors, d.EnabledSensors)
	p("\n\n%s\n\n", specificationBanner)

	p("Spec: # Specification in structured English\n")
	p("%s\n", d.SpecText)
	return bw.Flush()
}

func writeStates(w io.Writer, all, enabled []string) {
	on := make(map[string]bool, len(enabled))
	for _, e := range enabled {
		on[e] = true
	}
	for _, name := range all {
		if name != "" {
			fmt.Fprintf(w, "%s, %d\n", name, state(on[name]))
		}
	}
}

func writeNames(w io.Writer, names []string) {
	for _, name := range names {
		if name != "" {
			fmt.Fprintf(w, "%s\n", name)
		}
	}
}

func state(b bool) int {
	if b {
		return 1
	}
	return 0
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Decode parses a spec file. Unknown sections and options are ignored, decompose is
// always true, and the spec text is everything after the Spec header with one trailing
// newline removed. Files without the enabled sections take the distinct names with
// state 1, in first-occurrence order.
func Decode(r io.Reader) (*ProjectDescriptor, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := string(raw)
	d := &ProjectDescriptor{}

	var (
		section  string
		seenSpec bool
		sensors  []stateEntry
		actions  []stateEntry
	)
	enabled := make(map[string][]string, 2)
	for len(text) > 0 {
		line := text
		rest := ""
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, rest = text[:i], text[i+1:]
		}
		text = rest
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "====") {
			continue
		}
		if section == "CompileOptions" {
			if m := optionLine.FindStringSubmatch(line); m != nil && optionKeys[m[1]] {
				setOption(&d.Options, m[1], strings.TrimSpace(m[2]))
				continue
			}
		}
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			section = m[1]
			if _, ok := enabled[section]; !ok && strings.HasPrefix(section, "Enabled") {
				enabled[section] = []string{}
			}
			if section == "Spec" {
				seenSpec = true
				d.SpecText = strings.TrimSuffix(text, "\n")
				break
			}
			continue
		}

		switch section {
		case "Actions":
			actions = append(actions, parseState(line))
		case "Sensors":
			sensors = append(sensors, parseState(line))
		case "Customs":
			d.AllCustoms = append(d.AllCustoms, line)
		case "EnabledActions", "EnabledSensors":
			enabled[section] = append(enabled[section], line)
		case "RegionFile":
			if d.RegionFile == "" {
				d.RegionFile = line
			}
		}
	}
	if !seenSpec {
		return nil, fmt.Errorf("not a spec file: no Spec section")
	}

	d.AllActuators, d.EnabledActuators = splitStates(actions)
	d.AllSensors, d.EnabledSensors = splitStates(sensors)
	if names, ok := enabled["EnabledActions"]; ok {
		d.EnabledActuators = names
	}
	if names, ok := enabled["EnabledSensors"]; ok {
		d.EnabledSensors = names
	}
	d.normalize()
	return d, nil
}

type stateEntry struct {
	name    string
	enabled bool
}

func parseState(line string) stateEntry {
	i := strings.LastIndex(line, ",")
	if i < 0 {
		return stateEntry{name: line}
	}
	return stateEntry{
		name:    strings.TrimSpace(line[:i]),
		enabled: strings.TrimSpace(line[i+1:]) == "1",
	}
}

// splitStates returns every declared name and the distinct enabled names, both in
// first-occurrence order.
func splitStates(entries []stateEntry) (all, enabled []string) {
	seen := make(map[string]bool)
	for _, e := range entries {
		all = append(all, e.name)
		if e.enabled && !seen[e.name] {
			seen[e.name] = true
			enabled = append(enabled, e.name)
		}
	}
	return all, enabled
}

func setOption(o *CompileOptions, key, value string) {
	switch key {
	case "convexify":
		o.Convexify = strings.EqualFold(value, "true")
	case "fastslow":
		o.FastSlow = strings.EqualFold(value, "true")
	case "symbolic":
		o.Symbolic = strings.EqualFold(value, "true")
	case "use_region_bit_encoding":
		o.UseRegionBitEncoding = strings.EqualFold(value, "true")
	case "synthesizer":
		o.Synthesizer = value
	case "parser":
		o.Parser = value
	}
}
