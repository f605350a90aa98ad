package regions

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const maxLineSize = 16 << 20

var (
	ErrNoRegions      = errors.New("region file has no Regions section")
	ErrInvalidRegions = errors.New("regions section is not a JSON array of regions")

	sectionHeader = regexp.MustCompile(`^(\w+):\s*(#.*)?$`)
)

// FileParser reads region files from the local filesystem.
type FileParser struct{}

// NewParser returns the in-process region file parser.
func NewParser() *FileParser {
	return &FileParser{}
}

// Load implements Parser.
func (p *FileParser) Load(path string) (*Descriptor, error) {
	sections, err := readSections(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read region file %s", path)
	}

	raw, ok := sections["Regions"]
	if !ok {
		return nil, errors.Wrap(ErrNoRegions, path)
	}
	regs, err := parseRegions(strings.Join(raw, "\n"))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	d := &Descriptor{
		Name:      baseName(path),
		Path:      path,
		Regions:   regs,
		Obstacles: sections["Obstacles"],
	}
	if bg := sections["Background"]; len(bg) > 0 && bg[0] != "None" {
		d.Background = bg[0]
	}
	obstacles := make(map[string]bool, len(d.Obstacles))
	for _, o := range d.Obstacles {
		obstacles[o] = true
	}
	for i := range d.Regions {
		if obstacles[d.Regions[i].Name] {
			d.Regions[i].IsObstacle = true
		}
	}
	return d, nil
}

// ExtractSummary implements Parser.
func (p *FileParser) ExtractSummary(path string) ([]Region, error) {
	d, err := p.Load(path)
	if err != nil {
		return nil, err
	}
	return d.Regions, nil
}

// readSections splits a sectioned file into its named sections. Comment lines, blank
// lines and lines before the first header are dropped.
func readSections(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sections := make(map[string][]string)
	current := ""
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if m := sectionHeader.FindStringSubmatch(trimmed); m != nil {
			current = m[1]
			if _, ok := sections[current]; !ok {
				sections[current] = []string{}
			}
			continue
		}
		if current == "" {
			continue
		}
		sections[current] = append(sections[current], trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

func parseRegions(doc string) ([]Region, error) {
	if !gjson.Valid(doc) {
		return nil, ErrInvalidRegions
	}
	arr := gjson.Parse(doc)
	if !arr.IsArray() {
		return nil, ErrInvalidRegions
	}

	regs := []Region{}
	for i, r := range arr.Array() {
		name := r.Get("name").String()
		if !r.IsObject() || name == "" {
			return nil, errors.Wrapf(ErrInvalidRegions, "region %d has no name", i)
		}
		reg := Region{
			Name:       name,
			Type:       r.Get("type").String(),
			Position:   floats(r.Get("position")),
			Size:       floats(r.Get("size")),
			IsObstacle: r.Get("isObstacle").Bool(),
		}
		for _, c := range r.Get("color").Array() {
			reg.Color = append(reg.Color, int(c.Int()))
		}
		for _, pt := range r.Get("points").Array() {
			reg.Points = append(reg.Points, floats(pt))
		}
		for _, hole := range r.Get("holeList").Array() {
			var h [][]float64
			for _, pt := range hole.Array() {
				h = append(h, floats(pt))
			}
			reg.HoleList = append(reg.HoleList, h)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func floats(r gjson.Result) []float64 {
	var out []float64
	for _, v := range r.Array() {
		out = append(out, v.Float())
	}
	return out
}
