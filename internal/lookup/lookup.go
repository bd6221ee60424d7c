// Package lookup holds the static alias and display tables the pipeline
// consults: city aliases, business type labels and segment presentation.
package lookup

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"retail-insights/internal/models"
	"retail-insights/internal/normalize"
)

//go:embed tables.yaml
var embeddedTables []byte

type CityEntry struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

type TypeTable struct {
	Placeholders []string          `yaml:"placeholders"`
	Labels       map[string]string `yaml:"labels"`
}

type file struct {
	Unspecified string                                   `yaml:"unspecified"`
	Cities      []CityEntry                              `yaml:"cities"`
	Types       *TypeTable                               `yaml:"types"`
	Segments    map[models.Segment]models.SegmentDisplay `yaml:"segments"`
}

type alias struct {
	folded    string
	canonical string
}

// Tables is immutable after construction and safe for concurrent use.
type Tables struct {
	Unspecified string
	Cities      []CityEntry
	Types       TypeTable
	Segments    map[models.Segment]models.SegmentDisplay

	aliases []alias
	exact   map[string]string
	labels  map[string]string
	ignored map[string]struct{}
}

var (
	postalSuffix = regexp.MustCompile(`\s+\d+$`)
	leadingDigit = regexp.MustCompile(`^\d`)
)

var loadDefault = sync.OnceValues(func() (*Tables, error) {
	return parse(embeddedTables, nil)
})

// Default returns the embedded tables.
func Default() *Tables {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("lookup: embedded tables are invalid: %v", err))
	}
	return t
}

// Load reads an override file. Sections the file omits keep the embedded
// values. An empty path returns the embedded tables.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup file: %w", err)
	}
	t, err := parse(data, Default())
	if err != nil {
		return nil, fmt.Errorf("parse lookup file %s: %w", path, err)
	}
	return t, nil
}

func parse(data []byte, base *Tables) (*Tables, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	t := &Tables{}
	if base != nil {
		t.Unspecified = base.Unspecified
		t.Cities = base.Cities
		t.Types = base.Types
		t.Segments = base.Segments
	}
	if f.Unspecified != "" {
		t.Unspecified = f.Unspecified
	}
	if len(f.Cities) > 0 {
		t.Cities = f.Cities
	}
	if f.Types != nil {
		t.Types = *f.Types
	}
	if len(f.Segments) > 0 {
		t.Segments = f.Segments
	}

	if t.Unspecified == "" {
		return nil, fmt.Errorf("unspecified label is empty")
	}
	for i, c := range t.Cities {
		if strings.TrimSpace(c.Canonical) == "" {
			return nil, fmt.Errorf("city entry %d has no canonical name", i)
		}
	}

	t.index()
	return t, nil
}

func (t *Tables) index() {
	t.exact = make(map[string]string)
	t.aliases = t.aliases[:0]
	for _, c := range t.Cities {
		names := append([]string{c.Canonical}, c.Aliases...)
		for _, name := range names {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, dup := t.exact[key]; !dup {
				t.exact[key] = c.Canonical
			}
			if folded := normalize.Text(name); folded != "" {
				t.aliases = append(t.aliases, alias{folded: folded, canonical: c.Canonical})
			}
		}
	}

	t.labels = make(map[string]string, len(t.Types.Labels))
	for k, v := range t.Types.Labels {
		t.labels[strings.ToLower(strings.TrimSpace(k))] = v
	}
	t.ignored = make(map[string]struct{}, len(t.Types.Placeholders))
	for _, p := range t.Types.Placeholders {
		t.ignored[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
}

// CanonicalCity strips a trailing postal code and maps a known alias to its
// canonical name. Unknown cities come back trimmed.
func (t *Tables) CanonicalCity(city string) string {
	city = postalSuffix.ReplaceAllString(strings.TrimSpace(city), "")
	if canonical, ok := t.exact[strings.ToLower(city)]; ok {
		return canonical
	}
	return city
}

// CityInAddress returns the canonical city of the first alias contained in
// the address.
func (t *Tables) CityInAddress(address string) (string, bool) {
	folded := normalize.Text(address)
	if folded == "" {
		return "", false
	}
	for _, a := range t.aliases {
		if strings.Contains(folded, a.folded) {
			return a.canonical, true
		}
	}
	return "", false
}

// AreaFromAddress picks the last comma-separated part of a multi-part
// address that names neither a known city nor a postal code.
func (t *Tables) AreaFromAddress(address string) (string, bool) {
	var parts []string
	for _, p := range strings.Split(address, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", false
	}
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if leadingDigit.MatchString(part) {
			continue
		}
		if _, isCity := t.CityInAddress(part); isCity {
			continue
		}
		return part, true
	}
	return "", false
}

// TypeLabel returns the display label for a business type, or the
// unspecified label for blanks and placeholders. Unknown types pass through.
func (t *Tables) TypeLabel(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return t.Unspecified
	}
	if _, skip := t.ignored[key]; skip {
		return t.Unspecified
	}
	if label, ok := t.labels[key]; ok {
		return label
	}
	return strings.TrimSpace(raw)
}

// OrUnspecified substitutes the unspecified label for a blank value.
func (t *Tables) OrUnspecified(v string) string {
	if models.IsMissing(v) {
		return t.Unspecified
	}
	return strings.TrimSpace(v)
}

// Segment returns the display entry for a segment. Labels missing from the
// table fall back to the label itself in neutral grey.
func (t *Tables) Segment(s models.Segment) models.SegmentDisplay {
	if d, ok := t.Segments[s]; ok {
		return d
	}
	return models.SegmentDisplay{Name: string(s), Color: "#9ca3af"}
}
