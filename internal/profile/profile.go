// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile describes what an export run queries and which columns
// it writes. Two profiles are built in (elasticity, oxides); others can be
// loaded from YAML files.
package profile

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mp-export/internal/elements"
	"github.com/pdiddy/mp-export/internal/selector"
)

// Profile is the on-disk and in-memory description of an export.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Criteria is the API filter, passed through as JSON.
	Criteria map[string]any `yaml:"criteria"`

	// BasicFields are written verbatim, except EnergyField.
	BasicFields []string `yaml:"basic_fields"`
	EnergyField string   `yaml:"energy_field,omitempty"`

	Detail DetailSpec `yaml:"detail"`

	// Universe selects the element columns: "all" or "metals".
	Universe string `yaml:"universe"`

	// Trailing element columns follow the universe. A profile with
	// trailing columns ends each line without a tab.
	Trailing []string `yaml:"trailing,omitempty"`

	Filter FilterSpec `yaml:"filter,omitempty"`
}

// DetailSpec lists the detail columns. When Parent is set the fields are
// read from that nested object.
type DetailSpec struct {
	Parent string   `yaml:"parent,omitempty"`
	Fields []string `yaml:"fields"`
}

// FilterSpec restricts the unit-cell composition. An empty Allowed list
// name disables the element check.
type FilterSpec struct {
	Allowed     string   `yaml:"allowed,omitempty"`
	Extra       []string `yaml:"extra,omitempty"`
	MinElements int      `yaml:"min_elements,omitempty"`
}

var basicFields = []string{
	"task_id",
	selector.FieldFormula,
	selector.FieldSpaceGroup,
	selector.FieldEnergy,
	"formation_energy_per_atom",
	"density",
}

var builtins = map[string]Profile{
	"elasticity": {
		Name:        "elasticity",
		Description: "All compounds with elasticity data",
		Criteria: map[string]any{
			"elasticity":             map[string]any{"$exists": true},
			selector.FieldSpaceGroup: map[string]any{"$exists": true},
		},
		BasicFields: basicFields,
		EnergyField: selector.FieldEnergy,
		Detail: DetailSpec{
			Parent: "elasticity",
			Fields: []string{"G_Reuss", "G_VRH", "G_Voigt", "K_Reuss", "K_VRH", "K_Voigt", "poisson_ratio", "universal_anisotropy"},
		},
		Universe: "all",
	},
	"oxides": {
		Name:        "oxides",
		Description: "Binary metal oxides with a band gap",
		Criteria: map[string]any{
			"elements":               map[string]any{"$all": []any{"O"}},
			"nelements":              2,
			selector.FieldSpaceGroup: map[string]any{"$exists": true},
			"band_gap":               map[string]any{"$exists": true},
		},
		BasicFields: basicFields,
		EnergyField: selector.FieldEnergy,
		Detail: DetailSpec{
			Fields: []string{"band_gap", "efermi", "total_magnetization"},
		},
		Universe: "metals",
		Trailing: []string{"O"},
		Filter: FilterSpec{
			Allowed:     "metals",
			Extra:       []string{"O"},
			MinElements: 2,
		},
	},
}

// Names returns the built-in profile names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a copy of the named built-in profile.
func Builtin(name string) (*Profile, error) {
	p, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q: available profiles are %v", name, Names())
	}
	cp := p
	cp.BasicFields = append([]string(nil), p.BasicFields...)
	cp.Detail.Fields = append([]string(nil), p.Detail.Fields...)
	cp.Trailing = append([]string(nil), p.Trailing...)
	return &cp, nil
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Write saves the profile as YAML, e.g. as a starting point for a custom one.
func (p *Profile) Write(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the fields a run depends on.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if len(p.Criteria) == 0 {
		return fmt.Errorf("profile %s: criteria are required", p.Name)
	}
	switch p.Universe {
	case "all", "metals":
	default:
		return fmt.Errorf("profile %s: universe must be all or metals, got %q", p.Name, p.Universe)
	}
	switch p.Filter.Allowed {
	case "", "all", "metals":
	default:
		return fmt.Errorf("profile %s: filter.allowed must be all or metals, got %q", p.Name, p.Filter.Allowed)
	}
	if p.Filter.MinElements < 0 {
		return fmt.Errorf("profile %s: filter.min_elements must not be negative", p.Name)
	}
	return nil
}

// Properties returns the property names requested from the API: every
// emitted field plus the two formula mappings needed for scaling and
// element columns.
func (p *Profile) Properties() []string {
	var props []string
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				props = append(props, n)
			}
		}
	}
	add(p.BasicFields...)
	add(selector.FieldFormula, selector.FieldReduced, selector.FieldUnitCell, selector.FieldSpaceGroup)
	if p.Detail.Parent != "" {
		add(p.Detail.Parent)
	} else {
		add(p.Detail.Fields...)
	}
	return props
}

// TrailingTab reports whether every line ends with a tab before the newline.
func (p *Profile) TrailingTab() bool {
	return len(p.Trailing) == 0
}

// SelectorConfig resolves element lists against tbl.
func (p *Profile) SelectorConfig(tbl *elements.Table) (selector.Config, error) {
	universe, err := tbl.List(p.Universe)
	if err != nil {
		return selector.Config{}, fmt.Errorf("profile %s: %w", p.Name, err)
	}

	cfg := selector.Config{
		BasicFields: p.BasicFields,
		EnergyField: p.EnergyField,
		Universe:    universe,
		Trailing:    p.Trailing,
	}
	for _, f := range p.Detail.Fields {
		cfg.DetailFields = append(cfg.DetailFields, selector.DetailField{Name: f, Parent: p.Detail.Parent})
	}

	if p.Filter.Allowed != "" {
		allowed, err := tbl.List(p.Filter.Allowed)
		if err != nil {
			return selector.Config{}, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		allowed = append(append([]string(nil), allowed...), p.Filter.Extra...)
		cfg.Predicate = selector.AllowedElements(allowed, p.Filter.MinElements)
	} else if p.Filter.MinElements > 0 {
		minElements := p.Filter.MinElements
		cfg.Predicate = func(sg int, uc selector.Composition) bool {
			return selector.PositiveSpaceGroup(sg, uc) && len(uc) >= minElements
		}
	}
	return cfg, nil
}
