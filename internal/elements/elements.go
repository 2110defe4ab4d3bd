// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package elements provides the element symbol lists used as export columns
// and as the allowed set of the metal-oxide filter.
package elements

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed elements.yaml
var defaultData []byte

// Table holds the two element lists, each in periodic order.
type Table struct {
	All    []string `yaml:"all"`
	Metals []string `yaml:"metals"`
}

// Default returns the embedded table.
func Default() *Table {
	t, err := parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("embedded elements.yaml: %v", err))
	}
	return t
}

// Load reads a table from path. An empty path returns the embedded table.
// A file that sets only one list keeps the embedded value for the other.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading elements file: %w", err)
	}
	var override Table
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing elements file %s: %w", path, err)
	}
	t := Default()
	if len(override.All) > 0 {
		t.All = override.All
	}
	if len(override.Metals) > 0 {
		t.Metals = override.Metals
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("elements file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks that both lists are non-empty, free of duplicates and
// that every metal also appears in All.
func (t *Table) Validate() error {
	if len(t.All) == 0 {
		return fmt.Errorf("element list 'all' is empty")
	}
	if len(t.Metals) == 0 {
		return fmt.Errorf("element list 'metals' is empty")
	}
	all, err := toSet("all", t.All)
	if err != nil {
		return err
	}
	if _, err := toSet("metals", t.Metals); err != nil {
		return err
	}
	for _, m := range t.Metals {
		if !all[m] {
			return fmt.Errorf("metal %q is not in the 'all' list", m)
		}
	}
	return nil
}

// List returns the named list: "all" or "metals".
func (t *Table) List(name string) ([]string, error) {
	switch name {
	case "all":
		return t.All, nil
	case "metals":
		return t.Metals, nil
	default:
		return nil, fmt.Errorf("unknown element list %q: use all or metals", name)
	}
}

// IsMetal reports whether symbol is in the metals list.
func (t *Table) IsMetal(symbol string) bool {
	for _, m := range t.Metals {
		if m == symbol {
			return true
		}
	}
	return false
}

func parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func toSet(name string, list []string) (map[string]bool, error) {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		if s == "" {
			return nil, fmt.Errorf("empty symbol in list %q", name)
		}
		if set[s] {
			return nil, fmt.Errorf("duplicate symbol %q in list %q", s, name)
		}
		set[s] = true
	}
	return set, nil
}
