// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selector turns raw Materials Project records into flat export rows.
// It filters records by validity, deduplicates them by (formula, space group)
// with the first occurrence winning, rescales the energy to a per-formula-unit
// basis and materializes element-count columns.
package selector

import (
	"errors"
	"fmt"

	"github.com/pdiddy/mp-export/pkg/types"
)

// ErrMalformed marks a record that lacks an expected field or carries a
// value that cannot be interpreted. Normalize aborts on the first one.
var ErrMalformed = errors.New("malformed record")

// NA is written for missing or null values.
const NA = "NA"

// Default property names used by the Materials Project API.
const (
	FieldFormula    = "pretty_formula"
	FieldSpaceGroup = "spacegroup.number"
	FieldUnitCell   = "unit_cell_formula"
	FieldReduced    = "reduced_cell_formula"
	FieldEnergy     = "energy"
)

// MaxSpaceGroup is the highest crystallographic space group number.
const MaxSpaceGroup = 230

// DetailField is an exported property whose null or absent value is
// written as NA. When Parent is set the value is read from the nested
// object Parent (e.g. elasticity.G_VRH); a null parent yields NA.
type DetailField struct {
	Name   string
	Parent string
}

// Predicate reports whether a record with the given space group and
// unit-cell composition should be exported. Returning false rejects the
// record without error and without marking its key as seen.
type Predicate func(spaceGroup int, unitCell Composition) bool

// PositiveSpaceGroup accepts any record with a space group number above zero.
func PositiveSpaceGroup(spaceGroup int, _ Composition) bool {
	return spaceGroup > 0
}

// AllowedElements accepts records whose unit cell contains at least
// minElements distinct elements, all drawn from allowed, on top of the
// positive space group check.
func AllowedElements(allowed []string, minElements int) Predicate {
	set := make(map[string]bool, len(allowed))
	for _, el := range allowed {
		set[el] = true
	}
	return func(spaceGroup int, unitCell Composition) bool {
		if !PositiveSpaceGroup(spaceGroup, unitCell) {
			return false
		}
		if len(unitCell) < minElements {
			return false
		}
		for el := range unitCell {
			if !set[el] {
				return false
			}
		}
		return true
	}
}

// Config fixes the columns and the validity predicate of a selection pass.
type Config struct {
	// BasicFields are written verbatim, except EnergyField which is
	// divided by the unit-cell GCD.
	BasicFields []string

	// EnergyField names the extensive energy property (default "energy").
	EnergyField string

	DetailFields []DetailField

	// Universe lists the elements materialized as count columns, in order.
	Universe []string

	// Trailing lists element columns appended after the universe
	// (the oxide export puts O here).
	Trailing []string

	// Predicate defaults to PositiveSpaceGroup.
	Predicate Predicate
}

// Header returns the column names in output order.
func (c Config) Header() []string {
	h := make([]string, 0, len(c.BasicFields)+len(c.DetailFields)+len(c.Universe)+len(c.Trailing))
	h = append(h, c.BasicFields...)
	for _, f := range c.DetailFields {
		h = append(h, f.Name)
	}
	h = append(h, c.Universe...)
	h = append(h, c.Trailing...)
	return h
}

// Key identifies a material for deduplication.
type Key struct {
	Formula    string
	SpaceGroup int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Formula, k.SpaceGroup)
}

// Row is one normalized output line.
type Row struct {
	Key     Key
	Divisor int
	Cells   []string
}

// Result holds the selected rows and rejection counts.
type Result struct {
	Rows       []Row
	Invalid    int
	Duplicates int
}

// Normalizer owns the seen-key set for one selection pass. Rows are
// produced in input order and a key, once emitted, is never emitted again.
type Normalizer struct {
	cfg  Config
	seen map[Key]struct{}
}

// New returns a Normalizer with an empty seen-key set.
func New(cfg Config) *Normalizer {
	if cfg.EnergyField == "" {
		cfg.EnergyField = FieldEnergy
	}
	if cfg.Predicate == nil {
		cfg.Predicate = PositiveSpaceGroup
	}
	return &Normalizer{cfg: cfg, seen: make(map[Key]struct{})}
}

// Normalize is shorthand for New(cfg).Process(records).
func Normalize(cfg Config, records []types.Record) (Result, error) {
	return New(cfg).Process(records)
}

// Process runs every record through Select and collects the rows. It
// stops at the first malformed record.
func (n *Normalizer) Process(records []types.Record) (Result, error) {
	var res Result
	for i, rec := range records {
		row, outcome, err := n.Select(rec)
		if err != nil {
			return res, fmt.Errorf("record %d of %d: %w", i+1, len(records), err)
		}
		switch outcome {
		case Accepted:
			res.Rows = append(res.Rows, row)
		case RejectedInvalid:
			res.Invalid++
		case RejectedDuplicate:
			res.Duplicates++
		}
	}
	return res, nil
}

// Outcome classifies what Select did with a record.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalid
	RejectedDuplicate
)

// Select normalizes a single record. The key is recorded as seen only
// when the record is accepted.
func (n *Normalizer) Select(rec types.Record) (Row, Outcome, error) {
	sgVal, ok := rec.Lookup(FieldSpaceGroup)
	if !ok || sgVal == nil {
		return Row{}, RejectedInvalid, nil
	}
	sg, err := toInt(sgVal)
	if err != nil {
		return Row{}, 0, malformed(rec, "%s: %v", FieldSpaceGroup, err)
	}
	if sg <= 0 {
		return Row{}, RejectedInvalid, nil
	}
	if sg > MaxSpaceGroup {
		return Row{}, 0, malformed(rec, "%s: %d is outside 1-%d", FieldSpaceGroup, sg, MaxSpaceGroup)
	}

	formula, ok := rec[FieldFormula].(string)
	if !ok || formula == "" {
		return Row{}, 0, malformed(rec, "missing %s", FieldFormula)
	}
	key := Key{Formula: formula, SpaceGroup: sg}
	if _, dup := n.seen[key]; dup {
		return Row{}, RejectedDuplicate, nil
	}

	unitCell, err := compositionField(rec, FieldUnitCell)
	if err != nil {
		return Row{}, 0, err
	}
	if !n.cfg.Predicate(sg, unitCell) {
		return Row{}, RejectedInvalid, nil
	}
	divisor, err := unitCell.GCD()
	if err != nil {
		return Row{}, 0, malformed(rec, "%s: %v", FieldUnitCell, err)
	}

	cells := make([]string, 0, len(n.cfg.Header()))
	for _, f := range n.cfg.BasicFields {
		cell, err := n.basicCell(rec, f, divisor)
		if err != nil {
			return Row{}, 0, err
		}
		cells = append(cells, cell)
	}
	for _, f := range n.cfg.DetailFields {
		cells = append(cells, detailCell(rec, f))
	}

	if len(n.cfg.Universe)+len(n.cfg.Trailing) > 0 {
		reduced, err := compositionField(rec, FieldReduced)
		if err != nil {
			return Row{}, 0, err
		}
		for _, el := range n.cfg.Universe {
			cells = append(cells, reduced.Cell(el))
		}
		// Trailing elements must be present.
		for _, el := range n.cfg.Trailing {
			if _, ok := reduced[el]; !ok {
				return Row{}, 0, malformed(rec, "missing %s in %s", el, FieldReduced)
			}
			cells = append(cells, reduced.Cell(el))
		}
	}

	n.seen[key] = struct{}{}
	return Row{Key: key, Divisor: divisor, Cells: cells}, Accepted, nil
}

func (n *Normalizer) basicCell(rec types.Record, field string, divisor int) (string, error) {
	v, ok := rec.Lookup(field)
	if !ok {
		return "", malformed(rec, "missing %s", field)
	}
	if v == nil {
		return NA, nil
	}
	if field != n.cfg.EnergyField {
		return FormatValue(v), nil
	}
	energy, err := toFloat(v)
	if err != nil {
		return "", malformed(rec, "%s: %v", field, err)
	}
	return FormatFloat(energy / float64(divisor)), nil
}

func detailCell(rec types.Record, f DetailField) string {
	var v any
	var ok bool
	if f.Parent == "" {
		v, ok = rec.Lookup(f.Name)
	} else {
		parent, present := rec.Lookup(f.Parent)
		if m, isMap := parent.(map[string]any); present && isMap {
			v, ok = m[f.Name]
		}
	}
	if !ok || v == nil {
		return NA
	}
	return FormatValue(v)
}

func compositionField(rec types.Record, field string) (Composition, error) {
	v, ok := rec.Lookup(field)
	if !ok || v == nil {
		return nil, malformed(rec, "missing %s", field)
	}
	c, err := ParseComposition(v)
	if err != nil {
		return nil, malformed(rec, "%s: %v", field, err)
	}
	return c, nil
}

func malformed(rec types.Record, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrMalformed, rec.Describe(), fmt.Sprintf(format, args...))
}
