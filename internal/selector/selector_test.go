// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mp-export/pkg/types"
)

func decodeRecords(t *testing.T, s string) []types.Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var recs []types.Record
	require.NoError(t, dec.Decode(&recs))
	return recs
}

func elasticityCfg() Config {
	return Config{
		BasicFields: []string{"pretty_formula", "spacegroup.number", "energy"},
		DetailFields: []DetailField{
			{Name: "G_VRH", Parent: "elasticity"},
			{Name: "K_VRH", Parent: "elasticity"},
		},
		Universe: []string{"Fe", "O"},
	}
}

func TestNormalize_Fe2O3(t *testing.T) {
	recs := decodeRecords(t, `[{
		"pretty_formula": "Fe2O3",
		"spacegroup.number": 33,
		"unit_cell_formula": {"Fe": 4, "O": 6},
		"reduced_cell_formula": {"Fe": 2, "O": 3},
		"energy": -40.0,
		"elasticity": {"G_VRH": 80}
	}]`)

	res, err := Normalize(elasticityCfg(), recs)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, []string{"Fe2O3", "33", "-20.0", "80", "NA", "2", "3"}, row.Cells)
	assert.Equal(t, 2, row.Divisor)
	assert.Equal(t, Key{Formula: "Fe2O3", SpaceGroup: 33}, row.Key)
}

func TestNormalize_FirstDuplicateWins(t *testing.T) {
	recs := decodeRecords(t, `[
		{"pretty_formula": "MgO", "spacegroup.number": 225, "unit_cell_formula": {"Mg": 4, "O": 4},
		 "reduced_cell_formula": {"Mg": 1, "O": 1}, "energy": -47.6, "elasticity": {"G_VRH": 130}},
		{"pretty_formula": "MgO", "spacegroup.number": 225, "unit_cell_formula": {"Mg": 1, "O": 1},
		 "reduced_cell_formula": {"Mg": 1, "O": 1}, "energy": -11.9, "elasticity": {"G_VRH": 999}},
		{"pretty_formula": "MgO", "spacegroup.number": 186, "unit_cell_formula": {"Mg": 2, "O": 2},
		 "reduced_cell_formula": {"Mg": 1, "O": 1}, "energy": -23.0, "elasticity": null}
	]`)

	cfg := elasticityCfg()
	cfg.Universe = []string{"Mg", "O"}
	res, err := Normalize(cfg, recs)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, []string{"MgO", "225", "-11.9", "130", "NA", "1", "1"}, res.Rows[0].Cells)
	assert.Equal(t, []string{"MgO", "186", "-11.5", "NA", "NA", "1", "1"}, res.Rows[1].Cells)
}

func TestNormalize_NoRepeatedKeys(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	formulas := []string{"NaCl", "KCl", "NaCl", "LiF", "KCl", "NaCl"}
	for i, f := range formulas {
		if i > 0 {
			b.WriteString(",")
		}
		sg := "225"
		if i == 5 {
			sg = "221"
		}
		b.WriteString(`{"pretty_formula":"` + f + `","spacegroup.number":` + sg +
			`,"unit_cell_formula":{"X":4,"Y":4},"reduced_cell_formula":{"X":1,"Y":1},"energy":-8.0}`)
	}
	b.WriteString("]")

	res, err := Normalize(Config{BasicFields: []string{"pretty_formula", "energy"}}, decodeRecords(t, b.String()))
	require.NoError(t, err)

	seen := map[Key]bool{}
	for _, r := range res.Rows {
		assert.False(t, seen[r.Key], "key %s emitted twice", r.Key)
		seen[r.Key] = true
		assert.Equal(t, "-2.0", r.Cells[1])
	}
	assert.Len(t, res.Rows, 4)
	assert.Equal(t, 2, res.Duplicates)
}

func TestNormalize_RejectsNonPositiveSpaceGroup(t *testing.T) {
	recs := decodeRecords(t, `[
		{"pretty_formula": "Si", "spacegroup.number": 0, "unit_cell_formula": {"Si": 8}, "reduced_cell_formula": {"Si": 1}, "energy": -43.0},
		{"pretty_formula": "Si", "spacegroup.number": -1, "unit_cell_formula": {"Si": 8}, "reduced_cell_formula": {"Si": 1}, "energy": -43.0},
		{"pretty_formula": "Si", "spacegroup.number": null, "unit_cell_formula": {"Si": 8}, "reduced_cell_formula": {"Si": 1}, "energy": -43.0},
		{"pretty_formula": "Si", "unit_cell_formula": {"Si": 8}, "reduced_cell_formula": {"Si": 1}, "energy": -43.0},
		{"pretty_formula": "Si", "spacegroup.number": 227, "unit_cell_formula": {"Si": 8}, "reduced_cell_formula": {"Si": 1}, "energy": -43.0}
	]`)

	res, err := Normalize(Config{BasicFields: []string{"pretty_formula", "energy"}, Universe: []string{"Si"}}, recs)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Invalid)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"Si", "-5.375", "1"}, res.Rows[0].Cells)
}

func TestNormalize_NestedSpaceGroup(t *testing.T) {
	recs := decodeRecords(t, `[{"pretty_formula": "Cu", "spacegroup": {"number": 225, "symbol": "Fm-3m"},
		"unit_cell_formula": {"Cu": 4}, "reduced_cell_formula": {"Cu": 1}, "energy": -16.0}]`)

	res, err := Normalize(Config{BasicFields: []string{"pretty_formula", "spacegroup.number", "energy"}}, recs)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"Cu", "225", "-4.0"}, res.Rows[0].Cells)
}

func TestNormalize_DetailFieldsNA(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   []string
	}{
		{"null parent", `"elasticity": null`, []string{"NA", "NA"}},
		{"absent parent", `"density": 1.0`, []string{"NA", "NA"}},
		{"null child", `"elasticity": {"G_VRH": null, "K_VRH": 150.5}`, []string{"NA", "150.5"}},
		{"absent child", `"elasticity": {"K_VRH": 1}`, []string{"NA", "1"}},
		{"parent not an object", `"elasticity": "n/a"`, []string{"NA", "NA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := decodeRecords(t, `[{"pretty_formula": "Al", "spacegroup.number": 225,
				"unit_cell_formula": {"Al": 4}, "reduced_cell_formula": {"Al": 1}, "energy": -14.9, `+tt.record+`}]`)
			cfg := Config{
				DetailFields: []DetailField{{Name: "G_VRH", Parent: "elasticity"}, {Name: "K_VRH", Parent: "elasticity"}},
			}
			res, err := Normalize(cfg, recs)
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			assert.Equal(t, tt.want, res.Rows[0].Cells)
		})
	}
}

func TestNormalize_TopLevelDetailFields(t *testing.T) {
	recs := decodeRecords(t, `[{"pretty_formula": "ZnO", "spacegroup.number": 186,
		"unit_cell_formula": {"Zn": 2, "O": 2}, "reduced_cell_formula": {"Zn": 1, "O": 1},
		"energy": -18.2, "band_gap": 0.73, "efermi": null}]`)
	cfg := Config{DetailFields: []DetailField{{Name: "band_gap"}, {Name: "efermi"}, {Name: "total_magnetization"}}}

	res, err := Normalize(cfg, recs)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"0.73", "NA", "NA"}, res.Rows[0].Cells)
}

func TestNormalize_ElementColumns(t *testing.T) {
	recs := decodeRecords(t, `[{"pretty_formula": "LiFePO4", "spacegroup.number": 62,
		"unit_cell_formula": {"Li": 4, "Fe": 4, "P": 4, "O": 16},
		"reduced_cell_formula": {"Li": 1.0, "Fe": 1.0, "P": 1.0, "O": 4.0}, "energy": -191.2}]`)
	cfg := Config{Universe: []string{"H", "Li", "O", "P", "Fe", "Co"}}

	res, err := Normalize(cfg, recs)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"0", "1", "4", "1", "1", "0"}, res.Rows[0].Cells)
	assert.Equal(t, 4, res.Rows[0].Divisor)
}

func TestNormalize_OxidePredicate(t *testing.T) {
	recs := decodeRecords(t, `[
		{"pretty_formula": "O2", "spacegroup.number": 12, "unit_cell_formula": {"O": 8},
		 "reduced_cell_formula": {"O": 2}, "energy": -39.0, "band_gap": 2.1},
		{"pretty_formula": "SiO2", "spacegroup.number": 154, "unit_cell_formula": {"Si": 3, "O": 6},
		 "reduced_cell_formula": {"Si": 1, "O": 2}, "energy": -71.6, "band_gap": 5.7},
		{"pretty_formula": "TiO2", "spacegroup.number": 136, "unit_cell_formula": {"Ti": 2, "O": 4},
		 "reduced_cell_formula": {"Ti": 1, "O": 2}, "energy": -53.4, "band_gap": 1.8},
		{"pretty_formula": "TiO2", "spacegroup.number": 141, "unit_cell_formula": {"Ti": 4, "O": 8},
		 "reduced_cell_formula": {"Ti": 1, "O": 2}, "energy": -106.9, "band_gap": 2.1}
	]`)
	cfg := Config{
		BasicFields:  []string{"pretty_formula", "spacegroup.number", "energy"},
		DetailFields: []DetailField{{Name: "band_gap"}},
		Universe:     []string{"Ti", "V"},
		Trailing:     []string{"O"},
		Predicate:    AllowedElements([]string{"Ti", "V", "O"}, 2),
	}

	res, err := Normalize(cfg, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Invalid)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"TiO2", "136", "-26.7", "1.8", "1", "0", "2"}, res.Rows[0].Cells)
	assert.Equal(t, []string{"TiO2", "141", "-26.725", "2.1", "1", "0", "2"}, res.Rows[1].Cells)
}

func TestNormalize_RejectedRecordDoesNotClaimKey(t *testing.T) {
	recs := decodeRecords(t, `[
		{"pretty_formula": "CrO2", "spacegroup.number": 136, "unit_cell_formula": {"Cr": 2, "O": 4, "H": 1},
		 "reduced_cell_formula": {"Cr": 2, "O": 4, "H": 1}, "energy": -1.0},
		{"pretty_formula": "CrO2", "spacegroup.number": 136, "unit_cell_formula": {"Cr": 2, "O": 4},
		 "reduced_cell_formula": {"Cr": 1, "O": 2}, "energy": -37.0}
	]`)
	cfg := Config{
		BasicFields: []string{"energy"},
		Predicate:   AllowedElements([]string{"Cr", "O"}, 2),
	}

	res, err := Normalize(cfg, recs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 0, res.Duplicates)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"-18.5"}, res.Rows[0].Cells)
}

func TestNormalize_NullBasicFieldIsNA(t *testing.T) {
	recs := decodeRecords(t, `[{"task_id": "mp-1", "pretty_formula": "Na", "spacegroup.number": 229,
		"unit_cell_formula": {"Na": 2}, "reduced_cell_formula": {"Na": 1}, "energy": -2.6, "density": null}]`)

	res, err := Normalize(Config{BasicFields: []string{"task_id", "density"}}, recs)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"mp-1", "NA"}, res.Rows[0].Cells)
}

func TestNormalize_MalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		wantMsg string
	}{
		{
			"missing formula",
			`{"task_id": "mp-7", "spacegroup.number": 1, "unit_cell_formula": {"C": 2}, "reduced_cell_formula": {"C": 1}, "energy": 1}`,
			"mp-7: missing pretty_formula",
		},
		{
			"missing unit cell",
			`{"task_id": "mp-8", "pretty_formula": "C", "spacegroup.number": 1, "reduced_cell_formula": {"C": 1}, "energy": 1}`,
			"mp-8 (C): missing unit_cell_formula",
		},
		{
			"zero counts",
			`{"pretty_formula": "C", "spacegroup.number": 1, "unit_cell_formula": {"C": 0}, "reduced_cell_formula": {"C": 1}, "energy": 1}`,
			"C: unit_cell_formula: no positive atom counts",
		},
		{
			"non-integral counts",
			`{"pretty_formula": "C", "spacegroup.number": 1, "unit_cell_formula": {"C": 1.5}, "reduced_cell_formula": {"C": 1}, "energy": 1}`,
			"non-integral count 1.5 for C",
		},
		{
			"missing energy",
			`{"pretty_formula": "C", "spacegroup.number": 1, "unit_cell_formula": {"C": 2}, "reduced_cell_formula": {"C": 1}}`,
			"C: missing energy",
		},
		{
			"non-numeric energy",
			`{"pretty_formula": "C", "spacegroup.number": 1, "unit_cell_formula": {"C": 2}, "reduced_cell_formula": {"C": 1}, "energy": {"total": 1}}`,
			"C: energy: expected a number",
		},
		{
			"fractional space group",
			`{"pretty_formula": "C", "spacegroup.number": 2.5, "unit_cell_formula": {"C": 2}, "reduced_cell_formula": {"C": 1}, "energy": 1}`,
			"spacegroup.number: expected an integer",
		},
		{
			"space group beyond int range",
			`{"pretty_formula": "Fe", "spacegroup.number": 1e19, "unit_cell_formula": {"Fe": 1}, "reduced_cell_formula": {"Fe": 1}, "energy": 1}`,
			"spacegroup.number: integer 1e+19 out of range",
		},
		{
			"space group above 230",
			`{"pretty_formula": "Fe", "spacegroup.number": 231, "unit_cell_formula": {"Fe": 1}, "reduced_cell_formula": {"Fe": 1}, "energy": 1}`,
			"spacegroup.number: 231 is outside 1-230",
		},
		{
			"huge unit cell count",
			`{"pretty_formula": "Fe", "spacegroup.number": 229, "unit_cell_formula": {"Fe": 1e19}, "reduced_cell_formula": {"Fe": 1}, "energy": 1}`,
			"unit_cell_formula: count 1e+19 for Fe out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := decodeRecords(t, "["+tt.record+"]")
			_, err := Normalize(Config{BasicFields: []string{"energy"}, Universe: []string{"C"}}, recs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, err.Error(), "record 1 of 1")
		})
	}
}

func TestNormalize_MissingTrailingElement(t *testing.T) {
	recs := decodeRecords(t, `[{"task_id": "mp-2", "pretty_formula": "FeNi", "spacegroup.number": 221,
		"unit_cell_formula": {"Fe": 1, "Ni": 1}, "reduced_cell_formula": {"Fe": 1, "Ni": 1}, "energy": -15.2}]`)
	cfg := Config{
		BasicFields: []string{"pretty_formula"},
		Universe:    []string{"Fe", "Ni"},
		Trailing:    []string{"O"},
		Predicate:   AllowedElements([]string{"Fe", "Ni", "O"}, 2),
	}

	res, err := Normalize(cfg, recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "mp-2 (FeNi): missing O in reduced_cell_formula")
	assert.Empty(t, res.Rows)
}

func TestConfigHeader(t *testing.T) {
	cfg := Config{
		BasicFields:  []string{"task_id", "energy"},
		DetailFields: []DetailField{{Name: "band_gap"}, {Name: "G_VRH", Parent: "elasticity"}},
		Universe:     []string{"Fe", "Ni"},
		Trailing:     []string{"O"},
	}
	assert.Equal(t, []string{"task_id", "energy", "band_gap", "G_VRH", "Fe", "Ni", "O"}, cfg.Header())
}
