// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/mp-export/pkg/types"
)

func TestTSVWriter(t *testing.T) {
	tests := []struct {
		name        string
		trailingTab bool
		rows        [][]string
		want        string
	}{
		{"trailing tab", true, [][]string{{"a", "b"}, {"1", "NA"}}, "a\tb\t\n1\tNA\t\n"},
		{"separated", false, [][]string{{"a", "b", "O"}, {"1", "NA", "3"}}, "a\tb\tO\n1\tNA\t3\n"},
		{"empty row", false, [][]string{{}}, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewTSV(&buf, tt.trailingTab)
			for _, r := range tt.rows {
				require.NoError(t, w.WriteRow(r))
			}
			require.NoError(t, w.Close())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestCreateTSVCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	w, err := CreateTSV(path, true)
	require.NoError(t, err)
	require.NoError(t, w.WriteRow([]string{"x"}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\t\n", string(data))
}

func TestCreateUnsupportedFormat(t *testing.T) {
	_, err := Create(types.OutputFormat("csv"), filepath.Join(t.TempDir(), "o"), "", true)
	assert.ErrorContains(t, err, `unsupported format "csv"`)
}

func TestXLSXWriterNumericCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w, err := CreateXLSX(path, "elasticity")
	require.NoError(t, err)
	require.NoError(t, w.WriteRow([]string{"pretty_formula", "energy", "G_VRH"}))
	require.NoError(t, w.WriteRow([]string{"MgO", "-11.9", "NA"}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	typ, err := f.GetCellType("elasticity", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	rows := readXLSX(t, path, "elasticity")
	assert.Equal(t, [][]string{{"pretty_formula", "energy", "G_VRH"}, {"MgO", "-11.9", "NA"}}, rows)
}

func TestXLSXWriterKeepsNonFiniteSpellingsAsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	w, err := CreateXLSX(path, "oxides")
	require.NoError(t, err)
	require.NoError(t, w.WriteRow([]string{"pretty_formula", "note", "other", "energy"}))
	require.NoError(t, w.WriteRow([]string{"NaN", "Inf", "infinity", "-2.5"}))
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, cell := range []string{"A2", "B2", "C2"} {
		typ, err := f.GetCellType("oxides", cell)
		require.NoError(t, err)
		assert.Contains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ, cell)
	}
	typ, err := f.GetCellType("oxides", "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)

	rows := readXLSX(t, path, "oxides")
	assert.Equal(t, []string{"NaN", "Inf", "infinity", "-2.5"}, rows[1])
}

func readXLSX(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}
