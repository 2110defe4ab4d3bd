// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package elements

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tbl := Default()
	require.NoError(t, tbl.Validate())

	assert.Len(t, tbl.All, 103)
	assert.Equal(t, "H", tbl.All[0])
	assert.Equal(t, "Lr", tbl.All[len(tbl.All)-1])

	assert.True(t, tbl.IsMetal("Fe"))
	assert.True(t, tbl.IsMetal("La"))
	assert.False(t, tbl.IsMetal("O"))
	assert.False(t, tbl.IsMetal("Si"))
	assert.NotContains(t, tbl.Metals, "O")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantMetals []string
		wantAll    int
		errMsg     string
	}{
		{
			name:       "metals override keeps embedded all",
			content:    "metals: [V, Ru, Ir, Ti]\n",
			wantMetals: []string{"V", "Ru", "Ir", "Ti"},
			wantAll:    103,
		},
		{
			name:       "both lists",
			content:    "all: [O, Fe, Ni]\nmetals: [Fe, Ni]\n",
			wantMetals: []string{"Fe", "Ni"},
			wantAll:    3,
		},
		{
			name:    "metal outside all",
			content: "all: [O, Fe]\nmetals: [Fe, Ni]\n",
			errMsg:  `metal "Ni" is not in the 'all' list`,
		},
		{
			name:    "duplicate symbol",
			content: "metals: [Fe, Fe]\n",
			errMsg:  `duplicate symbol "Fe" in list "metals"`,
		},
		{
			name:    "invalid yaml",
			content: "metals: [Fe\n",
			errMsg:  "parsing elements file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "elements.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			tbl, err := Load(path)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMetals, tbl.Metals)
			assert.Len(t, tbl.All, tt.wantAll)
		})
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tbl)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading elements file")
}

func TestList(t *testing.T) {
	tbl := Default()

	all, err := tbl.List("all")
	require.NoError(t, err)
	assert.Equal(t, tbl.All, all)

	metals, err := tbl.List("metals")
	require.NoError(t, err)
	assert.Equal(t, tbl.Metals, metals)

	_, err = tbl.List("nonmetals")
	assert.Error(t, err)
}
