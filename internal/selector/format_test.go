// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{-20, "-20.0"},
		{0, "0.0"},
		{-6.7025, "-6.7025"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e-5, "1e-05"},
		{2.5e16, "2.5e+16"},
		{123456789.5, "123456789.5"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NA", FormatValue(nil))
	assert.Equal(t, "mp-19770", FormatValue("mp-19770"))
	assert.Equal(t, "5.26", FormatValue(json.Number("5.26")))
	assert.Equal(t, "225", FormatValue(json.Number("225")))
	assert.Equal(t, "225", FormatValue(225))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, `{"O":3}`, FormatValue(map[string]any{"O": json.Number("3")}))
}

func TestCompositionGCD(t *testing.T) {
	tests := []struct {
		name    string
		comp    Composition
		want    int
		wantErr bool
	}{
		{"single element", Composition{"Si": 8}, 8, false},
		{"coprime", Composition{"Fe": 3, "O": 4}, 1, false},
		{"common factor", Composition{"Fe": 4, "O": 6}, 2, false},
		{"zero count ignored", Composition{"Fe": 0, "O": 6}, 6, false},
		{"all zero", Composition{"Fe": 0}, 0, true},
		{"empty", Composition{}, 0, true},
		{"fractional", Composition{"Fe": 2.5}, 0, true},
		{"beyond int32", Composition{"Fe": 1e19}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.comp.GCD()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

func TestParseComposition(t *testing.T) {
	c, err := ParseComposition(map[string]any{"Fe": json.Number("2"), "O": 3.0})
	require.NoError(t, err)
	assert.Equal(t, Composition{"Fe": 2, "O": 3}, c)
	assert.Equal(t, []string{"Fe", "O"}, c.Elements())
	assert.Equal(t, "2", c.Cell("Fe"))
	assert.Equal(t, "0", c.Cell("Ni"))

	_, err = ParseComposition([]any{"Fe"})
	assert.Error(t, err)

	_, err = ParseComposition(map[string]any{"Fe": json.Number("-1")})
	assert.Error(t, err)
}
