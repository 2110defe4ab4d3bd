// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "mp-export/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries caps retries on rate limiting and gateway errors. Zero
	// disables retrying; a negative value uses the default of 5.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// QueryConfig holds settings for the Materials Project query.
type QueryConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the REST base URL; the client appends /query.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as X-API-KEY. Never hard-coded; see the config
	// precedence in cmd/mp-export.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// CacheConfig holds settings for the local response cache.
type CacheConfig struct {
	// Dir is the directory holding the cache database.
	Dir string `json:"dir" yaml:"dir"`

	// Disabled skips both cache reads and writes.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// OutputFormat selects the export file format.
type OutputFormat string

const (
	OutputTSV  OutputFormat = "tsv"
	OutputXLSX OutputFormat = "xlsx"
)

// ExportConfig holds settings for a single export run.
type ExportConfig struct {
	// Profile names a built-in profile (elasticity, oxides).
	Profile string `json:"profile" yaml:"profile"`

	// ProfileFile, when set, loads the profile from a YAML file instead.
	ProfileFile string `json:"profile_file,omitempty" yaml:"profile_file,omitempty"`

	// ElementsFile, when set, overrides the embedded element lists.
	ElementsFile string `json:"elements_file,omitempty" yaml:"elements_file,omitempty"`

	// OutputPath is the file the rows are written to.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// Format selects tsv or xlsx.
	Format OutputFormat `json:"format" yaml:"format"`

	// InputFile replays a saved API response instead of querying the network.
	InputFile string `json:"input_file,omitempty" yaml:"input_file,omitempty"`

	// Quiet suppresses per-row progress lines.
	Quiet bool `json:"quiet" yaml:"quiet"`
}
