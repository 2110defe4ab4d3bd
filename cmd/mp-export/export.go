// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mp-export/internal/cache"
	"github.com/pdiddy/mp-export/internal/elements"
	"github.com/pdiddy/mp-export/internal/export"
	"github.com/pdiddy/mp-export/internal/mpapi"
	"github.com/pdiddy/mp-export/internal/profile"
	"github.com/pdiddy/mp-export/internal/secrets"
	"github.com/pdiddy/mp-export/pkg/types"
)

const (
	defaultTimeout   = 5 * time.Minute
	defaultUserAgent = "mp-export/0.1"
)

// defaultOutputs maps built-in profiles to their conventional output names.
var defaultOutputs = map[string]string{
	"elasticity": "allelasticity.txt",
	"oxides":     "metal_oxides.txt",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Query Materials Project and write the selected records",
	Long: `Export runs one profile: it sends the profile's criteria to the Materials
Project API (or reuses a cached response), drops invalid and duplicate
entries, and writes one row per (formula, space group) pair.

The API key is read from --api-key, MP_EXPORT_API_KEY or api_key in the
config file, MP_API_KEY, or .secrets/mp-api-key, in that order.`,
	Example: `  mp-export export --profile elasticity
  mp-export export --profile oxides --format xlsx --output out/oxides.xlsx
  mp-export export --profile-file magnetic.yaml --input saved-response.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("profile", "elasticity", "built-in profile: elasticity or oxides")
	exportCmd.Flags().String("profile-file", "", "YAML profile file (overrides --profile)")
	exportCmd.Flags().String("output", "", "output file (default depends on the profile)")
	exportCmd.Flags().String("format", "tsv", "output format: tsv or xlsx")
	exportCmd.Flags().String("input", "", "read a saved API response instead of querying")
	exportCmd.Flags().String("api-key", "", "Materials Project API key")
	exportCmd.Flags().String("endpoint", mpapi.DefaultEndpoint, "Materials Project REST base URL")
	exportCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 5m)")
	exportCmd.Flags().Int("max-retries", 5, "retries on rate limiting and gateway errors (0 disables, negative uses the default)")
	exportCmd.Flags().Bool("no-cache", false, "neither read nor write the response cache")
	exportCmd.Flags().Bool("refresh", false, "ignore cached responses but store the new one")
	exportCmd.Flags().Bool("quiet", false, "suppress per-row progress")

	for key, flag := range map[string]string{
		"api_key":     "api-key",
		"endpoint":    "endpoint",
		"timeout":     "timeout",
		"max_retries": "max-retries",
		"format":      "format",
		"no_cache":    "no-cache",
	} {
		viper.BindPFlag(key, exportCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := exportConfig(cmd)
	qcfg := queryConfig()
	ccfg := cacheConfig()
	refresh, _ := cmd.Flags().GetBool("refresh")

	p, err := loadProfile(cfg)
	if err != nil {
		return err
	}
	tbl, err := elements.Load(cfg.ElementsFile)
	if err != nil {
		return err
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = defaultOutput(p.Name, cfg.Format)
	}

	src := export.Source{
		InputFile: cfg.InputFile,
		Endpoint:  qcfg.Endpoint,
		Refresh:   refresh,
	}
	var store *cache.Store
	if cfg.InputFile == "" {
		src.Fetcher = mpapi.NewClient(qcfg, os.Stderr)
		if !ccfg.Disabled {
			store, err = cache.Open(ccfg)
			if err != nil {
				return err
			}
			defer store.Close()
			src.Cache = store
		}
	}

	summary, err := export.Run(context.Background(), export.Options{
		Profile:    p,
		Elements:   tbl,
		Format:     cfg.Format,
		OutputPath: cfg.OutputPath,
		Quiet:      cfg.Quiet,
	}, src, os.Stdout)
	if err != nil {
		return err
	}
	if summary.RunID != "" {
		fmt.Fprintf(os.Stderr, "run %s recorded in %s\n", summary.RunID, store.Path())
	}
	return nil
}

func exportConfig(cmd *cobra.Command) types.ExportConfig {
	name, _ := cmd.Flags().GetString("profile")
	profileFile, _ := cmd.Flags().GetString("profile-file")
	output, _ := cmd.Flags().GetString("output")
	input, _ := cmd.Flags().GetString("input")
	quiet, _ := cmd.Flags().GetBool("quiet")

	return types.ExportConfig{
		Profile:      name,
		ProfileFile:  profileFile,
		ElementsFile: viper.GetString("elements_file"),
		OutputPath:   output,
		Format:       types.OutputFormat(strings.ToLower(viper.GetString("format"))),
		InputFile:    input,
		Quiet:        quiet,
	}
}

func queryConfig() types.QueryConfig {
	timeout := viper.GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return types.QueryConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    timeout,
			UserAgent:  defaultUserAgent,
			MaxRetries: viper.GetInt("max_retries"),
		},
		Endpoint: viper.GetString("endpoint"),
		APIKey:   secrets.APIKey(loadedSecrets, viper.GetString("api_key")),
	}
}

func cacheConfig() types.CacheConfig {
	return types.CacheConfig{
		Dir:      viper.GetString("cache_dir"),
		Disabled: viper.GetBool("no_cache"),
	}
}

func loadProfile(cfg types.ExportConfig) (*profile.Profile, error) {
	if cfg.ProfileFile != "" {
		return profile.Load(cfg.ProfileFile)
	}
	return profile.Builtin(cfg.Profile)
}

func defaultOutput(name string, format types.OutputFormat) string {
	out, ok := defaultOutputs[name]
	if !ok {
		out = name + ".txt"
	}
	if format == types.OutputXLSX {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ".xlsx"
	}
	return out
}
