// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mp-export CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mp-export/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the mp-export CLI.
var rootCmd = &cobra.Command{
	Use:   "mp-export",
	Short: "Export Materials Project records to flat files",
	Long: `mp-export queries the Materials Project database for crystal structures
matching a profile, keeps one entry per (formula, space group) pair, rescales
the total energy per formula unit and writes the selected fields to a
tab-separated file.

Built-in profiles: elasticity (all compounds with elastic constants) and
oxides (binary metal oxides with a band gap).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mp-export.yaml or ~/.config/mp-export/config.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", ".mp-cache", "directory holding the response cache database")
	rootCmd.PersistentFlags().String("elements-file", "", "YAML file overriding the metals and all-elements lists")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("elements_file", rootCmd.PersistentFlags().Lookup("elements-file"))
}

func initConfig() {
	// Variables already in the environment win over .env entries.
	if err := secrets.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mp-export")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mp-export"))
		}
	}

	viper.SetEnvPrefix("MP_EXPORT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
