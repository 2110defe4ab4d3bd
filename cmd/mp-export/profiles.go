// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mp-export/internal/elements"
	"github.com/pdiddy/mp-export/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List, inspect and save export profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(os.Stdout, "%-12s  %s\n", "Profile", "Description")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
		for _, name := range profile.Names() {
			p, err := profile.Builtin(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%-12s  %s\n", p.Name, p.Description)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile's criteria, requested properties and columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profileFromArgOrFile(args[0])
		if err != nil {
			return err
		}
		tbl, err := elements.Load(viper.GetString("elements_file"))
		if err != nil {
			return err
		}
		cfg, err := p.SelectorConfig(tbl)
		if err != nil {
			return err
		}
		criteria, err := json.Marshal(p.Criteria)
		if err != nil {
			return fmt.Errorf("encoding criteria: %w", err)
		}

		fmt.Printf("name:       %s\n", p.Name)
		fmt.Printf("criteria:   %s\n", criteria)
		fmt.Printf("properties: %s\n", strings.Join(p.Properties(), ", "))
		fmt.Printf("columns:    %d\n", len(cfg.Header()))
		fmt.Println(strings.Join(cfg.Header(), " "))
		return nil
	},
}

var profilesSaveCmd = &cobra.Command{
	Use:   "save [name] [path]",
	Short: "Write a built-in profile to a YAML file as a starting point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Builtin(args[0])
		if err != nil {
			return err
		}
		if err := p.Write(args[1]); err != nil {
			return err
		}
		fmt.Printf("Saved profile %s to %s\n", p.Name, args[1])
		return nil
	},
}

func profileFromArgOrFile(arg string) (*profile.Profile, error) {
	if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
		return profile.Load(arg)
	}
	return profile.Builtin(arg)
}

func init() {
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesSaveCmd)
	rootCmd.AddCommand(profilesCmd)
}
