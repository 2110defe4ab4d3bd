// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mp-export/internal/elements"
)

var elementsCmd = &cobra.Command{
	Use:   "elements [all|metals]",
	Short: "Print the element lists used for composition columns and filters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := elements.Load(viper.GetString("elements_file"))
		if err != nil {
			return err
		}
		names := []string{"all", "metals"}
		if len(args) == 1 {
			names = args
		}
		for _, name := range names {
			list, err := tbl.List(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d): %s\n", name, len(list), strings.Join(list, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(elementsCmd)
}
