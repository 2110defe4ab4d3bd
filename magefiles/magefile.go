//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for mp-export developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "mp-export"
	cmdPkg  = "./cmd/mp-export"
)

// workDirs lists the directories an export run writes into.
var workDirs = []string{
	".mp-cache",
	".secrets",
	"output",
}

// Init creates the cache, secrets and output directories.
func Init() error {
	for _, dir := range workDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Working directories initialized. Put your API key in .secrets/mp-api-key.")
	return nil
}

// Build compiles the CLI binary into bin/, stamping the version from git
// when one is available.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version := "dev"
	if v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && v != "" {
		version = v
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Golden rewrites the export golden files from the current output.
func Golden() error {
	return sh.RunV("go", "test", "./internal/export/", "-update")
}

// Stats prints project metrics: Go production and test line counts.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// Clean removes the binary directory.
func Clean() error {
	return sh.Rm(binDir)
}

// Export builds the binary and runs every built-in profile into output/.
func Export() error {
	mg.Deps(Build, Init)
	bin := filepath.Join(binDir, binName)
	for _, p := range []string{"elasticity", "oxides"} {
		out := filepath.Join("output", defaultOutput(p))
		if err := sh.RunV(bin, "export", "--profile", p, "--output", out, "--quiet"); err != nil {
			return fmt.Errorf("exporting %s: %w", p, err)
		}
	}
	return nil
}

func defaultOutput(profile string) string {
	switch profile {
	case "elasticity":
		return "allelasticity.txt"
	case "oxides":
		return "metal_oxides.txt"
	}
	return profile + ".txt"
}

// countGoLines walks the tree and counts non-blank lines in Go files,
// skipping directories that start with an underscore. testOnly selects _test.go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), "_") || info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}
