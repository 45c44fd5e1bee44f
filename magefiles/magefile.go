//go:build mage

// Package main contains Mage build targets for smartpaper developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"papers/raw",
	"papers/markdown",
	"papers/metadata",
	"papers/images",
	"db",
	"outputs",
	".secrets",
}

// Init creates the project directory structure for the pipeline.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "smartpaper"
	cmdPkg  = "./cmd/smartpaper"
)

var binPath = filepath.Join(binDir, binName)

// Build compiles the CLI binary into bin/. go-sqlite3 needs cgo.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	if err := sh.RunWithV(env, "go", "build", "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", binPath)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// skipDirs are not counted by Stats.
var skipDirs = map[string]bool{
	".git":      true,
	"_examples": true,
	"bin":       true,
	"papers":    true,
	"outputs":   true,
	"db":        true,
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
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

// countDocWords walks root and counts words in .md and .yaml files outside
// skipped directories.
func countDocWords(root string) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".yaml", ".yml":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
		return nil
	})
	return total, err
}
