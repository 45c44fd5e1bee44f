//go:build mage

package main

import (
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// exampleURLs are the papers Examples acquires.
var exampleURLs = []string{
	"https://arxiv.org/abs/2303.08774",
	"https://arxiv.org/abs/2305.12002",
	"https://arxiv.org/abs/2310.06825",
	"https://arxiv.org/abs/2307.09288",
	"https://arxiv.org/abs/2312.11805",
}

// Acquire downloads papers given as a space-separated list of arXiv IDs or URLs.
func Acquire(ids string) error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath, append([]string{"acquire"}, strings.Fields(ids)...)...)
}

// Examples downloads and converts the example papers.
func Examples() error {
	mg.Deps(Build, Init)
	if err := sh.RunV(binPath, append([]string{"acquire"}, exampleURLs...)...); err != nil {
		return err
	}
	mg.Deps(Convert)
	return nil
}
