//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert converts every PDF under papers/raw to Markdown.
func Convert() error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath, "convert", "--all")
}

// Serve starts the HTTP API on the configured address.
func Serve() error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath, "serve")
}
