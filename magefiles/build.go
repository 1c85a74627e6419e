//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

// Compiles every package.
func (Build) All() error {
	return sh.RunV("go", "build", "./...")
}

// Builds the splitc binary.
func (Build) Splitc() error {
	return sh.RunV("go", "build", "-o", "bin/splitc", "./cmd/splitc")
}

type Test mg.Namespace

// Runs the full test suite.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Runs the test suite with the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vets every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Compiles, vets, and tests.
func Check() error {
	mg.Deps(Build.All, Lint)
	return sh.RunV("go", "test", "./...")
}
