//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	binary     = "bin/tabfy"
	versionPkg = "github.com/dkoosis/tabfy/internal/version"
)

// Default target - build the binary
var Default = Build

// Build builds the tabfy binary with version metadata.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", binary, "./cmd/tabfy")
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(binDir)
}

// QA runs formatting, vet, lint and the race-enabled test suite.
func QA() {
	mg.SerialDeps(Lint.Format, Lint.Vet, Lint.Golangci, Test.Race)
}

type Lint mg.Namespace

// All runs every linter.
func (Lint) All() {
	mg.SerialDeps(Lint.Format, Lint.Vet, Lint.Golangci)
}

// Format fails when gofmt would change a file.
func (Lint) Format() error {
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("files need gofmt:\n%s", out)
	}
	return nil
}

// Vet runs go vet.
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Golangci runs golangci-lint when it is installed.
func (Lint) Golangci() error {
	err := sh.RunV("golangci-lint", "run", "--timeout=5m", "./...")
	if err != nil && !sh.CmdRan(err) {
		fmt.Println("golangci-lint not found (install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest)")
		return nil
	}
	return err
}

type Test mg.Namespace

// All runs the test suite.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs the test suite with the race detector.
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Coverage writes coverage.out and prints the per-function summary.
func (Test) Coverage() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}

func ldflags() string {
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	ver, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		ver = "dev"
	}
	return strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X %s.Version=%s", versionPkg, ver),
		fmt.Sprintf("-X %s.CommitHash=%s", versionPkg, commit),
		fmt.Sprintf("-X %s.BuildDate=%s", versionPkg, time.Now().UTC().Format(time.RFC3339)),
	}, " ")
}
