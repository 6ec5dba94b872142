package main

import (
	"context"
	"fmt"

	"dagger/campus/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts layers golangci-lint on top of goContainer() so CGO and the Go
// caches are already in place.
func (c *Campus) lintOpts() dagger.GolangcilintOpts {
	base := c.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  c.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint without applying fixes.
func (c *Campus) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(c.Source, c.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint with --fix and returns the modified source.
func (c *Campus) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(c.Source, c.lintOpts()).Lint()
}
