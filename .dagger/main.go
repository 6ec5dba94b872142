// Campus CI/CD
//
// Package main provides reproducible builds, tests and lint checks for the
// campus gateway and CLI, locally and in GitHub actions.
package main

import (
	"context"

	"dagger/campus/internal/dagger"
)

// Campus is the main module for the campus CI/CD pipeline
type Campus struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Campus CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", "build", "tmp", ".campus", "_examples"]
	source *dagger.Directory,
) *Campus {
	return &Campus{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc and
// libsqlite3-dev for the mattn/go-sqlite3 news store, CGO enabled, and the
// project source mounted.
func (c *Campus) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", c.Source)
}

// Test runs the campus ginkgo suites via "go test"
func (c *Campus) Test(ctx context.Context) (string, error) {
	return c.goContainer().
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}

// Vet runs "go vet" over every package.
func (c *Campus) Vet(ctx context.Context) (string, error) {
	return c.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}
