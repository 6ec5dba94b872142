package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/campus/internal/dagger"
)

// binaries are the main packages shipped in a release.
var binaries = []string{"./cli/campus", "./cli/campusgw"}

// Build and return directory of go binaries
func (c *Campus) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	// The sqlite driver needs cgo, so cross builds go through zig cc.
	golang := c.goContainer().
		WithExec([]string{"sh", "-c", "curl -sSfL https://ziglang.org/download/0.13.0/zig-linux-x86_64-0.13.0.tar.xz | tar -xJ -C /opt"}).
		WithEnvVariable("PATH", "/opt/zig-linux-x86_64-0.13.0:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true})

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", "zig cc -target "+zigTarget(goos, goarch))
			for _, bin := range binaries {
				build = build.WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, bin})
			}

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

func zigTarget(goos, goarch string) string {
	arch := "x86_64"
	if goarch == "arm64" {
		arch = "aarch64"
	}
	if goos == "darwin" {
		return arch + "-macos"
	}
	return arch + "-linux-gnu"
}

// BuildRelease compiles versioned release binaries with embedded version info
func (c *Campus) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/campusai/campus/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/campusai/campus/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/campusai/campus/pkg/utils.Buildtime=%s'", buildtime),
	}

	return c.Build(ctx, strings.Join(ldflags, " "))
}
