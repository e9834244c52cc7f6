package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/vilm/internal/dagger"
)

// Build and return a directory with the vilm binary for the host platform.
// The sqlite driver uses cgo, so cross compiling is left to the release
// runners of each platform.
func (v *Vilm) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	build := v.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/vilm"})

	return dag.Directory().WithDirectory("linux/", build.Directory("/out"))
}

// BuildRelease compiles a versioned binary with embedded version info
func (v *Vilm) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/vilm/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/vilm/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/vilm/pkg/utils.Buildtime=%s'", buildtime),
	}

	return v.Build(ctx, strings.Join(ldflags, " "))
}
