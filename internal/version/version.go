// Package version exposes build metadata injected via -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/ragline/ragline/internal/version.Version=v1.2.0 \
//	                   -X github.com/ragline/ragline/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = "unknown"
)
