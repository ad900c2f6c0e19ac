// Package version holds build metadata for the pdfqa binary, set with
// -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/pdfqa-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/pdfqa-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/pdfqa-go/internal/version.BuildDate=2026-01-01" ./cmd/pdfqa
//
// Unset values fall back to readable defaults.
package version

import "fmt"

// Version is the release version, "dev" for local builds.
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date.
var BuildDate = "unknown"

// Info is the build metadata as reported by `pdfqa version` and /api/health.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

// String formats the metadata on one line.
func (i Info) String() string {
	return fmt.Sprintf("pdfqa %s (commit %s, built %s)", i.Version, i.Commit, i.BuildDate)
}
