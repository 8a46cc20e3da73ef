// Package version exposes build metadata stamped at link time:
//
//	go build -ldflags "-X github.com/acqdte/tradestate/internal/version.Version=1.0.0 \
//	                   -X github.com/acqdte/tradestate/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/acqdte/tradestate/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped builds report "dev".
package version

var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601).
	BuildTime = "unknown"
)

// String renders the version, commit, and build time on one line.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
