// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/cgebler-biproservice/LichessAnnualStats/internal/version.Version=1.0.0 \
//	                   -X github.com/cgebler-biproservice/LichessAnnualStats/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent is sent with every request to lichess.org.
func UserAgent() string {
	return "lichess-recap/" + Version
}
