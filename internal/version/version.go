/*
Package version provides build version information for promptstruct.

Values are set via ldflags during build:

	go build -ldflags "-X github.com/khanglvm/promptstruct/internal/version.Version=v0.3.0"

If not set, the build reports itself as "dev".
*/
package version

// Version information (set via ldflags during build)
var (
	// Version is the release tag (e.g., v0.3.0)
	Version = "dev"
	// Commit is the short git commit hash
	Commit = "none"
	// Date is the build date in UTC (YYYY-MM-DD)
	Date = "unknown"
)

// String returns version information for display.
func String() string {
	return Format(Version, Commit, Date)
}

// Format formats version components into a display string.
func Format(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}
