package version

// Overridden at build time via -ldflags "-X github.com/tristendillon/minibundle/core/version.Version=...".
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

// String renders the version with whatever build metadata is available.
func String() string {
	s := Version
	if GitCommit != "" {
		s += " (" + GitCommit + ")"
	}
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s
}
