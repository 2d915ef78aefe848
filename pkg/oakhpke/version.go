package oakhpke

var (
	Version   = "v0.0.0-in-progress"
	GitCommit = "unknown"
)

// WrapperVersion returns the semantic version populated at build time via
// ldflags. In development it defaults to v0.0.0-in-progress.
func WrapperVersion() string {
	return Version
}

// BuildInfo returns the version followed by the commit it was built from.
func BuildInfo() string {
	return Version + " (" + GitCommit + ")"
}
