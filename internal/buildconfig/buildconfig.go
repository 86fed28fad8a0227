package buildconfig

// Build-time variables injected via ldflags:
//
//	-X github.com/policygate/policygate/internal/buildconfig.version=v1.2.3
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}
