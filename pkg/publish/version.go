package publish

// Version information for the publish module.
const (
	// Version is the current version of the publish module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
