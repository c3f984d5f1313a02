package version

// value is overridden at build time via -ldflags "-X .../internal/version.value=v1.2.3".
var value = "dev"

// Value returns the build version of the guardian binary.
func Value() string {
	return value
}
