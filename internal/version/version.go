package version

import "fmt"

// Build metadata, overridden at link time with -ldflags "-X pricebot/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// UserAgent identifies the bot to upstream APIs.
func UserAgent() string {
	return "pricebot/" + Version
}

// String renders the build metadata on one line per field.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildDate)
}
