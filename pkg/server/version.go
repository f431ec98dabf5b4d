package server

// Version is the LittleMUD engine version.
// Override at build time with: go build -ldflags "-X github.com/littlemud/littlemud/pkg/server.Version=0.2.0"
var Version = "0.1.0"

// EngineName names the engine in banners and @info.
const EngineName = "Little MUD Engine"

// VersionString returns the full version display string.
func VersionString() string {
	return EngineName + " " + Version
}
