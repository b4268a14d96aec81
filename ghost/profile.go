package ghost

import "github.com/pkg/profile"

// WithCPUProfile returns a profileFn suitable for Create's profileFn
// parameter: it wraps Discovery+Exchange in a CPU profile written under
// dir, the shape pkg/profile's own examples use
// (profile.Start(profile.CPUProfile, profile.ProfilePath(dir))).
func WithCPUProfile(dir string) func() func() {
	return func() func() {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
		return p.Stop
	}
}
