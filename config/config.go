// Package config decodes the ghost-layer configuration file, in the
// same shape InputParameters/InputParameters.go decodes the solver's
// YAML input: a plain struct parsed with github.com/ghodss/yaml, which
// converts the YAML to JSON and decodes that with encoding/json. Keys
// therefore match the Go field names (case-insensitively); the `yaml`
// tags on the fields are not consulted.
package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/forestghost/discovery"
	"github.com/notargets/forestghost/ghost"
)

// GhostConfig holds the settings ghostctl's demo command and any
// future real driver need to call ghost.Create.
type GhostConfig struct {
	// GhostType is "none" or "faces" (empty means "faces"). Parse
	// accepts any string; GhostTypeValue returns an error for anything
	// else.
	GhostType string `yaml:"GhostType"`
	// DiscoveryMethod is "half-neighbors" or "owners-at-face".
	DiscoveryMethod string `yaml:"DiscoveryMethod"`
	// Profile, when true, wraps Discovery+Exchange in a CPU profile.
	Profile bool `yaml:"Profile"`
	// ProfileDir is where the CPU profile is written when Profile is
	// true. If empty, pkg/profile writes to a new temporary directory.
	ProfileDir string `yaml:"ProfileDir"`
}

// Default returns the configuration ghostctl uses when no file is
// supplied: face ghosts, the balanced-forest discovery method,
// profiling off.
func Default() *GhostConfig {
	return &GhostConfig{
		GhostType:       "faces",
		DiscoveryMethod: "half-neighbors",
	}
}

// Parse decodes data into a GhostConfig, the same single-call shape
// InputParameters2D.Parse uses.
func (c *GhostConfig) Parse(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// Load reads and parses the configuration file at path.
func Load(path string) (*GhostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	c := Default()
	if err := c.Parse(data); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}

// GhostTypeValue translates the parsed GhostType string into ghost.Type.
func (c *GhostConfig) GhostTypeValue() (ghost.Type, error) {
	switch c.GhostType {
	case "", "faces":
		return ghost.TypeFaces, nil
	case "none":
		return ghost.TypeNone, nil
	default:
		return ghost.TypeNone, fmt.Errorf("config: unknown GhostType %q", c.GhostType)
	}
}

// DiscoveryMethodValue translates the parsed DiscoveryMethod string
// into discovery.Method.
func (c *GhostConfig) DiscoveryMethodValue() (discovery.Method, error) {
	switch c.DiscoveryMethod {
	case "", "half-neighbors":
		return discovery.MethodHalfNeighbors, nil
	case "owners-at-face":
		return discovery.MethodOwnersAtFace, nil
	default:
		return discovery.MethodHalfNeighbors, fmt.Errorf("config: unknown DiscoveryMethod %q", c.DiscoveryMethod)
	}
}
