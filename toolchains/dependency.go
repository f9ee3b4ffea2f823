package toolchains

import (
	"fmt"
	"strings"
)

// Dependency is a group:name:version module coordinate. Version may be
// empty for modules whose version is supplied elsewhere (a platform or
// BOM).
type Dependency struct {
	Group   string
	Name    string
	Version string
}

// Of parses a "group:name" or "group:name:version" notation.
func Of(notation string) (Dependency, error) {
	parts := strings.Split(notation, ":")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Dependency{}, fmt.Errorf("toolchains: invalid dependency notation %q", notation)
		}
		return Dependency{Group: parts[0], Name: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Dependency{}, fmt.Errorf("toolchains: invalid dependency notation %q", notation)
		}
		return Dependency{Group: parts[0], Name: parts[1], Version: parts[2]}, nil
	default:
		return Dependency{}, fmt.Errorf("toolchains: invalid dependency notation %q", notation)
	}
}

// String renders the coordinate back to notation form, omitting a missing
// version.
func (d Dependency) String() string {
	if d.Version == "" {
		return d.Group + ":" + d.Name
	}
	return d.Group + ":" + d.Name + ":" + d.Version
}
