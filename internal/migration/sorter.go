package migration

import (
	"sort"
	"strings"
)

// Sort returns a new slice of units ordered by numeric version, so V2 runs
// before V10. The sort is stable for equal versions.
func Sort(units []Unit) []Unit {
	sorted := make([]Unit, len(units))
	copy(sorted, units)

	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareVersions(sorted[i].Version, sorted[j].Version) < 0
	})

	return sorted
}

// CompareVersions orders two digit-only version strings numerically without
// parsing them, so 14-digit timestamps never overflow.
func CompareVersions(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}

		return 1
	}

	return strings.Compare(a, b)
}

// Filter returns the units whose version equals version (ignoring leading
// zeros). An empty version returns units unchanged.
func Filter(units []Unit, version string) []Unit {
	if version == "" {
		return units
	}

	version = strings.TrimPrefix(strings.TrimPrefix(version, "V"), "v")

	var out []Unit

	for _, u := range units {
		if CompareVersions(u.Version, version) == 0 {
			out = append(out, u)
		}
	}

	return out
}
