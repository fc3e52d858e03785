package manifest

import (
	"strconv"
	"strings"
)

// CompareVersions compares two semver strings numerically by their
// major.minor.patch components, ignoring pre-release and build metadata.
// Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	av := versionParts(a)
	bv := versionParts(b)
	for i := 0; i < 3; i++ {
		if av[i] < bv[i] {
			return -1
		}
		if av[i] > bv[i] {
			return 1
		}
	}
	return 0
}

func versionParts(v string) [3]int {
	// Strip pre-release and build suffixes.
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}
