package probe

import (
	"strconv"
	"strings"
)

// compareDottedVersions implements the hand-rolled dotted-numeric
// comparison this network's original implementation uses for min_ua_ver
// checks — no semver package, just split-on-dot numeric fields padded
// with zero. Returns -1, 0, or 1 as a < b, a == b, a > b. ok is false if
// either string has no parseable numeric field, in which case the
// comparison result must be ignored and the peer accepted.
func compareDottedVersions(a, b string) (cmp int, ok bool) {
	aParts, aOK := parseDottedVersion(a)
	bParts, bOK := parseDottedVersion(b)
	if !aOK || !bOK {
		return 0, false
	}

	n := len(aParts)
	if len(bParts) > n {
		n = len(bParts)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av != bv {
			if av < bv {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, true
}

func parseDottedVersion(v string) ([]int, bool) {
	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	return parts, len(parts) > 0
}

// belowMinVersion reports whether peerVersion is strictly below
// minVersion. An empty minVersion means no floor is configured. A peer
// version that fails to parse is never rejected on this basis alone —
// original_source/src/checkversion.rs accepts on comparison failure
// rather than risk rejecting a differently-formatted but valid peer.
func belowMinVersion(minVersion, peerVersion string) bool {
	if minVersion == "" || peerVersion == "" {
		return false
	}
	cmp, ok := compareDottedVersions(peerVersion, minVersion)
	if !ok {
		return false
	}
	return cmp < 0
}
