package dnsserver

import (
	"regexp"
	"strings"
)

// subnetworkLabel matches the "x<40hex>" label spec.md §4.5 describes:
// clients prepend it to the zone name to filter the sample to one
// subnetwork.
var subnetworkLabel = regexp.MustCompile(`^x([0-9a-fA-F]{40})$`)

// splitSubnetworkFilter inspects the leftmost label of a fully-qualified
// question name. If it matches the subnetwork-filter form, it returns the
// lowercase hex id and the remaining name (still fully qualified); if not,
// the question name is returned unchanged with an empty filter, which is
// simply "no filter" per spec.md §4.5 ("an unparseable prefix yields
// NOERROR empty; no NXDOMAIN" — so this function never itself decides
// that, it only strips when there is something to strip).
func splitSubnetworkFilter(qname string) (filter, rest string) {
	trimmed := strings.TrimSuffix(qname, ".")
	labels := strings.SplitN(trimmed, ".", 2)
	if len(labels) != 2 {
		return "", qname
	}
	m := subnetworkLabel.FindStringSubmatch(labels[0])
	if m == nil {
		return "", qname
	}
	return strings.ToLower(m[1]), labels[1] + "."
}

// stripLeftmostLabel removes exactly one leftmost label from a
// fully-qualified name, regardless of whether it looks like a
// subnetwork-filter label. Used to tell "genuinely outside the zone" apart
// from "an attempted filter prefix that didn't parse" — the latter still
// has the zone sitting right behind the one label that was stripped.
func stripLeftmostLabel(qname string) string {
	trimmed := strings.TrimSuffix(qname, ".")
	labels := strings.SplitN(trimmed, ".", 2)
	if len(labels) != 2 {
		return qname
	}
	return labels[1] + "."
}
