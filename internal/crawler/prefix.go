package crawler

import (
	"encoding/hex"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// prefixKey returns the /16 prefix for an IPv4 address or the /32 prefix
// for an IPv6 address, per spec.md §4.3's rate-shaping rule.
func prefixKey(a peeraddr.Address) string {
	if v4 := a.IP.To4(); v4 != nil {
		return "4:" + hex.EncodeToString(v4[:2])
	}
	ip16 := a.IP.To16()
	if ip16 == nil {
		return "?:" + a.IP.String()
	}
	return "6:" + hex.EncodeToString(ip16[:4])
}
