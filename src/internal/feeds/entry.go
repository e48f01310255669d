package feeds

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// ParseNetwork parses a CIDR or a bare address into a prefix with host bits
// cleared. Bare addresses become /32 or /128 host routes.
func ParseNetwork(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("empty address")
	}

	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	if addr.Zone() != "" {
		return netip.Prefix{}, fmt.Errorf("address with zone is not a network: %s", s)
	}
	return HostRoute(addr), nil
}

// HostRoute returns the single-address prefix of addr.
func HostRoute(addr netip.Addr) netip.Prefix {
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen())
}

// Canonical returns the CIDR string used as the dedup key of an entry.
func Canonical(p netip.Prefix) string {
	return p.Masked().String()
}

// IPVersion returns 4 or 6.
func IPVersion(p netip.Prefix) int {
	if p.Addr().Is4() {
		return 4
	}
	return 6
}

// Result is the outcome of one successful feed load.
type Result struct {
	SourceID string
	// Entries in the order the feed produced them; duplicates are kept.
	Entries []netip.Prefix
	// Parsed is the number of feed lines consumed by the parser.
	Parsed int
	// Resolved counts domains that resolved to at least one address.
	Resolved int
	// Checksum is the MD5 of the raw feed body (or of the snapshot file).
	Checksum  string
	FetchedAt time.Time
	// FromSnapshot is set when the entries were read back from a snapshot.
	FromSnapshot bool
}

// Count returns the number of IPv4 and IPv6 entries.
func (r *Result) Count() (v4, v6 int) {
	for _, e := range r.Entries {
		if e.Addr().Is4() {
			v4++
		} else {
			v6++
		}
	}
	return v4, v6
}
