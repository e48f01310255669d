package aggregator

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
)

// Query is a parsed lookup: a network matches itself, an address matches
// every entry covering it.
type Query struct {
	Prefix netip.Prefix
	Addr   netip.Addr
	// Exact is set for network queries.
	Exact bool
}

// ParseQuery parses "ip" or "ip/bits". Networks are masked like feed entries.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := feeds.ParseNetwork(s)
		if err != nil {
			return Query{}, fmt.Errorf("invalid IP address or prefix %q: %w", s, err)
		}
		return Query{Prefix: p, Exact: true}, nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Query{}, fmt.Errorf("invalid IP address or prefix %q: %w", s, err)
	}
	return Query{Addr: addr}, nil
}

// Match returns the entries matching q, most specific first.
func (ds *Dataset) Match(q Query) []netip.Prefix {
	if !q.Exact {
		return ds.Covering(q.Addr)
	}
	if ds.Contains(q.Prefix) {
		return []netip.Prefix{q.Prefix.Masked()}
	}
	return nil
}
