// Package resolver turns domain names from domain and URL based feeds into
// IP addresses.
//
// "Not found" is an expected outcome (the domain is gone, has no records, or
// the lookup timed out) and is reported as ErrNotFound. Any other error is a
// resolution fault.
package resolver

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"sync"

	"golang.org/x/net/idna"
)

// ErrNotFound is returned when a domain has no usable address.
var ErrNotFound = errors.New("domain not found")

// Resolver resolves one domain into its addresses.
type Resolver interface {
	Resolve(ctx context.Context, domain string) ([]netip.Addr, error)
}

// lookupProfile is idna.Lookup without the STD3 host name rules, so labels
// such as "foo_bar" that resolve in DNS are accepted.
var lookupProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(true),
	idna.StrictDomainName(false),
)

// NormalizeDomain lowercases domain, strips the trailing dot and converts
// internationalized names to their ASCII form.
func NormalizeDomain(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", errors.New("empty domain name")
	}
	ascii, err := lookupProfile.ToASCII(domain)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

type memoEntry struct {
	addrs    []netip.Addr
	notFound bool
}

// Memo caches the answers of another resolver. One Memo is created per feed
// load so a domain repeated in a feed is resolved once. Faults are not cached.
type Memo struct {
	next  Resolver
	mu    sync.Mutex
	cache map[string]memoEntry
}

// NewMemo wraps next with a fresh cache.
func NewMemo(next Resolver) *Memo {
	return &Memo{
		next:  next,
		cache: make(map[string]memoEntry),
	}
}

// Resolve implements Resolver.
func (m *Memo) Resolve(ctx context.Context, domain string) ([]netip.Addr, error) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))

	m.mu.Lock()
	entry, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		if entry.notFound {
			return nil, ErrNotFound
		}
		return append([]netip.Addr(nil), entry.addrs...), nil
	}

	addrs, err := m.next.Resolve(ctx, domain)
	switch {
	case errors.Is(err, ErrNotFound):
		entry = memoEntry{notFound: true}
	case err != nil:
		return nil, err
	default:
		entry = memoEntry{addrs: append([]netip.Addr(nil), addrs...)}
	}

	m.mu.Lock()
	m.cache[key] = entry
	m.mu.Unlock()

	return addrs, err
}

// Size returns the number of cached domains.
func (m *Memo) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
