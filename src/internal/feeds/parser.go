package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/resolver"
)

// ParserKind selects how a feed line is turned into entries.
type ParserKind uint8

const (
	// ParserDirectCIDR: the whole line is a CIDR or a bare address.
	ParserDirectCIDR ParserKind = iota
	// ParserFieldCIDR: the network is one field of a delimited line.
	ParserFieldCIDR
	// ParserDomain: the line is a domain name, resolved to host routes.
	ParserDomain
	// ParserURLHost: the line is a URL whose host is resolved to host routes.
	ParserURLHost
)

func (k ParserKind) String() string {
	switch k {
	case ParserDirectCIDR:
		return "cidr"
	case ParserFieldCIDR:
		return "field-cidr"
	case ParserDomain:
		return "domain"
	case ParserURLHost:
		return "url"
	default:
		return fmt.Sprintf("parser(%d)", uint8(k))
	}
}

// Parser is the per-source line parsing strategy.
type Parser struct {
	Kind      ParserKind
	Delimiter string
	Field     int
}

func DirectCIDR() Parser { return Parser{Kind: ParserDirectCIDR} }

func FieldCIDR(delimiter string, field int) Parser {
	return Parser{Kind: ParserFieldCIDR, Delimiter: delimiter, Field: field}
}

func DomainResolver() Parser { return Parser{Kind: ParserDomain} }

func URLHostResolver() Parser { return Parser{Kind: ParserURLHost} }

// NeedsResolver reports whether the parser looks names up in DNS.
func (p Parser) NeedsResolver() bool {
	return p.Kind == ParserDomain || p.Kind == ParserURLHost
}

// ParseState is what one feed load accumulates while parsing.
type ParseState struct {
	Entries []netip.Prefix
	// Processed counts consumed lines, not produced entries.
	Processed int
	// Resolved counts names that resolved to at least one address.
	Resolved int

	resolver resolver.Resolver
}

// NewParseState starts a fresh parse. Lookups through r are memoized for
// the lifetime of the state; r may be nil for feeds without names.
func NewParseState(r resolver.Resolver) *ParseState {
	st := &ParseState{}
	if r != nil {
		st.resolver = resolver.NewMemo(r)
	}
	return st
}

// ParseEntry consumes one non-empty, non-comment line. Any fault is a
// *errors.MalformedEntryError.
func (p Parser) ParseEntry(ctx context.Context, st *ParseState, line string) error {
	var err error
	switch p.Kind {
	case ParserDirectCIDR:
		err = st.addNetwork(line)
	case ParserFieldCIDR:
		err = st.addNetwork(field(line, p.Delimiter, p.Field))
	case ParserDomain:
		err = st.addDomain(ctx, line)
	case ParserURLHost:
		var host string
		if host, err = urlHost(line); err == nil {
			err = st.addDomain(ctx, host)
		}
	default:
		err = fmt.Errorf("unknown parser kind %s", p.Kind)
	}
	if err != nil {
		return bferrors.NewMalformedEntry(line, err)
	}

	st.Processed++
	return nil
}

func (st *ParseState) addNetwork(s string) error {
	prefix, err := ParseNetwork(s)
	if err != nil {
		return fmt.Errorf("incorrect IP address/net: %w", err)
	}
	st.Entries = append(st.Entries, prefix)
	return nil
}

func (st *ParseState) addDomain(ctx context.Context, domain string) error {
	// Feeds occasionally list a literal address where a name is expected.
	if addr, err := netip.ParseAddr(strings.Trim(domain, "[]")); err == nil {
		st.Entries = append(st.Entries, HostRoute(addr))
		st.Resolved++
		return nil
	}

	if st.resolver == nil {
		return fmt.Errorf("no resolver configured for domain %q", domain)
	}

	addrs, err := st.resolver.Resolve(ctx, domain)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, addr := range addrs {
		st.Entries = append(st.Entries, HostRoute(addr))
	}
	if len(addrs) > 0 {
		st.Resolved++
	}
	return nil
}

// field returns the idx-th field of line split on delimiter, or "" when the
// line has fewer fields.
func field(line, delimiter string, idx int) string {
	fields := strings.Split(line, delimiter)
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

// urlHost returns the host part of a feed URL without port or brackets.
func urlHost(line string) (string, error) {
	raw := strings.TrimSpace(line)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("can't parse URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("URL has no host")
	}
	return host, nil
}
