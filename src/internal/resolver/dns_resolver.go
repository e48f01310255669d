package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/metrics"
)

// DefaultTimeout bounds one resolution attempt against one upstream.
const DefaultTimeout = 3 * time.Second

var errAttemptTimeout = errors.New("resolution attempt timed out")

// DNSResolver resolves A and AAAA records through a list of upstreams,
// trying them in order until one answers.
type DNSResolver struct {
	upstreams []Upstream
	timeout   time.Duration
	queryAAAA bool
}

// NewDNSResolver creates a resolver. A zero timeout means DefaultTimeout.
func NewDNSResolver(upstreams []Upstream, timeout time.Duration, queryAAAA bool) (*DNSResolver, error) {
	if len(upstreams) == 0 {
		return nil, fmt.Errorf("no DNS upstreams configured")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DNSResolver{
		upstreams: upstreams,
		timeout:   timeout,
		queryAAAA: queryAAAA,
	}, nil
}

// Resolve implements Resolver.
func (r *DNSResolver) Resolve(ctx context.Context, domain string) ([]netip.Addr, error) {
	name, err := NormalizeDomain(domain)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues(metrics.ResultError).Inc()
		return nil, bferrors.NewResolveError(fmt.Sprintf("invalid domain name %q", domain), err)
	}
	fqdn := dns.Fqdn(name)

	addrs, err := r.lookup(ctx, fqdn, dns.TypeA)
	if err != nil {
		return nil, r.finish(name, nil, err)
	}

	if r.queryAAAA {
		v6, err := r.lookup(ctx, fqdn, dns.TypeAAAA)
		switch {
		case err == nil:
			addrs = append(addrs, v6...)
		case errors.Is(err, ErrNotFound):
			// The A answer already established the name exists.
		default:
			return nil, r.finish(name, nil, err)
		}
	}

	if len(addrs) == 0 {
		return nil, r.finish(name, nil, ErrNotFound)
	}
	return addrs, r.finish(name, addrs, nil)
}

func (r *DNSResolver) finish(name string, addrs []netip.Addr, err error) error {
	switch {
	case err == nil:
		log.Debugf("Resolved %s: %v", name, addrs)
		metrics.ResolverLookups.WithLabelValues(metrics.ResultFound).Inc()
	case errors.Is(err, ErrNotFound):
		log.Debugf("Domain %s not resolved: %v", name, err)
		metrics.ResolverLookups.WithLabelValues(metrics.ResultNotFound).Inc()
	default:
		metrics.ResolverLookups.WithLabelValues(metrics.ResultError).Inc()
	}
	return err
}

// lookup runs one query type. NXDOMAIN and attempts that only timed out
// yield ErrNotFound; an empty successful answer yields no addresses.
func (r *DNSResolver) lookup(ctx context.Context, fqdn string, qtype uint16) ([]netip.Addr, error) {
	req := new(dns.Msg)
	req.SetQuestion(fqdn, qtype)
	req.RecursionDesired = true

	var lastErr error
	onlyTimeouts := true

	for _, up := range r.upstreams {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := up.Query(attemptCtx, req)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) {
				log.Debugf("Upstream %s timed out for %s %s", up, fqdn, dns.TypeToString[qtype])
				lastErr = errAttemptTimeout
				continue
			}
			onlyTimeouts = false
			lastErr = err
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			return extractAddrs(resp, qtype), nil
		case dns.RcodeNameError:
			return nil, ErrNotFound
		default:
			onlyTimeouts = false
			lastErr = fmt.Errorf("upstream %s answered %s", up, dns.RcodeToString[resp.Rcode])
		}
	}

	if onlyTimeouts {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, lastErr)
	}
	return nil, bferrors.NewResolveError(fmt.Sprintf("failed to resolve %s %s", fqdn, dns.TypeToString[qtype]), lastErr)
}

func extractAddrs(resp *dns.Msg, qtype uint16) []netip.Addr {
	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch rec := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				ip = rec.A
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				ip = rec.AAAA
			}
		}
		if ip == nil {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
