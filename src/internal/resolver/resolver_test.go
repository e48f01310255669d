package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// fakeUpstream answers from a static zone.
type fakeUpstream struct {
	name    string
	a       map[string][]string
	aaaa    map[string][]string
	rcode   int
	err     error
	delay   time.Duration
	queries int
}

func (f *fakeUpstream) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	f.queries++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	resp := new(dns.Msg)
	resp.SetReply(req)
	q := req.Question[0]

	zone := f.a
	if q.Qtype == dns.TypeAAAA {
		zone = f.aaaa
	}
	ips, known := zone[q.Name]
	_, knownA := f.a[q.Name]
	_, knownAAAA := f.aaaa[q.Name]
	if !knownA && !knownAAAA {
		resp.Rcode = dns.RcodeNameError
	}
	if f.rcode != 0 {
		resp.Rcode = f.rcode
	}
	if known {
		for _, ip := range ips {
			hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
			if q.Qtype == dns.TypeA {
				resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: net.ParseIP(ip)})
			} else {
				resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP(ip)})
			}
		}
	}
	return resp, nil
}

func (f *fakeUpstream) String() string { return f.name }

func newTestResolver(t *testing.T, aaaa bool, ups ...Upstream) *DNSResolver {
	t.Helper()
	r, err := NewDNSResolver(ups, 50*time.Millisecond, aaaa)
	if err != nil {
		t.Fatalf("NewDNSResolver() error = %v", err)
	}
	return r
}

func TestDNSResolver_Resolve(t *testing.T) {
	up := &fakeUpstream{
		name: "fake",
		a: map[string][]string{
			"two.example.":         {"192.0.2.1", "192.0.2.2"},
			"v6only.example.":      {},
			"foo_bar.example.com.": {"192.0.2.7"},
		},
		aaaa: map[string][]string{
			"two.example.":    {"2001:db8::1"},
			"v6only.example.": {"2001:db8::2"},
		},
	}

	tests := []struct {
		name     string
		domain   string
		aaaa     bool
		want     []string
		notFound bool
	}{
		{name: "two A records", domain: "two.example", want: []string{"192.0.2.1", "192.0.2.2"}},
		{name: "A and AAAA", domain: "two.example", aaaa: true, want: []string{"192.0.2.1", "192.0.2.2", "2001:db8::1"}},
		{name: "trailing dot and case", domain: "TWO.example.", want: []string{"192.0.2.1", "192.0.2.2"}},
		{name: "nxdomain", domain: "missing.example", notFound: true},
		{name: "no A records", domain: "v6only.example", notFound: true},
		{name: "AAAA only", domain: "v6only.example", aaaa: true, want: []string{"2001:db8::2"}},
		{name: "underscore label", domain: "foo_bar.example.com", want: []string{"192.0.2.7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.aaaa, up)
			addrs, err := r.Resolve(context.Background(), tt.domain)
			if tt.notFound {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Expected ErrNotFound, got addrs=%v err=%v", addrs, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(addrs) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, addrs)
			}
			for i, want := range tt.want {
				if addrs[i] != netip.MustParseAddr(want) {
					t.Errorf("addr[%d] = %s, want %s", i, addrs[i], want)
				}
			}
		})
	}
}

func TestDNSResolver_TimeoutIsNotFound(t *testing.T) {
	slow := &fakeUpstream{name: "slow", delay: time.Second}
	r := newTestResolver(t, false, slow)

	start := time.Now()
	_, err := r.Resolve(context.Background(), "slow.example")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected timeout to be reported as ErrNotFound, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Expected the attempt to be bounded by the resolver timeout")
	}
}

func TestDNSResolver_FaultIsNotNotFound(t *testing.T) {
	broken := &fakeUpstream{name: "broken", err: errors.New("connection refused")}
	r := newTestResolver(t, false, broken)

	_, err := r.Resolve(context.Background(), "any.example")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected a resolution fault, got %v", err)
	}
}

func TestDNSResolver_ServfailFallsBackToNextUpstream(t *testing.T) {
	failing := &fakeUpstream{name: "failing", rcode: dns.RcodeServerFailure}
	good := &fakeUpstream{name: "good", a: map[string][]string{"ok.example.": {"198.51.100.7"}}}
	r := newTestResolver(t, false, failing, good)

	addrs, err := r.Resolve(context.Background(), "ok.example")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("198.51.100.7") {
		t.Errorf("Unexpected addrs: %v", addrs)
	}
	if failing.queries != 1 || good.queries != 1 {
		t.Errorf("Expected one query per upstream, got %d/%d", failing.queries, good.queries)
	}
}

func TestDNSResolver_InvalidDomain(t *testing.T) {
	r := newTestResolver(t, false, &fakeUpstream{name: "fake"})
	_, err := r.Resolve(context.Background(), "")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected fault for empty domain, got %v", err)
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Example.COM.", want: "example.com"},
		{in: "foo_bar.example.com", want: "foo_bar.example.com"},
		{in: "_dmarc.example.com", want: "_dmarc.example.com"},
		{in: "bücher.example", want: "xn--bcher-kva.example"},
		{in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDomain(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type countingResolver struct {
	calls map[string]int
	addrs map[string][]netip.Addr
	err   error
}

func (c *countingResolver) Resolve(_ context.Context, domain string) ([]netip.Addr, error) {
	c.calls[domain]++
	if c.err != nil {
		return nil, c.err
	}
	addrs, ok := c.addrs[domain]
	if !ok {
		return nil, ErrNotFound
	}
	return addrs, nil
}

func TestMemo(t *testing.T) {
	inner := &countingResolver{
		calls: map[string]int{},
		addrs: map[string][]netip.Addr{"a.example": {netip.MustParseAddr("192.0.2.1")}},
	}
	memo := NewMemo(inner)

	for i := 0; i < 3; i++ {
		if _, err := memo.Resolve(context.Background(), "a.example"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := memo.Resolve(context.Background(), "gone.example"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	}

	if inner.calls["a.example"] != 1 || inner.calls["gone.example"] != 1 {
		t.Errorf("Expected one upstream call per domain, got %v", inner.calls)
	}
	if memo.Size() != 2 {
		t.Errorf("Expected 2 cached domains, got %d", memo.Size())
	}
}

func TestMemo_DoesNotCacheFaults(t *testing.T) {
	inner := &countingResolver{calls: map[string]int{}, err: errors.New("servfail")}
	memo := NewMemo(inner)

	memo.Resolve(context.Background(), "x.example")
	memo.Resolve(context.Background(), "x.example")

	if inner.calls["x.example"] != 2 {
		t.Errorf("Expected faults to be retried, got %d calls", inner.calls["x.example"])
	}
}

func TestParseUpstream(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "udp://1.1.1.1:53", want: "udp://1.1.1.1:53"},
		{input: "udp://9.9.9.9", want: "udp://9.9.9.9:53"},
		{input: "tcp://8.8.8.8:5353", want: "tcp://8.8.8.8:5353"},
		{input: "8.8.4.4", want: "udp://8.8.4.4:53"},
		{input: "doh://dns.google/dns-query", want: "doh://dns.google/dns-query"},
		{input: "https://cloudflare-dns.com/dns-query", want: "doh://cloudflare-dns.com/dns-query"},
		{input: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ups, err := ParseUpstream(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(ups) != 1 || ups[0].String() != tt.want {
				t.Errorf("ParseUpstream(%s) = %v, want %s", tt.input, ups, tt.want)
			}
		})
	}
}

func TestSystemUpstreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	content := "nameserver 192.0.2.53\nnameserver 2001:db8::53\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write resolv.conf: %v", err)
	}

	ups, err := systemUpstreams(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(ups) != 2 {
		t.Fatalf("Expected 2 upstreams, got %d", len(ups))
	}
	if ups[0].String() != "udp://192.0.2.53:53" || ups[1].String() != "udp://[2001:db8::53]:53" {
		t.Errorf("Unexpected upstreams: %v, %v", ups[0], ups[1])
	}
}

func TestPlainUpstream_AgainstLocalServer(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("Cannot listen on UDP: %v", err)
	}

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			if req.Question[0].Name == "c2.example." && req.Question[0].Qtype == dns.TypeA {
				resp.Answer = append(resp.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: "c2.example.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP("203.0.113.9"),
				})
			} else if req.Question[0].Qtype == dns.TypeA {
				resp.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = server.ActivateAndServe() }()
	defer server.Shutdown()
	<-started

	up, err := NewPlainUpstream("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewPlainUpstream() error = %v", err)
	}
	r, err := NewDNSResolver([]Upstream{up}, time.Second, false)
	if err != nil {
		t.Fatalf("NewDNSResolver() error = %v", err)
	}

	addrs, err := r.Resolve(context.Background(), "c2.example")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != netip.MustParseAddr("203.0.113.9") {
		t.Errorf("Unexpected addrs: %v", addrs)
	}

	if _, err := r.Resolve(context.Background(), "gone.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for NXDOMAIN, got %v", err)
	}
}
