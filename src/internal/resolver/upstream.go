package resolver

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultDNSPort    = "53"
	defaultResolvConf = "/etc/resolv.conf"

	udpClientTimeout = 5 * time.Second

	dohClientTimeout       = 10 * time.Second
	dohIdleConnTimeout     = 30 * time.Second
	dohMaxIdleConns        = 10
	dohMaxIdleConnsPerHost = 5
	dohMaxResponseSize     = 64 * 1024

	dnsMessageContentType = "application/dns-message"
)

// Upstream answers DNS queries.
type Upstream interface {
	Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error)
	String() string
}

// ParseUpstream parses an upstream URL. Supported formats:
//   - system:// - the nameservers of /etc/resolv.conf
//   - udp://ip:port - plain UDP DNS (port defaults to 53)
//   - tcp://ip:port - plain DNS over TCP
//   - doh://host/path or https://host/path - DNS-over-HTTPS
//
// A value without a scheme is treated as a UDP address.
func ParseUpstream(upstreamURL string) ([]Upstream, error) {
	if strings.HasPrefix(upstreamURL, "system://") {
		return systemUpstreams(defaultResolvConf)
	}

	u, err := url.Parse(upstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		up, err := NewPlainUpstream("udp", upstreamURL)
		if err != nil {
			return nil, err
		}
		return []Upstream{up}, nil
	}

	switch u.Scheme {
	case "udp", "tcp":
		up, err := NewPlainUpstream(u.Scheme, u.Host)
		if err != nil {
			return nil, err
		}
		return []Upstream{up}, nil
	case "doh", "https":
		return []Upstream{NewDoHUpstream(upstreamURL)}, nil
	default:
		return nil, fmt.Errorf("unsupported upstream scheme: %s", u.Scheme)
	}
}

// ParseUpstreams parses every URL and concatenates the results in order.
func ParseUpstreams(urls []string) ([]Upstream, error) {
	var out []Upstream
	for _, u := range urls {
		ups, err := ParseUpstream(u)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream %q: %w", u, err)
		}
		out = append(out, ups...)
	}
	return out, nil
}

func systemUpstreams(resolvConf string) ([]Upstream, error) {
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", resolvConf, err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers in %s", resolvConf)
	}

	port := cfg.Port
	if port == "" {
		port = defaultDNSPort
	}

	ups := make([]Upstream, 0, len(cfg.Servers))
	for _, server := range cfg.Servers {
		up, err := NewPlainUpstream("udp", net.JoinHostPort(server, port))
		if err != nil {
			return nil, err
		}
		ups = append(ups, up)
	}
	return ups, nil
}

// PlainUpstream sends queries over UDP or TCP.
type PlainUpstream struct {
	network string
	address string
	client  *dns.Client
}

// NewPlainUpstream creates an upstream for network "udp" or "tcp".
func NewPlainUpstream(network, address string) (*PlainUpstream, error) {
	host := address
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), defaultDNSPort)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		return nil, fmt.Errorf("invalid %s address: %w", network, err)
	}

	return &PlainUpstream{
		network: network,
		address: host,
		client: &dns.Client{
			Net:     network,
			Timeout: udpClientTimeout,
		},
	}, nil
}

// Query sends the query and returns the answer.
func (u *PlainUpstream) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	resp, _, err := u.client.ExchangeContext(ctx, req, u.address)
	if err != nil {
		return nil, err
	}
	if resp.Truncated && u.network == "udp" {
		// Retry over TCP for answers that do not fit a datagram.
		tcp := &dns.Client{Net: "tcp", Timeout: u.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, req, u.address)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (u *PlainUpstream) String() string {
	return fmt.Sprintf("%s://%s", u.network, u.address)
}

// DoHUpstream sends queries as DNS-over-HTTPS POST requests.
type DoHUpstream struct {
	url    string
	client *http.Client
}

// NewDoHUpstream creates a DNS-over-HTTPS upstream. doh:// is an alias of https://.
func NewDoHUpstream(urlStr string) *DoHUpstream {
	if strings.HasPrefix(urlStr, "doh://") {
		urlStr = "https://" + strings.TrimPrefix(urlStr, "doh://")
	}

	return &DoHUpstream{
		url: urlStr,
		client: &http.Client{
			Timeout: dohClientTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        dohMaxIdleConns,
				IdleConnTimeout:     dohIdleConnTimeout,
				MaxIdleConnsPerHost: dohMaxIdleConnsPerHost,
			},
		},
	}
}

// Query sends the query and returns the answer.
func (d *DoHUpstream) Query(ctx context.Context, req *dns.Msg) (*dns.Msg, error) {
	packed, err := req.Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack DNS message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", dnsMessageContentType)
	httpReq.Header.Set("Accept", dnsMessageContentType)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("DoH request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read DoH response: %w", err)
	}

	dnsResp := new(dns.Msg)
	if err := dnsResp.Unpack(body); err != nil {
		return nil, fmt.Errorf("failed to unpack DNS response: %w", err)
	}
	return dnsResp, nil
}

func (d *DoHUpstream) String() string {
	return "doh://" + strings.TrimPrefix(d.url, "https://")
}
