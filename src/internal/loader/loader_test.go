package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/hashing"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/resolver"
)

func init() {
	log.DisableLogs()
}

type fakeResolver map[string][]string

func (f fakeResolver) Resolve(_ context.Context, domain string) ([]netip.Addr, error) {
	ips, ok := f[domain]
	if !ok {
		return nil, resolver.ErrNotFound
	}
	var out []netip.Addr
	for _, ip := range ips {
		out = append(out, netip.MustParseAddr(ip))
	}
	return out, nil
}

// feedServer serves path -> body; unknown paths are 404.
func feedServer(t *testing.T, feeds map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := feeds[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func source(id, url string, parser feeds.Parser, verifier feeds.Verifier) feeds.Source {
	return feeds.Source{ID: id, Name: id, URL: url, Comment: '#', Parser: parser, Verifier: verifier}
}

const feodoBody = "# Feodo Tracker\n#\n192.0.2.1\n192.0.2.2\n\n198.51.100.0/24\n# END (3 entries)\n"

func TestLoader_Load(t *testing.T) {
	srv := feedServer(t, map[string]string{"/feodo": feodoBody})
	l := NewLoader(NewHTTPFetcher(time.Second, "test"), nil)

	src := source("feodo_ip", srv.URL+"/feodo", feeds.DirectCIDR(), feeds.ParenthesizedCount("# END"))
	result, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var got []string
	for _, e := range result.Entries {
		got = append(got, feeds.Canonical(e))
	}
	want := []string{"192.0.2.1/32", "192.0.2.2/32", "198.51.100.0/24"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entries = %v, want %v", got, want)
	}
	if result.Parsed != 3 || result.SourceID != "feodo_ip" || result.FromSnapshot {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Checksum != hashing.Sum([]byte(feodoBody)) {
		t.Errorf("Expected checksum of the raw body, got %s", result.Checksum)
	}
	if result.FetchedAt.IsZero() {
		t.Error("Expected FetchedAt to be set")
	}
}

func TestLoader_StageErrors(t *testing.T) {
	srv := feedServer(t, map[string]string{
		"/bad-entry": "# header\n192.0.2.1\nnot-an-ip\n",
		"/bad-count": "192.0.2.1\n# END (2 entries)\n",
		"/empty":     "\n\n",
		"/binary":    "192.0.2.1\n\xff\xfe\n",
	})
	l := NewLoader(NewHTTPFetcher(time.Second, "test"), nil)

	tests := []struct {
		name      string
		path      string
		verifier  feeds.Verifier
		wantStage error
	}{
		{"not found", "/missing", feeds.Baseline(), bferrors.ErrFetch},
		{"invalid utf-8", "/binary", feeds.Baseline(), bferrors.ErrFetch},
		{"malformed entry", "/bad-entry", feeds.Baseline(), bferrors.ErrParse},
		{"count mismatch", "/bad-count", feeds.ParenthesizedCount("# END"), bferrors.ErrVerify},
		{"empty feed", "/empty", feeds.Baseline(), bferrors.ErrVerify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := source("test", srv.URL+tt.path, feeds.DirectCIDR(), tt.verifier)
			result, err := l.Load(context.Background(), src)
			if result != nil {
				t.Errorf("Expected no result, got %+v", result)
			}
			if !errors.Is(err, tt.wantStage) {
				t.Fatalf("Expected %v, got %v", tt.wantStage, err)
			}

			var fe *bferrors.FeedError
			if !errors.As(err, &fe) || fe.SourceID != "test" {
				t.Errorf("Expected FeedError for source test, got %v", err)
			}
		})
	}
}

func TestLoader_ParseErrorCarriesLine(t *testing.T) {
	srv := feedServer(t, map[string]string{"/f": "192.0.2.1\n  bogus  \n"})
	l := NewLoader(NewHTTPFetcher(time.Second, ""), nil)

	_, err := l.Load(context.Background(), source("f", srv.URL+"/f", feeds.DirectCIDR(), feeds.Baseline()))

	var me *bferrors.MalformedEntryError
	if !errors.As(err, &me) {
		t.Fatalf("Expected MalformedEntryError in chain, got %v", err)
	}
	if me.Line != "bogus" {
		t.Errorf("Expected trimmed offending line, got %q", me.Line)
	}
}

func TestLoader_DomainFeed(t *testing.T) {
	body := "# RW_DOMBL\nc2.example\ngone.example\nmulti.example\n# 3 entries\n"
	srv := feedServer(t, map[string]string{"/dom": body})
	r := fakeResolver{
		"c2.example":    {"203.0.113.1"},
		"multi.example": {"203.0.113.2", "203.0.113.3", "2001:db8::2"},
	}
	l := NewLoader(NewHTTPFetcher(time.Second, ""), r)

	result, err := l.Load(context.Background(), source("rw_dombl", srv.URL+"/dom", feeds.DomainResolver(), feeds.InlineCount()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.Parsed != 3 {
		t.Errorf("Expected every line to be counted, got %d", result.Parsed)
	}
	if len(result.Entries) != 4 || result.Resolved != 2 {
		t.Errorf("Expected 4 entries from 2 resolved domains, got %d from %d", len(result.Entries), result.Resolved)
	}
	if v4, v6 := result.Count(); v4 != 3 || v6 != 1 {
		t.Errorf("Count() = %d, %d", v4, v6)
	}

	// Every address of a multi-homed domain is its own entry listed by the feed.
	zeus := &feeds.Result{SourceID: "zeus", Entries: []netip.Prefix{netip.MustParsePrefix("203.0.113.3/32")}, Parsed: 1}
	ds, err := aggregator.Aggregate([]*feeds.Result{result, zeus})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	provenance := map[string][]string{
		"203.0.113.2/32":  {"rw_dombl"},
		"203.0.113.3/32":  {"rw_dombl", "zeus"},
		"2001:db8::2/128": {"rw_dombl"},
	}
	for entry, want := range provenance {
		if got := ds.ProvenanceOf(entry); !reflect.DeepEqual(got, want) {
			t.Errorf("Provenance(%s) = %v, want %v", entry, got, want)
		}
	}
	if len(ds.V4()) != 3 || len(ds.V6()) != 1 {
		t.Errorf("Expected 3 IPv4 and 1 IPv6 entries, got %v and %v", ds.V4(), ds.V6())
	}
}

func TestHTTPFetcher_UserAgentAndStatus(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, "blocklists-aggregator/test")
	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || string(body) != "ok" {
		t.Fatalf("Fetch() = %q, %v", body, err)
	}
	if gotUA != "blocklists-aggregator/test" {
		t.Errorf("Expected User-Agent header, got %q", gotUA)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/fail"); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(50*time.Millisecond, "")
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Expected timeout error")
	}
}

func TestHTTPFetcher_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.txt")
	if err := os.WriteFile(path, []byte("10.0.0.0/8\n"), 0644); err != nil {
		t.Fatal(err)
	}

	body, err := NewHTTPFetcher(time.Second, "").Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "10.0.0.0/8\n" {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{""}},
		{"a", []string{"a"}},
		{"a\n", []string{"a", ""}},
		{"a\r\nb\n\nc", []string{"a\r", "b", "", "c"}},
	}

	for _, tt := range tests {
		got, err := splitLines(strings.NewReader(tt.input))
		if err != nil {
			t.Fatalf("splitLines(%q) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitLines(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
