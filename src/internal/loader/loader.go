// Package loader turns feed sources into results: fetch, parse and verify
// one feed with Loader, or a whole selection in parallel with Driver.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/hashing"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/metrics"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/resolver"
)

var errInvalidUTF8 = errors.New("feed body is not valid UTF-8")

// Loader runs the fetch, parse and verify stages for one source at a time.
// It holds no per-load state and is safe for concurrent use.
type Loader struct {
	fetcher  Fetcher
	resolver resolver.Resolver
}

// NewLoader creates a loader. r is only consulted by domain and URL feeds
// and may be nil when none is loaded.
func NewLoader(f Fetcher, r resolver.Resolver) *Loader {
	return &Loader{fetcher: f, resolver: r}
}

// Load runs the three stages for src. Any failure is a *errors.FeedError
// tagged with the stage that failed.
func (l *Loader) Load(ctx context.Context, src feeds.Source) (*feeds.Result, error) {
	logger := log.Scoped(src.ID)
	start := time.Now()
	defer func() {
		metrics.FeedLoadDuration.WithLabelValues(src.ID).Observe(time.Since(start).Seconds())
	}()

	logger.Debugf("Fetching %s", src.URL)
	raw, checksum, err := l.fetch(ctx, src.URL)
	if err != nil {
		return nil, l.fail(logger, src, bferrors.StageFetch, err)
	}
	fetchedAt := time.Now()

	st := feeds.NewParseState(l.resolver)
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || src.IsComment(line) {
			continue
		}
		if err := src.Parser.ParseEntry(ctx, st, line); err != nil {
			return nil, l.fail(logger, src, bferrors.StageParse, err)
		}
	}
	logger.Debugf("Parsed %d line(s) into %d entries", st.Processed, len(st.Entries))

	if err := src.Verifier.Verify(raw, st.Processed, src.Comment); err != nil {
		return nil, l.fail(logger, src, bferrors.StageVerify, err)
	}

	result := &feeds.Result{
		SourceID:  src.ID,
		Entries:   st.Entries,
		Parsed:    st.Processed,
		Resolved:  st.Resolved,
		Checksum:  checksum,
		FetchedAt: fetchedAt,
	}

	v4, v6 := result.Count()
	metrics.FeedLoads.WithLabelValues(src.ID, metrics.ResultOK).Inc()
	metrics.FeedEntries.WithLabelValues(src.ID).Set(float64(len(result.Entries)))
	logger.Infof("Loaded %d entries (%d IPv4, %d IPv6) in %s", len(result.Entries), v4, v6, time.Since(start).Round(time.Millisecond))

	return result, nil
}

func (l *Loader) fail(logger *log.Logger, src feeds.Source, stage bferrors.Stage, err error) error {
	fe := bferrors.NewFeedError(stage, src.ID, err)
	metrics.FeedLoads.WithLabelValues(src.ID, string(stage)).Inc()
	logger.Errorf("%v", fe)
	return fe
}

// fetch downloads url and splits the body into lines. The MD5 of the body
// is returned along with them.
func (l *Loader) fetch(ctx context.Context, url string) ([]string, string, error) {
	body, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}
	if !utf8.Valid(body) {
		return nil, "", errInvalidUTF8
	}

	proxy := hashing.NewMD5Reader(bytes.NewReader(body))
	lines, err := splitLines(proxy)
	if err != nil {
		return nil, "", err
	}
	return lines, proxy.Checksum(), nil
}

// splitLines splits on '\n' only, keeping a trailing empty line when the
// input ends with a newline. Lines are not trimmed.
func splitLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			return append(lines, line), nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}
}
