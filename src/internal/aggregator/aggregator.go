// Package aggregator merges the results of successful feed loads into one
// deduplicated dataset that remembers which feeds listed every entry.
package aggregator

import (
	"net/netip"
	"slices"
	"time"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/metrics"
)

type record struct {
	prefix  netip.Prefix
	version int
	sources []string
}

// Dataset is the read-only outcome of Aggregate. Entries keep first-seen
// order: by result order, then by order inside a result.
type Dataset struct {
	v4      []netip.Prefix
	v6      []netip.Prefix
	records map[string]*record
	sources []string
	builtAt time.Time
}

// Aggregate merges results in the given order. Seeing an entry again adds
// the current source to its provenance unless it is already there.
func Aggregate(results []*feeds.Result) (*Dataset, error) {
	total := 0
	for _, r := range results {
		total += len(r.Entries)
	}

	ds := &Dataset{
		records: make(map[string]*record, total),
		builtAt: time.Now(),
	}

	for _, r := range results {
		ds.sources = append(ds.sources, r.SourceID)
		for _, entry := range r.Entries {
			if err := ds.add(r.SourceID, entry); err != nil {
				return nil, err
			}
		}
	}

	metrics.DatasetEntries.WithLabelValues("4").Set(float64(len(ds.v4)))
	metrics.DatasetEntries.WithLabelValues("6").Set(float64(len(ds.v6)))
	log.Infof("Aggregated %d feed(s) into %d IPv4 and %d IPv6 entries", len(results), len(ds.v4), len(ds.v6))

	return ds, nil
}

func (ds *Dataset) add(sourceID string, entry netip.Prefix) error {
	entry = entry.Masked()
	key := feeds.Canonical(entry)
	version := feeds.IPVersion(entry)

	if rec, ok := ds.records[key]; ok {
		if rec.version != version {
			return &bferrors.ConsistencyError{Key: key, FirstVersion: rec.version, SecondVersion: version}
		}
		if !slices.Contains(rec.sources, sourceID) {
			rec.sources = append(rec.sources, sourceID)
		}
		return nil
	}

	ds.records[key] = &record{prefix: entry, version: version, sources: []string{sourceID}}
	if version == 4 {
		ds.v4 = append(ds.v4, entry)
	} else {
		ds.v6 = append(ds.v6, entry)
	}
	return nil
}

// V4 returns the unique IPv4 entries.
func (ds *Dataset) V4() []netip.Prefix {
	return slices.Clone(ds.v4)
}

// V6 returns the unique IPv6 entries.
func (ds *Dataset) V6() []netip.Prefix {
	return slices.Clone(ds.v6)
}

// Entries returns V4 followed by V6.
func (ds *Dataset) Entries() []netip.Prefix {
	return append(ds.V4(), ds.v6...)
}

// Provenance returns the ids of the sources that listed p, in the order
// they were merged. It is nil for unknown entries.
func (ds *Dataset) Provenance(p netip.Prefix) []string {
	return ds.ProvenanceOf(feeds.Canonical(p.Masked()))
}

// ProvenanceOf is Provenance keyed by the canonical string.
func (ds *Dataset) ProvenanceOf(key string) []string {
	rec, ok := ds.records[key]
	if !ok {
		return nil
	}
	return slices.Clone(rec.sources)
}

// Contains reports whether p is an entry of the dataset.
func (ds *Dataset) Contains(p netip.Prefix) bool {
	_, ok := ds.records[feeds.Canonical(p.Masked())]
	return ok
}

// Covering returns the entries that contain addr, most specific first.
func (ds *Dataset) Covering(addr netip.Addr) []netip.Prefix {
	addr = addr.Unmap()
	list := ds.v4
	if addr.Is6() {
		list = ds.v6
	}

	var out []netip.Prefix
	for _, p := range list {
		if p.Contains(addr) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b netip.Prefix) int {
		return b.Bits() - a.Bits()
	})
	return out
}

// Len returns the number of unique entries.
func (ds *Dataset) Len() int {
	return len(ds.records)
}

// Sources returns the ids of the merged results in merge order.
func (ds *Dataset) Sources() []string {
	return slices.Clone(ds.sources)
}

// BySource returns how many unique entries each source contributed to.
func (ds *Dataset) BySource() map[string]int {
	counts := make(map[string]int, len(ds.sources))
	for _, rec := range ds.records {
		for _, id := range rec.sources {
			counts[id]++
		}
	}
	return counts
}

// BuiltAt is the time the dataset was aggregated.
func (ds *Dataset) BuiltAt() time.Time {
	return ds.builtAt
}
