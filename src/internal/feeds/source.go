package feeds

import (
	"fmt"
	"strings"
)

// Source is the static description of one block list feed.
type Source struct {
	ID               string
	Name             string
	URL              string
	Comment          byte
	EnabledByDefault bool
	Parser           Parser
	Verifier         Verifier
}

func (s Source) String() string {
	return s.ID
}

// IsComment reports whether a trimmed feed line is a comment for this source.
func (s Source) IsComment(line string) bool {
	return len(line) > 0 && line[0] == s.Comment
}

func builtinSources() []Source {
	abuseCh := func(id, name, url string, parser Parser, verifier Verifier) Source {
		return Source{ID: id, Name: name, URL: url, Comment: '#', EnabledByDefault: true, Parser: parser, Verifier: verifier}
	}
	spamhaus := func(id, name, url string) Source {
		return Source{ID: id, Name: name, URL: url, Comment: ';', EnabledByDefault: true, Parser: FieldCIDR(" ", 0), Verifier: Baseline()}
	}

	return []Source{
		abuseCh("rw_ipbl", "Ransomware tracker RW_IPBL",
			"https://ransomwaretracker.abuse.ch/downloads/RW_IPBL.txt",
			DirectCIDR(), InlineCountCorrected()),
		abuseCh("rw_dombl", "Ransomware tracker RW_DOMBL",
			"https://ransomwaretracker.abuse.ch/downloads/RW_DOMBL.txt",
			DomainResolver(), InlineCount()),
		abuseCh("rw_urlbl", "Ransomware tracker RW_URLBL",
			"https://ransomwaretracker.abuse.ch/downloads/RW_URLBL.txt",
			URLHostResolver(), InlineCount()),
		spamhaus("drop", "Spamhaus DROP", "https://www.spamhaus.org/drop/drop.lasso"),
		spamhaus("drop_v6", "Spamhaus DROPv6", "https://www.spamhaus.org/drop/dropv6.txt"),
		spamhaus("edrop", "Spamhaus EDROP", "https://www.spamhaus.org/drop/edrop.lasso"),
		abuseCh("feodo_badip", "Feodo BadIP",
			"https://feodotracker.abuse.ch/blocklist/?download=badips",
			DirectCIDR(), ParenthesizedCount("# END")),
		abuseCh("feodo_ip", "Feodo IP",
			"https://feodotracker.abuse.ch/blocklist/?download=ipblocklist",
			DirectCIDR(), ParenthesizedCount("# END")),
		abuseCh("palevo", "Palevo C&C",
			"https://palevotracker.abuse.ch/blocklists.php?download=ipblocklist",
			DirectCIDR(), Baseline()),
		abuseCh("zeus", "Zeus IP",
			"https://zeustracker.abuse.ch/blocklist.php?download=ipblocklist",
			DirectCIDR(), Baseline()),
		abuseCh("bambenek_c2", "Bambenek Consulting C2 master feed",
			"http://osint.bambenekconsulting.com/feeds/c2-ipmasterlist.txt",
			FieldCIDR(",", 0), Baseline()),
	}
}

// Registry is an immutable, ordered set of sources. Its order is the order
// feeds are merged in, which fixes the provenance order of the dataset.
type Registry struct {
	sources []Source
	byID    map[string]int
}

// NewRegistry returns the registry of built-in feeds.
func NewRegistry() *Registry {
	r, err := NewRegistryFrom(builtinSources())
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistryFrom builds a registry from an explicit source list.
func NewRegistryFrom(sources []Source) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(sources)),
		byID:    make(map[string]int, len(sources)),
	}
	for _, src := range sources {
		if src.ID == "" {
			return nil, fmt.Errorf("source without id: %q", src.Name)
		}
		if src.URL == "" {
			return nil, fmt.Errorf("source %q has no URL", src.ID)
		}
		if src.Comment == 0 {
			return nil, fmt.Errorf("source %q has no comment marker", src.ID)
		}
		if _, exists := r.byID[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id: %s", src.ID)
		}
		r.byID[src.ID] = len(r.sources)
		r.sources = append(r.sources, src)
	}
	return r, nil
}

// All returns every source in registry order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.sources...)
}

// Get returns the source with the given id.
func (r *Registry) Get(id string) (Source, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Source{}, false
	}
	return r.sources[idx], true
}

// Has reports whether id is a known source.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// IDs returns the ids of every source in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for _, src := range r.sources {
		ids = append(ids, src.ID)
	}
	return ids
}

// Defaults returns the sources enabled by default.
func (r *Registry) Defaults() []Source {
	var out []Source
	for _, src := range r.sources {
		if src.EnabledByDefault {
			out = append(out, src)
		}
	}
	return out
}

// Select returns the sources to load, in registry order. An empty enabled
// list means the defaults; disabled ids are removed afterwards.
func (r *Registry) Select(enabled, disabled []string) ([]Source, error) {
	if err := r.checkIDs(enabled); err != nil {
		return nil, err
	}
	if err := r.checkIDs(disabled); err != nil {
		return nil, err
	}

	want := make(map[string]bool)
	if len(enabled) == 0 {
		for _, src := range r.Defaults() {
			want[src.ID] = true
		}
	} else {
		for _, id := range enabled {
			want[id] = true
		}
	}
	for _, id := range disabled {
		delete(want, id)
	}

	var out []Source
	for _, src := range r.sources {
		if want[src.ID] {
			out = append(out, src)
		}
	}
	return out, nil
}

// WithOverrides returns a copy of the registry where the given sources fetch
// from another URL, e.g. a local mirror.
func (r *Registry) WithOverrides(urls map[string]string) (*Registry, error) {
	if len(urls) == 0 {
		return r, nil
	}

	sources := r.All()
	for id, url := range urls {
		idx, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown source: %s", id)
		}
		sources[idx].URL = url
	}
	return NewRegistryFrom(sources)
}

// Names returns the display names of the given ids in registry order.
func (r *Registry) Names(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var names []string
	for _, src := range r.sources {
		if want[src.ID] {
			names = append(names, src.Name)
		}
	}
	return names
}

func (r *Registry) checkIDs(ids []string) error {
	var unknown []string
	for _, id := range ids {
		if !r.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown source(s): %s (known: %s)", strings.Join(unknown, ", "), strings.Join(r.IDs(), ", "))
	}
	return nil
}
