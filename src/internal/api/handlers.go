package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/loader"
)

// Handler serves the API endpoints from a State.
type Handler struct {
	state    *State
	registry *feeds.Registry
	selected map[string]bool
}

// NewHandler creates a handler. selected lists the ids of the feeds the
// runs load.
func NewHandler(state *State, registry *feeds.Registry, selected []string) *Handler {
	h := &Handler{
		state:    state,
		registry: registry,
		selected: make(map[string]bool, len(selected)),
	}
	for _, id := range selected {
		h.selected[id] = true
	}
	return h
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// dataset returns the served dataset or writes 503.
func (h *Handler) dataset(w http.ResponseWriter) *aggregator.Dataset {
	ds := h.state.Dataset()
	if ds == nil {
		WriteNotReady(w)
	}
	return ds
}

// Health reports whether a dataset is being served.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ds := h.state.Dataset()
	if ds == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting"})
		return
	}
	builtAt := ds.BuiltAt()
	writeJSONData(w, HealthResponse{Status: "ok", LastRunAt: &builtAt})
}

// GetSources returns the feed registry.
// GET /api/v1/sources
func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	resp := SourcesResponse{Sources: make([]SourceInfo, 0, len(all))}
	for _, src := range all {
		resp.Sources = append(resp.Sources, SourceInfo{
			ID:               src.ID,
			Name:             src.Name,
			URL:              src.URL,
			Comment:          string(src.Comment),
			Parser:           src.Parser.Kind.String(),
			Verifier:         src.Verifier.Kind.String(),
			EnabledByDefault: src.EnabledByDefault,
			Selected:         h.selected[src.ID],
		})
	}
	writeJSONData(w, resp)
}

// GetStatus returns the per-feed outcome of the last run.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := h.state.LastRun()
	if !ok {
		WriteNotReady(w)
		return
	}

	resp := StatusResponse{Sources: []SourceStatus{}}
	if report := run.Report; report != nil {
		resp.LastRun = &RunInfo{
			StartedAt:  report.StartedAt,
			DurationMs: report.Duration.Milliseconds(),
			Failed:     len(report.Failures),
		}
		for _, out := range report.Outcomes {
			resp.Sources = append(resp.Sources, sourceStatus(out))
		}
	} else {
		resp.LastRun = &RunInfo{StartedAt: run.FinishedAt}
	}
	if run.Err != nil {
		resp.LastRun.Error = run.Err.Error()
	}

	if ds := h.state.Dataset(); ds != nil {
		resp.Dataset = &DatasetInfo{V4: len(ds.V4()), V6: len(ds.V6()), BuiltAt: ds.BuiltAt(), BySource: ds.BySource()}
	}

	writeJSONData(w, resp)
}

func sourceStatus(out loader.Outcome) SourceStatus {
	st := SourceStatus{
		ID:         out.Source.ID,
		Status:     StatusOK,
		DurationMs: out.Duration.Milliseconds(),
	}

	if out.Err != nil {
		st.Status = StatusFailed
		st.Error = out.Err.Error()
		var fe *bferrors.FeedError
		if errors.As(out.Err, &fe) {
			st.Stage = string(fe.Stage)
		}
	}

	if res := out.Result; res != nil {
		if res.FromSnapshot {
			st.Status = StatusSnapshot
		}
		st.Entries = len(res.Entries)
		st.Parsed = res.Parsed
		st.Resolved = res.Resolved
		st.Checksum = res.Checksum
		if !res.FetchedAt.IsZero() {
			fetchedAt := res.FetchedAt.UTC().Truncate(time.Second)
			st.FetchedAt = &fetchedAt
		}
	}
	return st
}

// GetEntries returns the entries of one IP version with their provenance.
// GET /api/v1/entries?version=4|6
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	version := 4
	if v := r.URL.Query().Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 4 && n != 6) {
			WriteInvalidRequest(w, "version must be 4 or 6")
			return
		}
		version = n
	}

	ds := h.dataset(w)
	if ds == nil {
		return
	}

	list := ds.V4()
	if version == 6 {
		list = ds.V6()
	}

	resp := EntriesResponse{Version: version, Count: len(list), Entries: make([]EntryInfo, 0, len(list))}
	for _, p := range list {
		resp.Entries = append(resp.Entries, EntryInfo{Prefix: feeds.Canonical(p), Sources: ds.Provenance(p)})
	}
	writeJSONData(w, resp)
}

// Lookup returns the provenance of a prefix, or every entry covering an
// address.
// GET /api/v1/lookup?prefix=...
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("prefix"))
	if query == "" {
		WriteInvalidRequest(w, "prefix query parameter is required")
		return
	}

	resp, err := lookup(h.state.Dataset(), query)
	if err != nil {
		WriteInvalidRequest(w, err.Error())
		return
	}
	if resp == nil {
		WriteNotReady(w)
		return
	}
	if len(resp.Matches) == 0 {
		WriteNotFound(w, "entry "+query)
		return
	}
	writeJSONData(w, resp)
}

// lookup resolves query against ds; it returns nil without a dataset.
func lookup(ds *aggregator.Dataset, query string) (*LookupResponse, error) {
	q, err := aggregator.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, nil
	}

	resp := &LookupResponse{Query: query, Exact: q.Exact, Matches: []EntryInfo{}}
	for _, p := range ds.Match(q) {
		resp.Matches = append(resp.Matches, EntryInfo{Prefix: feeds.Canonical(p), Sources: ds.Provenance(p)})
	}
	return resp, nil
}
