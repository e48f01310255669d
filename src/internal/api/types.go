package api

import "time"

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string     `json:"status"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// SourceInfo describes one registry feed.
type SourceInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	Comment          string `json:"comment"`
	Parser           string `json:"parser"`
	Verifier         string `json:"verifier"`
	EnabledByDefault bool   `json:"enabled_by_default"`
	Selected         bool   `json:"selected"`
}

// SourcesResponse returns the registry in order.
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
}

// Outcome values of SourceStatus.
const (
	StatusOK       = "ok"
	StatusSnapshot = "snapshot"
	StatusFailed   = "failed"
)

// SourceStatus is the outcome of one feed in the last run.
type SourceStatus struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Stage      string     `json:"stage,omitempty"`
	Error      string     `json:"error,omitempty"`
	Entries    int        `json:"entries"`
	Parsed     int        `json:"parsed"`
	Resolved   int        `json:"resolved,omitempty"`
	Checksum   string     `json:"checksum,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// RunInfo summarises the last run.
type RunInfo struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Failed     int       `json:"failed"`
}

// DatasetInfo summarises the dataset currently served.
type DatasetInfo struct {
	V4      int       `json:"v4"`
	V6      int       `json:"v6"`
	BuiltAt time.Time `json:"built_at"`
	// BySource counts the entries each feed listed.
	BySource map[string]int `json:"by_source"`
}

// StatusResponse returns the outcome of the last run.
type StatusResponse struct {
	LastRun *RunInfo       `json:"last_run"`
	Dataset *DatasetInfo   `json:"dataset"`
	Sources []SourceStatus `json:"sources"`
}

// EntryInfo is one aggregated entry with the feeds that listed it.
type EntryInfo struct {
	Prefix  string   `json:"prefix"`
	Sources []string `json:"sources"`
}

// EntriesResponse lists the entries of one IP version.
type EntriesResponse struct {
	Version int         `json:"version"`
	Count   int         `json:"count"`
	Entries []EntryInfo `json:"entries"`
}

// LookupResponse returns the entries matching a query. Exact is set when
// the query was a prefix; an address query matches every covering entry.
type LookupResponse struct {
	Query   string      `json:"query"`
	Exact   bool        `json:"exact"`
	Matches []EntryInfo `json:"matches"`
}
