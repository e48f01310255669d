package api

import (
	"sync"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/loader"
)

// State holds the outcome of the latest run. A run without a dataset (e.g.
// aborted by fail_on_error) keeps serving the previous dataset.
type State struct {
	mu      sync.RWMutex
	report  *loader.Report
	runErr  error
	dataset *aggregator.Dataset
	runAt   time.Time
}

func NewState() *State {
	return &State{}
}

// Update records a finished run.
func (s *State) Update(report *loader.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report = report
	s.runErr = err
	s.runAt = time.Now()
	if report != nil && report.Dataset != nil {
		s.dataset = report.Dataset
	}
}

// Dataset returns the dataset being served, nil before the first good run.
func (s *State) Dataset() *aggregator.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Run is a finished aggregation run.
type Run struct {
	Report     *loader.Report
	Err        error
	FinishedAt time.Time
}

// LastRun returns the latest run; ok is false before the first one.
func (s *State) LastRun() (run Run, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runAt.IsZero() {
		return Run{}, false
	}
	return Run{Report: s.report, Err: s.runErr, FinishedAt: s.runAt}, true
}
