// Package snapshot keeps the last good entries of every feed on disk so a
// run can fall back to them when a feed is unreachable.
//
// A snapshot is one canonical CIDR per line. Next to it a "<file>.md5"
// sidecar holds the checksum of the content, which lets Save skip the write
// when nothing changed.
package snapshot

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fasttemplate"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/hashing"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/metrics"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/utils"
)

const checksumSuffix = ".md5"

// Template variables of the snapshot file name.
const (
	VarSourceID   = "source_id"
	VarSourceName = "source_name"
)

// ErrNoSnapshot is returned by Load when the source was never saved.
var ErrNoSnapshot = errors.New("no snapshot")

// Store saves and loads per-feed snapshots inside Dir.
type Store struct {
	Dir  string
	tmpl *fasttemplate.Template
}

// NewStore returns a store naming its files after nameTemplate, e.g.
// "{{source_id}}.lst".
func NewStore(dir, nameTemplate string) (*Store, error) {
	if !strings.Contains(nameTemplate, "{{"+VarSourceID+"}}") {
		return nil, bferrors.NewSnapshotError(fmt.Sprintf("snapshot name %q must contain {{%s}}", nameTemplate, VarSourceID), nil)
	}
	tmpl, err := fasttemplate.NewTemplate(nameTemplate, "{{", "}}")
	if err != nil {
		return nil, bferrors.NewSnapshotError("invalid snapshot name template", err)
	}
	return &Store{Dir: dir, tmpl: tmpl}, nil
}

// Path returns the snapshot file of src.
func (s *Store) Path(src feeds.Source) string {
	name := s.tmpl.ExecuteString(map[string]interface{}{
		VarSourceID:   src.ID,
		VarSourceName: fileSafe(src.Name),
	})
	return filepath.Join(s.Dir, name)
}

// Save writes entries as the snapshot of src. It reports whether the file
// was rewritten; an unchanged snapshot is left untouched.
func (s *Store) Save(src feeds.Source, entries []netip.Prefix) (bool, error) {
	digest := hashing.NewLineDigest()
	for _, e := range entries {
		digest.Add(feeds.Canonical(e))
	}

	path := s.Path(src)
	if !isChanged(digest, path) {
		log.Debugf("Snapshot of %s is not changed, skipping write to disk", src.ID)
		metrics.SnapshotWrites.WithLabelValues(src.ID, metrics.SnapshotUnchanged).Inc()
		return false, nil
	}

	if err := utils.WriteFileAtomic(path, digest.Bytes(), 0644); err != nil {
		return false, bferrors.NewSnapshotError(fmt.Sprintf("failed to write snapshot of %s", src.ID), err)
	}
	if err := utils.WriteFileAtomic(path+checksumSuffix, []byte(digest.Checksum()), 0644); err != nil {
		return false, bferrors.NewSnapshotError(fmt.Sprintf("failed to write snapshot checksum of %s", src.ID), err)
	}

	metrics.SnapshotWrites.WithLabelValues(src.ID, metrics.SnapshotWritten).Inc()
	log.Debugf("Snapshot of %s saved to %s (%d entries)", src.ID, path, digest.Len())
	return true, nil
}

// Load reads the snapshot of src back. The entries bypass parsing and
// verification, so every line must already be a canonical network.
func (s *Store) Load(src feeds.Source) (*feeds.Result, error) {
	path := s.Path(src)

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, bferrors.NewSnapshotError(fmt.Sprintf("no snapshot of %s at %s", src.ID, path), ErrNoSnapshot)
	}
	if err != nil {
		return nil, bferrors.NewSnapshotError(fmt.Sprintf("failed to read snapshot of %s", src.ID), err)
	}

	var entries []netip.Prefix
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		prefix, err := feeds.ParseNetwork(line)
		if err != nil {
			return nil, bferrors.NewSnapshotError(fmt.Sprintf("%s:%d: invalid entry %q", path, lineNo, line), err)
		}
		entries = append(entries, prefix)
	}
	if err := scanner.Err(); err != nil {
		return nil, bferrors.NewSnapshotError(fmt.Sprintf("failed to read snapshot of %s", src.ID), err)
	}

	result := &feeds.Result{
		SourceID:     src.ID,
		Entries:      entries,
		Parsed:       len(entries),
		Checksum:     hashing.Sum(content),
		FromSnapshot: true,
	}
	if info, err := os.Stat(path); err == nil {
		result.FetchedAt = info.ModTime()
	}
	return result, nil
}

// isChanged compares the digest with the sidecar of path. Any problem
// reading the sidecar counts as a change.
func isChanged(digest hashing.ChecksumProvider, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return true
	}
	stored, err := os.ReadFile(path + checksumSuffix)
	if err != nil {
		log.Debugf("Failed to read checksum file '%s', assuming it's changed: %v", path+checksumSuffix, err)
		return true
	}
	return strings.TrimSpace(string(stored)) != digest.Checksum()
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '&':
			return '_'
		}
		return r
	}, s)
}
