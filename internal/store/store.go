// Package store implements the durable experience repository: a quality-gated,
// capacity-bounded record set persisted as a single JSON document with
// timestamped backups and crash recovery.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"techlore/internal/experience"
	"techlore/internal/logging"
	"techlore/internal/validate"
)

const (
	// DefaultMaxRecords caps the store so one runaway contributor cannot
	// grow the document without bound.
	DefaultMaxRecords = 10000

	// DefaultMaxFieldLength caps every string field of a submission.
	DefaultMaxFieldLength = 10000

	// WildcardCategory matches every record in Search.
	WildcardCategory = "all"
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Validator      *validate.Validator // nil selects validate.NewDefault()
	MaxRecords     int
	MaxFieldLength int
	BackupDir      string // defaults to the store file's directory
	WatchFile      bool   // watch for out-of-band edits to the store file
}

// Store is the shared experience repository. All operations are safe for
// concurrent use; writes serialize on an internal mutex and reads work
// against an in-memory cache of the persisted document.
type Store struct {
	path        string
	backupDir   string
	validator   *validate.Validator
	maxRecords  int
	maxFieldLen int

	mu         sync.RWMutex
	loaded     bool
	recovered  bool
	records    []experience.Record
	signatures map[string]int // signature -> index into records

	stale       atomic.Bool
	ignoreUntil atomic.Int64 // unix nanos; watcher skips self-writes before this

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Stats summarizes the current record set.
type Stats struct {
	Count         int
	ByCategory    map[string]int
	ByContributor map[string]int
}

// New opens (or prepares to create) the experience repository at path.
// The file itself is loaded lazily on first use, so New succeeds even
// when the document is missing or corrupt.
func New(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path required")
	}

	if opts.Validator == nil {
		opts.Validator = validate.NewDefault()
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.MaxFieldLength <= 0 {
		opts.MaxFieldLength = DefaultMaxFieldLength
	}
	if opts.BackupDir == "" {
		opts.BackupDir = filepath.Dir(path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.MkdirAll(opts.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	s := &Store{
		path:        path,
		backupDir:   opts.BackupDir,
		validator:   opts.Validator,
		maxRecords:  opts.MaxRecords,
		maxFieldLen: opts.MaxFieldLength,
		signatures:  make(map[string]int),
	}

	if opts.WatchFile {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}

	logging.StoreDebug("Store opened: path=%s maxRecords=%d watch=%v", path, s.maxRecords, opts.WatchFile)
	return s, nil
}

// Path returns the location of the persisted document.
func (s *Store) Path() string {
	return s.path
}

// Recovered reports whether the most recent load had to fall back to a
// backup or to an empty record set.
func (s *Store) Recovered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recovered
}

// Record validates the candidate and, if it passes the quality gate,
// appends it and persists the document. Returns the assigned record id.
// On any failure the in-memory state is unchanged.
func (s *Store) Record(candidate experience.Record) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Record")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	if violations := s.fieldCeilingViolations(&candidate); len(violations) > 0 {
		logging.Store("Rejected submission from %s: oversized fields", candidate.ContributorID)
		return "", &ValidationError{Violations: violations}
	}

	if len(s.records) >= s.maxRecords {
		logging.Store("Rejected submission from %s: store at capacity (%d)", candidate.ContributorID, s.maxRecords)
		return "", &CapacityExceededError{Limit: s.maxRecords}
	}

	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if candidate.Timestamp.IsZero() {
		candidate.Timestamp = time.Now().UTC()
	}

	res := s.validator.Validate(&candidate)
	for _, w := range res.Warnings {
		logging.ValidateDebug("Warning for %s: %s", candidate.ID, w)
	}
	if !res.Accepted {
		violations := res.Violations
		if len(violations) == 0 {
			violations = []string{fmt.Sprintf("Quality score %.1f below acceptance threshold %.1f",
				res.QualityScore, s.validator.MinQualityScore())}
		}
		logging.Store("Rejected submission from %s: %d violation(s), score %.1f",
			candidate.ContributorID, len(violations), res.QualityScore)
		return "", &ValidationError{
			Violations:   violations,
			Warnings:     res.Warnings,
			QualityScore: res.QualityScore,
		}
	}
	candidate.QualityScore = res.QualityScore

	sig := candidate.Signature()
	if idx, dup := s.signatures[sig]; dup {
		existing := s.records[idx].ID
		logging.Store("Rejected duplicate submission from %s (matches %s)", candidate.ContributorID, existing)
		return "", &ValidationError{
			Violations: []string{fmt.Sprintf("Duplicate experience: %s/%s %s already recorded as %s",
				candidate.Technology.Name, candidate.Category, candidate.Technology.Version, existing)},
			QualityScore: res.QualityScore,
		}
	}

	s.records = append(s.records, candidate)
	s.signatures[sig] = len(s.records) - 1

	if err := s.persistLocked(); err != nil {
		s.records = s.records[:len(s.records)-1]
		delete(s.signatures, sig)
		logging.Get(logging.CategoryStore).Error("Persist failed, submission rolled back: %v", err)
		return "", &PersistenceError{Op: "experience append", Err: err}
	}

	logging.Store("Recorded experience %s: %s/%s score=%.1f (total %d)",
		candidate.ID, candidate.Technology.Name, candidate.Category, candidate.QualityScore, len(s.records))
	return candidate.ID, nil
}

// Search returns deep copies of all records in the given category.
// WildcardCategory ("all") matches everything. Matching is case-insensitive.
func (s *Store) Search(category string) []experience.Record {
	snap := s.snapshot()
	if strings.EqualFold(category, WildcardCategory) {
		return experience.CloneAll(snap)
	}
	var matched []experience.Record
	for i := range snap {
		if strings.EqualFold(snap[i].Category, category) {
			matched = append(matched, snap[i].Clone())
		}
	}
	logging.StoreDebug("Search category=%q matched %d/%d", category, len(matched), len(snap))
	return matched
}

// SearchByTags returns deep copies of records carrying at least one of the
// given tags.
func (s *Store) SearchByTags(tags ...string) []experience.Record {
	snap := s.snapshot()
	var matched []experience.Record
	for i := range snap {
		if snap[i].HasAnyTag(tags...) {
			matched = append(matched, snap[i].Clone())
		}
	}
	return matched
}

// All returns a deep copy of every record, in insertion order.
func (s *Store) All() []experience.Record {
	return experience.CloneAll(s.snapshot())
}

// Stats aggregates counts over the current record set.
func (s *Store) Stats() Stats {
	snap := s.snapshot()
	st := Stats{
		Count:         len(snap),
		ByCategory:    make(map[string]int),
		ByContributor: make(map[string]int),
	}
	for i := range snap {
		st.ByCategory[snap[i].Category]++
		st.ByContributor[snap[i].ContributorID]++
	}
	return st
}

// Categories returns the sorted list of distinct categories in the store.
func (s *Store) Categories() []string {
	seen := make(map[string]struct{})
	for _, rec := range s.snapshot() {
		seen[rec.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Rewrite replaces the entire record set and persists it. Validation and
// the capacity ceiling are bypassed: the caller is a maintenance pass that
// has already decided what survives. On persist failure the previous
// in-memory set is restored.
func (s *Store) Rewrite(records []experience.Record) error {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Rewrite")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	oldRecords := s.records
	oldSignatures := s.signatures
	s.setRecordsLocked(experience.CloneAll(records))

	if err := s.persistLocked(); err != nil {
		s.records = oldRecords
		s.signatures = oldSignatures
		logging.Get(logging.CategoryStore).Error("Rewrite persist failed, previous set restored: %v", err)
		return &PersistenceError{Op: "maintenance rewrite", Err: err}
	}

	logging.Store("Rewrote store: %d -> %d records", len(oldRecords), len(s.records))
	return nil
}

// Close releases the file watcher, if one was started.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			s.closeErr = s.watcher.Close()
			<-s.watchDone
		}
	})
	return s.closeErr
}

// ===== INTERNAL STATE =====

// ensureLoadedLocked loads the document on first use and reloads it after
// the watcher marks the cache stale. Load never fails: the recovery ladder
// ends at an empty record set.
func (s *Store) ensureLoadedLocked() {
	if s.loaded && !s.stale.Load() {
		return
	}
	s.loadLocked()
}

// setRecordsLocked installs a record slice and rebuilds the signature index.
func (s *Store) setRecordsLocked(records []experience.Record) {
	s.records = records
	s.signatures = make(map[string]int, len(records))
	for i := range records {
		s.signatures[records[i].Signature()] = i
	}
}

// snapshot returns a shallow copy of the record slice for read operations.
// Records are never mutated in place, so sharing the backing maps is safe;
// public read methods clone before returning.
func (s *Store) snapshot() []experience.Record {
	s.mu.RLock()
	if s.loaded && !s.stale.Load() {
		snap := make([]experience.Record, len(s.records))
		copy(snap, s.records)
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	snap := make([]experience.Record, len(s.records))
	copy(snap, s.records)
	return snap
}

// fieldCeilingViolations enforces the per-field length ceiling before the
// candidate reaches the validator.
func (s *Store) fieldCeilingViolations(rec *experience.Record) []string {
	var violations []string
	check := func(field, value string) {
		if len(value) > s.maxFieldLen {
			violations = append(violations,
				fmt.Sprintf("Field %s exceeds maximum length: %d characters (limit %d)", field, len(value), s.maxFieldLen))
		}
	}

	check("contributorId", rec.ContributorID)
	check("sourceModel", rec.SourceModel)
	check("category", rec.Category)
	check("technology.name", rec.Technology.Name)
	check("technology.version", rec.Technology.Version)
	check("technology.type", rec.Technology.Type)
	check("recommendation", rec.Recommendation)
	for k, v := range rec.Evidence {
		check("evidence."+k, v)
	}
	for i, a := range rec.WorkingAspects {
		check(fmt.Sprintf("workingAspects[%d]", i), a)
	}
	for i, a := range rec.ImprovementAreas {
		check(fmt.Sprintf("improvementAreas[%d]", i), a)
	}
	for i, t := range rec.Tags {
		check(fmt.Sprintf("tags[%d]", i), t)
	}
	for i, h := range rec.HarmonyEntries {
		check(fmt.Sprintf("harmonyEntries[%d].notes", i), h.Notes)
	}

	sort.Strings(violations)
	return violations
}
