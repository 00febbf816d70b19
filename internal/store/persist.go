package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"techlore/internal/experience"
	"techlore/internal/logging"
)

// SchemaVersion identifies the on-disk document format.
const SchemaVersion = "2.0"

// backupTimeFormat has nanosecond precision so rapid consecutive writes
// never collide, and sorts lexically so the newest backup is last.
const backupTimeFormat = "20060102-150405.000000000"

// Document is the on-disk JSON shape of the experience repository.
type Document struct {
	Version     string                `json:"version"`
	LastUpdated time.Time             `json:"lastUpdated"`
	Experiences []experience.Record   `json:"experiences"`
	Statistics  experience.Statistics `json:"statistics"`
}

// persistLocked writes the current record set to disk: back up the existing
// document, marshal the new one to a temp file in the same directory, then
// rename it over the original. The rename is the only step that changes
// what a concurrent reader of the file can see.
func (s *Store) persistLocked() error {
	s.markSelfWrite()

	if err := s.backupLocked(); err != nil {
		return fmt.Errorf("backup before write: %w", err)
	}

	doc := Document{
		Version:     SchemaVersion,
		LastUpdated: time.Now().UTC(),
		Experiences: s.records,
		Statistics:  experience.ComputeStatistics(s.records),
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace document: %w", err)
	}

	logging.StoreDebug("Persisted %d records to %s", len(s.records), s.path)
	return nil
}

// backupLocked copies the current on-disk document to a timestamped file in
// the backup directory. A missing document (first write) is not an error.
func (s *Store) backupLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	name := fmt.Sprintf("%s.backup.%s", filepath.Base(s.path), time.Now().UTC().Format(backupTimeFormat))
	backupPath := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return err
	}
	logging.StoreDebug("Backed up document to %s", backupPath)
	return nil
}

// loadLocked reads the document from disk, falling back through the
// recovery ladder on failure: primary file, then the newest backup, then
// an empty record set. It never returns an error; a degraded load is
// recorded in s.recovered and in the logs.
func (s *Store) loadLocked() {
	defer func() {
		s.loaded = true
		s.stale.Store(false)
	}()

	s.recovered = false

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		doc, perr := parseDocument(s.path, data)
		if perr == nil {
			s.setRecordsLocked(doc.Experiences)
			logging.StoreDebug("Loaded %d records from %s", len(s.records), s.path)
			return
		}
		logging.Get(logging.CategoryStore).Error("Load failed: %v", perr)
	case os.IsNotExist(err):
		s.setRecordsLocked(nil)
		logging.StoreDebug("No experience file at %s, starting empty", s.path)
		return
	default:
		logging.Get(logging.CategoryStore).Error("Load failed: cannot read %s: %v", s.path, err)
	}

	// Primary document unusable: try the newest backup.
	if backup, ok := s.latestBackup(); ok {
		if data, rerr := os.ReadFile(backup); rerr == nil {
			if doc, perr := parseDocument(backup, data); perr == nil {
				s.setRecordsLocked(doc.Experiences)
				s.recovered = true
				logging.Store("Recovered %d records from backup %s", len(s.records), backup)
				return
			} else {
				logging.Get(logging.CategoryStore).Error("Backup unusable: %v", perr)
			}
		} else {
			logging.Get(logging.CategoryStore).Error("Backup unreadable: %v", rerr)
		}
	}

	s.setRecordsLocked(nil)
	s.recovered = true
	logging.Get(logging.CategoryStore).Warn("No usable document or backup, starting empty")
}

// parseDocument unmarshals and sanity-checks an on-disk document.
func parseDocument(path string, data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptDatabaseError{Path: path, Err: err}
	}
	if doc.Version == "" {
		return nil, &CorruptDatabaseError{Path: path, Err: fmt.Errorf("missing schema version")}
	}
	return &doc, nil
}

// latestBackup finds the newest backup of the document, relying on the
// lexically sortable timestamp suffix.
func (s *Store) latestBackup() (string, bool) {
	pattern := filepath.Join(s.backupDir, filepath.Base(s.path)+".backup.*")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[len(matches)-1], true
}

// Backups lists every backup of the document, oldest first.
func (s *Store) Backups() []string {
	matches, err := filepath.Glob(filepath.Join(s.backupDir, filepath.Base(s.path)+".backup.*"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}
