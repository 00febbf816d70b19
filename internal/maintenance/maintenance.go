// Package maintenance implements the periodic quality passes over the
// experience repository: compaction of invalid and duplicate records,
// purging of test data, and non-destructive quality surveys.
package maintenance

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"techlore/internal/experience"
	"techlore/internal/logging"
	"techlore/internal/store"
	"techlore/internal/validate"
)

// Report summarizes one destructive maintenance pass.
type Report struct {
	Command           string
	StartedAt         time.Time
	Duration          time.Duration
	Processed         int
	Kept              int
	RemovedInvalid    int
	RemovedDuplicates int
	ByCategory        map[string]int // removals per category
	ByTechnology      map[string]int // removals per technology name
}

// Survey is the result of a non-destructive quality audit.
type Survey struct {
	Total          int
	Invalid        int
	UnknownVersion int
	ShortContent   int
	QualityPercent float64
	ByCategory     map[string]int // problem records per category
	ByTechnology   map[string]int // problem records per technology name
}

// Maintainer runs quality passes against a store using the current rules.
type Maintainer struct {
	store     *store.Store
	validator *validate.Validator
	history   *History // optional run ledger
}

// New builds a maintainer. A nil validator selects the compiled-in rules;
// history may be nil to skip ledger writes.
func New(st *store.Store, v *validate.Validator, history *History) *Maintainer {
	if v == nil {
		v = validate.NewDefault()
	}
	return &Maintainer{store: st, validator: v, history: history}
}

// Clean removes records that fail current validation and collapses
// duplicate signatures, keeping the earliest submission. Survivor quality
// scores are recomputed under the current rules. The compacted set is
// persisted through the store's rewrite path.
func (m *Maintainer) Clean() (*Report, error) {
	timer := logging.StartTimer(logging.CategoryMaintenance, "Maintainer.Clean")
	defer timer.StopWithInfo()

	report := newReport("clean")
	records := m.store.All()
	report.Processed = len(records)

	seen := make(map[string]struct{}, len(records))
	var kept []experience.Record
	for i := range records {
		rec := records[i]

		res := m.validator.Validate(&rec)
		if !res.Accepted {
			report.remove(&rec)
			report.RemovedInvalid++
			if len(res.Violations) > 0 {
				logging.MaintenanceDebug("Removing rejected record %s: %s", rec.ID, strings.Join(res.Violations, "; "))
			} else {
				logging.MaintenanceDebug("Removing rejected record %s: quality score %.1f below threshold %.1f",
					rec.ID, res.QualityScore, m.validator.MinQualityScore())
			}
			continue
		}

		sig := rec.Signature()
		if _, dup := seen[sig]; dup {
			report.remove(&rec)
			report.RemovedDuplicates++
			logging.MaintenanceDebug("Removing duplicate record %s (%s/%s)", rec.ID, rec.Technology.Name, rec.Category)
			continue
		}
		seen[sig] = struct{}{}

		rec.QualityScore = res.QualityScore
		kept = append(kept, rec)
	}
	report.Kept = len(kept)

	if err := m.store.Rewrite(kept); err != nil {
		return nil, fmt.Errorf("clean failed to persist: %w", err)
	}
	m.finish(report)
	return report, nil
}

// PurgeTest removes records that are recognizably test data: forbidden
// technologies or categories, placeholder-looking names, or a "test" tag.
// Unlike Clean it does not touch otherwise valid records.
func (m *Maintainer) PurgeTest() (*Report, error) {
	timer := logging.StartTimer(logging.CategoryMaintenance, "Maintainer.PurgeTest")
	defer timer.StopWithInfo()

	report := newReport("purge-test")
	records := m.store.All()
	report.Processed = len(records)

	var kept []experience.Record
	for i := range records {
		rec := records[i]
		if m.isTestData(&rec) {
			report.remove(&rec)
			report.RemovedInvalid++
			logging.MaintenanceDebug("Purging test record %s: %s/%s", rec.ID, rec.Technology.Name, rec.Category)
			continue
		}
		kept = append(kept, rec)
	}
	report.Kept = len(kept)

	if err := m.store.Rewrite(kept); err != nil {
		return nil, fmt.Errorf("purge failed to persist: %w", err)
	}
	m.finish(report)
	return report, nil
}

// ValidateOnly audits the store without modifying it and reports the
// share of records that would survive a clean pass.
func (m *Maintainer) ValidateOnly() *Survey {
	timer := logging.StartTimer(logging.CategoryMaintenance, "Maintainer.ValidateOnly")
	defer timer.Stop()

	records := m.store.All()
	survey := &Survey{
		Total:        len(records),
		ByCategory:   make(map[string]int),
		ByTechnology: make(map[string]int),
	}

	for i := range records {
		rec := records[i]

		version := strings.TrimSpace(rec.Technology.Version)
		unknownVersion := version == "" || strings.EqualFold(version, "unknown")
		shortContent := utf8.RuneCountInString(rec.Content()) < m.validator.Rules().MinContentLength

		res := m.validator.Validate(&rec)
		invalid := !res.Accepted && !unknownVersion && !shortContent

		// Each record counts against at most one bucket.
		switch {
		case unknownVersion:
			survey.UnknownVersion++
		case shortContent:
			survey.ShortContent++
		case invalid:
			survey.Invalid++
		default:
			continue
		}
		survey.ByCategory[rec.Category]++
		survey.ByTechnology[rec.Technology.Name]++
	}

	if survey.Total > 0 {
		healthy := survey.Total - survey.Invalid - survey.UnknownVersion - survey.ShortContent
		survey.QualityPercent = float64(healthy) / float64(survey.Total) * 100
	}

	logging.Maintenance("Survey: %d records, %.1f%% healthy (%d invalid, %d unknown version, %d short)",
		survey.Total, survey.QualityPercent, survey.Invalid, survey.UnknownVersion, survey.ShortContent)
	return survey
}

func (m *Maintainer) isTestData(rec *experience.Record) bool {
	if m.validator.IsForbiddenTechnology(rec.Technology.Name) {
		return true
	}
	if m.validator.IsForbiddenCategory(rec.Category) {
		return true
	}
	if validate.LooksGeneric(rec.Technology.Name) || validate.LooksGeneric(rec.Category) {
		return true
	}
	return rec.HasAnyTag("test", "testing")
}

func (m *Maintainer) finish(report *Report) {
	report.Duration = time.Since(report.StartedAt)
	logging.Maintenance("%s pass: processed=%d kept=%d invalid=%d duplicates=%d",
		report.Command, report.Processed, report.Kept, report.RemovedInvalid, report.RemovedDuplicates)

	if m.history == nil {
		return
	}
	if err := m.history.Append(report); err != nil {
		logging.Get(logging.CategoryMaintenance).Warn("History append failed: %v", err)
	}
}

func newReport(command string) *Report {
	return &Report{
		Command:      command,
		StartedAt:    time.Now().UTC(),
		ByCategory:   make(map[string]int),
		ByTechnology: make(map[string]int),
	}
}

func (r *Report) remove(rec *experience.Record) {
	r.ByCategory[rec.Category]++
	r.ByTechnology[rec.Technology.Name]++
}

// Removed is the total number of records the pass dropped.
func (r *Report) Removed() int {
	return r.RemovedInvalid + r.RemovedDuplicates
}

// TopRemovals renders the heaviest removal buckets for display, sorted by
// count descending then name.
func TopRemovals(counts map[string]int, n int) []string {
	type bucket struct {
		name  string
		count int
	}
	buckets := make([]bucket, 0, len(counts))
	for name, count := range counts {
		buckets = append(buckets, bucket{name, count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].name < buckets[j].name
	})
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = fmt.Sprintf("%s (%d)", b.name, b.count)
	}
	return out
}
