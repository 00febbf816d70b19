// Package report derives accountability summaries from the experience
// repository: who contributed what, how much of it still clears the current
// quality gate, and where each contributor's experience concentrates.
package report

import (
	"math"
	"sort"
	"time"

	"techlore/internal/experience"
	"techlore/internal/logging"
	"techlore/internal/store"
	"techlore/internal/validate"
)

// ContributorReport summarizes one contributor's standing.
type ContributorReport struct {
	ContributorID string
	Submissions   int
	StillValid    int     // submissions that pass the current rules
	AcceptRate    float64 // StillValid / Submissions
	AverageScore  float64 // mean quality score under the current rules
	SourceModels  []string
	Categories    []string
	Technologies  []string
	FirstSeen     time.Time
	LastSeen      time.Time
}

// Accountability is the full cross-contributor report.
type Accountability struct {
	GeneratedAt  time.Time
	TotalRecords int
	Contributors []ContributorReport // by submission count desc, then id
}

// Reporter builds accountability reports against a store. Scores and
// validity are recomputed under the current rules rather than trusted from
// the stored records, so rule changes are reflected immediately.
type Reporter struct {
	store     *store.Store
	validator *validate.Validator
}

// New builds a reporter. A nil validator selects the compiled-in rules.
func New(st *store.Store, v *validate.Validator) *Reporter {
	if v == nil {
		v = validate.NewDefault()
	}
	return &Reporter{store: st, validator: v}
}

// Accountability aggregates every record by contributor.
func (r *Reporter) Accountability() *Accountability {
	timer := logging.StartTimer(logging.CategoryReport, "Reporter.Accountability")
	defer timer.Stop()

	records := r.store.All()
	acc := &Accountability{
		GeneratedAt:  time.Now().UTC(),
		TotalRecords: len(records),
	}

	type bucket struct {
		report       ContributorReport
		scoreSum     float64
		sourceModels map[string]struct{}
		categories   map[string]struct{}
		technologies map[string]struct{}
	}
	buckets := make(map[string]*bucket)

	for i := range records {
		rec := records[i]
		b, ok := buckets[rec.ContributorID]
		if !ok {
			b = &bucket{
				report:       ContributorReport{ContributorID: rec.ContributorID},
				sourceModels: make(map[string]struct{}),
				categories:   make(map[string]struct{}),
				technologies: make(map[string]struct{}),
			}
			buckets[rec.ContributorID] = b
		}

		res := r.validator.Validate(&rec)
		b.report.Submissions++
		if res.Accepted {
			b.report.StillValid++
		}
		b.scoreSum += res.QualityScore

		if rec.SourceModel != "" {
			b.sourceModels[rec.SourceModel] = struct{}{}
		}
		if rec.Category != "" {
			b.categories[rec.Category] = struct{}{}
		}
		if rec.Technology.Name != "" {
			b.technologies[rec.Technology.Name] = struct{}{}
		}
		if b.report.FirstSeen.IsZero() || rec.Timestamp.Before(b.report.FirstSeen) {
			b.report.FirstSeen = rec.Timestamp
		}
		if rec.Timestamp.After(b.report.LastSeen) {
			b.report.LastSeen = rec.Timestamp
		}
	}

	for _, b := range buckets {
		rep := b.report
		rep.AcceptRate = round2(float64(rep.StillValid) / float64(rep.Submissions))
		rep.AverageScore = round2(b.scoreSum / float64(rep.Submissions))
		rep.SourceModels = sortedKeys(b.sourceModels)
		rep.Categories = sortedKeys(b.categories)
		rep.Technologies = sortedKeys(b.technologies)
		acc.Contributors = append(acc.Contributors, rep)
	}

	sort.Slice(acc.Contributors, func(i, j int) bool {
		a, b := acc.Contributors[i], acc.Contributors[j]
		if a.Submissions != b.Submissions {
			return a.Submissions > b.Submissions
		}
		return a.ContributorID < b.ContributorID
	})

	logging.Report("Accountability: %d records across %d contributors", acc.TotalRecords, len(acc.Contributors))
	return acc
}

// TopCategories returns the n most common categories across the store,
// formatted for display.
func (r *Reporter) TopCategories(n int) []string {
	return topCounts(r.store.All(), n, func(rec *experience.Record) string { return rec.Category })
}

// TopTechnologies returns the n most common technologies across the store.
func (r *Reporter) TopTechnologies(n int) []string {
	return topCounts(r.store.All(), n, func(rec *experience.Record) string { return rec.Technology.Name })
}

func topCounts(records []experience.Record, n int, key func(*experience.Record) string) []string {
	counts := make(map[string]int)
	for i := range records {
		if k := key(&records[i]); k != "" {
			counts[k]++
		}
	}
	type pair struct {
		name  string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for name, count := range counts {
		pairs = append(pairs, pair{name, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].name < pairs[j].name
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.name
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
