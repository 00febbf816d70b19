// Package experience defines the experience record data model shared by the
// store, validator, maintenance, and reporting subsystems.
// A record describes one technology-usage outcome contributed by an agent.
package experience

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SignaturePrefixLen is how many characters of record content participate in
// the duplicate-detection signature.
const SignaturePrefixLen = 50

// Technology identifies the technology a record is about.
type Technology struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type,omitempty"`
}

// HarmonyEntry describes how the record's technology interacted with
// another technology in the same stack.
type HarmonyEntry struct {
	Technology string  `json:"technology"`
	Rating     float64 `json:"rating"`
	Notes      string  `json:"notes,omitempty"`
}

// Record is a single structured experience submission.
// Once accepted into the store a record is immutable: there is no update
// path, only new records or removal by a maintenance pass.
type Record struct {
	ID               string             `json:"id"`
	Timestamp        time.Time          `json:"timestamp"`
	ContributorID    string             `json:"contributorId"`
	SourceModel      string             `json:"sourceModel"`
	Category         string             `json:"category"`
	Technology       Technology         `json:"technology"`
	Ratings          map[string]float64 `json:"ratings,omitempty"`
	HarmonyEntries   []HarmonyEntry     `json:"harmonyEntries,omitempty"`
	Evidence         map[string]string  `json:"evidence,omitempty"`
	WorkingAspects   []string           `json:"workingAspects,omitempty"`
	ImprovementAreas []string           `json:"improvementAreas,omitempty"`
	Recommendation   string             `json:"recommendation,omitempty"`
	Tags             []string           `json:"tags,omitempty"`
	QualityScore     float64            `json:"qualityScore"`
}

// Content concatenates the free-text parts of the record (recommendation,
// evidence, working aspects) in a deterministic order. Quality heuristics
// and the duplicate signature both operate on this string, so the order
// must be stable across processes.
func (r *Record) Content() string {
	var parts []string
	if r.Recommendation != "" {
		parts = append(parts, r.Recommendation)
	}
	if len(r.Evidence) > 0 {
		keys := make([]string, 0, len(r.Evidence))
		for k := range r.Evidence {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, r.Evidence[k]))
		}
	}
	parts = append(parts, r.WorkingAspects...)
	return strings.Join(parts, " ")
}

// Signature derives the duplicate-detection key: technology name, category,
// version, and the first SignaturePrefixLen characters of content. Two
// records with the same signature are considered likely duplicates.
func (r *Record) Signature() string {
	content := []rune(r.Content())
	if len(content) > SignaturePrefixLen {
		content = content[:SignaturePrefixLen]
	}
	return strings.ToLower(strings.Join([]string{
		r.Technology.Name,
		r.Category,
		r.Technology.Version,
		string(content),
	}, "|"))
}

// HasAnyTag reports whether the record's tag set intersects the given tags.
// Matching is case-insensitive.
func (r *Record) HasAnyTag(tags ...string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the record. The store hands out clones so
// callers can never mutate shared state through a returned slice.
func (r *Record) Clone() Record {
	out := *r
	if r.Ratings != nil {
		out.Ratings = make(map[string]float64, len(r.Ratings))
		for k, v := range r.Ratings {
			out.Ratings[k] = v
		}
	}
	if r.HarmonyEntries != nil {
		out.HarmonyEntries = append([]HarmonyEntry(nil), r.HarmonyEntries...)
	}
	if r.Evidence != nil {
		out.Evidence = make(map[string]string, len(r.Evidence))
		for k, v := range r.Evidence {
			out.Evidence[k] = v
		}
	}
	if r.WorkingAspects != nil {
		out.WorkingAspects = append([]string(nil), r.WorkingAspects...)
	}
	if r.ImprovementAreas != nil {
		out.ImprovementAreas = append([]string(nil), r.ImprovementAreas...)
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}

// CloneAll deep-copies a slice of records, preserving order.
func CloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}

// Statistics is the derived summary block embedded in the persisted document.
type Statistics struct {
	TotalExperiences   int      `json:"totalExperiences"`
	Categories         []string `json:"categories"`
	ContributingAgents []string `json:"contributingAgents"`
}

// ComputeStatistics derives the statistics block from a record set.
// Category and contributor lists are sorted for stable serialization.
func ComputeStatistics(records []Record) Statistics {
	categories := make(map[string]struct{})
	agents := make(map[string]struct{})
	for i := range records {
		if c := records[i].Category; c != "" {
			categories[c] = struct{}{}
		}
		if a := records[i].ContributorID; a != "" {
			agents[a] = struct{}{}
		}
	}
	return Statistics{
		TotalExperiences:   len(records),
		Categories:         sortedKeys(categories),
		ContributingAgents: sortedKeys(agents),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
