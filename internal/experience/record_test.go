package experience

import (
	"strings"
	"testing"
	"time"
)

func sampleRecord() Record {
	return Record{
		ID:            "exp-1",
		Timestamp:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ContributorID: "agent-golang-01",
		SourceModel:   "rater-v2",
		Category:      "performance",
		Technology:    Technology{Name: "PostgreSQL", Version: "16.3", Type: "database"},
		Ratings:       map[string]float64{"performance": 9.2, "reliability": 8.5},
		HarmonyEntries: []HarmonyEntry{
			{Technology: "pgbouncer", Rating: 8.0, Notes: "pooling kept p99 flat"},
		},
		Evidence:       map[string]string{"before": "420ms p99", "after": "95ms p99"},
		WorkingAspects: []string{"parallel index builds", "partition pruning"},
		Recommendation: "Partitioned the events table and rebuilt indexes concurrently; query latency improved 77%.",
		Tags:           []string{"database", "indexing"},
		QualityScore:   9.0,
	}
}

func TestContentDeterministic(t *testing.T) {
	rec := sampleRecord()
	first := rec.Content()
	for i := 0; i < 10; i++ {
		if got := rec.Content(); got != first {
			t.Fatalf("Content not deterministic: %q vs %q", got, first)
		}
	}
	// Evidence keys must appear in sorted order regardless of map iteration.
	if !strings.Contains(first, "after: 95ms p99 before: 420ms p99") {
		t.Errorf("Evidence not in sorted key order: %q", first)
	}
	if !strings.HasPrefix(first, rec.Recommendation) {
		t.Errorf("Content should start with recommendation: %q", first)
	}
}

func TestSignature(t *testing.T) {
	rec := sampleRecord()
	sig := rec.Signature()

	if sig != strings.ToLower(sig) {
		t.Errorf("Signature should be lowercase: %q", sig)
	}
	for _, part := range []string{"postgresql", "performance", "16.3"} {
		if !strings.Contains(sig, part) {
			t.Errorf("Signature missing %q: %q", part, sig)
		}
	}

	// Only the first 50 characters of content participate: changing text
	// beyond the prefix must not change the signature.
	other := sampleRecord()
	other.Recommendation = rec.Recommendation[:60] + " with a completely different tail of text"
	if other.Signature() != sig {
		t.Errorf("Signature should ignore content past the prefix:\n %q\n %q", other.Signature(), sig)
	}

	// Changing the version must change the signature.
	other = sampleRecord()
	other.Technology.Version = "15.0"
	if other.Signature() == sig {
		t.Error("Signature should include technology version")
	}
}

func TestSignatureShortContent(t *testing.T) {
	rec := Record{
		Category:       "tooling",
		Technology:     Technology{Name: "ripgrep", Version: "14.1"},
		Recommendation: "short",
	}
	// Must not panic on content shorter than the prefix length.
	if sig := rec.Signature(); !strings.Contains(sig, "short") {
		t.Errorf("Signature should contain full short content: %q", sig)
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := sampleRecord()
	cp := rec.Clone()

	cp.Ratings["performance"] = 1.0
	cp.Evidence["before"] = "mutated"
	cp.Tags[0] = "mutated"
	cp.WorkingAspects[0] = "mutated"
	cp.HarmonyEntries[0].Notes = "mutated"

	if rec.Ratings["performance"] != 9.2 {
		t.Error("Clone shares ratings map")
	}
	if rec.Evidence["before"] != "420ms p99" {
		t.Error("Clone shares evidence map")
	}
	if rec.Tags[0] != "database" {
		t.Error("Clone shares tags slice")
	}
	if rec.WorkingAspects[0] != "parallel index builds" {
		t.Error("Clone shares working aspects slice")
	}
	if rec.HarmonyEntries[0].Notes != "pooling kept p99 flat" {
		t.Error("Clone shares harmony entries slice")
	}
}

func TestHasAnyTag(t *testing.T) {
	rec := sampleRecord()

	if !rec.HasAnyTag("indexing") {
		t.Error("expected match on exact tag")
	}
	if !rec.HasAnyTag("DATABASE") {
		t.Error("expected case-insensitive match")
	}
	if !rec.HasAnyTag("missing", "indexing") {
		t.Error("expected match when any tag intersects")
	}
	if rec.HasAnyTag("missing") {
		t.Error("unexpected match on absent tag")
	}
	if rec.HasAnyTag() {
		t.Error("empty query should not match")
	}
}

func TestComputeStatistics(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Category = "reliability"
	b.ContributorID = "agent-rust-02"
	c := sampleRecord()

	stats := ComputeStatistics([]Record{a, b, c})

	if stats.TotalExperiences != 3 {
		t.Errorf("TotalExperiences = %d, want 3", stats.TotalExperiences)
	}
	wantCats := []string{"performance", "reliability"}
	if len(stats.Categories) != len(wantCats) {
		t.Fatalf("Categories = %v, want %v", stats.Categories, wantCats)
	}
	for i, c := range wantCats {
		if stats.Categories[i] != c {
			t.Errorf("Categories[%d] = %q, want %q (must be sorted)", i, stats.Categories[i], c)
		}
	}
	if len(stats.ContributingAgents) != 2 {
		t.Errorf("ContributingAgents = %v, want 2 entries", stats.ContributingAgents)
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)
	if stats.TotalExperiences != 0 || len(stats.Categories) != 0 || len(stats.ContributingAgents) != 0 {
		t.Errorf("empty input should yield zero statistics: %+v", stats)
	}
}
