package main

import (
	"testing"
)

func TestSplitPair(t *testing.T) {
	tests := []struct {
		raw       string
		key, want string
		wantErr   bool
	}{
		{"performance=9.2", "performance", "9.2", false},
		{"before=420ms p99", "before", "420ms p99", false},
		{"key=", "key", "", false},
		{"nodelimiter", "", "", true},
		{"=value", "", "", true},
	}
	for _, tt := range tests {
		key, value, err := splitPair(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("splitPair(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitPair(%q): %v", tt.raw, err)
			continue
		}
		if key != tt.key || value != tt.want {
			t.Errorf("splitPair(%q) = %q, %q; want %q, %q", tt.raw, key, value, tt.key, tt.want)
		}
	}
}

func TestBuildRecordFromFlags(t *testing.T) {
	recordTech = "PostgreSQL"
	recordVersion = "16.3"
	recordType = "database"
	recordCategory = "performance"
	recordContributor = "agent-golang-01"
	recordSource = "rater-v2"
	recordRecommendation = "Partitioning cut latency."
	recordTags = []string{"database"}
	recordRatings = []string{"performance=9.2"}
	recordEvidence = []string{"before=420ms p99"}
	recordHarmony = []string{"pgbouncer=8.5"}
	t.Cleanup(func() {
		recordTech, recordVersion, recordType, recordCategory = "", "", "", ""
		recordContributor, recordSource, recordRecommendation = "", "", ""
		recordTags, recordRatings, recordEvidence, recordHarmony = nil, nil, nil, nil
	})

	rec, err := buildRecordFromFlags()
	if err != nil {
		t.Fatalf("buildRecordFromFlags: %v", err)
	}

	if rec.Technology.Name != "PostgreSQL" || rec.Technology.Version != "16.3" {
		t.Errorf("Technology = %+v", rec.Technology)
	}
	if rec.Ratings["performance"] != 9.2 {
		t.Errorf("Ratings = %v", rec.Ratings)
	}
	if rec.Evidence["before"] != "420ms p99" {
		t.Errorf("Evidence = %v", rec.Evidence)
	}
	if len(rec.HarmonyEntries) != 1 || rec.HarmonyEntries[0].Technology != "pgbouncer" || rec.HarmonyEntries[0].Rating != 8.5 {
		t.Errorf("HarmonyEntries = %+v", rec.HarmonyEntries)
	}
}

func TestBuildRecordRejectsBadRating(t *testing.T) {
	recordRatings = []string{"performance=fast"}
	t.Cleanup(func() { recordRatings = nil })

	if _, err := buildRecordFromFlags(); err == nil {
		t.Fatal("expected error for non-numeric rating")
	}
}

func TestCommandRegistration(t *testing.T) {
	want := []string{"init", "record", "search", "stats", "ingest", "validate", "clean", "purge-test", "report", "history"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}
