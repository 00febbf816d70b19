package validate

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"techlore/internal/experience"
)

// validRecord returns a candidate that passes every check with a perfect
// score: substantial content, measured evidence, dotted release version.
func validRecord() experience.Record {
	return experience.Record{
		ID:            "exp-42",
		Timestamp:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ContributorID: "agent-golang-01",
		SourceModel:   "rater-v2",
		Category:      "performance",
		Technology:    experience.Technology{Name: "PostgreSQL", Version: "16.3", Type: "database"},
		Ratings:       map[string]float64{"performance": 9.2},
		Evidence:      map[string]string{"before": "420ms p99", "after": "95ms p99"},
		WorkingAspects: []string{
			"parallel index builds",
		},
		Recommendation: "Partitioning the events table cut query latency by 77% and made vacuum behavior predictable under sustained write load.",
	}
}

func hasViolation(res Result, substr string) bool {
	for _, v := range res.Violations {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

func hasWarning(res Result, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsGoodRecord(t *testing.T) {
	v := NewDefault()
	rec := validRecord()

	res := v.Validate(&rec)

	if !res.Accepted {
		t.Fatalf("expected acceptance, got violations: %v", res.Violations)
	}
	if len(res.Violations) != 0 {
		t.Errorf("unexpected violations: %v", res.Violations)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if res.QualityScore != 10.0 {
		t.Errorf("QualityScore = %v, want 10.0", res.QualityScore)
	}
}

func TestValidateForbiddenCategory(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Category = "test"

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("record with forbidden category must be rejected")
	}
	if !hasViolation(res, "Forbidden category: test") {
		t.Errorf("missing forbidden-category violation, got: %v", res.Violations)
	}
}

func TestValidateForbiddenTechnology(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Technology.Name = "dummy"

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("record with forbidden technology must be rejected")
	}
	if !hasViolation(res, "Forbidden technology: dummy") {
		t.Errorf("missing forbidden-technology violation, got: %v", res.Violations)
	}
}

func TestValidateGenericTechnologyName(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Technology.Name = "demoservice"

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("placeholder-looking technology name must be rejected")
	}
	if !hasViolation(res, "looks like placeholder data") {
		t.Errorf("missing placeholder violation, got: %v", res.Violations)
	}
}

func TestValidateRatingPrecision(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Ratings = map[string]float64{"performance": 8.73}

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("rating with two decimal digits must be rejected")
	}
	// The violation names the nearest valid value.
	if !hasViolation(res, "nearest valid value: 8.7") {
		t.Errorf("violation should name nearest valid value 8.7, got: %v", res.Violations)
	}
}

func TestValidateRatingRange(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"AboveMax", 10.5},
		{"Negative", -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewDefault()
			rec := validRecord()
			rec.Ratings = map[string]float64{"performance": tt.value}

			res := v.Validate(&rec)
			if res.Accepted {
				t.Fatal("out-of-range rating must be rejected")
			}
			if !hasViolation(res, "out of range") {
				t.Errorf("missing range violation, got: %v", res.Violations)
			}
		})
	}
}

func TestValidateWholeNumberRatingAllowed(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Ratings = map[string]float64{"performance": 8.0, "reliability": 10.0}

	res := v.Validate(&rec)
	if !res.Accepted {
		t.Errorf("whole-number ratings are valid, got violations: %v", res.Violations)
	}
}

func TestValidateHarmonyRatingChecked(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.HarmonyEntries = []experience.HarmonyEntry{
		{Technology: "pgbouncer", Rating: 7.25},
	}

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("imprecise harmony rating must be rejected")
	}
	if !hasViolation(res, "harmony:pgbouncer") {
		t.Errorf("harmony violation should name the entry, got: %v", res.Violations)
	}
}

func TestValidateBoilerplateContent(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	// Long enough to clear the length minimum, still boilerplate.
	rec.Recommendation = "This is a test placeholder example written only to occupy space in the repository."
	rec.Evidence = nil
	rec.WorkingAspects = nil

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("boilerplate content must be rejected regardless of length")
	}
	if !hasViolation(res, `boilerplate phrase: "this is a test"`) {
		t.Errorf("missing boilerplate violation, got: %v", res.Violations)
	}
}

func TestValidateRepetitiveContent(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Recommendation = strings.TrimSpace(strings.Repeat("fast fast fast fast ", 5))
	rec.Evidence = nil
	rec.WorkingAspects = nil

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("repetitive content must be rejected")
	}
	if !hasViolation(res, "Content is repetitive") {
		t.Errorf("missing repetition violation, got: %v", res.Violations)
	}
}

func TestValidateShortContent(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Recommendation = "Worked fine."
	rec.Evidence = nil
	rec.WorkingAspects = nil

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("short content must be rejected")
	}
	if !hasViolation(res, "Content too short") {
		t.Errorf("missing short-content violation, got: %v", res.Violations)
	}
}

func TestValidateContentLengthCountsRunes(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	// 30 runes but 90 bytes: still under the 50-character minimum.
	rec.Recommendation = strings.Repeat("負", 30)
	rec.Evidence = nil
	rec.WorkingAspects = nil

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("30-rune content must be rejected regardless of byte length")
	}
	if !hasViolation(res, "Content too short: 30 characters") {
		t.Errorf("violation should report the rune count, got: %v", res.Violations)
	}
}

func TestValidateGenericWordingIsWarningOnly(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Recommendation = "Replaced the demo cluster wiring with a tuned connection pool and the nightly batch finished an hour earlier than before. Throughput stayed level through the busiest reporting window of the quarter."
	rec.Evidence = nil
	rec.WorkingAspects = nil

	res := v.Validate(&rec)

	if !hasWarning(res, "generic wording") {
		t.Errorf("expected generic-wording warning, got warnings: %v", res.Warnings)
	}
	if !res.Accepted {
		t.Errorf("generic wording alone must not block acceptance, violations: %v (score %v)",
			res.Violations, res.QualityScore)
	}
}

func TestValidateMissingFields(t *testing.T) {
	v := NewDefault()
	rec := experience.Record{}

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("empty record must be rejected")
	}
	for _, want := range []string{
		"Missing required field: technology",
		"Missing required field: category",
		"Missing required field: contributorId",
		"Missing required field: sourceModel",
		"Missing required field: timestamp",
		"Missing technology version",
	} {
		if !hasViolation(res, want) {
			t.Errorf("missing violation %q, got: %v", want, res.Violations)
		}
	}
}

func TestValidateUnknownVersion(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Technology.Version = "unknown"

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal(`version "unknown" must be rejected`)
	}
	if !hasViolation(res, `must not be "unknown"`) {
		t.Errorf("missing unknown-version violation, got: %v", res.Violations)
	}
}

func TestValidateShortContributorID(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.ContributorID = "a1"

	res := v.Validate(&rec)

	if res.Accepted {
		t.Fatal("short contributor id must be rejected")
	}
	if !hasViolation(res, "Contributor id too short") {
		t.Errorf("missing contributor violation, got: %v", res.Violations)
	}
}

func TestValidateAccumulatesAllViolations(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Category = "test"
	rec.Technology.Version = "unknown"
	rec.Ratings = map[string]float64{"performance": 8.73}

	res := v.Validate(&rec)

	// All three independent problems must be reported in one pass.
	for _, want := range []string{"Forbidden category", `must not be "unknown"`, "nearest valid value"} {
		if !hasViolation(res, want) {
			t.Errorf("missing accumulated violation %q, got: %v", want, res.Violations)
		}
	}
}

func TestValidateRejectsLowScoreWithoutViolations(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	// Between 50 and 100 characters, one penalty word, no measurements and
	// no dotted version: score 10 - 2 - 1 = 7.0, below the 7.5 gate.
	rec.Recommendation = "The rollout behaved in unknown ways under load so we rolled back the change."
	rec.Evidence = nil
	rec.WorkingAspects = nil
	rec.Technology.Version = "16"
	rec.Ratings = nil

	res := v.Validate(&rec)

	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got: %v", res.Violations)
	}
	if res.QualityScore != 7.0 {
		t.Errorf("QualityScore = %v, want 7.0", res.QualityScore)
	}
	if res.Accepted {
		t.Error("record below the quality gate must not be accepted")
	}
}

func TestValidateUnrecognizedAspectWarning(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Ratings = map[string]float64{"vibes": 8.0}

	res := v.Validate(&rec)

	if !hasWarning(res, "Unrecognized rating aspect: vibes") {
		t.Errorf("expected unrecognized-aspect warning, got: %v", res.Warnings)
	}
	if !res.Accepted {
		t.Errorf("unrecognized aspect must not block acceptance, violations: %v", res.Violations)
	}
}

func TestValidateDeterministic(t *testing.T) {
	v := NewDefault()
	rec := validRecord()
	rec.Category = "test"
	rec.Ratings = map[string]float64{"performance": 8.73, "reliability": 9.99, "usability": 3.14}

	first := v.Validate(&rec)
	for i := 0; i < 20; i++ {
		if got := v.Validate(&rec); !reflect.DeepEqual(got, first) {
			t.Fatalf("validation not deterministic:\n first: %+v\n again: %+v", first, got)
		}
	}
}
