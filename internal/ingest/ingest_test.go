package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"techlore/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "experiences.json"), store.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func submissionLine(version string) string {
	return fmt.Sprintf(`{"timestamp":"2026-03-14T09:30:00Z","contributorId":"agent-golang-01","sourceModel":"rater-v2","category":"performance","technology":{"name":"PostgreSQL","version":%q,"type":"database"},"recommendation":"Partitioning the events table cut query latency by 77%% and made vacuum behavior predictable under sustained write load."}`, version)
}

func TestReaderAcceptsWholeBatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	input := strings.Join([]string{
		submissionLine("16.1"),
		submissionLine("16.2"),
		submissionLine("16.3"),
	}, "\n")

	summary, err := New(s, 2).Reader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}

	if summary.Total != 3 || summary.Accepted != 3 {
		t.Errorf("summary = %+v, want 3 accepted", summary)
	}
	if got := s.Stats().Count; got != 3 {
		t.Errorf("store holds %d records, want 3", got)
	}
}

func TestReaderCollectsPerLineFailures(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	rejected := strings.Replace(submissionLine("16.2"), `"performance"`, `"test"`, 1)
	input := strings.Join([]string{
		submissionLine("16.1"),
		rejected,
		"{not json",
	}, "\n")

	summary, err := New(s, 2).Reader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}

	if summary.Accepted != 1 || summary.Rejected != 1 || summary.Malformed != 1 {
		t.Errorf("summary = %+v, want 1/1/1", summary)
	}
	if len(summary.Failures) != 2 {
		t.Fatalf("Failures = %d, want 2", len(summary.Failures))
	}
	// Failures come back in line order regardless of worker scheduling.
	if summary.Failures[0].Line != 2 || summary.Failures[1].Line != 3 {
		t.Errorf("failure lines = %d, %d; want 2, 3", summary.Failures[0].Line, summary.Failures[1].Line)
	}
	if !strings.Contains(summary.Failures[0].Reason, "Forbidden category: test") {
		t.Errorf("rejection reason = %q", summary.Failures[0].Reason)
	}
	if !strings.Contains(summary.Failures[1].Reason, "malformed JSON") {
		t.Errorf("malformed reason = %q", summary.Failures[1].Reason)
	}
}

func TestReaderSkipsBlankLines(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	input := submissionLine("16.1") + "\n\n\n" + submissionLine("16.2") + "\n"

	summary, err := New(s, 1).Reader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if summary.Total != 2 || summary.Accepted != 2 {
		t.Errorf("summary = %+v, want 2 accepted", summary)
	}
}

func TestReaderCountsDuplicateWithinBatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	// Identical lines: exactly one survives regardless of worker order.
	input := submissionLine("16.1") + "\n" + submissionLine("16.1")

	summary, err := New(s, 2).Reader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if summary.Accepted != 1 || summary.Rejected != 1 {
		t.Errorf("summary = %+v, want 1 accepted 1 rejected", summary)
	}
	if got := s.Stats().Count; got != 1 {
		t.Errorf("store holds %d records, want 1", got)
	}
}

func TestFileIngestsFromDisk(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	if err := os.WriteFile(path, []byte(submissionLine("16.1")+"\n"), 0644); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	summary, err := New(s, 0).File(context.Background(), path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if summary.Accepted != 1 {
		t.Errorf("summary = %+v, want 1 accepted", summary)
	}
}

func TestFileMissing(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	if _, err := New(s, 0).File(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing batch file")
	}
}

func TestReaderHonorsCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, submissionLine(fmt.Sprintf("16.%d", i)))
	}

	if _, err := New(s, 2).Reader(ctx, strings.NewReader(strings.Join(lines, "\n"))); err == nil {
		t.Fatal("expected context error for cancelled batch")
	}
}
