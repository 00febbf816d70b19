// Package ingest loads batches of experience submissions from JSON Lines
// input, one candidate record per line. Lines are validated and recorded
// through the store's normal quality gate; a bad line never aborts the
// batch.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"techlore/internal/experience"
	"techlore/internal/logging"
	"techlore/internal/store"
)

// DefaultWorkers is the parse/submit concurrency when the caller does not
// choose one.
const DefaultWorkers = 4

// maxLineBytes bounds a single JSONL line. Oversized lines are reported as
// malformed rather than growing the scanner without limit.
const maxLineBytes = 1 << 20

// Failure describes one line that did not make it into the store.
type Failure struct {
	Line   int
	Reason string
}

// Summary is the outcome of one batch. Rejected counts lines that failed
// validation or duplicated an existing record; Malformed counts unparseable
// JSON. Failures are sorted by line number.
type Summary struct {
	Total     int
	Accepted  int
	Rejected  int
	Malformed int
	Failures  []Failure
}

// Ingester submits batches to a store with bounded concurrency.
type Ingester struct {
	store   *store.Store
	workers int
}

// New builds an ingester. workers <= 0 selects DefaultWorkers.
func New(st *store.Store, workers int) *Ingester {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Ingester{store: st, workers: workers}
}

// File ingests a JSONL file from disk.
func (in *Ingester) File(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	return in.Reader(ctx, f)
}

// Reader ingests JSONL from r. Each line is parsed and submitted by a
// worker pool; per-line failures are collected in the summary while a
// context cancellation aborts the whole batch.
func (in *Ingester) Reader(ctx context.Context, r io.Reader) (*Summary, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Ingester.Reader")
	defer timer.StopWithInfo()

	type line struct {
		number int
		text   []byte
	}

	var (
		summary Summary
		mu      sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan line)

	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		number := 0
		for scanner.Scan() {
			number++
			text := append([]byte(nil), scanner.Bytes()...)
			if len(text) == 0 {
				continue
			}
			select {
			case lines <- line{number: number, text: text}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		return nil
	})

	for w := 0; w < in.workers; w++ {
		g.Go(func() error {
			for l := range lines {
				if err := ctx.Err(); err != nil {
					return err
				}

				var rec experience.Record
				if err := json.Unmarshal(l.text, &rec); err != nil {
					mu.Lock()
					summary.Total++
					summary.Malformed++
					summary.Failures = append(summary.Failures, Failure{
						Line:   l.number,
						Reason: fmt.Sprintf("malformed JSON: %v", err),
					})
					mu.Unlock()
					continue
				}

				id, err := in.store.Record(rec)
				mu.Lock()
				summary.Total++
				if err != nil {
					summary.Rejected++
					summary.Failures = append(summary.Failures, Failure{Line: l.number, Reason: err.Error()})
				} else {
					summary.Accepted++
					logging.IngestDebug("Line %d accepted as %s", l.number, id)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Failures, func(i, j int) bool { return summary.Failures[i].Line < summary.Failures[j].Line })
	logging.Ingest("Batch done: %d lines, %d accepted, %d rejected, %d malformed",
		summary.Total, summary.Accepted, summary.Rejected, summary.Malformed)
	return &summary, nil
}
