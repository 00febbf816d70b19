package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"techlore/internal/ingest"
)

var ingestWorkers int

// ingestCmd loads a JSONL batch of submissions
var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Ingest a batch of experiences from a JSON Lines file",
	Long: `Reads one candidate record per line and submits each through the
quality gate. Bad lines are reported individually; the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "parse/submit concurrency (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	s, err := openStore(false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	workers := ingestWorkers
	if workers <= 0 {
		workers = cfg.Ingest.Workers
	}

	summary, err := ingest.New(s, workers).File(ctx, args[0])
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}

	fmt.Println("📥 Batch complete")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("   Lines:     %d\n", summary.Total)
	fmt.Printf("   Accepted:  %d\n", summary.Accepted)
	fmt.Printf("   Rejected:  %d\n", summary.Rejected)
	fmt.Printf("   Malformed: %d\n", summary.Malformed)

	if len(summary.Failures) > 0 {
		fmt.Println("\n   Failures:")
		for _, f := range summary.Failures {
			fmt.Printf("     line %d: %s\n", f.Line, f.Reason)
		}
	}
	return nil
}
