package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"techlore/internal/maintenance"
)

// validateCmd audits the store without modifying it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit stored experiences against the current rules",
	Long: `Runs every stored record through the current validation rules and
reports how many would survive a clean pass. Nothing is modified.`,
	RunE: runValidate,
}

// cleanCmd removes invalid and duplicate records
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove invalid and duplicate experiences",
	Long: `Removes records that fail the current rules, collapses duplicate
signatures (keeping the earliest submission), and recomputes survivor
quality scores. A backup of the previous document is written first.`,
	RunE: runClean,
}

// purgeTestCmd removes recognizable test data
var purgeTestCmd = &cobra.Command{
	Use:   "purge-test",
	Short: "Remove test and placeholder records",
	Long: `Removes records whose technology or category is forbidden or looks
like placeholder data, and records tagged as test. Imperfect but genuine
records are left alone.`,
	RunE: runPurgeTest,
}

// historyCmd shows the maintenance ledger
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent maintenance runs",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
}

func newMaintainer() (*maintenance.Maintainer, func(), error) {
	s, err := openStore(false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	h := openHistory()

	closer := func() {
		s.Close()
		if h != nil {
			h.Close()
		}
	}
	return maintenance.New(s, buildValidator(), h), closer, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	m, closer, err := newMaintainer()
	if err != nil {
		return err
	}
	defer closer()

	survey := m.ValidateOnly()

	fmt.Println("🔎 Quality Survey")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("   Records:         %d\n", survey.Total)
	fmt.Printf("   Invalid:         %d\n", survey.Invalid)
	fmt.Printf("   Unknown version: %d\n", survey.UnknownVersion)
	fmt.Printf("   Short content:   %d\n", survey.ShortContent)
	fmt.Printf("   Quality:         %.1f%%\n", survey.QualityPercent)

	if top := maintenance.TopRemovals(survey.ByCategory, 5); len(top) > 0 {
		fmt.Printf("   Problems by category:   %s\n", strings.Join(top, ", "))
	}
	if top := maintenance.TopRemovals(survey.ByTechnology, 5); len(top) > 0 {
		fmt.Printf("   Problems by technology: %s\n", strings.Join(top, ", "))
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	m, closer, err := newMaintainer()
	if err != nil {
		return err
	}
	defer closer()

	report, err := m.Clean()
	if err != nil {
		return err
	}
	printMaintenanceReport("🧹 Clean", report)
	return nil
}

func runPurgeTest(cmd *cobra.Command, args []string) error {
	m, closer, err := newMaintainer()
	if err != nil {
		return err
	}
	defer closer()

	report, err := m.PurgeTest()
	if err != nil {
		return err
	}
	printMaintenanceReport("🧪 Purge Test Data", report)
	return nil
}

func printMaintenanceReport(title string, report *maintenance.Report) {
	fmt.Println(title)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("   Processed:  %d\n", report.Processed)
	fmt.Printf("   Kept:       %d\n", report.Kept)
	fmt.Printf("   Invalid:    %d\n", report.RemovedInvalid)
	fmt.Printf("   Duplicates: %d\n", report.RemovedDuplicates)
	fmt.Printf("   Duration:   %v\n", report.Duration.Round(time.Millisecond))

	if report.Removed() > 0 {
		if top := maintenance.TopRemovals(report.ByCategory, 5); len(top) > 0 {
			fmt.Printf("   Removed by category:   %s\n", strings.Join(top, ", "))
		}
		if top := maintenance.TopRemovals(report.ByTechnology, 5); len(top) > 0 {
			fmt.Printf("   Removed by technology: %s\n", strings.Join(top, ", "))
		}
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	h := openHistory()
	if h == nil {
		return fmt.Errorf("maintenance ledger unavailable")
	}
	defer h.Close()

	entries, err := h.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No maintenance runs recorded yet.")
		return nil
	}

	fmt.Println("🗓  Maintenance History")
	fmt.Println(strings.Repeat("─", 60))
	for _, e := range entries {
		fmt.Printf("   %s  %-10s processed=%d kept=%d invalid=%d duplicates=%d (%dms)\n",
			e.RanAt.Format("2006-01-02 15:04"), e.Command,
			e.Processed, e.Kept, e.RemovedInvalid, e.RemovedDuplicates, e.DurationMillis)
	}
	return nil
}
