package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"techlore/internal/experience"
)

var (
	searchTags  []string
	searchLimit int
)

// searchCmd lists records in a category
var searchCmd = &cobra.Command{
	Use:   "search [category]",
	Short: "Search experiences by category or tags",
	Long: `Lists experience records in the given category, or across the whole
repository with "all" (the default). --tag narrows by tag membership.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

// statsCmd summarizes the repository
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show repository statistics",
	RunE:  runStats,
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchTags, "tag", nil, "require at least one of these tags (repeatable)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum records to display")
}

func runSearch(cmd *cobra.Command, args []string) error {
	category := "all"
	if len(args) == 1 {
		category = args[0]
	}

	s, err := openStore(false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	records := s.Search(category)
	if len(searchTags) > 0 {
		var filtered []experience.Record
		for i := range records {
			if records[i].HasAnyTag(searchTags...) {
				filtered = append(filtered, records[i])
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		fmt.Println("No matching experiences found.")
		return nil
	}

	// Newest first for display.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	fmt.Printf("📚 %d experience(s) in %q\n", len(records), category)
	fmt.Println(strings.Repeat("─", 60))

	limit := searchLimit
	if len(records) < limit {
		limit = len(records)
	}
	for i := 0; i < limit; i++ {
		printRecord(&records[i])
	}
	if len(records) > limit {
		fmt.Printf("… and %d more (raise --limit to see them)\n", len(records)-limit)
	}
	return nil
}

func printRecord(rec *experience.Record) {
	fmt.Printf("• %s %s  [%s]  score %.1f\n",
		rec.Technology.Name, rec.Technology.Version, rec.Category, rec.QualityScore)
	fmt.Printf("  %s  by %s (%s)\n",
		rec.Timestamp.Format("2006-01-02 15:04"), rec.ContributorID, rec.SourceModel)
	if rec.Recommendation != "" {
		fmt.Printf("  %s\n", rec.Recommendation)
	}
	if len(rec.Tags) > 0 {
		fmt.Printf("  tags: %s\n", strings.Join(rec.Tags, ", "))
	}
	fmt.Println()
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openStore(false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	st := s.Stats()

	fmt.Println("📊 Repository Statistics")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("   Records:      %d / %d\n", st.Count, cfg.Store.MaxRecords)
	fmt.Printf("   Categories:   %d\n", len(st.ByCategory))
	fmt.Printf("   Contributors: %d\n", len(st.ByContributor))
	fmt.Printf("   Backups:      %d\n", len(s.Backups()))
	if s.Recovered() {
		fmt.Println("   ⚠️  Last load recovered from a backup or started empty")
	}

	if len(st.ByCategory) > 0 {
		fmt.Println("\n   By category:")
		for _, line := range countLines(st.ByCategory) {
			fmt.Printf("     %s\n", line)
		}
	}
	return nil
}

func countLines(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%-24s %d", name, counts[name])
	}
	return lines
}
