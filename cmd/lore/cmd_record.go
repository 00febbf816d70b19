package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"techlore/internal/experience"
	"techlore/internal/store"
)

var (
	recordCategory       string
	recordTech           string
	recordVersion        string
	recordType           string
	recordContributor    string
	recordSource         string
	recordRecommendation string
	recordTags           []string
	recordRatings        []string
	recordEvidence       []string
	recordWorking        []string
	recordImprovement    []string
	recordHarmony        []string
)

// recordCmd submits one experience through the quality gate
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a technology experience",
	Long: `Submits one experience record through the validation gate.

Example:
  lore record --tech PostgreSQL --version 16.3 --category performance \
    --contributor agent-golang-01 --source rater-v2 \
    --rating performance=9.2 --evidence before="420ms p99" --evidence after="95ms p99" \
    --recommendation "Partitioning the events table cut query latency by 77%."`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordTech, "tech", "", "technology name (required)")
	recordCmd.Flags().StringVar(&recordVersion, "version", "", "technology version (required)")
	recordCmd.Flags().StringVar(&recordType, "type", "", "technology type (database, broker, ...)")
	recordCmd.Flags().StringVar(&recordCategory, "category", "", "experience category (required)")
	recordCmd.Flags().StringVar(&recordContributor, "contributor", "", "contributing agent id (required)")
	recordCmd.Flags().StringVar(&recordSource, "source", "", "model or tool that produced the assessment (required)")
	recordCmd.Flags().StringVar(&recordRecommendation, "recommendation", "", "free-text recommendation")
	recordCmd.Flags().StringArrayVar(&recordTags, "tag", nil, "tag (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordRatings, "rating", nil, "aspect=value rating (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordEvidence, "evidence", nil, "key=value evidence (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordWorking, "working", nil, "aspect that worked well (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordImprovement, "improvement", nil, "area needing improvement (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordHarmony, "harmony", nil, "technology=rating stack-harmony entry (repeatable)")

	recordCmd.MarkFlagRequired("tech")
	recordCmd.MarkFlagRequired("version")
	recordCmd.MarkFlagRequired("category")
	recordCmd.MarkFlagRequired("contributor")
	recordCmd.MarkFlagRequired("source")
}

func runRecord(cmd *cobra.Command, args []string) error {
	rec, err := buildRecordFromFlags()
	if err != nil {
		return err
	}

	s, err := openStore(false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	id, err := s.Record(rec)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			fmt.Println("❌ Submission rejected")
			fmt.Println(strings.Repeat("─", 60))
			for _, v := range verr.Itemized() {
				fmt.Printf("   • %s\n", v)
			}
			if verr.QualityScore > 0 {
				fmt.Printf("   Quality score: %.1f\n", verr.QualityScore)
			}
			return fmt.Errorf("%d violation(s)", len(verr.Violations))
		}
		return err
	}

	stored := s.Search(rec.Category)
	var score float64
	for i := range stored {
		if stored[i].ID == id {
			score = stored[i].QualityScore
		}
	}

	fmt.Println("✅ Experience recorded")
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("   ID:       %s\n", id)
	fmt.Printf("   Subject:  %s %s (%s)\n", rec.Technology.Name, rec.Technology.Version, rec.Category)
	fmt.Printf("   Quality:  %.1f\n", score)
	return nil
}

func buildRecordFromFlags() (experience.Record, error) {
	rec := experience.Record{
		ContributorID:    recordContributor,
		SourceModel:      recordSource,
		Category:         recordCategory,
		Recommendation:   recordRecommendation,
		Tags:             recordTags,
		WorkingAspects:   recordWorking,
		ImprovementAreas: recordImprovement,
		Technology: experience.Technology{
			Name:    recordTech,
			Version: recordVersion,
			Type:    recordType,
		},
	}

	for _, raw := range recordRatings {
		aspect, value, err := splitPair(raw)
		if err != nil {
			return rec, fmt.Errorf("invalid --rating %q: %w", raw, err)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid --rating %q: %w", raw, err)
		}
		if rec.Ratings == nil {
			rec.Ratings = make(map[string]float64)
		}
		rec.Ratings[aspect] = f
	}

	for _, raw := range recordEvidence {
		key, value, err := splitPair(raw)
		if err != nil {
			return rec, fmt.Errorf("invalid --evidence %q: %w", raw, err)
		}
		if rec.Evidence == nil {
			rec.Evidence = make(map[string]string)
		}
		rec.Evidence[key] = value
	}

	for _, raw := range recordHarmony {
		tech, value, err := splitPair(raw)
		if err != nil {
			return rec, fmt.Errorf("invalid --harmony %q: %w", raw, err)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid --harmony %q: %w", raw, err)
		}
		rec.HarmonyEntries = append(rec.HarmonyEntries, experience.HarmonyEntry{
			Technology: tech,
			Rating:     f,
		})
	}

	return rec, nil
}

// splitPair parses "key=value" flag syntax.
func splitPair(raw string) (string, string, error) {
	key, value, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return "", "", fmt.Errorf("expected key=value")
	}
	return key, value, nil
}
