package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"techlore/internal/maintenance"
	"techlore/internal/report"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	reportHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("99"))

	reportDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	reportWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))
)

// reportCmd renders the accountability report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the contributor accountability report",
	Long: `Aggregates every stored record by contributor: submission counts,
the share that still passes the current rules, and recomputed average
quality scores. Rule changes are reflected immediately because nothing is
trusted from the stored scores.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := openStore(false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	r := report.New(s, buildValidator())
	acc := r.Accountability()

	fmt.Println(reportTitleStyle.Render("📋 Accountability Report"))
	fmt.Println(strings.Repeat("─", 72))
	fmt.Printf("%s  %d records, %d contributors\n\n",
		reportDimStyle.Render(acc.GeneratedAt.Format("2006-01-02 15:04 MST")),
		acc.TotalRecords, len(acc.Contributors))

	if len(acc.Contributors) == 0 {
		fmt.Println("The repository is empty.")
		return nil
	}

	fmt.Println(reportHeaderStyle.Render(
		fmt.Sprintf("%-20s %10s %10s %8s %8s", "CONTRIBUTOR", "SUBMITTED", "VALID", "RATE", "AVG")))

	for _, c := range acc.Contributors {
		line := fmt.Sprintf("%-20s %10d %10d %7.0f%% %8.2f",
			c.ContributorID, c.Submissions, c.StillValid, c.AcceptRate*100, c.AverageScore)
		if c.AcceptRate < 0.5 {
			line = reportWarnStyle.Render(line)
		}
		fmt.Println(line)
		fmt.Println(reportDimStyle.Render(fmt.Sprintf("%-20s categories: %s", "",
			strings.Join(c.Categories, ", "))))
	}

	if top := r.TopCategories(5); len(top) > 0 {
		fmt.Printf("\nTop categories:   %s\n", strings.Join(top, ", "))
	}
	if top := r.TopTechnologies(5); len(top) > 0 {
		fmt.Printf("Top technologies: %s\n", strings.Join(top, ", "))
	}

	survey := maintenance.New(s, buildValidator(), nil).ValidateOnly()
	fmt.Printf("Overall quality:  %.1f%%\n", survey.QualityPercent)
	return nil
}
