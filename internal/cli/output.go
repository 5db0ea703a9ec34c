// Package cli holds terminal output helpers shared by the command-line
// entrypoints.
package cli

import (
	"fmt"
	"strings"
	"time"

	"ledgerlink/internal/application/recon"
	"ledgerlink/internal/domain/classifier"
)

// PrintRunSummary prints one run's totals followed by every outcome that
// needs attention.
func PrintRunSummary(report *recon.RunReport, start, end time.Time) {
	fmt.Printf("Run %s (%s to %s)\n", report.RunID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  processed:     %d\n", report.Totals.Processed)
	fmt.Printf("  matched:       %d\n", report.Totals.Matched)
	fmt.Printf("  partial match: %d\n", report.Totals.PartialMatch)
	fmt.Printf("  discrepancies: %d\n", report.Totals.Discrepancies)
	fmt.Printf("  unmatched:     %d\n", report.Totals.Unmatched)

	printed := false
	for _, o := range report.Outcomes {
		if o.Status == classifier.StatusMatched {
			continue
		}
		if !printed {
			fmt.Println("\nNeeds attention:")
			printed = true
		}
		id := "-"
		if o.PrimaryID != nil {
			id = *o.PrimaryID
		}
		line := fmt.Sprintf("  [%s] %s", o.Status, id)
		if o.Notes != "" {
			line += ": " + o.Notes
		}
		fmt.Println(line)
	}
}
