// Package export renders reconciliation run reports as downloadable files.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"ledgerlink/internal/infrastructure/storage"
)

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// BuildReportPDF renders a run report as a PDF: a summary block followed by
// one table row per outcome.
func BuildReportPDF(run *storage.RunLog, outcomes []storage.Outcome) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Reconciliation Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", run.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s to %s",
		run.WindowStart.Format("2006-01-02"), run.WindowEnd.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", run.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", run.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if run.CompletedAt != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Completed: %s", run.CompletedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Processed: %d   Matched: %d   Partial: %d   Discrepancies: %d   Unmatched: %d",
		run.Totals.Processed, run.Totals.Matched, run.Totals.PartialMatch,
		run.Totals.Discrepancies, run.Totals.Unmatched))
	pdf.Ln(8)

	// Outcomes table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Order", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Charge", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Fulfillment", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Confidence", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Amt Diff", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Notes", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, o := range outcomes {
		diff := ""
		if o.AmountDifference != nil {
			diff = fmt.Sprintf("%.2f", *o.AmountDifference)
		}
		pdf.CellFormat(40, 6, deref(o.PrimaryID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, deref(o.SecondaryAID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, deref(o.SecondaryBID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, string(o.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.1f", o.MatchConfidence), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, diff, "1", 0, "R", false, 0, "")
		pdf.CellFormat(70, 6, o.Notes, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a run report as a workbook with a summary sheet
// and an outcomes sheet.
func BuildReportXLSX(run *storage.RunLog, outcomes []storage.Outcome) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	outcomesSheet := "outcomes"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(outcomesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Reconciliation Report")
	_ = f.SetCellValue(summarySheet, "A3", "Run")
	_ = f.SetCellValue(summarySheet, "B3", run.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Window Start")
	_ = f.SetCellValue(summarySheet, "B4", run.WindowStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Window End")
	_ = f.SetCellValue(summarySheet, "B5", run.WindowEnd.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Status")
	_ = f.SetCellValue(summarySheet, "B6", string(run.Status))
	_ = f.SetCellValue(summarySheet, "A7", "Processed")
	_ = f.SetCellValue(summarySheet, "B7", run.Totals.Processed)
	_ = f.SetCellValue(summarySheet, "A8", "Matched")
	_ = f.SetCellValue(summarySheet, "B8", run.Totals.Matched)
	_ = f.SetCellValue(summarySheet, "A9", "Partial Match")
	_ = f.SetCellValue(summarySheet, "B9", run.Totals.PartialMatch)
	_ = f.SetCellValue(summarySheet, "A10", "Discrepancies")
	_ = f.SetCellValue(summarySheet, "B10", run.Totals.Discrepancies)
	_ = f.SetCellValue(summarySheet, "A11", "Unmatched")
	_ = f.SetCellValue(summarySheet, "B11", run.Totals.Unmatched)

	headers := []string{"Order", "Charge", "Fulfillment", "Status", "Confidence", "Amount Diff", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(outcomesSheet, cell, h)
	}
	for i, o := range outcomes {
		row := i + 2
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("A%d", row), deref(o.PrimaryID))
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("B%d", row), deref(o.SecondaryAID))
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("C%d", row), deref(o.SecondaryBID))
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("D%d", row), string(o.Status))
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("E%d", row), o.MatchConfidence)
		if o.AmountDifference != nil {
			_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("F%d", row), *o.AmountDifference)
		}
		_ = f.SetCellValue(outcomesSheet, fmt.Sprintf("G%d", row), o.Notes)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
