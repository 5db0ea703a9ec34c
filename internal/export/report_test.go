package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ledgerlink/internal/infrastructure/storage"
)

func sampleReport() (*storage.RunLog, []storage.Outcome) {
	started := time.Date(2026, 4, 8, 2, 0, 0, 0, time.UTC)
	completed := started.Add(30 * time.Second)
	run := &storage.RunLog{
		ID:          "run-1",
		WindowStart: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC),
		StartedAt:   started,
		CompletedAt: &completed,
		Status:      storage.RunCompleted,
		Totals:      storage.RunTotals{Processed: 2, Matched: 1, Unmatched: 1},
	}

	ord := "ord-1"
	charge := "ch_1"
	diff := 0.0
	orphanCharge := "ch_2"
	outcomes := []storage.Outcome{
		{PrimaryID: &ord, SecondaryAID: &charge, Status: "MATCHED", MatchConfidence: 100, AmountDifference: &diff},
		{SecondaryAID: &orphanCharge, Status: "UNMATCHED", Notes: "no primary record claimed pay_gateway record ch_2"},
	}
	return run, outcomes
}

func TestBuildReportXLSX(t *testing.T) {
	run, outcomes := sampleReport()

	data, err := BuildReportXLSX(run, outcomes)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	runID, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	status, err := f.GetCellValue("summary", "B6")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", status)

	rows, err := f.GetRows("outcomes")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two outcomes")
	assert.Equal(t, "Order", rows[0][0])
	assert.Equal(t, "ord-1", rows[1][0])
	// Orphan row has no primary; column A is empty.
	assert.Equal(t, "", rows[2][0])
	assert.Equal(t, "ch_2", rows[2][1])
}

func TestBuildReportPDF(t *testing.T) {
	run, outcomes := sampleReport()

	data, err := BuildReportPDF(run, outcomes)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output should be a PDF document")
}

func TestBuildReportEmptyOutcomes(t *testing.T) {
	run, _ := sampleReport()

	xlsx, err := BuildReportXLSX(run, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, xlsx)

	pdf, err := BuildReportPDF(run, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}
