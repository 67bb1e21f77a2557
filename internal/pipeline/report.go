package pipeline

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"certpass/internal/pipeline/job"
)

// WriteReport serializes a finished job as a spreadsheet: one header row, one
// row per recipient, and a trailing summary. Organizers hand this to event
// staff, so it carries outcomes and fingerprints but never document bytes.
func WriteReport(w io.Writer, state job.State) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	headers := []string{"Recipient", "Fingerprint", "Status", "Error"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("report header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report header: %w", err)
		}
	}

	for row, item := range state.Items {
		values := []any{item.RecipientEmail, item.Fingerprint, item.Status, item.Error}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("report cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("report row %d: %w", row, err)
			}
		}
	}

	summaryRow := len(state.Items) + 3
	cell, err := excelize.CoordinatesToCellName(1, summaryRow)
	if err != nil {
		return fmt.Errorf("report summary cell: %w", err)
	}
	summary := fmt.Sprintf("%s: %d/%d completed", state.Status, state.Completed, state.Total)
	if err := f.SetCellValue(sheet, cell, summary); err != nil {
		return fmt.Errorf("report summary: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
