package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"patrol-service/internal/domain/patrol"
)

const (
	SettlementsSheet = "Settlements"
	SummarySheet     = "Summary"
)

var settlementHeader = []interface{}{
	"Settled At", "VRN", "Ticket ID", "Officer", "Force ID",
	"Method", "Status", "Reference", "Amount", "Due Date", "Station",
}

// WriteSettlements renders settlement attempts as an xlsx workbook with one
// row per attempt and a per-status summary sheet.
func WriteSettlements(w io.Writer, records []patrol.SettlementRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SettlementsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SettlementsSheet, "A1", &settlementHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(settlementHeader))
	if err := f.SetCellStyle(SettlementsSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	counts := make(map[patrol.SettlementStatus]int)
	amounts := make(map[patrol.SettlementStatus]int64)

	for i, rec := range records {
		res := rec.Result
		dueDate, station := "", ""
		if res.Notice != nil {
			dueDate = res.Notice.DueDate.Format("2006-01-02")
			station = res.Notice.Station
		}
		row := []interface{}{
			res.SettledAt.Format("2006-01-02 15:04:05"),
			rec.VRN,
			res.TicketID.String(),
			rec.OfficerName,
			rec.OfficerForceID,
			res.Method,
			string(res.Status),
			res.Reference,
			res.Amount,
			dueDate,
			station,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SettlementsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		counts[res.Status]++
		amounts[res.Status] += res.Amount
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summaryHeader := []interface{}{"Status", "Attempts", "Amount"}
	if err := f.SetSheetRow(SummarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}

	statuses := []patrol.SettlementStatus{
		patrol.SettlementPaid,
		patrol.SettlementUnpaid,
		patrol.SettlementFailed,
		patrol.SettlementCancelled,
	}
	for i, status := range statuses {
		row := []interface{}{string(status), counts[status], amounts[status]}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
