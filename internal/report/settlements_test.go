package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"patrol-service/internal/domain/patrol"
)

func TestWriteSettlements(t *testing.T) {
	settledAt := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	records := []patrol.SettlementRecord{
		{
			VRN:            "ABC-1234",
			OfficerForceID: "ZRP-001",
			OfficerName:    "T. Moyo",
			Result: patrol.SettlementResult{
				TicketID:  uuid.New(),
				Status:    patrol.SettlementPaid,
				Reference: "ECO-004242",
				Method:    "ecocash",
				Amount:    50,
				SettledAt: settledAt,
			},
		},
		{
			VRN:            "HRE-5555",
			OfficerForceID: "ZRP-001",
			OfficerName:    "T. Moyo",
			Result: patrol.SettlementResult{
				TicketID:  uuid.New(),
				Status:    patrol.SettlementUnpaid,
				Reference: "F265-123456",
				Method:    "form265",
				SettledAt: settledAt,
				Notice: &patrol.NoticeDetails{
					DueDate: settledAt.Add(7 * 24 * time.Hour),
					Station: "Harare Central",
				},
			},
		},
		{
			VRN: "HRE-5555",
			Result: patrol.SettlementResult{
				TicketID:  uuid.New(),
				Status:    patrol.SettlementFailed,
				Method:    "innbucks",
				SettledAt: settledAt,
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteSettlements(&buf, records); err != nil {
		t.Fatalf("WriteSettlements() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SettlementsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "Settled At" || rows[0][1] != "VRN" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "ABC-1234" || rows[1][6] != "PAID" || rows[1][7] != "ECO-004242" || rows[1][8] != "50" {
		t.Errorf("paid row = %v", rows[1])
	}
	if rows[2][9] != "2026-05-08" || rows[2][10] != "Harare Central" {
		t.Errorf("notice row = %v", rows[2])
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("GetRows(summary) error = %v", err)
	}
	want := [][]string{
		{"Status", "Attempts", "Amount"},
		{"PAID", "1", "50"},
		{"UNPAID", "1", "0"},
		{"FAILED", "1", "0"},
		{"CANCELLED", "0", "0"},
	}
	if len(summary) != len(want) {
		t.Fatalf("summary rows = %v", summary)
	}
	for i := range want {
		for j := range want[i] {
			if summary[i][j] != want[i][j] {
				t.Errorf("summary[%d][%d] = %q, want %q", i, j, summary[i][j], want[i][j])
			}
		}
	}
}

func TestWriteSettlementsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSettlements(&buf, nil); err != nil {
		t.Fatalf("WriteSettlements() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even with no rows")
	}
}
