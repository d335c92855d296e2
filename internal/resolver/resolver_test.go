package resolver

import (
	"errors"
	"testing"

	"patrol-service/internal/domain/patrol"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantCode    string
		wantFine    int64
		wantMatched bool
	}{
		{name: "worn tyres", text: "Rear tyres are bald and worn", wantCode: "SI154-S14", wantFine: 20, wantMatched: true},
		{name: "speeding", text: "Driver was speeding on the highway", wantCode: "RTA-C13-S51", wantFine: 50, wantMatched: true},
		{name: "case insensitive", text: "NO FIRE EXTINGUISHER", wantCode: "SI154-S56", wantFine: 20, wantMatched: true},
		{name: "no match", text: "loud music", wantFine: 0, wantMatched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.text)
			if got.Matched != tt.wantMatched {
				t.Fatalf("Resolve(%q).Matched = %v, want %v", tt.text, got.Matched, tt.wantMatched)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Resolve(%q).Code = %q, want %q", tt.text, got.Code, tt.wantCode)
			}
			if got.Fine != tt.wantFine {
				t.Errorf("Resolve(%q).Fine = %d, want %d", tt.text, got.Fine, tt.wantFine)
			}
		})
	}
}

func TestResolveUnmatchedPlaceholder(t *testing.T) {
	got := Resolve("something odd")
	if got.Description != UnidentifiedCharge {
		t.Errorf("description = %q, want placeholder", got.Description)
	}
	item := got.LineItem()
	if item.Category != patrol.CategoryAIDetectedDefect {
		t.Errorf("category = %s, want AI_DETECTED_DEFECT", item.Category)
	}
}

func TestInspectionDefects(t *testing.T) {
	items, err := InspectionDefects([]string{"triangles", "TIRES", "tires"})
	if err != nil {
		t.Fatalf("InspectionDefects() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Description != "Tires (Tread < 1mm)" || items[0].Fine != 30 {
		t.Errorf("first item = %+v, want tires in checklist order", items[0])
	}
	if items[1].Category != patrol.CategoryInspectionDefect {
		t.Errorf("category = %s", items[1].Category)
	}

	if _, err := InspectionDefects([]string{"seatbelt"}); !errors.Is(err, ErrUnknownChecklistItem) {
		t.Errorf("unknown id error = %v, want ErrUnknownChecklistItem", err)
	}
}
