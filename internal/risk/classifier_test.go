package risk

import (
	"testing"
	"time"

	"patrol-service/internal/domain/patrol"
)

var evaluatedAt = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func history(n int) []patrol.ViolationHistoryEntry {
	entries := make([]patrol.ViolationHistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, patrol.ViolationHistoryEntry{
			Date:    evaluatedAt.AddDate(0, -i-1, 0),
			Offense: "Worn Tires",
			Status:  patrol.PaymentUnpaid,
		})
	}
	return entries
}

func TestClassify(t *testing.T) {
	future := evaluatedAt.AddDate(1, 0, 0)
	past := evaluatedAt.AddDate(-1, 0, 0)

	tests := []struct {
		name        string
		vehicle     patrol.VehicleRecord
		history     []patrol.ViolationHistoryEntry
		wantTier    patrol.Tier
		wantAction  patrol.Action
		wantMessage string
	}{
		{
			name:        "compliant vehicle",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: patrol.InsuranceValid},
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
		{
			name:        "expired licence and insurance",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: past, InsuranceStatus: patrol.InsuranceExpired},
			wantTier:    patrol.TierOrange,
			wantAction:  patrol.ActionIssueTicket,
			wantMessage: "License Expired",
		},
		{
			name:        "insurance other than valid",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: "Suspended"},
			wantTier:    patrol.TierOrange,
			wantAction:  patrol.ActionIssueTicket,
			wantMessage: "Insurance Invalid",
		},
		{
			name:        "insurance status is case insensitive",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: "valid"},
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
		{
			name:        "insurance status upper case",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: "VALID"},
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
		{
			name:        "insurance status padded",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: " valid "},
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
		{
			name:        "stolen beats expired insurance",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: past, InsuranceStatus: patrol.InsuranceExpired, Stolen: true},
			wantTier:    patrol.TierRed,
			wantAction:  patrol.ActionArrestAndImpound,
			wantMessage: "VEHICLE REPORTED STOLEN",
		},
		{
			name:        "wanted with valid papers",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: patrol.InsuranceValid, Wanted: true},
			wantTier:    patrol.TierRed,
			wantAction:  patrol.ActionArrestAndImpound,
			wantMessage: "VEHICLE WANTED BY POLICE",
		},
		{
			name:        "habitual offender",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: patrol.InsuranceValid},
			history:     history(3),
			wantTier:    patrol.TierRed,
			wantAction:  patrol.ActionArrestAndImpound,
			wantMessage: "HABITUAL OFFENDER - IMPOUND",
		},
		{
			name:        "two violations stay below threshold",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: future, InsuranceStatus: patrol.InsuranceValid},
			history:     history(2),
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
		{
			name:        "licence expiring exactly now is not expired",
			vehicle:     patrol.VehicleRecord{LicenseExpiry: evaluatedAt, InsuranceStatus: patrol.InsuranceValid},
			wantTier:    patrol.TierGreen,
			wantAction:  patrol.ActionProceed,
			wantMessage: "Vehicle Compliant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.vehicle, tt.history, evaluatedAt)
			if got.Tier != tt.wantTier {
				t.Errorf("Classify() tier = %s, want %s", got.Tier, tt.wantTier)
			}
			if got.Action != tt.wantAction {
				t.Errorf("Classify() action = %s, want %s", got.Action, tt.wantAction)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Classify() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestOffline(t *testing.T) {
	got := Offline()
	if got.Tier != patrol.TierUnknownOffline {
		t.Errorf("Offline() tier = %s, want %s", got.Tier, patrol.TierUnknownOffline)
	}
	if got.Action != patrol.ActionVerifyManually {
		t.Errorf("Offline() action = %s, want %s", got.Action, patrol.ActionVerifyManually)
	}
}

func TestBlocksTicketing(t *testing.T) {
	red := patrol.RiskClassification{Tier: patrol.TierRed}
	orange := patrol.RiskClassification{Tier: patrol.TierOrange}

	if !BlocksTicketing(red, false) {
		t.Error("RED without override should block ticketing")
	}
	if BlocksTicketing(red, true) {
		t.Error("RED with override should not block ticketing")
	}
	if BlocksTicketing(orange, false) {
		t.Error("ORANGE should never block ticketing")
	}
	if BlocksTicketing(Offline(), false) {
		t.Error("offline classification should not block ticketing")
	}
}
