package risk

import (
	"strings"
	"time"

	"patrol-service/internal/domain/patrol"
)

// HabitualOffenderThreshold is the number of recorded violations at which a
// vehicle is treated as a habitual offender.
const HabitualOffenderThreshold = 3

// Classify runs the traffic-light cascade. The first satisfied tier wins:
// RED (stolen, wanted or habitual), ORANGE (expired licence or insurance not
// valid), otherwise GREEN.
func Classify(vehicle patrol.VehicleRecord, history []patrol.ViolationHistoryEntry, now time.Time) patrol.RiskClassification {
	habitual := len(history) >= HabitualOffenderThreshold

	if vehicle.Stolen || vehicle.Wanted || habitual {
		message := "HABITUAL OFFENDER - IMPOUND"
		switch {
		case vehicle.Stolen:
			message = "VEHICLE REPORTED STOLEN"
		case vehicle.Wanted:
			message = "VEHICLE WANTED BY POLICE"
		}
		return patrol.RiskClassification{
			Tier:     patrol.TierRed,
			Headline: "ALERT!",
			Code:     "HIGH RISK - IMPOUND REQUIRED",
			Message:  message,
			Action:   patrol.ActionArrestAndImpound,
		}
	}

	licenseExpired := vehicle.LicenseExpiry.Before(now)
	insuranceInvalid := !insuranceValid(vehicle.InsuranceStatus)

	if licenseExpired || insuranceInvalid {
		message := "Insurance Invalid"
		if licenseExpired {
			message = "License Expired"
		}
		return patrol.RiskClassification{
			Tier:     patrol.TierOrange,
			Headline: "CAUTION",
			Code:     "VIOLATION DETECTED",
			Message:  message,
			Action:   patrol.ActionIssueTicket,
		}
	}

	return patrol.RiskClassification{
		Tier:     patrol.TierGreen,
		Headline: "VEHICLE CLEAR",
		Code:     "ALLOW TO PROCEED",
		Message:  "Vehicle Compliant",
		Action:   patrol.ActionProceed,
	}
}

// Offline is the classification callers report when the registry could not
// answer a lookup.
func Offline() patrol.RiskClassification {
	return patrol.RiskClassification{
		Tier:     patrol.TierUnknownOffline,
		Headline: "NO DATA",
		Code:     "OFFLINE_UNKNOWN",
		Message:  "Connection Failed. Verify Physical Disc.",
		Action:   patrol.ActionVerifyManually,
	}
}

// BlocksTicketing reports whether normal ticketing is closed for the officer.
// Only a RED vehicle blocks, and only officers without impound override.
func BlocksTicketing(c patrol.RiskClassification, canOverrideImpound bool) bool {
	return c.Tier == patrol.TierRed && !canOverrideImpound
}

func insuranceValid(status patrol.InsuranceStatus) bool {
	return strings.EqualFold(strings.TrimSpace(string(status)), string(patrol.InsuranceValid))
}
