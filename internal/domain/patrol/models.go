package patrol

import (
	"time"

	"github.com/google/uuid"
)

type InsuranceStatus string

const (
	InsuranceValid   InsuranceStatus = "Valid"
	InsuranceExpired InsuranceStatus = "Expired"
)

type VehicleRecord struct {
	VRN             string          `json:"vrn"`
	Make            string          `json:"make"`
	Color           string          `json:"color,omitempty"`
	Owner           string          `json:"owner"`
	LicenseExpiry   time.Time       `json:"license_expiry"`
	InsuranceStatus InsuranceStatus `json:"insurance_status"`
	Stolen          bool            `json:"is_stolen"`
	Wanted          bool            `json:"is_wanted"`
}

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "PAID"
	PaymentUnpaid PaymentStatus = "UNPAID"
)

type ViolationHistoryEntry struct {
	Date    time.Time     `json:"date"`
	Offense string        `json:"offense"`
	Status  PaymentStatus `json:"status"`
	// TicketID is set when the entry was recorded from a settled ticket.
	TicketID *uuid.UUID `json:"ticket_id,omitempty"`
}

type Tier string

const (
	TierGreen          Tier = "GREEN"
	TierOrange         Tier = "ORANGE"
	TierRed            Tier = "RED"
	TierUnknownOffline Tier = "UNKNOWN_OFFLINE"
)

type Action string

const (
	ActionProceed          Action = "PROCEED"
	ActionIssueTicket      Action = "ISSUE_TICKET"
	ActionArrestAndImpound Action = "ARREST_AND_IMPOUND"
	ActionVerifyManually   Action = "VERIFY_MANUALLY"
)

type RiskClassification struct {
	Tier     Tier   `json:"tier"`
	Headline string `json:"headline"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Action   Action `json:"action"`
}

type OffenseCategory string

const (
	CategoryInspectionDefect OffenseCategory = "MANUAL_INSPECTION_DEFECT"
	CategoryAIDetectedDefect OffenseCategory = "AI_DETECTED_DEFECT"
	CategoryTrafficViolation OffenseCategory = "TRAFFIC_VIOLATION"
)

// OffenseLineItem is one charge on a stop. Description is the uniqueness key
// within a cart; Fine is expressed in whole currency units.
type OffenseLineItem struct {
	Category    OffenseCategory `json:"category" validate:"required,oneof=MANUAL_INSPECTION_DEFECT AI_DETECTED_DEFECT TRAFFIC_VIOLATION"`
	Description string          `json:"description" validate:"required,max=255"`
	Fine        int64           `json:"fine" validate:"gte=0"`
	Code        string          `json:"code,omitempty"`
}

type Officer struct {
	ForceID   string `json:"force_id"`
	Name      string `json:"name"`
	Rank      string `json:"rank"`
	StationID string `json:"station_id,omitempty"`
}

type Offender struct {
	Name     string `json:"name" validate:"required,max=200"`
	Address  string `json:"address,omitempty" validate:"max=500"`
	IDNumber string `json:"id_number,omitempty" validate:"max=64"`
	Make     string `json:"make,omitempty"`
}

type Ticket struct {
	ID        uuid.UUID         `json:"id"`
	VRN       string            `json:"vrn"`
	Officer   Officer           `json:"officer"`
	Offender  Offender          `json:"offender"`
	Offenses  []OffenseLineItem `json:"offenses"`
	Total     int64             `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementPaid      SettlementStatus = "PAID"
	SettlementUnpaid    SettlementStatus = "UNPAID"
	SettlementFailed    SettlementStatus = "FAILED"
	SettlementCancelled SettlementStatus = "CANCELLED"
)

// Terminal reports whether no further settlement attempt is allowed.
func (s SettlementStatus) Terminal() bool {
	return s == SettlementPaid || s == SettlementUnpaid
}

type MethodKind string

const (
	MethodKindDigital MethodKind = "DIGITAL"
	MethodKindManual  MethodKind = "MANUAL"
	MethodKindDebt    MethodKind = "DEBT"
)

type Method struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Kind  MethodKind `json:"type"`
}

type NoticeDetails struct {
	DueDate time.Time `json:"due_date"`
	Station string    `json:"station"`
}

type SettlementResult struct {
	TicketID  uuid.UUID        `json:"ticket_id"`
	Status    SettlementStatus `json:"status"`
	Reference string           `json:"reference,omitempty"`
	Message   string           `json:"message"`
	Method    string           `json:"method"`
	Amount    int64            `json:"amount"`
	SettledAt time.Time        `json:"settled_at"`
	Notice    *NoticeDetails   `json:"notice,omitempty"`
}

// Success reports whether the ticket left the pending state for good.
func (r SettlementResult) Success() bool {
	return r.Status.Terminal()
}

// SettlementRecord is a settled ticket as listed in shift reports.
type SettlementRecord struct {
	VRN            string           `json:"vrn"`
	OfficerForceID string           `json:"officer_force_id"`
	OfficerName    string           `json:"officer_name"`
	Result         SettlementResult `json:"result"`
}
