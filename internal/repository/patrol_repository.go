package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/lookup"
	"patrol-service/internal/utils"
)

type PatrolRepository struct {
	db *gorm.DB
}

func NewPatrolRepository(db *gorm.DB) *PatrolRepository {
	return &PatrolRepository{db: db}
}

func (Vehicle) TableName() string {
	return "patrol_vehicles"
}

func (Violation) TableName() string {
	return "patrol_violations"
}

func (TicketRecord) TableName() string {
	return "patrol_tickets"
}

func (SettlementRecord) TableName() string {
	return "patrol_settlements"
}

type Vehicle struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	VRN             string    `gorm:"not null"`
	Normalized      string    `gorm:"not null;uniqueIndex"`
	Make            string
	Color           *string
	Owner           string
	LicenseExpiry   time.Time `gorm:"type:date;not null"`
	InsuranceStatus string    `gorm:"not null"`
	IsStolen        bool      `gorm:"not null"`
	IsWanted        bool      `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Violation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	NormalizedVRN string     `gorm:"not null;index"`
	OccurredOn    time.Time  `gorm:"not null"`
	Offense       string     `gorm:"not null"`
	Status        string     `gorm:"not null"`
	TicketID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
}

type TicketRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	VRN           string         `gorm:"not null"`
	NormalizedVRN string         `gorm:"not null;index"`
	Officer       datatypes.JSON `gorm:"type:jsonb;not null"`
	Offender      datatypes.JSON `gorm:"type:jsonb;not null"`
	Offenses      datatypes.JSON `gorm:"type:jsonb;not null"`
	Total         int64          `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null"`
}

type SettlementRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	TicketID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    string    `gorm:"not null"`
	Reference *string
	Method    string `gorm:"not null"`
	Message   string
	Amount    int64 `gorm:"not null"`
	DueDate   *time.Time
	Station   *string
	SettledAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// Fetch implements lookup.Backend.
func (r *PatrolRepository) Fetch(ctx context.Context, vrn string) (*patrol.VehicleRecord, error) {
	var v Vehicle
	err := r.db.WithContext(ctx).Where("normalized = ?", utils.NormalizePlate(vrn)).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lookup.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	record := &patrol.VehicleRecord{
		VRN:             v.VRN,
		Make:            v.Make,
		Owner:           v.Owner,
		LicenseExpiry:   v.LicenseExpiry,
		InsuranceStatus: patrol.InsuranceStatus(v.InsuranceStatus),
		Stolen:          v.IsStolen,
		Wanted:          v.IsWanted,
	}
	if v.Color != nil {
		record.Color = *v.Color
	}
	return record, nil
}

// History implements lookup.Backend. Entries come back in order of occurrence.
func (r *PatrolRepository) History(ctx context.Context, vrn string) ([]patrol.ViolationHistoryEntry, error) {
	var rows []Violation
	err := r.db.WithContext(ctx).
		Where("normalized_vrn = ?", utils.NormalizePlate(vrn)).
		Order("occurred_on ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]patrol.ViolationHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, patrol.ViolationHistoryEntry{
			Date:     row.OccurredOn,
			Offense:  row.Offense,
			Status:   patrol.PaymentStatus(row.Status),
			TicketID: row.TicketID,
		})
	}
	return entries, nil
}

func (r *PatrolRepository) AppendViolation(ctx context.Context, vrn string, entry patrol.ViolationHistoryEntry) error {
	row := Violation{
		ID:            uuid.New(),
		NormalizedVRN: utils.NormalizePlate(vrn),
		OccurredOn:    entry.Date,
		Offense:       entry.Offense,
		Status:        string(entry.Status),
		TicketID:      entry.TicketID,
		CreatedAt:     time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append violation: %w", err)
	}
	return nil
}

// UpsertVehicle inserts a registry record or refreshes the existing one with
// the same normalized VRN.
func (r *PatrolRepository) UpsertVehicle(ctx context.Context, v patrol.VehicleRecord) error {
	row := Vehicle{
		ID:              uuid.New(),
		VRN:             v.VRN,
		Normalized:      utils.NormalizePlate(v.VRN),
		Make:            v.Make,
		Owner:           v.Owner,
		LicenseExpiry:   v.LicenseExpiry,
		InsuranceStatus: string(v.InsuranceStatus),
		IsStolen:        v.Stolen,
		IsWanted:        v.Wanted,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if v.Color != "" {
		row.Color = &v.Color
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "normalized"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"vrn", "make", "color", "owner", "license_expiry",
			"insurance_status", "is_stolen", "is_wanted", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}

func (r *PatrolRepository) SaveTicket(ctx context.Context, t *patrol.Ticket) error {
	officer, err := json.Marshal(t.Officer)
	if err != nil {
		return fmt.Errorf("marshal officer: %w", err)
	}
	offender, err := json.Marshal(t.Offender)
	if err != nil {
		return fmt.Errorf("marshal offender: %w", err)
	}
	offenses, err := json.Marshal(t.Offenses)
	if err != nil {
		return fmt.Errorf("marshal offenses: %w", err)
	}

	row := TicketRecord{
		ID:            t.ID,
		VRN:           t.VRN,
		NormalizedVRN: utils.NormalizePlate(t.VRN),
		Officer:       datatypes.JSON(officer),
		Offender:      datatypes.JSON(offender),
		Offenses:      datatypes.JSON(offenses),
		Total:         t.Total,
		CreatedAt:     t.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	return nil
}

func (r *PatrolRepository) SaveSettlement(ctx context.Context, result patrol.SettlementResult) error {
	row := SettlementRecord{
		ID:        uuid.New(),
		TicketID:  result.TicketID,
		Status:    string(result.Status),
		Method:    result.Method,
		Message:   result.Message,
		Amount:    result.Amount,
		SettledAt: result.SettledAt,
		CreatedAt: time.Now(),
	}
	if result.Reference != "" {
		row.Reference = &result.Reference
	}
	if result.Notice != nil {
		row.DueDate = &result.Notice.DueDate
		row.Station = &result.Notice.Station
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

type settlementRow struct {
	SettlementRecord
	VRN     string
	Officer datatypes.JSON
}

// ListSettlements returns settlement attempts made within [from, to), oldest
// first, joined with their tickets.
func (r *PatrolRepository) ListSettlements(ctx context.Context, from, to time.Time) ([]patrol.SettlementRecord, error) {
	var rows []settlementRow
	err := r.db.WithContext(ctx).
		Table("patrol_settlements").
		Select("patrol_settlements.*, patrol_tickets.vrn AS vrn, patrol_tickets.officer AS officer").
		Joins("JOIN patrol_tickets ON patrol_tickets.id = patrol_settlements.ticket_id").
		Where("patrol_settlements.settled_at >= ? AND patrol_settlements.settled_at < ?", from, to).
		Order("patrol_settlements.settled_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]patrol.SettlementRecord, 0, len(rows))
	for _, row := range rows {
		var officer patrol.Officer
		if len(row.Officer) > 0 {
			if err := json.Unmarshal(row.Officer, &officer); err != nil {
				return nil, fmt.Errorf("unmarshal officer: %w", err)
			}
		}
		result := patrol.SettlementResult{
			TicketID:  row.TicketID,
			Status:    patrol.SettlementStatus(row.Status),
			Message:   row.Message,
			Method:    row.Method,
			Amount:    row.Amount,
			SettledAt: row.SettledAt,
		}
		if row.Reference != nil {
			result.Reference = *row.Reference
		}
		if row.DueDate != nil {
			notice := &patrol.NoticeDetails{DueDate: *row.DueDate}
			if row.Station != nil {
				notice.Station = *row.Station
			}
			result.Notice = notice
		}
		records = append(records, patrol.SettlementRecord{
			VRN:            row.VRN,
			OfficerForceID: officer.ForceID,
			OfficerName:    officer.Name,
			Result:         result,
		})
	}
	return records, nil
}

// DeleteOldSettlements removes settlement attempts settled before cutoff.
func (r *PatrolRepository) DeleteOldSettlements(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("settled_at < ?", cutoff).
		Delete(&SettlementRecord{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
