package lookup

import (
	"context"
	"sync"
	"time"

	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/utils"
)

// MemoryBackend is an in-process registry used for demos and tests. Records
// are keyed by normalized VRN.
type MemoryBackend struct {
	mu          sync.RWMutex
	vehicles    map[string]patrol.VehicleRecord
	history     map[string][]patrol.ViolationHistoryEntry
	unreachable bool
	latency     time.Duration
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		vehicles: make(map[string]patrol.VehicleRecord),
		history:  make(map[string][]patrol.ViolationHistoryEntry),
	}
}

// NewDemoBackend returns a registry holding one vehicle per traffic-light
// outcome.
func NewDemoBackend() *MemoryBackend {
	b := NewMemoryBackend()
	b.PutVehicle(patrol.VehicleRecord{
		VRN: "ABC-1234", Make: "Toyota Hilux", Color: "White", Owner: "Swift Logistics Ltd",
		LicenseExpiry: date(2030, 12, 31), InsuranceStatus: patrol.InsuranceValid,
	})
	b.PutVehicle(patrol.VehicleRecord{
		VRN: "HRE-5555", Make: "Honda Fit", Color: "Silver", Owner: "P. Ndlovu",
		LicenseExpiry: date(2023, 1, 1), InsuranceStatus: patrol.InsuranceExpired,
	})
	b.PutVehicle(patrol.VehicleRecord{
		VRN: "CRIME-001", Make: "Nissan Navara", Color: "Black", Owner: "Unknown",
		LicenseExpiry: date(2025, 1, 1), InsuranceStatus: patrol.InsuranceValid,
		Stolen: true, Wanted: true,
	})
	b.PutVehicle(patrol.VehicleRecord{
		VRN: "XYZ-9999", Make: "Mazda Demio", Color: "Blue", Owner: "T. Mambo",
		LicenseExpiry: date(2030, 6, 1), InsuranceStatus: patrol.InsuranceValid,
	})
	b.history[utils.NormalizePlate("XYZ-9999")] = []patrol.ViolationHistoryEntry{
		{Date: date(2023, 11, 12), Offense: "Worn Tires", Status: patrol.PaymentUnpaid},
		{Date: date(2024, 1, 5), Offense: "No Fire Extinguisher", Status: patrol.PaymentPaid},
		{Date: date(2024, 2, 20), Offense: "Broken Headlight", Status: patrol.PaymentUnpaid},
	}
	return b
}

func (b *MemoryBackend) PutVehicle(v patrol.VehicleRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vehicles[utils.NormalizePlate(v.VRN)] = v
}

// SetUnreachable makes every call fail as if the registry were offline.
func (b *MemoryBackend) SetUnreachable(unreachable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unreachable = unreachable
}

// SetLatency delays every call, honouring context cancellation.
func (b *MemoryBackend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

func (b *MemoryBackend) Fetch(ctx context.Context, vrn string) (*patrol.VehicleRecord, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.vehicles[utils.NormalizePlate(vrn)]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (b *MemoryBackend) History(ctx context.Context, vrn string) ([]patrol.ViolationHistoryEntry, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := b.history[utils.NormalizePlate(vrn)]
	out := make([]patrol.ViolationHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// AppendViolation adds an entry to the local history of a vehicle.
func (b *MemoryBackend) AppendViolation(_ context.Context, vrn string, entry patrol.ViolationHistoryEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := utils.NormalizePlate(vrn)
	b.history[key] = append(b.history[key], entry)
	return nil
}

func (b *MemoryBackend) wait(ctx context.Context) error {
	b.mu.RLock()
	unreachable, latency := b.unreachable, b.latency
	b.mu.RUnlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if unreachable {
		return ErrConnectivity
	}
	return ctx.Err()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
