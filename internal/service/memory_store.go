package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"patrol-service/internal/domain/patrol"
)

// MemoryStore keeps tickets and settlement attempts in process. It backs the
// memory lookup mode and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	tickets     map[uuid.UUID]*patrol.Ticket
	settlements []patrol.SettlementResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[uuid.UUID]*patrol.Ticket)}
}

func (m *MemoryStore) SaveTicket(_ context.Context, t *patrol.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t
	return nil
}

func (m *MemoryStore) SaveSettlement(_ context.Context, result patrol.SettlementResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, result)
	return nil
}

func (m *MemoryStore) ListSettlements(_ context.Context, from, to time.Time) ([]patrol.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]patrol.SettlementRecord, 0, len(m.settlements))
	for _, result := range m.settlements {
		if result.SettledAt.Before(from) || !result.SettledAt.Before(to) {
			continue
		}
		rec := patrol.SettlementRecord{Result: result}
		if t, ok := m.tickets[result.TicketID]; ok {
			rec.VRN = t.VRN
			rec.OfficerForceID = t.Officer.ForceID
			rec.OfficerName = t.Officer.Name
		}
		records = append(records, rec)
	}
	return records, nil
}

func (m *MemoryStore) DeleteOldSettlements(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.settlements[:0]
	var removed int64
	for _, result := range m.settlements {
		if result.SettledAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, result)
	}
	m.settlements = kept
	return removed, nil
}
