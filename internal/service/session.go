package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"patrol-service/internal/cart"
	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/model"
)

const (
	FailureNotFound    = "not_found"
	FailureUnreachable = "unreachable"
)

// Stop is the vehicle currently pulled over in a session.
type Stop struct {
	VRN              string                         `json:"vrn"`
	Found            bool                           `json:"found"`
	Vehicle          *patrol.VehicleRecord          `json:"vehicle,omitempty"`
	History          []patrol.ViolationHistoryEntry `json:"history"`
	Classification   patrol.RiskClassification      `json:"classification"`
	TicketingAllowed bool                           `json:"ticketing_allowed"`
	Failure          string                         `json:"failure,omitempty"`
	StartedAt        time.Time                      `json:"started_at"`
}

type SessionInfo struct {
	ID       uuid.UUID      `json:"id"`
	Officer  patrol.Officer `json:"officer"`
	OpenedAt time.Time      `json:"opened_at"`
}

// Session is one officer's patrol context: at most one active stop, the cart
// scoped to that stop and the tickets compiled so far.
type Session struct {
	id        uuid.UUID
	principal model.Principal
	openedAt  time.Time

	mu      sync.Mutex
	stop    *Stop
	cart    *cart.Cart
	tickets map[uuid.UUID]*patrol.Ticket
}

func newSession(principal model.Principal, now time.Time) *Session {
	return &Session{
		id:        uuid.New(),
		principal: principal,
		openedAt:  now,
		cart:      cart.New(),
		tickets:   make(map[uuid.UUID]*patrol.Ticket),
	}
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:       s.id,
		Officer:  s.principal.Officer(),
		OpenedAt: s.openedAt,
	}
}

func (s *Session) ticketIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	return ids
}
