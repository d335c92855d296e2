package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patrol-service/internal/cart"
	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/lookup"
	"patrol-service/internal/metrics"
	"patrol-service/internal/model"
	"patrol-service/internal/resolver"
	"patrol-service/internal/risk"
	"patrol-service/internal/settlement"
	"patrol-service/internal/storage"
	"patrol-service/internal/ticket"
	"patrol-service/internal/validation"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionNotFound  = errors.New("session not found")
	ErrForbidden        = errors.New("forbidden")
	ErrNoActiveStop     = errors.New("no active vehicle stop")
	ErrTicketingBlocked = errors.New("ticketing blocked: arrest and impound required")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrReportsDisabled  = errors.New("settlement reports are not available")
)

// HistoryRecorder appends settled tickets to a vehicle's violation history.
type HistoryRecorder interface {
	AppendViolation(ctx context.Context, vrn string, entry patrol.ViolationHistoryEntry) error
}

type TicketStore interface {
	SaveTicket(ctx context.Context, t *patrol.Ticket) error
	SaveSettlement(ctx context.Context, result patrol.SettlementResult) error
	ListSettlements(ctx context.Context, from, to time.Time) ([]patrol.SettlementRecord, error)
	DeleteOldSettlements(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver keeps a copy of every compiled ticket outside the database.
type Archiver interface {
	ArchiveTicket(ctx context.Context, t *patrol.Ticket) (string, error)
}

type Options struct {
	Store    TicketStore
	History  HistoryRecorder
	Archiver Archiver
	// RecordSettlementsInHistory feeds PAID and UNPAID outcomes back into the
	// violation history, so unpaid notices count towards the habitual
	// offender threshold.
	RecordSettlementsInHistory bool
	Now                        func() time.Time
}

type PatrolService struct {
	lookup *lookup.Service
	engine *settlement.Engine
	opts   Options
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewPatrolService(lookupSvc *lookup.Service, engine *settlement.Engine, opts Options, log zerolog.Logger) *PatrolService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PatrolService{
		lookup:   lookupSvc,
		engine:   engine,
		opts:     opts,
		log:      log,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *PatrolService) OpenSession(principal model.Principal) (SessionInfo, error) {
	if !principal.CanIssueTicket() {
		return SessionInfo{}, fmt.Errorf("%w: officer identity required", ErrForbidden)
	}

	sess := newSession(principal, s.opts.Now())

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", sess.id.String()).
		Str("force_id", principal.ForceID).
		Str("rank", string(principal.Rank)).
		Msg("patrol session opened")

	return sess.info(), nil
}

func (s *PatrolService) CloseSession(principal model.Principal, sessionID uuid.UUID) error {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	for _, id := range sess.ticketIDs() {
		s.engine.Forget(id)
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("force_id", principal.ForceID).
		Msg("patrol session closed")
	return nil
}

// StartStop begins a new vehicle stop: the cart is emptied, the vehicle is
// looked up and classified. Lookup failures are not errors here; they come
// back as an UNKNOWN_OFFLINE classification with Failure set.
func (s *PatrolService) StartStop(ctx context.Context, principal model.Principal, sessionID uuid.UUID, vrn string) (*Stop, error) {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}

	vrn = strings.TrimSpace(vrn)
	if vrn == "" {
		return nil, fmt.Errorf("%w: vrn is required", ErrInvalidInput)
	}

	sess.mu.Lock()
	sess.stop = nil
	sess.cart.Clear()
	sess.mu.Unlock()

	stop := &Stop{
		VRN:       vrn,
		History:   []patrol.ViolationHistoryEntry{},
		StartedAt: s.opts.Now(),
	}

	result, err := s.lookup.Lookup(ctx, vrn)
	switch {
	case err == nil:
		vehicle := result.Vehicle
		stop.Found = true
		stop.Vehicle = &vehicle
		stop.History = result.History
		stop.Classification = risk.Classify(vehicle, result.History, stop.StartedAt)
	case errors.Is(err, lookup.ErrNotFound):
		stop.Classification = risk.Offline()
		stop.Failure = FailureNotFound
	default:
		stop.Classification = risk.Offline()
		stop.Failure = FailureUnreachable
	}
	stop.TicketingAllowed = principal.CanIssueTicket() &&
		!risk.BlocksTicketing(stop.Classification, principal.CanOverrideImpound())

	metrics.Lookups.WithLabelValues(string(stop.Classification.Tier)).Inc()

	sess.mu.Lock()
	sess.stop = stop
	sess.mu.Unlock()

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("vrn", vrn).
		Str("tier", string(stop.Classification.Tier)).
		Str("failure", stop.Failure).
		Bool("ticketing_allowed", stop.TicketingAllowed).
		Msg("vehicle stop started")

	return stop, nil
}

// CurrentStop returns the active stop of a session, if any.
func (s *PatrolService) CurrentStop(principal model.Principal, sessionID uuid.UUID) (*Stop, error) {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stop == nil {
		return nil, ErrNoActiveStop
	}
	stop := *sess.stop
	return &stop, nil
}

func (s *PatrolService) AddOffenses(principal model.Principal, sessionID uuid.UUID, items []patrol.OffenseLineItem) (cart.AddResult, cart.Summary, error) {
	if len(items) == 0 {
		return cart.AddResult{}, cart.Summary{}, fmt.Errorf("%w: at least one offense is required", ErrInvalidInput)
	}
	for i, item := range items {
		if err := validation.Validate(item); err != nil {
			return cart.AddResult{}, cart.Summary{}, fmt.Errorf("%w: item %d: %v", ErrInvalidInput, i, err)
		}
	}

	sess, err := s.session(principal, sessionID)
	if err != nil {
		return cart.AddResult{}, cart.Summary{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.ticketable(sess); err != nil {
		return cart.AddResult{}, cart.Summary{}, err
	}

	result := sess.cart.AddItems(items)
	metrics.CartItems.WithLabelValues("added").Add(float64(len(result.Added)))
	metrics.CartItems.WithLabelValues("duplicate").Add(float64(len(result.Duplicates)))

	if len(result.Duplicates) > 0 {
		s.log.Debug().
			Str("session_id", sessionID.String()).
			Int("duplicates", len(result.Duplicates)).
			Msg("duplicate offenses ignored")
	}

	return result, sess.cart.Summary(), nil
}

// AddInspectionDefects adds one manual-inspection defect per failed checklist
// item.
func (s *PatrolService) AddInspectionDefects(principal model.Principal, sessionID uuid.UUID, failedIDs []string) (cart.AddResult, cart.Summary, error) {
	items, err := resolver.InspectionDefects(failedIDs)
	if err != nil {
		return cart.AddResult{}, cart.Summary{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(items) == 0 {
		return cart.AddResult{}, cart.Summary{}, fmt.Errorf("%w: no failed checklist items", ErrInvalidInput)
	}
	return s.AddOffenses(principal, sessionID, items)
}

// DescribeOffense resolves free text against the statute catalogue and adds
// the result to the cart, including the zero-fine placeholder for unmatched
// text.
func (s *PatrolService) DescribeOffense(principal model.Principal, sessionID uuid.UUID, text string) (resolver.Resolution, cart.AddResult, cart.Summary, error) {
	if strings.TrimSpace(text) == "" {
		return resolver.Resolution{}, cart.AddResult{}, cart.Summary{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	resolution := resolver.Resolve(text)
	added, summary, err := s.AddOffenses(principal, sessionID, []patrol.OffenseLineItem{resolution.LineItem()})
	if err != nil {
		return resolver.Resolution{}, cart.AddResult{}, cart.Summary{}, err
	}
	return resolution, added, summary, nil
}

func (s *PatrolService) CartSummary(principal model.Principal, sessionID uuid.UUID) (cart.Summary, error) {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return cart.Summary{}, err
	}
	return sess.cart.Summary(), nil
}

func (s *PatrolService) ClearCart(principal model.Principal, sessionID uuid.UUID) error {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return err
	}
	sess.cart.Clear()
	return nil
}

// CompileTicket freezes the cart of the active stop into a ticket. The cart is
// cleared only once the ticket has been stored.
func (s *PatrolService) CompileTicket(ctx context.Context, principal model.Principal, sessionID uuid.UUID, offender patrol.Offender) (*patrol.Ticket, error) {
	if !principal.CanIssueTicket() {
		return nil, fmt.Errorf("%w: rank cannot issue tickets", ErrForbidden)
	}
	offender.Name = strings.TrimSpace(offender.Name)
	if err := validation.Validate(offender); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sess, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if err := s.ticketable(sess); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	if offender.Make == "" && sess.stop.Vehicle != nil {
		offender.Make = sess.stop.Vehicle.Make
	}

	t, err := ticket.Compile(sess.stop.VRN, principal.Officer(), offender, sess.cart, s.opts.Now())
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}

	if s.opts.Store != nil {
		if err := s.opts.Store.SaveTicket(ctx, t); err != nil {
			sess.mu.Unlock()
			s.log.Error().
				Err(err).
				Str("ticket_id", t.ID.String()).
				Msg("failed to save ticket")
			return nil, fmt.Errorf("failed to save ticket: %w", err)
		}
	}

	sess.cart.Clear()
	sess.tickets[t.ID] = t
	sess.mu.Unlock()

	metrics.TicketsCompiled.Inc()

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("ticket_id", t.ID.String()).
		Str("vrn", t.VRN).
		Int("offenses", len(t.Offenses)).
		Int64("total", t.Total).
		Msg("ticket compiled")

	s.archive(ctx, t)

	return t, nil
}

func (s *PatrolService) GetTicket(principal model.Principal, sessionID, ticketID uuid.UUID) (*patrol.Ticket, error) {
	sess, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	t, ok := sess.tickets[ticketID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

func (s *PatrolService) PaymentMethods(principal model.Principal, sessionID uuid.UUID, online bool) ([]patrol.Method, error) {
	if _, err := s.session(principal, sessionID); err != nil {
		return nil, err
	}
	return s.engine.AvailableMethods(online), nil
}

// Settle runs one settlement attempt for a ticket of the session. ctx is the
// cancellation signal for digital pushes. Every attempt is stored, even a
// cancelled one, so storage runs on a context that outlives ctx.
func (s *PatrolService) Settle(ctx context.Context, principal model.Principal, sessionID, ticketID uuid.UUID, req settlement.Request) (patrol.SettlementResult, error) {
	t, err := s.GetTicket(principal, sessionID, ticketID)
	if err != nil {
		return patrol.SettlementResult{}, err
	}

	if settlement.IsDigital(req.Method) && req.Online {
		s.log.Info().
			Str("ticket_id", t.ID.String()).
			Str("method", req.Method).
			Int64("amount", t.Total).
			Msg("awaiting payment push")
	}

	result, err := s.engine.Settle(ctx, t, req)
	if err != nil {
		return patrol.SettlementResult{}, err
	}

	metrics.Settlements.WithLabelValues(result.Method, string(result.Status)).Inc()
	if result.Success() {
		metrics.FinesSettled.WithLabelValues(string(result.Status)).Add(float64(t.Total))
	}

	persistCtx := context.WithoutCancel(ctx)
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveSettlement(persistCtx, result); err != nil {
			s.log.Error().
				Err(err).
				Str("ticket_id", t.ID.String()).
				Str("status", string(result.Status)).
				Msg("failed to save settlement")
		}
	}
	if result.Success() && s.opts.RecordSettlementsInHistory && s.opts.History != nil {
		if err := s.opts.History.AppendViolation(persistCtx, t.VRN, historyEntry(t, result)); err != nil {
			s.log.Error().
				Err(err).
				Str("ticket_id", t.ID.String()).
				Str("vrn", t.VRN).
				Msg("failed to record settlement in history")
		}
	}

	return result, nil
}

// SettlementReport lists settlement attempts in [from, to). Inspectors only.
func (s *PatrolService) SettlementReport(ctx context.Context, principal model.Principal, from, to time.Time) ([]patrol.SettlementRecord, error) {
	if !principal.IsInspector() {
		return nil, fmt.Errorf("%w: reports require inspector rank", ErrForbidden)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}
	if s.opts.Store == nil {
		return nil, ErrReportsDisabled
	}
	records, err := s.opts.Store.ListSettlements(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return records, nil
}

// PruneSettlements drops settlement attempts settled more than olderThanDays
// days ago and returns how many were removed. Inspectors only.
func (s *PatrolService) PruneSettlements(ctx context.Context, principal model.Principal, olderThanDays int) (int64, error) {
	if !principal.IsInspector() {
		return 0, fmt.Errorf("%w: retention requires inspector rank", ErrForbidden)
	}
	if olderThanDays < 1 {
		return 0, fmt.Errorf("%w: older_than_days must be at least 1", ErrInvalidInput)
	}
	if s.opts.Store == nil {
		return 0, ErrReportsDisabled
	}

	cutoff := s.opts.Now().AddDate(0, 0, -olderThanDays)
	removed, err := s.opts.Store.DeleteOldSettlements(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune settlements: %w", err)
	}

	s.log.Info().
		Str("force_id", principal.ForceID).
		Time("cutoff", cutoff).
		Int64("removed", removed).
		Msg("pruned settlement attempts")
	return removed, nil
}

func (s *PatrolService) session(principal model.Principal, sessionID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.principal.ForceID != principal.ForceID {
		return nil, fmt.Errorf("%w: session belongs to another officer", ErrForbidden)
	}
	return sess, nil
}

// ticketable must be called with sess.mu held.
func (s *PatrolService) ticketable(sess *Session) error {
	if sess.stop == nil {
		return ErrNoActiveStop
	}
	if !sess.stop.TicketingAllowed {
		return ErrTicketingBlocked
	}
	return nil
}

func (s *PatrolService) archive(ctx context.Context, t *patrol.Ticket) {
	if s.opts.Archiver == nil {
		return
	}
	url, err := s.opts.Archiver.ArchiveTicket(ctx, t)
	if errors.Is(err, storage.ErrNotConfigured) {
		return
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("ticket_id", t.ID.String()).
			Msg("failed to archive ticket")
		return
	}
	s.log.Debug().
		Str("ticket_id", t.ID.String()).
		Str("url", url).
		Msg("ticket archived")
}

func historyEntry(t *patrol.Ticket, result patrol.SettlementResult) patrol.ViolationHistoryEntry {
	descriptions := make([]string, 0, len(t.Offenses))
	for _, o := range t.Offenses {
		descriptions = append(descriptions, o.Description)
	}
	status := patrol.PaymentUnpaid
	if result.Status == patrol.SettlementPaid {
		status = patrol.PaymentPaid
	}
	ticketID := t.ID
	return patrol.ViolationHistoryEntry{
		Date:     result.SettledAt,
		Offense:  strings.Join(descriptions, "; "),
		Status:   status,
		TicketID: &ticketID,
	}
}
