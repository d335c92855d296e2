package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patrol-service/internal/domain/patrol"
)

var (
	ErrOffline        = errors.New("digital payment unavailable while offline")
	ErrUnknownMethod  = errors.New("unknown payment method")
	ErrAlreadySettled = errors.New("ticket already settled")
	ErrInProgress     = errors.New("settlement already in progress")
	ErrInvalidTicket  = errors.New("invalid ticket")
)

const (
	MethodEcoCash  = "ecocash"
	MethodInnBucks = "innbucks"
	MethodSwipe    = "swipe"
	MethodCash     = "cash"
	MethodForm265  = "form265"
)

// NoticeGracePeriod is how long an offender has to pay a deferred notice.
const NoticeGracePeriod = 7 * 24 * time.Hour

const (
	DefaultSuccessProbability = 0.9
	DefaultPushLatency        = 2 * time.Second
	DefaultStation            = "Harare Central"
)

// RandomSource drives the simulated push outcome. *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

// Options configure an Engine. Nil pointers and empty values fall back to the
// defaults above.
type Options struct {
	// SuccessProbability is the chance in [0,1] that a digital push is approved.
	SuccessProbability *float64
	PushLatency        *time.Duration
	Station            string
	Random             RandomSource
	Now                func() time.Time
}

type Request struct {
	Method       string
	PayerContact string
	Online       bool
}

type methodSpec struct {
	id            string
	onlineLabel   string
	offlineLabel  string
	kind          patrol.MethodKind
	receiptPrefix string
}

var catalogue = []methodSpec{
	{id: MethodEcoCash, onlineLabel: "EcoCash (Mobile Money)", kind: patrol.MethodKindDigital, receiptPrefix: "ECO"},
	{id: MethodInnBucks, onlineLabel: "InnBucks", kind: patrol.MethodKindDigital, receiptPrefix: "INN"},
	{id: MethodSwipe, onlineLabel: "ZIMSWITCH (Swipe)", kind: patrol.MethodKindDigital, receiptPrefix: "SWP"},
	{id: MethodCash, onlineLabel: "Cash (Station Receipt)", offlineLabel: "Cash (Offline Receipt)", kind: patrol.MethodKindManual},
	{id: MethodForm265, onlineLabel: "Issue Form 265 (Pay Later)", offlineLabel: "Issue Form 265 (Notice to Pay)", kind: patrol.MethodKindDebt},
}

// Engine settles compiled tickets. It keeps the state of every ticket it has
// seen: PENDING while an attempt runs, then PAID, UNPAID, FAILED or CANCELLED.
// PAID and UNPAID close the ticket; FAILED and CANCELLED allow another attempt.
type Engine struct {
	opts        Options
	probability float64
	latency     time.Duration
	log         zerolog.Logger

	rngMu sync.Mutex

	mu     sync.Mutex
	states map[uuid.UUID]patrol.SettlementStatus
}

func NewEngine(opts Options, log zerolog.Logger) *Engine {
	probability := DefaultSuccessProbability
	if opts.SuccessProbability != nil {
		probability = min(max(*opts.SuccessProbability, 0), 1)
	}
	latency := DefaultPushLatency
	if opts.PushLatency != nil {
		latency = max(*opts.PushLatency, 0)
	}
	if opts.Station == "" {
		opts.Station = DefaultStation
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		opts:        opts,
		probability: probability,
		latency:     latency,
		log:         log,
		states:      make(map[uuid.UUID]patrol.SettlementStatus),
	}
}

// AvailableMethods lists what the officer may offer. Digital methods are never
// offered offline.
func (e *Engine) AvailableMethods(online bool) []patrol.Method {
	methods := make([]patrol.Method, 0, len(catalogue))
	for _, spec := range catalogue {
		if !online && spec.kind == patrol.MethodKindDigital {
			continue
		}
		label := spec.onlineLabel
		if !online && spec.offlineLabel != "" {
			label = spec.offlineLabel
		}
		methods = append(methods, patrol.Method{ID: spec.id, Label: label, Kind: spec.kind})
	}
	return methods
}

// Status returns the settlement state of a ticket, PENDING if never attempted.
func (e *Engine) Status(ticketID uuid.UUID) patrol.SettlementStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if status, ok := e.states[ticketID]; ok {
		return status
	}
	return patrol.SettlementPending
}

// Settle runs one settlement attempt. A declined or cancelled push is reported
// through the result status, not as an error. ctx cancellation during the push
// wait resolves the attempt as CANCELLED.
func (e *Engine) Settle(ctx context.Context, t *patrol.Ticket, req Request) (patrol.SettlementResult, error) {
	if t == nil || t.ID == uuid.Nil {
		return patrol.SettlementResult{}, ErrInvalidTicket
	}

	methodID := strings.ToLower(strings.TrimSpace(req.Method))
	spec, ok := lookupMethod(methodID)
	if !ok {
		return patrol.SettlementResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
	if spec.kind == patrol.MethodKindDigital && !req.Online {
		return patrol.SettlementResult{}, ErrOffline
	}

	if err := e.begin(t.ID); err != nil {
		return patrol.SettlementResult{}, err
	}

	e.log.Info().
		Str("ticket_id", t.ID.String()).
		Str("method", spec.id).
		Int64("amount", t.Total).
		Msg("initiating settlement")

	var result patrol.SettlementResult
	switch spec.kind {
	case patrol.MethodKindDigital:
		result = e.push(ctx, t, spec, req.PayerContact)
	case patrol.MethodKindDebt:
		result = e.issueNotice(t)
	default:
		result = e.recordCash(t)
	}

	e.finish(t.ID, result.Status)

	e.log.Info().
		Str("ticket_id", t.ID.String()).
		Str("method", spec.id).
		Str("status", string(result.Status)).
		Str("reference", result.Reference).
		Msg("settlement resolved")

	return result, nil
}

func (e *Engine) push(ctx context.Context, t *patrol.Ticket, spec methodSpec, payerContact string) patrol.SettlementResult {
	e.log.Debug().
		Str("ticket_id", t.ID.String()).
		Str("payer_contact", payerContact).
		Dur("latency", e.latency).
		Msg("sending payment push")

	timer := time.NewTimer(e.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return e.cancelled(t, spec)
	case <-timer.C:
	}
	// The wait may have elapsed together with a cancellation; cancellation wins.
	if ctx.Err() != nil {
		return e.cancelled(t, spec)
	}

	approved, receipt := e.draw()
	if !approved {
		return patrol.SettlementResult{
			TicketID:  t.ID,
			Status:    patrol.SettlementFailed,
			Message:   "Transaction Timed Out or User Cancelled.",
			Method:    spec.id,
			SettledAt: e.opts.Now(),
		}
	}
	return patrol.SettlementResult{
		TicketID:  t.ID,
		Status:    patrol.SettlementPaid,
		Reference: fmt.Sprintf("%s-%06d", spec.receiptPrefix, receipt),
		Message:   "Transaction Approved. Funds Transferred to ZRP Treasury.",
		Method:    spec.id,
		Amount:    t.Total,
		SettledAt: e.opts.Now(),
	}
}

func (e *Engine) cancelled(t *patrol.Ticket, spec methodSpec) patrol.SettlementResult {
	return patrol.SettlementResult{
		TicketID:  t.ID,
		Status:    patrol.SettlementCancelled,
		Message:   "Payment cancelled before confirmation. Select another method.",
		Method:    spec.id,
		SettledAt: e.opts.Now(),
	}
}

func (e *Engine) issueNotice(t *patrol.Ticket) patrol.SettlementResult {
	issued := e.opts.Now()
	reference := fmt.Sprintf("F265-%06d", issued.UnixMilli()%1000000)

	return patrol.SettlementResult{
		TicketID:  t.ID,
		Status:    patrol.SettlementUnpaid,
		Reference: reference,
		Message:   fmt.Sprintf("Form 265 (%s) issued. Driver has 7 days to pay at any ZRP Station.", reference),
		Method:    MethodForm265,
		Amount:    t.Total,
		SettledAt: issued,
		Notice: &patrol.NoticeDetails{
			DueDate: issued.Add(NoticeGracePeriod),
			Station: e.opts.Station,
		},
	}
}

func (e *Engine) recordCash(t *patrol.Ticket) patrol.SettlementResult {
	now := e.opts.Now()
	return patrol.SettlementResult{
		TicketID:  t.ID,
		Status:    patrol.SettlementPaid,
		Reference: fmt.Sprintf("ZRP-CASH-%d", now.UnixMilli()),
		Message:   "Cash Payment Recorded. Receipt Generated.",
		Method:    MethodCash,
		Amount:    t.Total,
		SettledAt: now,
	}
}

func (e *Engine) draw() (bool, int) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	approved := e.opts.Random.Float64() < e.probability
	return approved, e.opts.Random.Intn(1000000)
}

func (e *Engine) begin(ticketID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch status := e.states[ticketID]; {
	case status.Terminal():
		return ErrAlreadySettled
	case status == patrol.SettlementPending:
		return ErrInProgress
	}
	e.states[ticketID] = patrol.SettlementPending
	return nil
}

func (e *Engine) finish(ticketID uuid.UUID, status patrol.SettlementStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[ticketID] = status
}

// Forget drops the state of a ticket once its owner no longer needs it.
func (e *Engine) Forget(ticketID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[ticketID] != patrol.SettlementPending {
		delete(e.states, ticketID)
	}
}

func lookupMethod(id string) (methodSpec, bool) {
	for _, spec := range catalogue {
		if spec.id == id {
			return spec, true
		}
	}
	return methodSpec{}, false
}

// IsDigital reports whether the method needs connectivity.
func IsDigital(method string) bool {
	spec, ok := lookupMethod(strings.ToLower(strings.TrimSpace(method)))
	return ok && spec.kind == patrol.MethodKindDigital
}
