package settlement

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patrol-service/internal/domain/patrol"
)

// fixedSource always returns the same draw, so the outcome of a push is
// decided by the configured probability alone.
type fixedSource struct {
	mu    sync.Mutex
	value float64
	calls int
}

func (f *fixedSource) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.value
}

func (f *fixedSource) Intn(n int) int { return 4242 % n }

var issuedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTicket(total int64) *patrol.Ticket {
	return &patrol.Ticket{
		ID:        uuid.New(),
		VRN:       "HRE-5555",
		Offenses:  []patrol.OffenseLineItem{{Description: "Speeding", Fine: total}},
		Total:     total,
		CreatedAt: issuedAt,
	}
}

func ptr[T any](v T) *T { return &v }

func newEngine(src RandomSource, latency time.Duration) *Engine {
	return NewEngine(Options{
		SuccessProbability: ptr(DefaultSuccessProbability),
		PushLatency:        ptr(latency),
		Station:            "Harare Central",
		Random:             src,
		Now:                func() time.Time { return issuedAt },
	}, zerolog.Nop())
}

func methodIDs(methods []patrol.Method) []string {
	ids := make([]string, 0, len(methods))
	for _, m := range methods {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestAvailableMethods(t *testing.T) {
	e := newEngine(&fixedSource{}, 0)

	online := methodIDs(e.AvailableMethods(true))
	wantOnline := []string{MethodEcoCash, MethodInnBucks, MethodSwipe, MethodCash, MethodForm265}
	if len(online) != len(wantOnline) {
		t.Fatalf("online methods = %v, want %v", online, wantOnline)
	}
	for i := range wantOnline {
		if online[i] != wantOnline[i] {
			t.Errorf("online method %d = %s, want %s", i, online[i], wantOnline[i])
		}
	}

	offline := e.AvailableMethods(false)
	if got := methodIDs(offline); len(got) != 2 || got[0] != MethodCash || got[1] != MethodForm265 {
		t.Fatalf("offline methods = %v, want [cash form265]", got)
	}
	for _, m := range offline {
		if m.Kind == patrol.MethodKindDigital {
			t.Errorf("digital method %s offered offline", m.ID)
		}
	}
	if offline[0].Label != "Cash (Offline Receipt)" {
		t.Errorf("offline cash label = %q", offline[0].Label)
	}
}

func TestIsDigital(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{method: MethodEcoCash, want: true},
		{method: " SWIPE ", want: true},
		{method: MethodCash, want: false},
		{method: MethodForm265, want: false},
		{method: "bitcoin", want: false},
	}
	for _, tt := range tests {
		if got := IsDigital(tt.method); got != tt.want {
			t.Errorf("IsDigital(%q) = %v, want %v", tt.method, got, tt.want)
		}
	}
}

func TestSettleDeferredNotice(t *testing.T) {
	e := newEngine(&fixedSource{}, 0)
	tk := newTicket(50)

	res, err := e.Settle(context.Background(), tk, Request{Method: "form265", Online: false})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if res.Status != patrol.SettlementUnpaid {
		t.Errorf("status = %s, want UNPAID", res.Status)
	}
	if !regexp.MustCompile(`^F265-\d{6}$`).MatchString(res.Reference) {
		t.Errorf("reference = %q, want F265-NNNNNN", res.Reference)
	}
	if res.Notice == nil {
		t.Fatal("notice details missing")
	}
	if want := issuedAt.Add(7 * 24 * time.Hour); !res.Notice.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", res.Notice.DueDate, want)
	}
	if res.Notice.Station != "Harare Central" {
		t.Errorf("station = %q", res.Notice.Station)
	}
	if res.Amount != 50 {
		t.Errorf("amount = %d, want 50", res.Amount)
	}
	if got := e.Status(tk.ID); got != patrol.SettlementUnpaid {
		t.Errorf("Status() = %s, want UNPAID", got)
	}
}

func TestSettleCash(t *testing.T) {
	e := newEngine(&fixedSource{}, 0)
	res, err := e.Settle(context.Background(), newTicket(30), Request{Method: "CASH"})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if res.Status != patrol.SettlementPaid {
		t.Errorf("status = %s, want PAID", res.Status)
	}
	if !regexp.MustCompile(`^ZRP-CASH-\d+$`).MatchString(res.Reference) {
		t.Errorf("reference = %q", res.Reference)
	}
}

func TestSettleDigitalOffline(t *testing.T) {
	src := &fixedSource{value: 0}
	e := newEngine(src, time.Hour)
	tk := newTicket(30)

	_, err := e.Settle(context.Background(), tk, Request{Method: MethodEcoCash, Online: false})
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("Settle() error = %v, want ErrOffline", err)
	}
	if src.calls != 0 {
		t.Error("push outcome drawn while offline")
	}
	if got := e.Status(tk.ID); got != patrol.SettlementPending {
		t.Errorf("Status() = %s, ticket should be untouched", got)
	}
}

func TestSettleDigitalOutcome(t *testing.T) {
	tests := []struct {
		name       string
		draw       float64
		wantStatus patrol.SettlementStatus
		wantRef    bool
		wantAmount int64
	}{
		{name: "approved", draw: 0.05, wantStatus: patrol.SettlementPaid, wantRef: true, wantAmount: 40},
		{name: "declined", draw: 0.95, wantStatus: patrol.SettlementFailed, wantRef: false, wantAmount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(&fixedSource{value: tt.draw}, 0)
			res, err := e.Settle(context.Background(), newTicket(40), Request{Method: MethodEcoCash, Online: true, PayerContact: "0771234567"})
			if err != nil {
				t.Fatalf("Settle() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", res.Status, tt.wantStatus)
			}
			if (res.Reference != "") != tt.wantRef {
				t.Errorf("reference = %q, want present=%v", res.Reference, tt.wantRef)
			}
			if res.Amount != tt.wantAmount {
				t.Errorf("amount = %d, want %d", res.Amount, tt.wantAmount)
			}
		})
	}
}

func TestSettleDigitalReferenceFormat(t *testing.T) {
	e := newEngine(&fixedSource{value: 0}, 0)
	res, err := e.Settle(context.Background(), newTicket(40), Request{Method: MethodSwipe, Online: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reference != "SWP-004242" {
		t.Errorf("reference = %q, want SWP-004242", res.Reference)
	}
}

func TestSettleSeededSourceIsDeterministic(t *testing.T) {
	run := func() []patrol.SettlementStatus {
		e := newEngine(rand.New(rand.NewSource(7)), 0)
		statuses := make([]patrol.SettlementStatus, 0, 20)
		for i := 0; i < 20; i++ {
			res, err := e.Settle(context.Background(), newTicket(10), Request{Method: MethodEcoCash, Online: true})
			if err != nil {
				t.Fatal(err)
			}
			statuses = append(statuses, res.Status)
		}
		return statuses
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("attempt %d: %s vs %s with the same seed", i, a[i], b[i])
		}
	}
}

func TestNewEngineDefaults(t *testing.T) {
	tests := []struct {
		name            string
		opts            Options
		wantProbability float64
		wantLatency     time.Duration
	}{
		{name: "zero options", opts: Options{}, wantProbability: DefaultSuccessProbability, wantLatency: DefaultPushLatency},
		{name: "explicit zero", opts: Options{SuccessProbability: ptr(0.0), PushLatency: ptr(time.Duration(0))}, wantProbability: 0, wantLatency: 0},
		{name: "out of range", opts: Options{SuccessProbability: ptr(1.5), PushLatency: ptr(-time.Second)}, wantProbability: 1, wantLatency: 0},
		{name: "configured", opts: Options{SuccessProbability: ptr(0.25), PushLatency: ptr(time.Millisecond)}, wantProbability: 0.25, wantLatency: time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.opts, zerolog.Nop())
			if e.probability != tt.wantProbability {
				t.Errorf("probability = %v, want %v", e.probability, tt.wantProbability)
			}
			if e.latency != tt.wantLatency {
				t.Errorf("latency = %v, want %v", e.latency, tt.wantLatency)
			}
			if e.opts.Station != DefaultStation {
				t.Errorf("station = %q, want %q", e.opts.Station, DefaultStation)
			}
		})
	}
}

func TestSettleDefaultProbabilityApprovesMostPushes(t *testing.T) {
	e := NewEngine(Options{
		PushLatency: ptr(time.Duration(0)),
		Random:      rand.New(rand.NewSource(1)),
	}, zerolog.Nop())

	const attempts = 200
	paid := 0
	for i := 0; i < attempts; i++ {
		res, err := e.Settle(context.Background(), newTicket(10), Request{Method: MethodEcoCash, Online: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.Status == patrol.SettlementPaid {
			paid++
		}
	}

	if paid < 160 || paid > 199 {
		t.Errorf("paid = %d of %d, want roughly 90%%", paid, attempts)
	}
}

func TestSettleFailedIsRetryable(t *testing.T) {
	e := newEngine(&fixedSource{value: 0.99}, 0)
	tk := newTicket(25)

	res, err := e.Settle(context.Background(), tk, Request{Method: MethodEcoCash, Online: true})
	if err != nil || res.Status != patrol.SettlementFailed {
		t.Fatalf("first attempt = %s, %v; want FAILED", res.Status, err)
	}

	res, err = e.Settle(context.Background(), tk, Request{Method: MethodCash})
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if res.Status != patrol.SettlementPaid {
		t.Errorf("retry status = %s, want PAID", res.Status)
	}

	_, err = e.Settle(context.Background(), tk, Request{Method: MethodForm265})
	if !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("third attempt error = %v, want ErrAlreadySettled", err)
	}
}

func TestSettleCancelledDuringPush(t *testing.T) {
	src := &fixedSource{value: 0}
	e := newEngine(src, time.Hour)
	tk := newTicket(60)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan patrol.SettlementResult, 1)
	go func() {
		res, err := e.Settle(ctx, tk, Request{Method: MethodEcoCash, Online: true})
		if err != nil {
			t.Errorf("Settle() error = %v", err)
		}
		done <- res
	}()

	// Wait until the attempt is registered before cancelling.
	deadline := time.Now().Add(5 * time.Second)
	for !inFlight(e, tk.ID) {
		if time.Now().After(deadline) {
			t.Fatal("settlement never started")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case res := <-done:
		if res.Status != patrol.SettlementCancelled {
			t.Errorf("status = %s, want CANCELLED", res.Status)
		}
		if res.Reference != "" || res.Amount != 0 {
			t.Errorf("cancelled result carries reference %q amount %d", res.Reference, res.Amount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled settlement did not resolve")
	}

	if src.calls != 0 {
		t.Error("outcome drawn after cancellation")
	}
	if got := e.Status(tk.ID); got != patrol.SettlementCancelled {
		t.Errorf("Status() = %s, want CANCELLED", got)
	}

	res, err := e.Settle(context.Background(), tk, Request{Method: MethodCash})
	if err != nil || res.Status != patrol.SettlementPaid {
		t.Errorf("cash after cancel = %s, %v; want PAID", res.Status, err)
	}
}

func TestSettleAlreadyCancelledContext(t *testing.T) {
	e := newEngine(&fixedSource{value: 0}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Settle(ctx, newTicket(10), Request{Method: MethodInnBucks, Online: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != patrol.SettlementCancelled {
		t.Errorf("status = %s, want CANCELLED", res.Status)
	}
}

func TestSettleConcurrentAttemptRejected(t *testing.T) {
	e := newEngine(&fixedSource{value: 0}, time.Hour)
	tk := newTicket(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_, _ = e.Settle(ctx, tk, Request{Method: MethodEcoCash, Online: true})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !inFlight(e, tk.ID) {
		if time.Now().After(deadline) {
			t.Fatal("settlement never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := e.Settle(context.Background(), tk, Request{Method: MethodCash})
	if !errors.Is(err, ErrInProgress) {
		t.Errorf("second attempt error = %v, want ErrInProgress", err)
	}
}

func TestSettleRejectsBadInput(t *testing.T) {
	e := newEngine(&fixedSource{}, 0)

	if _, err := e.Settle(context.Background(), nil, Request{Method: MethodCash}); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("nil ticket error = %v, want ErrInvalidTicket", err)
	}
	if _, err := e.Settle(context.Background(), newTicket(1), Request{Method: "bitcoin"}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown method error = %v, want ErrUnknownMethod", err)
	}
}

func inFlight(e *Engine, id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	status, ok := e.states[id]
	return ok && status == patrol.SettlementPending
}
