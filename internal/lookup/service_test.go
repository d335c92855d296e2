package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"patrol-service/internal/domain/patrol"
)

func TestLookup(t *testing.T) {
	svc := NewService(NewDemoBackend(), time.Second, zerolog.Nop())

	tests := []struct {
		name        string
		vrn         string
		wantErr     error
		wantMake    string
		wantHistory int
	}{
		{name: "normalized form", vrn: "ABC-1234", wantMake: "Toyota Hilux"},
		{name: "raw lowercase with spaces", vrn: " abc 1234 ", wantMake: "Toyota Hilux"},
		{name: "habitual offender history", vrn: "xyz9999", wantMake: "Mazda Demio", wantHistory: 3},
		{name: "unknown vehicle", vrn: "NOPE-000", wantErr: ErrNotFound},
		{name: "empty input", vrn: "  - ", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Lookup(context.Background(), tt.vrn)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lookup(%q) error = %v, want %v", tt.vrn, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.vrn, err)
			}
			if res.Vehicle.Make != tt.wantMake {
				t.Errorf("make = %q, want %q", res.Vehicle.Make, tt.wantMake)
			}
			if len(res.History) != tt.wantHistory {
				t.Errorf("history = %d entries, want %d", len(res.History), tt.wantHistory)
			}
		})
	}
}

func TestLookupUnreachable(t *testing.T) {
	backend := NewDemoBackend()
	backend.SetUnreachable(true)
	svc := NewService(backend, time.Second, zerolog.Nop())

	_, err := svc.Lookup(context.Background(), "ABC-1234")
	if !errors.Is(err, ErrConnectivity) {
		t.Fatalf("Lookup() error = %v, want ErrConnectivity", err)
	}

	backend.SetUnreachable(false)
	if _, err := svc.Lookup(context.Background(), "ABC-1234"); err != nil {
		t.Errorf("retry after reconnect error = %v", err)
	}
}

func TestLookupTimeoutIsConnectivityError(t *testing.T) {
	backend := NewDemoBackend()
	backend.SetLatency(time.Hour)
	svc := NewService(backend, 10*time.Millisecond, zerolog.Nop())

	_, err := svc.Lookup(context.Background(), "ABC-1234")
	if !errors.Is(err, ErrConnectivity) {
		t.Fatalf("Lookup() error = %v, want ErrConnectivity", err)
	}
}

func TestMemoryBackendAppendViolation(t *testing.T) {
	backend := NewDemoBackend()
	svc := NewService(backend, time.Second, zerolog.Nop())

	err := backend.AppendViolation(context.Background(), "hre 5555", patrol.ViolationHistoryEntry{
		Date:    time.Now(),
		Offense: "Driving without valid Third Party Insurance",
		Status:  patrol.PaymentUnpaid,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Lookup(context.Background(), "HRE-5555")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.History) != 1 {
		t.Errorf("history = %d entries, want 1", len(res.History))
	}
}
