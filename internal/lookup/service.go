package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/utils"
)

var (
	ErrNotFound     = errors.New("vehicle not found in registry")
	ErrConnectivity = errors.New("registry unreachable")
)

// Backend is the registry and violation-history store behind a lookup.
// Fetch reports a missing vehicle with ErrNotFound; any other error is taken
// as the registry being unreachable.
type Backend interface {
	Fetch(ctx context.Context, vrn string) (*patrol.VehicleRecord, error)
	History(ctx context.Context, vrn string) ([]patrol.ViolationHistoryEntry, error)
}

type Result struct {
	Vehicle patrol.VehicleRecord           `json:"vehicle"`
	History []patrol.ViolationHistoryEntry `json:"history"`
}

type Service struct {
	backend Backend
	timeout time.Duration
	log     zerolog.Logger
}

func NewService(backend Backend, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		backend: backend,
		timeout: timeout,
		log:     log,
	}
}

// Lookup fetches the registry record and the local history of a vehicle. It
// never retries: every failure is either ErrNotFound or ErrConnectivity.
func (s *Service) Lookup(ctx context.Context, vrn string) (*Result, error) {
	normalized := utils.NormalizePlate(vrn)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty vrn", ErrNotFound)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		record  *patrol.VehicleRecord
		history []patrol.ViolationHistoryEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.backend.Fetch(gctx, normalized)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	g.Go(func() error {
		h, err := s.backend.History(gctx, normalized)
		if err != nil {
			return err
		}
		history = h
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Info().Str("vrn", normalized).Msg("vehicle not found in registry")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, normalized)
		}
		s.log.Warn().Err(err).Str("vrn", normalized).Msg("registry lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}

	if history == nil {
		history = []patrol.ViolationHistoryEntry{}
	}

	s.log.Debug().
		Str("vrn", normalized).
		Int("history_count", len(history)).
		Msg("vehicle lookup completed")

	return &Result{Vehicle: *record, History: history}, nil
}
