package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
)

type statusCounter interface {
	CountByStatus(ctx context.Context, variantID uuid.UUID) (map[enums.UnitStatus]int64, error)
}

// Snapshot is a point-in-time count of a variant's units.
type Snapshot struct {
	VariantID   uuid.UUID `json:"variant_id"`
	Total       int64     `json:"total"`
	Available   int64     `json:"available"`
	Reserved    int64     `json:"reserved"`
	Sold        int64     `json:"sold"`
	Returned    int64     `json:"returned"`
	Damaged     int64     `json:"damaged"`
	Unavailable int64     `json:"unavailable"`
}

// Service answers stock-level questions. Counts are read straight from the
// ledger on every call.
type Service interface {
	Available(ctx context.Context, variantID uuid.UUID) (int64, error)
	Reserved(ctx context.Context, variantID uuid.UUID) (int64, error)
	Sold(ctx context.Context, variantID uuid.UUID) (int64, error)
	Total(ctx context.Context, variantID uuid.UUID) (int64, error)
	Snapshot(ctx context.Context, variantID uuid.UUID) (*Snapshot, error)
}

type service struct {
	repo statusCounter
}

func NewService(repo statusCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Available(ctx context.Context, variantID uuid.UUID) (int64, error) {
	snap, err := s.Snapshot(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return snap.Available, nil
}

func (s *service) Reserved(ctx context.Context, variantID uuid.UUID) (int64, error) {
	snap, err := s.Snapshot(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return snap.Reserved, nil
}

func (s *service) Sold(ctx context.Context, variantID uuid.UUID) (int64, error) {
	snap, err := s.Snapshot(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return snap.Sold, nil
}

func (s *service) Total(ctx context.Context, variantID uuid.UUID) (int64, error) {
	snap, err := s.Snapshot(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return snap.Total, nil
}

func (s *service) Snapshot(ctx context.Context, variantID uuid.UUID) (*Snapshot, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	counts, err := s.repo.CountByStatus(ctx, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count units")
	}
	snap := &Snapshot{
		VariantID:   variantID,
		Available:   counts[enums.UnitStatusAvailable],
		Reserved:    counts[enums.UnitStatusReserved],
		Sold:        counts[enums.UnitStatusSold],
		Returned:    counts[enums.UnitStatusReturned],
		Damaged:     counts[enums.UnitStatusDamaged],
		Unavailable: counts[enums.UnitStatusUnavailable],
	}
	for _, n := range counts {
		snap.Total += n
	}
	return snap, nil
}
