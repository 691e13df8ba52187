package correlation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/internal/units"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

type unitReleaser interface {
	ReleaseHeldBy(ctx context.Context, correlationID string, unitIDs []int64, actor, reason string) (int, error)
}

type reservedFinder interface {
	FindReserved(ctx context.Context, filter units.ReservedFilter) ([]models.Unit, error)
	CountReservedByCorrelationPrefix(ctx context.Context, prefix string, variantID *uuid.UUID) (int64, error)
}

// Service resolves the units held under an order or cart correlation id.
// Releases are delegated to the allocation engine, which skips units that
// changed since they were looked up.
type Service interface {
	FindByCorrelationID(ctx context.Context, correlationID string) ([]models.Unit, error)
	ReleaseByCorrelationID(ctx context.Context, correlationID, actor, reason string) (int, error)
	ReleaseByCorrelationIDAndVariant(ctx context.Context, correlationID string, variantID uuid.UUID, limit int, actor string) (int, error)
	CountByCorrelationPrefix(ctx context.Context, prefix string, variantID *uuid.UUID) (int64, error)
}

type service struct {
	repo     reservedFinder
	releaser unitReleaser
	logg     *logger.Logger
}

// NewService wires the correlation index.
func NewService(repo reservedFinder, releaser unitReleaser, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("unit repository required")
	}
	if releaser == nil {
		return nil, fmt.Errorf("unit releaser required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, releaser: releaser, logg: logg}, nil
}

func (s *service) FindByCorrelationID(ctx context.Context, correlationID string) ([]models.Unit, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}
	rows, err := s.repo.FindReserved(ctx, units.ReservedFilter{CorrelationID: correlationID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load correlated units")
	}
	if rows == nil {
		rows = []models.Unit{}
	}
	return rows, nil
}

func (s *service) ReleaseByCorrelationID(ctx context.Context, correlationID, actor, reason string) (int, error) {
	held, err := s.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		return 0, err
	}
	return s.release(ctx, correlationID, held, actor, reason)
}

// ReleaseByCorrelationIDAndVariant releases up to limit units of one variant,
// oldest hold first.
func (s *service) ReleaseByCorrelationIDAndVariant(ctx context.Context, correlationID string, variantID uuid.UUID, limit int, actor string) (int, error) {
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}
	if variantID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if limit < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "count must be at least 1")
	}
	held, err := s.repo.FindReserved(ctx, units.ReservedFilter{
		CorrelationID: correlationID,
		VariantID:     &variantID,
		Limit:         limit,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load correlated units")
	}
	return s.release(ctx, correlationID, held, actor, "quantity reduced")
}

func (s *service) CountByCorrelationPrefix(ctx context.Context, prefix string, variantID *uuid.UUID) (int64, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "correlation prefix is required")
	}
	count, err := s.repo.CountReservedByCorrelationPrefix(ctx, prefix, variantID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count correlated units")
	}
	return count, nil
}

func (s *service) release(ctx context.Context, correlationID string, held []models.Unit, actor, reason string) (int, error) {
	if len(held) == 0 {
		return 0, nil
	}
	ids := make([]int64, len(held))
	for i, unit := range held {
		ids[i] = unit.ID
	}
	released, err := s.releaser.ReleaseHeldBy(ctx, correlationID, ids, actor, reason)
	if err != nil {
		return 0, err
	}
	logCtx := s.logg.WithCorrelationID(ctx, correlationID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{"released": released, "reason": reason})
	s.logg.Info(logCtx, "correlated units released")
	return released, nil
}
