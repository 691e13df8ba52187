package units

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
)

// Repository is the durable Unit Ledger. Status changes go through
// CompareAndSwap so a unit is only ever moved from the status the caller saw.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, units []models.Unit) error
	FindByID(ctx context.Context, id int64) (*models.Unit, error)
	LockByIDs(ctx context.Context, ids []int64) ([]models.Unit, error)
	LockAvailable(ctx context.Context, variantID uuid.UUID, limit int) ([]models.Unit, error)
	CompareAndSwap(ctx context.Context, id int64, from enums.UnitStatus, changes Changes) (bool, error)
	FindReserved(ctx context.Context, filter ReservedFilter) ([]models.Unit, error)
	FindExpiredCandidates(ctx context.Context, channel *enums.ReservationChannel, cutoff time.Time, limit int) ([]int64, error)
	CountReservedByCorrelationPrefix(ctx context.Context, prefix string, variantID *uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, variantID uuid.UUID) (map[enums.UnitStatus]int64, error)
	LastSerialSequence(ctx context.Context, prefix string) (int64, error)
}

// ReservedFilter narrows a lookup of RESERVED units by correlation id.
type ReservedFilter struct {
	CorrelationID string
	VariantID     *uuid.UUID
	Limit         int
}

// Changes describes a status change persisted by CompareAndSwap.
type Changes struct {
	Status        enums.UnitStatus
	ReservedAt    *time.Time
	Channel       *enums.ReservationChannel
	CorrelationID *string
	UpdatedAt     time.Time
	UpdatedBy     string
	// ReservedBefore adds reserved_at < ReservedBefore to the swap guard.
	ReservedBefore *time.Time
	// HeldBy adds reservation_correlation_id = HeldBy to the swap guard.
	HeldBy *string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a unit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, units []models.Unit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &unit, nil
}

// LockByIDs loads the units ordered by id, taking row locks where the dialect supports it.
func (r *repository) LockByIDs(ctx context.Context, ids []int64) ([]models.Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Unit
	err := r.locking(r.db.WithContext(ctx), false).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// LockAvailable claims up to limit AVAILABLE units of the variant in ascending id order.
// On Postgres rows already locked by a concurrent claim are skipped.
func (r *repository) LockAvailable(ctx context.Context, variantID uuid.UUID, limit int) ([]models.Unit, error) {
	var rows []models.Unit
	err := r.locking(r.db.WithContext(ctx), true).
		Where("variant_id = ? AND status = ?", variantID, enums.UnitStatusAvailable).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CompareAndSwap(ctx context.Context, id int64, from enums.UnitStatus, changes Changes) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ? AND status = ?", id, from)
	if changes.ReservedBefore != nil {
		query = query.Where("reserved_at < ?", *changes.ReservedBefore)
	}
	if changes.HeldBy != nil {
		query = query.Where("reservation_correlation_id = ?", *changes.HeldBy)
	}
	res := query.Updates(map[string]any{
		"status":                     changes.Status,
		"reserved_at":                changes.ReservedAt,
		"reservation_channel":        changes.Channel,
		"reservation_correlation_id": changes.CorrelationID,
		"updated_at":                 changes.UpdatedAt,
		"updated_by":                 changes.UpdatedBy,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindReserved returns RESERVED units for a correlation id, oldest hold first.
func (r *repository) FindReserved(ctx context.Context, filter ReservedFilter) ([]models.Unit, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND reservation_correlation_id = ?", enums.UnitStatusReserved, filter.CorrelationID)
	if filter.VariantID != nil {
		query = query.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []models.Unit
	err := query.Order("reserved_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// FindExpiredCandidates lists RESERVED unit ids whose hold started before cutoff.
// A nil channel selects holds that carry no channel.
func (r *repository) FindExpiredCandidates(ctx context.Context, channel *enums.ReservationChannel, cutoff time.Time, limit int) ([]int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("status = ? AND reserved_at < ?", enums.UnitStatusReserved, cutoff)
	if channel != nil {
		query = query.Where("reservation_channel = ?", *channel)
	} else {
		query = query.Where("reservation_channel IS NULL")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []int64
	err := query.Order("reserved_at ASC").Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) CountReservedByCorrelationPrefix(ctx context.Context, prefix string, variantID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("status = ?", enums.UnitStatusReserved).
		Where(hasPrefix("reservation_correlation_id"), utf8.RuneCountInString(prefix), prefix)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

type statusCount struct {
	Status enums.UnitStatus
	Total  int64
}

// CountByStatus returns how many units of the variant are in each status.
func (r *repository) CountByStatus(ctx context.Context, variantID uuid.UUID) (map[enums.UnitStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Select("status, COUNT(*) AS total").
		Where("variant_id = ?", variantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.UnitStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// LastSerialSequence returns the highest all-digit suffix among serials that
// start with prefix, or zero when there are none.
func (r *repository) LastSerialSequence(ctx context.Context, prefix string) (int64, error) {
	var serials []string
	err := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where(hasPrefix("serial_value"), utf8.RuneCountInString(prefix), prefix).
		Pluck("serial_value", &serials).Error
	if err != nil {
		return 0, err
	}
	var last int64
	for _, serial := range serials {
		suffix, found := strings.CutPrefix(serial, prefix)
		if !found {
			continue
		}
		if seq, ok := sequenceSuffix(suffix); ok && seq > last {
			last = seq
		}
	}
	return last, nil
}

// hasPrefix compares the first n characters of column. substr counts
// characters on both postgres and sqlite, so n must be a rune count.
func hasPrefix(column string) string {
	return "substr(" + column + ", 1, ?) = ?"
}

func sequenceSuffix(suffix string) (int64, bool) {
	if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func (r *repository) locking(query *gorm.DB, skipLocked bool) *gorm.DB {
	if query.Dialector == nil || query.Dialector.Name() != "postgres" {
		return query
	}
	lock := clause.Locking{Strength: "UPDATE"}
	if skipLocked {
		lock.Options = "SKIP LOCKED"
	}
	return query.Clauses(lock)
}
