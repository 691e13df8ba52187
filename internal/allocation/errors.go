package allocation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	dbpkg "github.com/angelmondragon/serialstock/pkg/db"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
)

// errClaimLost means a compare-and-swap found the unit already moved by someone else.
var errClaimLost = errors.New("unit changed concurrently")

type shortfallError struct {
	variantID uuid.UUID
	requested int
	claimed   int
	available int64
}

func (e *shortfallError) Error() string {
	return fmt.Sprintf("variant %s: requested %d, claimed %d, available %d", e.variantID, e.requested, e.claimed, e.available)
}

// contended reports whether enough committed stock exists but some of it was
// locked by a concurrent claim when we looked.
func (e *shortfallError) contended() bool {
	return e.available >= int64(e.requested)
}

func insufficient(variantID uuid.UUID, requested int, available int64) error {
	return pkgerrors.New(pkgerrors.CodeInsufficient, "not enough units available").WithDetails(map[string]any{
		"variant_id": variantID,
		"requested":  requested,
		"available":  available,
	})
}

// normalize converts internal failures into typed errors for callers.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var short *shortfallError
	if errors.As(err, &short) {
		return insufficient(short.variantID, short.requested, short.available)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, errClaimLost) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "unit changed concurrently, retry the request")
	}
	if dbpkg.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "serial number already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "unit ledger unavailable")
}
