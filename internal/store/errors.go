package store

import (
	"fmt"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// insertFailure reports a rejected insert. Constraint violations are the
// caller's to fix and never succeed on retry, so they are not persistence
// failures.
func insertFailure(op string, err error) error {
	if db.IsConstraintViolation(err) {
		return fmt.Errorf("failed to %s: %w", op, domain.ErrConflict)
	}
	return domain.Persistence(op, err)
}
