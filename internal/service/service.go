// Package service holds the inventory use cases: recording ledger entries,
// the document lifecycle, user accounts and the warehouse registry.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
)

// unitOfWork is the subset of store.UnitOfWork that the services require.
type unitOfWork interface {
	Do(ctx context.Context, fn func(r *store.Repos) error) error
	Read() *store.Repos
}

// Clock returns the current time. Services store it with microsecond
// precision so values survive a round trip through every supported driver.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func componentLogger(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
