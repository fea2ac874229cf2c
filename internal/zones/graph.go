// Package zones resolves warehouse zones and checks warehouse membership.
package zones

import (
	"context"
	"fmt"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// zoneLookup is the subset of store.WarehouseStore that Graph requires.
type zoneLookup interface {
	GetZone(ctx context.Context, id int64) (*domain.Zone, error)
}

// Graph is a read-only view of zones. Bind it to the same handle as the
// surrounding transaction so reads are consistent with the writes.
type Graph struct {
	zones zoneLookup
}

func NewGraph(zones zoneLookup) *Graph {
	return &Graph{zones: zones}
}

func (g *Graph) Resolve(ctx context.Context, id int64) (*domain.Zone, error) {
	z, err := g.zones.GetZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return nil, fmt.Errorf("zone %d: %w", id, domain.ErrZoneNotFound)
	}
	return z, nil
}

func (g *Graph) SameWarehouse(a, b *domain.Zone) bool {
	return a != nil && b != nil && a.WarehouseID == b.WarehouseID
}

// ResolvePair resolves the optional source and destination zones. When both
// are given they must belong to the same warehouse.
func (g *Graph) ResolvePair(ctx context.Context, fromID, toID *int64) (from, to *domain.Zone, err error) {
	if fromID != nil {
		if from, err = g.Resolve(ctx, *fromID); err != nil {
			return nil, nil, err
		}
	}
	if toID != nil {
		if to, err = g.Resolve(ctx, *toID); err != nil {
			return nil, nil, err
		}
	}
	if from != nil && to != nil && !g.SameWarehouse(from, to) {
		return nil, nil, fmt.Errorf("zone %d (warehouse %d) to zone %d (warehouse %d): %w",
			from.ID, from.WarehouseID, to.ID, to.WarehouseID, domain.ErrCrossWarehouseTransfer)
	}
	return from, to, nil
}
