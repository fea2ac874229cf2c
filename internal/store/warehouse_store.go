package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// WarehouseStore persists warehouses and the zones they own.
type WarehouseStore struct {
	db db.DBTX
}

func NewWarehouseStore(q db.DBTX) *WarehouseStore {
	return &WarehouseStore{db: q}
}

func (s *WarehouseStore) Create(ctx context.Context, name, address string) (*domain.Warehouse, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (name, address) VALUES (?, ?)
	`, name, address)
	if err != nil {
		return nil, insertFailure("create warehouse", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *WarehouseStore) GetByID(ctx context.Context, id int64) (*domain.Warehouse, error) {
	w := &domain.Warehouse{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at FROM warehouses WHERE id = ?
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get warehouse", err)
	}

	return w, nil
}

func (s *WarehouseStore) List(ctx context.Context) ([]*domain.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, created_at FROM warehouses ORDER BY name ASC
	`)
	if err != nil {
		return nil, domain.Persistence("list warehouses", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var warehouses []*domain.Warehouse
	for rows.Next() {
		w := &domain.Warehouse{}
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.CreatedAt); err != nil {
			return nil, domain.Persistence("scan warehouse", err)
		}
		warehouses = append(warehouses, w)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate warehouses", err)
	}

	return warehouses, nil
}

func (s *WarehouseStore) CreateZone(ctx context.Context, warehouseID int64, name string, zoneType domain.ZoneType) (*domain.Zone, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouse_zones (warehouse_id, name, type) VALUES (?, ?, ?)
	`, warehouseID, name, zoneType)
	if err != nil {
		return nil, insertFailure("create zone", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetZone(ctx, id)
}

func (s *WarehouseStore) GetZone(ctx context.Context, id int64) (*domain.Zone, error) {
	z := &domain.Zone{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, name, type FROM warehouse_zones WHERE id = ?
	`, id).Scan(&z.ID, &z.WarehouseID, &z.Name, &z.Type)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get zone", err)
	}

	return z, nil
}

func (s *WarehouseStore) ListZones(ctx context.Context, warehouseID int64) ([]*domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, warehouse_id, name, type FROM warehouse_zones
		WHERE warehouse_id = ? ORDER BY name ASC
	`, warehouseID)
	if err != nil {
		return nil, domain.Persistence("list zones", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var zones []*domain.Zone
	for rows.Next() {
		z := &domain.Zone{}
		if err := rows.Scan(&z.ID, &z.WarehouseID, &z.Name, &z.Type); err != nil {
			return nil, domain.Persistence("scan zone", err)
		}
		zones = append(zones, z)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate zones", err)
	}

	return zones, nil
}
