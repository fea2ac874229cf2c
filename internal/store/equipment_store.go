package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

type EquipmentStore struct {
	db db.DBTX
}

func NewEquipmentStore(q db.DBTX) *EquipmentStore {
	return &EquipmentStore{db: q}
}

const equipmentColumns = `id, name, inventory_number, serial_number, location_id, status, version, created_at, updated_at`

func (s *EquipmentStore) Create(ctx context.Context, name, inventoryNumber, serialNumber string, locationID *int64) (*domain.Equipment, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO equipment (name, inventory_number, serial_number, location_id, status) VALUES (?, ?, ?, ?, ?)
	`, name, inventoryNumber, serialNumber, locationID, domain.StatusActive)
	if err != nil {
		return nil, insertFailure("create equipment", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *EquipmentStore) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	e := &domain.Equipment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+equipmentColumns+` FROM equipment WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.InventoryNumber, &e.SerialNumber, &e.LocationID, &e.Status, &e.Version, &e.CreatedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get equipment", err)
	}

	return e, nil
}

// UpdatePosition writes the equipment's location and status if its version
// still equals expectedVersion, and bumps the version.
func (s *EquipmentStore) UpdatePosition(ctx context.Context, id int64, locationID *int64, status domain.EquipmentStatus, expectedVersion int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE equipment SET location_id = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, locationID, status, at, id, expectedVersion)
	if err != nil {
		return domain.Persistence("update equipment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Persistence("get rows affected", err)
	}

	if rowsAffected == 0 {
		return domain.ErrConcurrentModification
	}

	return nil
}
