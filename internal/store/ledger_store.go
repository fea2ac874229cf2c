package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

// LedgerStore appends and reads warehouse transactions. It deliberately has
// no update or delete; the schema rejects both as well.
type LedgerStore struct {
	db db.DBTX
}

func NewLedgerStore(q db.DBTX) *LedgerStore {
	return &LedgerStore{db: q}
}

const ledgerColumns = `t.id, t.equipment_id, t.from_zone_id, t.to_zone_id, t.operation, t.user_id, t.repairer_id, t.note, t.created_at`

func (s *LedgerStore) Append(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouse_transactions (equipment_id, from_zone_id, to_zone_id, operation, user_id, repairer_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tx.EquipmentID, tx.FromZoneID, tx.ToZoneID, tx.Operation, tx.UserID, tx.RepairerID, tx.Note, createdAt)
	if err != nil {
		return nil, domain.Persistence("append ledger entry", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *LedgerStore) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+` FROM warehouse_transactions t WHERE t.id = ?
	`, id).Scan(&t.ID, &t.EquipmentID, &t.FromZoneID, &t.ToZoneID, &t.Operation, &t.UserID, &t.RepairerID, &t.Note, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get ledger entry", err)
	}

	return t, nil
}

// LedgerFilter narrows List. Zero values mean "any".
type LedgerFilter struct {
	WarehouseID *int64
	EquipmentID *int64
	Operation   domain.Operation
	Since       *time.Time
	Until       *time.Time
	Limit       int
}

// List returns ledger entries matching f, oldest first. A warehouse filter
// matches entries whose source or destination zone is in that warehouse.
func (s *LedgerStore) List(ctx context.Context, f LedgerFilter) ([]*domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	query := `SELECT ` + ledgerColumns + ` FROM warehouse_transactions t
		LEFT JOIN warehouse_zones fz ON fz.id = t.from_zone_id
		LEFT JOIN warehouse_zones tz ON tz.id = t.to_zone_id`

	if f.WarehouseID != nil {
		where = append(where, "(fz.warehouse_id = ? OR tz.warehouse_id = ?)")
		args = append(args, *f.WarehouseID, *f.WarehouseID)
	}
	if f.EquipmentID != nil {
		where = append(where, "t.equipment_id = ?")
		args = append(args, *f.EquipmentID)
	}
	if f.Operation != "" {
		where = append(where, "t.operation = ?")
		args = append(args, f.Operation)
	}
	if f.Since != nil {
		where = append(where, "t.created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		where = append(where, "t.created_at <= ?")
		args = append(args, f.Until.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Persistence("list ledger entries", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var entries []*domain.Transaction
	for rows.Next() {
		t := &domain.Transaction{}
		if err := rows.Scan(&t.ID, &t.EquipmentID, &t.FromZoneID, &t.ToZoneID, &t.Operation, &t.UserID, &t.RepairerID, &t.Note, &t.CreatedAt); err != nil {
			return nil, domain.Persistence("scan ledger entry", err)
		}
		entries = append(entries, t)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate ledger entries", err)
	}

	return entries, nil
}
