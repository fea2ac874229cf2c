package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/render"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
	"github.com/StarAlexander/inventory-storage-diploma/internal/zones"
)

// documentRenderer is the subset of render.Renderer that TransactionService requires.
type documentRenderer interface {
	Render(s render.Subject) (string, error)
}

type TransactionRequest struct {
	EquipmentID int64            `json:"equipment_id"`
	FromZoneID  *int64           `json:"from_zone_id,omitempty"`
	ToZoneID    *int64           `json:"to_zone_id,omitempty"`
	Operation   domain.Operation `json:"operation"`
	UserID      int64            `json:"user_id"`
	RepairerID  *int64           `json:"repairer_id,omitempty"`
	Note        string           `json:"note"`
}

// TransactionResult is a committed ledger entry and the document drafted for
// it. Document is nil when no template is registered for the operation.
type TransactionResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Document    *domain.Document    `json:"document,omitempty"`
}

type TransactionService struct {
	uow      unitOfWork
	renderer documentRenderer
	logger   *slog.Logger
	now      Clock
}

func NewTransactionService(uow unitOfWork, renderer documentRenderer, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		uow:      uow,
		renderer: renderer,
		logger:   componentLogger(logger, "transaction_service"),
		now:      systemClock,
	}
}

// Process validates req, moves the equipment, appends the ledger entry and
// drafts its document. Either all of it is committed or none of it is.
func (s *TransactionService) Process(ctx context.Context, req TransactionRequest) (*TransactionResult, error) {
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, req.Operation)
	}

	var result *TransactionResult
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		res, err := s.process(ctx, r, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		s.logger.Warn("transaction rejected",
			"equipment_id", req.EquipmentID,
			"operation", req.Operation,
			"kind", domain.KindOf(err).String(),
			"error", err)
		return nil, err
	}

	attrs := []any{
		"transaction_id", result.Transaction.ID,
		"equipment_id", result.Transaction.EquipmentID,
		"operation", result.Transaction.Operation,
	}
	if result.Document != nil {
		attrs = append(attrs, "document_id", result.Document.ID)
	}
	s.logger.Info("transaction recorded", attrs...)
	return result, nil
}

func (s *TransactionService) process(ctx context.Context, r *store.Repos, req TransactionRequest) (*TransactionResult, error) {
	equipment, err := r.Equipment.GetByID(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if equipment == nil {
		return nil, fmt.Errorf("equipment %d: %w", req.EquipmentID, domain.ErrEquipmentNotFound)
	}
	if equipment.Status == domain.StatusDecommissioned {
		return nil, fmt.Errorf("equipment %d: %w", equipment.ID, domain.ErrEquipmentDecommissioned)
	}

	graph := zones.NewGraph(r.Warehouses)
	from, to, err := graph.ResolvePair(ctx, req.FromZoneID, req.ToZoneID)
	if err != nil {
		return nil, err
	}

	user, err := lookupUser(ctx, r, req.UserID)
	if err != nil {
		return nil, err
	}
	var repairer *domain.User
	if req.RepairerID != nil {
		if repairer, err = lookupUser(ctx, r, *req.RepairerID); err != nil {
			return nil, err
		}
	}

	previous := equipment.LocationID
	location := equipment.LocationID
	status := equipment.Status

	switch req.Operation {
	case domain.OpReceipt:
		if to == nil {
			return nil, fmt.Errorf("%s: %w", req.Operation, domain.ErrDestinationRequired)
		}
	case domain.OpIssue:
		// The caller's source is ignored; equipment leaves from where it is.
		from = nil
		if equipment.LocationID != nil {
			if from, err = graph.Resolve(ctx, *equipment.LocationID); err != nil {
				return nil, err
			}
		}
		if from != nil && to != nil && !graph.SameWarehouse(from, to) {
			return nil, fmt.Errorf("zone %d (warehouse %d) to zone %d (warehouse %d): %w",
				from.ID, from.WarehouseID, to.ID, to.WarehouseID, domain.ErrCrossWarehouseTransfer)
		}
		status = domain.StatusInRepair
	case domain.OpReturn:
		status = domain.StatusActive
	case domain.OpWriteOff:
		status = domain.StatusDecommissioned
	}
	if to != nil {
		location = &to.ID
	}

	now := s.now()
	if err := r.Equipment.UpdatePosition(ctx, equipment.ID, location, status, equipment.Version, now); err != nil {
		return nil, err
	}
	equipment.LocationID = location
	equipment.Status = status
	equipment.Version++
	equipment.UpdatedAt = now

	entry, err := r.Ledger.Append(ctx, &domain.Transaction{
		EquipmentID: equipment.ID,
		FromZoneID:  zoneID(from),
		ToZoneID:    zoneID(to),
		Operation:   req.Operation,
		UserID:      user.ID,
		RepairerID:  req.RepairerID,
		Note:        req.Note,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.draft(ctx, r, graph, render.Subject{
		Transaction: entry,
		Equipment:   equipment,
		FromZone:    from,
		ToZone:      to,
		User:        user,
		Repairer:    repairer,
	}, previous)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: entry, Document: doc}, nil
}

// draft renders and stores the document for subj.Transaction. A missing
// template is not an error: the entry is kept without a document.
func (s *TransactionService) draft(ctx context.Context, r *store.Repos, graph *zones.Graph, subj render.Subject, previous *int64) (*domain.Document, error) {
	entry := subj.Transaction
	tmpl, err := r.Templates.FindByType(ctx, entry.Operation.DocumentType())
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		s.logger.Warn("template missing, no document drafted",
			"transaction_id", entry.ID,
			"operation", entry.Operation,
			"error", domain.ErrTemplateMissing)
		return nil, nil
	}
	subj.Template = tmpl

	warehouseID, err := documentWarehouse(ctx, graph, subj.FromZone, subj.ToZone, previous)
	if err != nil {
		return nil, err
	}
	warehouse, err := r.Warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, fmt.Errorf("warehouse %d: %w", warehouseID, domain.ErrTransactionIncomplete)
	}
	subj.Warehouse = warehouse

	content, err := s.renderer.Render(subj)
	if err != nil {
		return nil, err
	}
	return r.Documents.Create(ctx, tmpl.ID, entry.ID, warehouse.ID, content, entry.CreatedAt)
}

// documentWarehouse picks the warehouse a document belongs to: the
// destination's, else the source's, else that of the equipment's location
// before the transaction.
func documentWarehouse(ctx context.Context, graph *zones.Graph, from, to *domain.Zone, previous *int64) (int64, error) {
	switch {
	case to != nil:
		return to.WarehouseID, nil
	case from != nil:
		return from.WarehouseID, nil
	case previous != nil:
		z, err := graph.Resolve(ctx, *previous)
		if errors.Is(err, domain.ErrZoneNotFound) {
			return 0, fmt.Errorf("%w: %v", domain.ErrTransactionIncomplete, err)
		}
		if err != nil {
			return 0, err
		}
		return z.WarehouseID, nil
	}
	return 0, fmt.Errorf("no zone identifies the warehouse: %w", domain.ErrTransactionIncomplete)
}

// List returns ledger entries matching f, oldest first.
func (s *TransactionService) List(ctx context.Context, f store.LedgerFilter) ([]*domain.Transaction, error) {
	if f.Operation != "" && !f.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, f.Operation)
	}
	return s.uow.Read().Ledger.List(ctx, f)
}

func lookupUser(ctx context.Context, r *store.Repos, id int64) (*domain.User, error) {
	u, err := r.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	return u, nil
}

func zoneID(z *domain.Zone) *int64 {
	if z == nil {
		return nil
	}
	id := z.ID
	return &id
}
