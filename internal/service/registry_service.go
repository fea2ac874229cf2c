package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/zones"
)

// RegistryService maintains warehouses, zones, document templates and the
// equipment register.
type RegistryService struct {
	uow    unitOfWork
	logger *slog.Logger
}

func NewRegistryService(uow unitOfWork, logger *slog.Logger) *RegistryService {
	return &RegistryService{uow: uow, logger: componentLogger(logger, "registry_service")}
}

func (s *RegistryService) CreateWarehouse(ctx context.Context, name, address string) (*domain.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: warehouse name is required", domain.ErrInvalidInput)
	}
	w, err := s.uow.Read().Warehouses.Create(ctx, name, strings.TrimSpace(address))
	if err != nil {
		return nil, err
	}
	s.logger.Info("warehouse created", "warehouse_id", w.ID, "name", w.Name)
	return w, nil
}

func (s *RegistryService) ListWarehouses(ctx context.Context) ([]*domain.Warehouse, error) {
	return s.uow.Read().Warehouses.List(ctx)
}

func (s *RegistryService) GetWarehouse(ctx context.Context, id int64) (*domain.Warehouse, error) {
	w, err := s.uow.Read().Warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("warehouse %d: %w", id, domain.ErrWarehouseNotFound)
	}
	return w, nil
}

func (s *RegistryService) CreateZone(ctx context.Context, warehouseID int64, name string, zoneType domain.ZoneType) (*domain.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: zone name is required", domain.ErrInvalidInput)
	}
	if !zoneType.Valid() {
		return nil, fmt.Errorf("%w: unknown zone type %q", domain.ErrInvalidInput, zoneType)
	}
	if err := s.requireWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}

	z, err := s.uow.Read().Warehouses.CreateZone(ctx, warehouseID, name, zoneType)
	if err != nil {
		return nil, err
	}
	s.logger.Info("zone created", "zone_id", z.ID, "warehouse_id", warehouseID, "type", zoneType)
	return z, nil
}

func (s *RegistryService) ListZones(ctx context.Context, warehouseID int64) ([]*domain.Zone, error) {
	if err := s.requireWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	return s.uow.Read().Warehouses.ListZones(ctx, warehouseID)
}

// CreateTemplate registers the template for an operation family. Each family
// has at most one template.
func (s *RegistryService) CreateTemplate(ctx context.Context, name string, docType domain.DocumentType) (*domain.DocumentTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", domain.ErrInvalidInput)
	}
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidInput, docType)
	}

	existing, err := s.uow.Read().Templates.FindByType(ctx, docType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a %s template already exists", domain.ErrInvalidInput, docType)
	}

	t, err := s.uow.Read().Templates.Create(ctx, name, docType)
	if err != nil {
		return nil, err
	}
	s.logger.Info("template created", "template_id", t.ID, "type", docType)
	return t, nil
}

func (s *RegistryService) ListTemplates(ctx context.Context) ([]*domain.DocumentTemplate, error) {
	return s.uow.Read().Templates.List(ctx)
}

// RegisterEquipment adds equipment in ACTIVE status, optionally placed in a
// zone. Inventory and serial numbers are unique; a clash is ErrConflict.
func (s *RegistryService) RegisterEquipment(ctx context.Context, name, inventoryNumber, serialNumber string, locationID *int64) (*domain.Equipment, error) {
	name = strings.TrimSpace(name)
	inventoryNumber = strings.TrimSpace(inventoryNumber)
	serialNumber = strings.TrimSpace(serialNumber)
	if name == "" || inventoryNumber == "" || serialNumber == "" {
		return nil, fmt.Errorf("%w: equipment name, inventory number and serial number are required", domain.ErrInvalidInput)
	}
	if locationID != nil {
		if _, err := zones.NewGraph(s.uow.Read().Warehouses).Resolve(ctx, *locationID); err != nil {
			return nil, err
		}
	}

	e, err := s.uow.Read().Equipment.Create(ctx, name, inventoryNumber, serialNumber, locationID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("equipment registered", "equipment_id", e.ID, "inventory_number", e.InventoryNumber)
	return e, nil
}

func (s *RegistryService) GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error) {
	e, err := s.uow.Read().Equipment.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("equipment %d: %w", id, domain.ErrEquipmentNotFound)
	}
	return e, nil
}

func (s *RegistryService) requireWarehouse(ctx context.Context, id int64) error {
	_, err := s.GetWarehouse(ctx, id)
	return err
}
