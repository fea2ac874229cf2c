package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/StarAlexander/inventory-storage-diploma/internal/artifactstore/local"
	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/inflight"
	"github.com/StarAlexander/inventory-storage-diploma/internal/pdf"
	"github.com/StarAlexander/inventory-storage-diploma/internal/render"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
	"github.com/StarAlexander/inventory-storage-diploma/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock hands out strictly increasing times one second apart.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// harness wires every service over one in-memory database:
// warehouse W1 with Receiving, Storage-A and Repair-Bench; warehouse W2 with
// Dock-1; users operator and signer; equipment E101 sitting in Receiving.
type harness struct {
	db       *sql.DB
	uow      *store.UnitOfWork
	guard    *inflight.Memory
	clock    *testClock
	tx       *TransactionService
	docs     *DocumentService
	accounts *AccountService
	registry *RegistryService

	w1, w2                      *domain.Warehouse
	receiving, storageA, repair *domain.Zone
	dock1                       *domain.Zone
	operator, signer            *domain.User
	e101                        *domain.Equipment
	templates                   map[domain.DocumentType]*domain.DocumentTemplate
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithTemplates(t,
		domain.DocReceipt, domain.DocMove, domain.DocIssue, domain.DocWriteOff)
}

func newHarnessWithTemplates(t *testing.T, families ...domain.DocumentType) *harness {
	t.Helper()
	ctx := context.Background()

	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	renderer, err := render.New()
	require.NoError(t, err)
	artifacts, err := local.NewLocalArtifactStore(t.TempDir())
	require.NoError(t, err)

	pool := worker.NewPool(worker.Config{Workers: 1, QueueSize: 8, MaxAttempts: 1}, discardLogger())
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	h := &harness{
		db:        d,
		uow:       store.NewUnitOfWork(d),
		guard:     inflight.NewMemory(),
		clock:     newTestClock(),
		templates: make(map[domain.DocumentType]*domain.DocumentTemplate),
	}
	h.tx = NewTransactionService(h.uow, renderer, discardLogger())
	h.tx.now = h.clock.Now
	h.docs = NewDocumentService(h.uow, artifacts, pdf.New(), pool, h.guard, discardLogger())
	h.docs.now = h.clock.Now
	h.accounts = NewAccountService(h.uow, discardLogger())
	h.registry = NewRegistryService(h.uow, discardLogger())

	h.w1, err = h.registry.CreateWarehouse(ctx, "W1", "1 Dock Road")
	require.NoError(t, err)
	h.w2, err = h.registry.CreateWarehouse(ctx, "W2", "2 Harbour Lane")
	require.NoError(t, err)
	h.receiving, err = h.registry.CreateZone(ctx, h.w1.ID, "Receiving", domain.ZoneReceipt)
	require.NoError(t, err)
	h.storageA, err = h.registry.CreateZone(ctx, h.w1.ID, "Storage-A", domain.ZoneStorage)
	require.NoError(t, err)
	h.repair, err = h.registry.CreateZone(ctx, h.w1.ID, "Repair-Bench", domain.ZoneRepair)
	require.NoError(t, err)
	h.dock1, err = h.registry.CreateZone(ctx, h.w2.ID, "Dock-1", domain.ZoneShipping)
	require.NoError(t, err)

	h.operator, err = h.accounts.CreateUser(ctx, "operator", "operator@example.com")
	require.NoError(t, err)
	h.signer, err = h.accounts.CreateUser(ctx, "signer", "signer@example.com")
	require.NoError(t, err)

	for _, family := range families {
		tmpl, err := h.registry.CreateTemplate(ctx, string(family)+" act", family)
		require.NoError(t, err)
		h.templates[family] = tmpl
	}

	h.e101, err = h.registry.RegisterEquipment(ctx, "ThinkPad T14", "E101", "SN-0001", &h.receiving.ID)
	require.NoError(t, err)

	return h
}

// process records a transaction that is expected to succeed.
func (h *harness) process(t *testing.T, req TransactionRequest) *TransactionResult {
	t.Helper()
	if req.UserID == 0 {
		req.UserID = h.operator.ID
	}
	res, err := h.tx.Process(context.Background(), req)
	require.NoError(t, err)
	return res
}

// putaway moves E101 from Receiving to Storage-A and returns its document.
func (h *harness) putaway(t *testing.T) *domain.Document {
	t.Helper()
	res := h.process(t, TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.receiving.ID,
		ToZoneID:    &h.storageA.ID,
		Operation:   domain.OpPutaway,
	})
	require.NotNil(t, res.Document)
	return res.Document
}

func (h *harness) ledger(t *testing.T) []*domain.Transaction {
	t.Helper()
	entries, err := h.tx.List(context.Background(), store.LedgerFilter{})
	require.NoError(t, err)
	return entries
}

func (h *harness) equipment(t *testing.T, id int64) *domain.Equipment {
	t.Helper()
	e, err := h.registry.GetEquipment(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (h *harness) document(t *testing.T, id int64) *domain.Document {
	t.Helper()
	d, err := h.docs.Get(context.Background(), id)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T {
	return &v
}
