package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
)

func TestProcessPutaway(t *testing.T) {
	h := newHarness(t)

	res := h.process(t, TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.receiving.ID,
		ToZoneID:    &h.storageA.ID,
		Operation:   domain.OpPutaway,
		Note:        "shelf 3",
	})

	entry := res.Transaction
	require.NotNil(t, entry)
	assert.Equal(t, domain.OpPutaway, entry.Operation)
	require.NotNil(t, entry.FromZoneID)
	require.NotNil(t, entry.ToZoneID)
	assert.Equal(t, h.receiving.ID, *entry.FromZoneID)
	assert.Equal(t, h.storageA.ID, *entry.ToZoneID)
	assert.Equal(t, h.operator.ID, entry.UserID)

	e := h.equipment(t, h.e101.ID)
	require.NotNil(t, e.LocationID)
	assert.Equal(t, h.storageA.ID, *e.LocationID)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.Equal(t, int64(2), e.Version)

	doc := res.Document
	require.NotNil(t, doc)
	assert.Equal(t, domain.StateDrafted, doc.State())
	assert.Equal(t, h.templates[domain.DocMove].ID, doc.TemplateID)
	assert.Equal(t, entry.ID, doc.TransactionID)
	assert.Equal(t, h.w1.ID, doc.WarehouseID)
	assert.Contains(t, doc.Content, "E101")
	assert.Contains(t, doc.Content, "Storage-A")
	assert.Contains(t, doc.Content, "shelf 3")
	assert.Nil(t, doc.GeneratedAt)

	assert.Len(t, h.ledger(t), 1)
}

func TestProcessRejectsCrossWarehouseMove(t *testing.T) {
	h := newHarness(t)
	h.putaway(t)

	_, err := h.tx.Process(context.Background(), TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.storageA.ID,
		ToZoneID:    &h.dock1.ID,
		Operation:   domain.OpMove,
		UserID:      h.operator.ID,
	})
	require.ErrorIs(t, err, domain.ErrCrossWarehouseTransfer)
	assert.Equal(t, domain.KindInvariant, domain.KindOf(err))

	// Nothing from the rejected move is visible.
	assert.Len(t, h.ledger(t), 1)
	e := h.equipment(t, h.e101.ID)
	assert.Equal(t, h.storageA.ID, *e.LocationID)
	assert.Equal(t, int64(2), e.Version)
	docs, err := h.docs.ListByWarehouse(context.Background(), h.w2.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProcessReceiptRequiresDestination(t *testing.T) {
	h := newHarness(t)

	_, err := h.tx.Process(context.Background(), TransactionRequest{
		EquipmentID: h.e101.ID,
		Operation:   domain.OpReceipt,
		UserID:      h.operator.ID,
	})
	assert.ErrorIs(t, err, domain.ErrDestinationRequired)
	assert.Empty(t, h.ledger(t))
}

func TestProcessReceipt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	laptop, err := h.registry.RegisterEquipment(ctx, "Latitude 5440", "E202", "SN-0202", nil)
	require.NoError(t, err)

	res := h.process(t, TransactionRequest{
		EquipmentID: laptop.ID,
		ToZoneID:    &h.receiving.ID,
		Operation:   domain.OpReceipt,
	})
	assert.Nil(t, res.Transaction.FromZoneID)
	require.NotNil(t, res.Document)
	assert.Equal(t, h.templates[domain.DocReceipt].ID, res.Document.TemplateID)
	assert.Equal(t, h.w1.ID, res.Document.WarehouseID)

	e := h.equipment(t, laptop.ID)
	assert.Equal(t, h.receiving.ID, *e.LocationID)
}

func TestProcessIssueDerivesSourceFromLocation(t *testing.T) {
	h := newHarness(t)

	// The caller claims Storage-A but E101 is still in Receiving.
	res := h.process(t, TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.storageA.ID,
		ToZoneID:    &h.repair.ID,
		Operation:   domain.OpIssue,
		RepairerID:  &h.signer.ID,
	})

	entry := res.Transaction
	require.NotNil(t, entry.FromZoneID)
	assert.Equal(t, h.receiving.ID, *entry.FromZoneID)
	assert.Equal(t, h.repair.ID, *entry.ToZoneID)
	require.NotNil(t, entry.RepairerID)
	assert.Equal(t, h.signer.ID, *entry.RepairerID)

	e := h.equipment(t, h.e101.ID)
	assert.Equal(t, domain.StatusInRepair, e.Status)
	assert.Equal(t, h.repair.ID, *e.LocationID)

	require.NotNil(t, res.Document)
	assert.Equal(t, h.templates[domain.DocIssue].ID, res.Document.TemplateID)
	assert.Contains(t, res.Document.Content, "signer")
}

func TestProcessIssueChecksDerivedSourceWarehouse(t *testing.T) {
	h := newHarness(t)

	// The claimed source is in W2 like the destination, but E101 is in W1.
	_, err := h.tx.Process(context.Background(), TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.dock1.ID,
		ToZoneID:    &h.dock1.ID,
		Operation:   domain.OpIssue,
		UserID:      h.operator.ID,
	})
	assert.ErrorIs(t, err, domain.ErrCrossWarehouseTransfer)
	assert.Equal(t, domain.StatusActive, h.equipment(t, h.e101.ID).Status)
}

func TestProcessReturnRestoresActive(t *testing.T) {
	h := newHarness(t)

	h.process(t, TransactionRequest{EquipmentID: h.e101.ID, ToZoneID: &h.repair.ID, Operation: domain.OpIssue})
	require.Equal(t, domain.StatusInRepair, h.equipment(t, h.e101.ID).Status)

	res := h.process(t, TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.repair.ID,
		ToZoneID:    &h.storageA.ID,
		Operation:   domain.OpReturn,
	})
	require.NotNil(t, res.Document)
	assert.Equal(t, h.templates[domain.DocMove].ID, res.Document.TemplateID)

	e := h.equipment(t, h.e101.ID)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.Equal(t, h.storageA.ID, *e.LocationID)
}

func TestProcessWriteOffIsTerminal(t *testing.T) {
	h := newHarness(t)

	res := h.process(t, TransactionRequest{EquipmentID: h.e101.ID, Operation: domain.OpWriteOff, Note: "water damage"})
	require.NotNil(t, res.Document)
	// No zones on the entry: the warehouse comes from the previous location.
	assert.Equal(t, h.w1.ID, res.Document.WarehouseID)
	assert.Equal(t, h.templates[domain.DocWriteOff].ID, res.Document.TemplateID)

	e := h.equipment(t, h.e101.ID)
	assert.Equal(t, domain.StatusDecommissioned, e.Status)
	assert.Equal(t, h.receiving.ID, *e.LocationID)

	for _, op := range []domain.Operation{domain.OpMove, domain.OpReturn, domain.OpWriteOff} {
		_, err := h.tx.Process(context.Background(), TransactionRequest{
			EquipmentID: h.e101.ID,
			ToZoneID:    &h.storageA.ID,
			Operation:   op,
			UserID:      h.operator.ID,
		})
		assert.ErrorIs(t, err, domain.ErrEquipmentDecommissioned, "operation %s", op)
	}
	assert.Len(t, h.ledger(t), 1)
}

func TestProcessWithoutTemplateKeepsEntry(t *testing.T) {
	h := newHarnessWithTemplates(t, domain.DocReceipt)

	res := h.process(t, TransactionRequest{
		EquipmentID: h.e101.ID,
		FromZoneID:  &h.receiving.ID,
		ToZoneID:    &h.storageA.ID,
		Operation:   domain.OpPutaway,
	})
	assert.NotNil(t, res.Transaction)
	assert.Nil(t, res.Document)
	assert.Len(t, h.ledger(t), 1)
	assert.Equal(t, h.storageA.ID, *h.equipment(t, h.e101.ID).LocationID)
}

func TestProcessWithoutWarehouseRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	loose, err := h.registry.RegisterEquipment(ctx, "Spare dock", "E303", "SN-0303", nil)
	require.NoError(t, err)

	_, err = h.tx.Process(ctx, TransactionRequest{
		EquipmentID: loose.ID,
		Operation:   domain.OpWriteOff,
		UserID:      h.operator.ID,
	})
	require.ErrorIs(t, err, domain.ErrTransactionIncomplete)

	assert.Empty(t, h.ledger(t))
	e := h.equipment(t, loose.ID)
	assert.Equal(t, domain.StatusActive, e.Status)
	assert.Equal(t, int64(1), e.Version)
}

func TestProcessValidationErrors(t *testing.T) {
	h := newHarness(t)
	missing := int64(9999)

	tests := []struct {
		name string
		req  TransactionRequest
		want error
	}{
		{"unknown operation", TransactionRequest{EquipmentID: h.e101.ID, Operation: "TELEPORT", UserID: h.operator.ID}, domain.ErrInvalidOperation},
		{"unknown equipment", TransactionRequest{EquipmentID: missing, Operation: domain.OpMove, UserID: h.operator.ID}, domain.ErrEquipmentNotFound},
		{"unknown source", TransactionRequest{EquipmentID: h.e101.ID, FromZoneID: &missing, ToZoneID: &h.storageA.ID, Operation: domain.OpMove, UserID: h.operator.ID}, domain.ErrZoneNotFound},
		{"unknown destination", TransactionRequest{EquipmentID: h.e101.ID, ToZoneID: &missing, Operation: domain.OpMove, UserID: h.operator.ID}, domain.ErrZoneNotFound},
		{"unknown user", TransactionRequest{EquipmentID: h.e101.ID, ToZoneID: &h.storageA.ID, Operation: domain.OpMove, UserID: missing}, domain.ErrUserNotFound},
		{"unknown repairer", TransactionRequest{EquipmentID: h.e101.ID, ToZoneID: &h.repair.ID, Operation: domain.OpIssue, UserID: h.operator.ID, RepairerID: &missing}, domain.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.tx.Process(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, h.ledger(t))
	assert.Equal(t, int64(1), h.equipment(t, h.e101.ID).Version)
}

func TestProcessConcurrentMovesAreSerialized(t *testing.T) {
	h := newHarness(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		to := h.storageA.ID
		if i%2 == 1 {
			to = h.repair.ID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.tx.Process(context.Background(), TransactionRequest{
				EquipmentID: h.e101.ID,
				ToZoneID:    &to,
				Operation:   domain.OpMove,
				UserID:      h.operator.ID,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, h.ledger(t), n)
	assert.Equal(t, int64(n+1), h.equipment(t, h.e101.ID).Version)
}

func TestListTransactionsFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.putaway(t)
	other, err := h.registry.RegisterEquipment(ctx, "Pallet scanner", "E404", "SN-0404", nil)
	require.NoError(t, err)
	h.process(t, TransactionRequest{EquipmentID: other.ID, ToZoneID: &h.dock1.ID, Operation: domain.OpReceipt})

	entries, err := h.tx.List(ctx, store.LedgerFilter{WarehouseID: &h.w2.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, other.ID, entries[0].EquipmentID)

	entries, err = h.tx.List(ctx, store.LedgerFilter{Operation: domain.OpPutaway})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, h.e101.ID, entries[0].EquipmentID)

	entries, err = h.tx.List(ctx, store.LedgerFilter{EquipmentID: ptr(h.e101.ID)})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = h.tx.List(ctx, store.LedgerFilter{Operation: "TELEPORT"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}
