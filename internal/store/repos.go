package store

import (
	"context"
	"database/sql"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
)

// Repos bundles every store over one query handle.
type Repos struct {
	Equipment  *EquipmentStore
	Warehouses *WarehouseStore
	Ledger     *LedgerStore
	Templates  *TemplateStore
	Documents  *DocumentStore
	Users      *UserStore
}

func NewRepos(q db.DBTX) *Repos {
	return &Repos{
		Equipment:  NewEquipmentStore(q),
		Warehouses: NewWarehouseStore(q),
		Ledger:     NewLedgerStore(q),
		Templates:  NewTemplateStore(q),
		Documents:  NewDocumentStore(q),
		Users:      NewUserStore(q),
	}
}

// UnitOfWork runs groups of store calls atomically.
type UnitOfWork struct {
	db    *sql.DB
	repos *Repos
}

func NewUnitOfWork(d *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: d, repos: NewRepos(d)}
}

// Do runs fn against stores bound to a single transaction. fn must not use
// any other handle while it runs.
func (u *UnitOfWork) Do(ctx context.Context, fn func(r *Repos) error) error {
	return db.InTx(ctx, u.db, func(tx *sql.Tx) error {
		return fn(NewRepos(tx))
	})
}

// Read returns stores bound to the connection pool for single-statement reads.
func (u *UnitOfWork) Read() *Repos {
	return u.repos
}
