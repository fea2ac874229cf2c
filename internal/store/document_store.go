package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

type DocumentStore struct {
	db db.DBTX
}

func NewDocumentStore(q db.DBTX) *DocumentStore {
	return &DocumentStore{db: q}
}

const documentColumns = `id, template_id, transaction_id, warehouse_id, content, artifact_path, generated_at,
	signed, signature, signer_public_key, signed_by, signed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*domain.Document, error) {
	d := &domain.Document{}
	err := r.Scan(&d.ID, &d.TemplateID, &d.TransactionID, &d.WarehouseID, &d.Content, &d.ArtifactPath, &d.GeneratedAt,
		&d.Signed, &d.Signature, &d.SignerPublicKey, &d.SignedBy, &d.SignedAt, &d.CreatedAt)
	return d, err
}

// Create drafts a document for a ledger entry.
func (s *DocumentStore) Create(ctx context.Context, templateID, transactionID, warehouseID int64, content string, at time.Time) (*domain.Document, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouse_documents (template_id, transaction_id, warehouse_id, content, signed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, templateID, transactionID, warehouseID, content, false, at)
	if err != nil {
		return nil, insertFailure("create document", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *DocumentStore) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM warehouse_documents WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get document", err)
	}

	return d, nil
}

// SetArtifact records where the materialized artifact lives. The first
// materialization time is kept on re-runs.
func (s *DocumentStore) SetArtifact(ctx context.Context, id int64, path string, generatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE warehouse_documents SET artifact_path = ?, generated_at = COALESCE(generated_at, ?)
		WHERE id = ?
	`, path, generatedAt, id)
	if err != nil {
		return domain.Persistence("record document artifact", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Persistence("get rows affected", err)
	}

	if rowsAffected == 0 {
		return domain.ErrDocumentNotFound
	}

	return nil
}

// Signature is what MarkSigned stores on a document.
type Signature struct {
	Value     string
	PublicKey string
	SignerID  int64
	SignedAt  time.Time
}

// MarkSigned stores sig on an unsigned document. A document that is already
// signed is left untouched and ErrAlreadySigned is returned.
func (s *DocumentStore) MarkSigned(ctx context.Context, id int64, sig Signature) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE warehouse_documents
		SET signed = ?, signature = ?, signer_public_key = ?, signed_by = ?, signed_at = ?
		WHERE id = ? AND signed = ?
	`, true, sig.Value, sig.PublicKey, sig.SignerID, sig.SignedAt, id, false)
	if err != nil {
		return domain.Persistence("sign document", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Persistence("get rows affected", err)
	}

	if rowsAffected == 0 {
		return domain.ErrAlreadySigned
	}

	return nil
}

// ListPending returns up to limit unsigned documents with id greater than
// afterID, ordered by id.
func (s *DocumentStore) ListPending(ctx context.Context, afterID int64, limit int) ([]*domain.Document, error) {
	return s.list(ctx, "list pending documents", `
		SELECT `+documentColumns+` FROM warehouse_documents
		WHERE signed = ? AND id > ? ORDER BY id ASC LIMIT ?
	`, false, afterID, limit)
}

func (s *DocumentStore) ListByWarehouse(ctx context.Context, warehouseID int64) ([]*domain.Document, error) {
	return s.list(ctx, "list documents", `
		SELECT `+documentColumns+` FROM warehouse_documents
		WHERE warehouse_id = ? ORDER BY id ASC
	`, warehouseID)
}

func (s *DocumentStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Persistence(op, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, domain.Persistence("scan document", err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate documents", err)
	}

	return docs, nil
}
