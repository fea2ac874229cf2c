package service

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/StarAlexander/inventory-storage-diploma/internal/artifactstore"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/inflight"
	"github.com/StarAlexander/inventory-storage-diploma/internal/signing"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
	"github.com/StarAlexander/inventory-storage-diploma/internal/worker"
)

const (
	DefaultPendingLimit = 50
	MaxPendingLimit     = 500
)

// pdfRenderer is the subset of pdf.Renderer that DocumentService requires.
type pdfRenderer interface {
	Render(content string, created time.Time) ([]byte, error)
}

// taskQueue is the subset of worker.Pool that DocumentService requires.
type taskQueue interface {
	Submit(t worker.Task) error
}

type DocumentService struct {
	uow       unitOfWork
	artifacts artifactstore.ArtifactStore
	pdf       pdfRenderer
	queue     taskQueue
	guard     inflight.Guard
	logger    *slog.Logger
	now       Clock
}

func NewDocumentService(
	uow unitOfWork,
	artifacts artifactstore.ArtifactStore,
	pdf pdfRenderer,
	queue taskQueue,
	guard inflight.Guard,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		uow:       uow,
		artifacts: artifacts,
		pdf:       pdf,
		queue:     queue,
		guard:     guard,
		logger:    componentLogger(logger, "document_service"),
		now:       systemClock,
	}
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return getDocument(ctx, s.uow.Read(), id)
}

func (s *DocumentService) ListByWarehouse(ctx context.Context, warehouseID int64) ([]*domain.Document, error) {
	w, err := s.uow.Read().Warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("warehouse %d: %w", warehouseID, domain.ErrWarehouseNotFound)
	}
	return s.uow.Read().Documents.ListByWarehouse(ctx, warehouseID)
}

// ListPendingSignature pages through unsigned documents by id. Pass the last
// id of the previous page as afterID to continue.
func (s *DocumentService) ListPendingSignature(ctx context.Context, afterID int64, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	if limit > MaxPendingLimit {
		limit = MaxPendingLimit
	}
	return s.uow.Read().Documents.ListPending(ctx, afterID, limit)
}

// RequestMaterialization queues generation of the document's artifact and
// returns without waiting for it. A request for a document that is already
// queued or being generated is a no-op.
func (s *DocumentService) RequestMaterialization(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	key := fmt.Sprintf("materialize:%d", id)
	claimed, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return domain.Persistence("claim materialization", err)
	}
	if !claimed {
		s.logger.Debug("materialization already in flight", "document_id", id)
		return nil
	}

	task := worker.Task{
		ID:        uuid.NewString(),
		Run:       func(ctx context.Context) error { return s.Materialize(ctx, id) },
		Retryable: retryableMaterialization,
		Done: func(err error) {
			if rerr := s.guard.Release(context.Background(), key); rerr != nil {
				s.logger.Error("failed to release materialization claim", "document_id", id, "error", rerr)
			}
			if err != nil {
				s.logger.Error("materialization abandoned", "document_id", id, "error", err)
			}
		},
	}
	if err := s.queue.Submit(task); err != nil {
		if rerr := s.guard.Release(ctx, key); rerr != nil {
			s.logger.Error("failed to release materialization claim", "document_id", id, "error", rerr)
		}
		s.logger.Warn("materialization rejected", "document_id", id, "error", err)
		return err
	}

	s.logger.Info("materialization queued", "document_id", id, "task_id", task.ID)
	return nil
}

// retryableMaterialization reports whether a failed materialization may
// succeed on another attempt. A missing document or a broken invariant will
// not.
func retryableMaterialization(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindInvariant:
		return false
	}
	return true
}

// Materialize renders the document to PDF and stores it. Running it again
// overwrites the artifact with identical bytes.
func (s *DocumentService) Materialize(ctx context.Context, id int64) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	data, err := s.pdf.Render(doc.Content, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to render document %d: %w", id, err)
	}

	path, err := s.artifacts.Save(ctx, artifactKey(id), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to save document %d: %w", id, err)
	}

	if err := s.uow.Read().Documents.SetArtifact(ctx, id, path, s.now()); err != nil {
		// Drop a first artifact that no row points at.
		if doc.ArtifactPath == nil {
			if derr := s.artifacts.Delete(ctx, path); derr != nil {
				s.logger.Error("failed to remove unrecorded artifact", "document_id", id, "path", path, "error", derr)
			}
		}
		return err
	}

	s.logger.Info("document materialized", "document_id", id, "path", path, "bytes", len(data))
	return nil
}

// Artifact opens the materialized artifact. The caller must close it.
func (s *DocumentService) Artifact(ctx context.Context, id int64) (io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ArtifactPath == nil {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotReady)
	}

	rc, err := s.artifacts.Open(ctx, *doc.ArtifactPath)
	if errors.Is(err, artifactstore.ErrNotFound) {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotReady)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document %d: %w", id, err)
	}
	return rc, nil
}

// Sign signs the document with signerID's private key and returns the
// signed document.
func (s *DocumentService) Sign(ctx context.Context, id, signerID int64) (*domain.Document, error) {
	var signed *domain.Document
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		doc, err := getDocument(ctx, r, id)
		if err != nil {
			return err
		}
		if doc.Signed {
			return fmt.Errorf("document %d: %w", id, domain.ErrAlreadySigned)
		}
		if doc.GeneratedAt == nil {
			return fmt.Errorf("document %d: %w", id, domain.ErrNotMaterialized)
		}

		signer, err := r.Users.GetByID(ctx, signerID)
		if err != nil {
			return err
		}
		if signer == nil || !signer.HasKeypair() {
			return fmt.Errorf("user %d: %w", signerID, domain.ErrNoSignerKey)
		}

		payload, err := CanonicalPayload(doc)
		if err != nil {
			return err
		}
		value, err := signing.Sign(payload, signer.PrivateKey)
		if err != nil {
			return err
		}

		if err := r.Documents.MarkSigned(ctx, id, store.Signature{
			Value:     value,
			PublicKey: signer.PublicKey,
			SignerID:  signer.ID,
			SignedAt:  s.now(),
		}); err != nil {
			return err
		}

		signed, err = r.Documents.GetByID(ctx, id)
		return err
	})
	if err != nil {
		s.logger.Warn("signing rejected", "document_id", id, "signer_id", signerID, "error", err)
		return nil, err
	}

	s.logger.Info("document signed", "document_id", id, "signer_id", signerID)
	return signed, nil
}

// Verify recomputes the document's canonical payload and checks signature
// against it. Any public key may be supplied.
func (s *DocumentService) Verify(ctx context.Context, id int64, publicKey, signature string) (signing.Result, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return signing.Result{}, err
	}
	if doc.GeneratedAt == nil {
		return signing.Result{Valid: false, Error: domain.ErrNotMaterialized.Error()}, nil
	}

	payload, err := CanonicalPayload(doc)
	if err != nil {
		return signing.Result{}, err
	}
	return signing.Verify(payload, publicKey, signature)
}

type canonicalPayload struct {
	DocumentID    int64  `json:"document_id"`
	TemplateID    int64  `json:"template_id"`
	TransactionID int64  `json:"transaction_id"`
	GeneratedAt   string `json:"generated_at"`
	ContentSHA384 string `json:"content_sha384"`
}

// CanonicalPayload returns the bytes a document signature covers. It fails
// for documents that have not been materialized.
func CanonicalPayload(doc *domain.Document) ([]byte, error) {
	if doc.GeneratedAt == nil {
		return nil, fmt.Errorf("document %d: %w", doc.ID, domain.ErrNotMaterialized)
	}
	digest := sha512.Sum384([]byte(doc.Content))
	return json.Marshal(canonicalPayload{
		DocumentID:    doc.ID,
		TemplateID:    doc.TemplateID,
		TransactionID: doc.TransactionID,
		GeneratedAt:   doc.GeneratedAt.UTC().Format(time.RFC3339Nano),
		ContentSHA384: hex.EncodeToString(digest[:]),
	})
}

func artifactKey(id int64) string {
	return fmt.Sprintf("documents/%d.pdf", id)
}

func getDocument(ctx context.Context, r *store.Repos, id int64) (*domain.Document, error) {
	doc, err := r.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrDocumentNotFound)
	}
	return doc, nil
}
