package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

type TemplateStore struct {
	db db.DBTX
}

func NewTemplateStore(q db.DBTX) *TemplateStore {
	return &TemplateStore{db: q}
}

func (s *TemplateStore) Create(ctx context.Context, name string, docType domain.DocumentType) (*domain.DocumentTemplate, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO document_templates (name, type) VALUES (?, ?)
	`, name, docType)
	if err != nil {
		return nil, insertFailure("create template", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *TemplateStore) GetByID(ctx context.Context, id int64) (*domain.DocumentTemplate, error) {
	return s.getOne(ctx, `SELECT id, name, type FROM document_templates WHERE id = ?`, id)
}

// FindByType returns the template registered for a document family, or nil.
func (s *TemplateStore) FindByType(ctx context.Context, docType domain.DocumentType) (*domain.DocumentTemplate, error) {
	return s.getOne(ctx, `SELECT id, name, type FROM document_templates WHERE type = ?`, docType)
}

func (s *TemplateStore) getOne(ctx context.Context, query string, arg any) (*domain.DocumentTemplate, error) {
	t := &domain.DocumentTemplate{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.Name, &t.Type)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get template", err)
	}

	return t, nil
}

func (s *TemplateStore) List(ctx context.Context) ([]*domain.DocumentTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type FROM document_templates ORDER BY id ASC
	`)
	if err != nil {
		return nil, domain.Persistence("list templates", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var templates []*domain.DocumentTemplate
	for rows.Next() {
		t := &domain.DocumentTemplate{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
			return nil, domain.Persistence("scan template", err)
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate templates", err)
	}

	return templates, nil
}
