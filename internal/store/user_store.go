package store

import (
	"context"
	"database/sql"

	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

type UserStore struct {
	db db.DBTX
}

func NewUserStore(q db.DBTX) *UserStore {
	return &UserStore{db: q}
}

func (s *UserStore) Create(ctx context.Context, username, email, publicKey, privateKey string) (*domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, public_key, private_key) VALUES (?, ?, ?, ?)
	`, username, email, publicKey, privateKey)
	if err != nil {
		return nil, insertFailure("create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, domain.Persistence("get last insert id", err)
	}

	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, public_key, private_key, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.PublicKey, &u.PrivateKey, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("get user", err)
	}

	return u, nil
}
