package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
	"github.com/StarAlexander/inventory-storage-diploma/internal/signing"
)

type AccountService struct {
	uow    unitOfWork
	logger *slog.Logger
}

func NewAccountService(uow unitOfWork, logger *slog.Logger) *AccountService {
	return &AccountService{uow: uow, logger: componentLogger(logger, "account_service")}
}

// CreateUser registers a user together with a freshly issued signing keypair.
func (s *AccountService) CreateUser(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}

	kp, err := signing.IssueKeypair()
	if err != nil {
		return nil, err
	}

	u, err := s.uow.Read().Users.Create(ctx, username, email, kp.PublicKey, kp.PrivateKey)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.uow.Read().Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	return u, nil
}

// PublicKey returns the PEM public half of the user's keypair.
func (s *AccountService) PublicKey(ctx context.Context, id int64) (string, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if !u.HasKeypair() {
		return "", fmt.Errorf("user %d: %w", id, domain.ErrNoSignerKey)
	}
	return u.PublicKey, nil
}
