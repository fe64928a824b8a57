package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
)

// Service exposes directory lookups for bidders and staff. The identity
// provider owns user writes, so this service is read only.
type Service interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetActiveBidder(ctx context.Context, id uuid.UUID) (*models.User, error)
	LookupUser(ctx context.Context, identifier string) (*models.User, error)
	ListUsers(ctx context.Context, query ListQuery) ([]models.User, error)
}

type service struct {
	repo Repository
}

// NewService builds the user directory service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return user, nil
}

// GetActiveBidder resolves a user and rejects deactivated accounts, used by
// registration and bidding flows to gate participation.
func (s *service) GetActiveBidder(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account is deactivated")
	}
	return user, nil
}

// LookupUser resolves a directory entry by username or email.
func (s *service) LookupUser(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier is required")
	}
	find := s.repo.FindByUsername
	if strings.Contains(identifier, "@") {
		find = s.repo.FindByEmail
	}
	user, err := find(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return user, nil
}

func (s *service) ListUsers(ctx context.Context, query ListQuery) ([]models.User, error) {
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return rows, nil
}
