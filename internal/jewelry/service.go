package jewelry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
)

// Service exposes catalog lookups used by the auction lifecycle. State
// changes happen as side effects of auction operations, not directly.
type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.Jewelry, error)
	ListSellable(ctx context.Context, limit int) ([]models.Jewelry, error)
}

type service struct {
	repo Repository
}

// NewService builds the jewelry catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("jewelry repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.Jewelry, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jewelry id is required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "jewelry item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup jewelry item")
	}
	return item, nil
}

func (s *service) ListSellable(ctx context.Context, limit int) ([]models.Jewelry, error) {
	rows, err := s.repo.ListByState(ctx, enums.JewelryStateActive, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jewelry items")
	}
	return rows, nil
}
