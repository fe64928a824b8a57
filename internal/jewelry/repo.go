package jewelry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// Repository exposes persistence for the consigned item catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Jewelry, error)
	UpdateState(ctx context.Context, id uuid.UUID, state enums.JewelryState) error
	ListByState(ctx context.Context, state enums.JewelryState, limit int) ([]models.Jewelry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a jewelry repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Jewelry, error) {
	var item models.Jewelry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state enums.JewelryState) error {
	return r.db.WithContext(ctx).
		Model(&models.Jewelry{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *repository) ListByState(ctx context.Context, state enums.JewelryState, limit int) ([]models.Jewelry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Jewelry
	err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
