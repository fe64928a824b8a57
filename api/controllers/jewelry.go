package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/api/responses"
	"github.com/gavelpoint/auctionhouse-backend/api/validators"
	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

// JewelryDetail returns one catalog item.
func JewelryDetail(svc jewelry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jewelry service unavailable"))
			return
		}

		jewelryID, err := pathUUID(r, "jewelryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), jewelryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, jewelryResponseFromModel(item))
	}
}

// JewelryListSellable lists items available for a new auction.
func JewelryListSellable(svc jewelry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jewelry service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListSellable(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]jewelryResponse, 0, len(rows))
		for i := range rows {
			items = append(items, jewelryResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type jewelryResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Category    string             `json:"category"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	BuyNowPrice decimal.Decimal    `json:"buy_now_price"`
	State       enums.JewelryState `json:"state"`
	CreatedAt   time.Time          `json:"created_at"`
}

func jewelryResponseFromModel(m *models.Jewelry) jewelryResponse {
	return jewelryResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		OwnerID:     m.OwnerID,
		BuyNowPrice: m.BuyNowPrice,
		State:       m.State,
		CreatedAt:   m.CreatedAt,
	}
}
