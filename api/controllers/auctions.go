package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/api/middleware"
	"github.com/gavelpoint/auctionhouse-backend/api/responses"
	"github.com/gavelpoint/auctionhouse-backend/api/validators"
	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

const maxListLimit = 100

type auctionCreateRequest struct {
	Name             string    `json:"name" validate:"required,min=3,max=200"`
	Description      string    `json:"description" validate:"max=2000"`
	JewelryID        string    `json:"jewelry_id" validate:"required,uuid"`
	FirstPrice       string    `json:"first_price" validate:"required"`
	PriceStep        string    `json:"price_step" validate:"required"`
	ParticipationFee string    `json:"participation_fee" validate:"required"`
	Deposit          string    `json:"deposit" validate:"required"`
	StartDate        time.Time `json:"start_date" validate:"required"`
	EndDate          time.Time `json:"end_date" validate:"required"`
}

func (r auctionCreateRequest) toInput(staffID uuid.UUID) (auctions.CreateAuctionInput, error) {
	jewelryID, err := uuid.Parse(strings.TrimSpace(r.JewelryID))
	if err != nil {
		return auctions.CreateAuctionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid jewelry_id")
	}

	amounts := map[string]string{
		"first_price":       r.FirstPrice,
		"price_step":        r.PriceStep,
		"participation_fee": r.ParticipationFee,
		"deposit":           r.Deposit,
	}
	parsed := map[string]decimal.Decimal{}
	for field, raw := range amounts {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return auctions.CreateAuctionInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid amount").WithDetails(map[string]any{"field": field})
		}
		parsed[field] = value
	}

	return auctions.CreateAuctionInput{
		Name:             strings.TrimSpace(r.Name),
		Description:      strings.TrimSpace(r.Description),
		StaffID:          staffID,
		JewelryID:        jewelryID,
		FirstPrice:       parsed["first_price"],
		PriceStep:        parsed["price_step"],
		ParticipationFee: parsed["participation_fee"],
		Deposit:          parsed["deposit"],
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
	}, nil
}

// AuctionCreate handles staff lot creation.
func AuctionCreate(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		staffID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload auctionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateAuction(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, auctionResponseFromModel(created))
	}
}

type auctionCloseRequest struct {
	Override bool `json:"override"`
}

type auctionCloseResponse struct {
	Auction       auctionResponse      `json:"auction"`
	Transaction   *transactionResponse `json:"transaction,omitempty"`
	AlreadyClosed bool                 `json:"already_closed"`
	NoWinner      bool                 `json:"no_winner"`
}

// AuctionClose finalizes an auction and settles the winning bid if one exists.
func AuctionClose(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		staffID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := auctionCloseRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.CloseAuction(r.Context(), auctions.CloseAuctionInput{
			AuctionID: auctionID,
			ActorID:   staffID,
			ActorRole: enums.UserRole(middleware.RoleFromContext(r.Context())),
			Override:  payload.Override,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := auctionCloseResponse{
			Auction:       auctionResponseFromModel(result.Auction),
			AlreadyClosed: result.AlreadyClosed,
			NoWinner:      result.NoWinner,
		}
		if result.Transaction != nil {
			txResp := transactionResponseFromModel(result.Transaction)
			resp.Transaction = &txResp
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuctionDelete soft-deletes a lot and releases its jewelry when still open.
func AuctionDelete(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		staffID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAuction(r.Context(), auctionID, staffID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type auctionStateRequest struct {
	State string `json:"state" validate:"required"`
}

// AuctionSetState applies an explicit state transition requested by staff.
func AuctionSetState(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		staffID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload auctionStateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := enums.ParseAuctionState(strings.TrimSpace(payload.State))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid auction state"))
			return
		}

		updated, err := svc.SetState(r.Context(), auctionID, staffID, state)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auctionResponseFromModel(updated))
	}
}

// AuctionDetail returns a single auction by id.
func AuctionDetail(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auction, err := svc.GetAuction(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auctionResponseFromModel(auction))
	}
}

type auctionListResponse struct {
	Items  []auctionResponse `json:"items"`
	Cursor string            `json:"cursor,omitempty"`
}

// AuctionList returns cursor-paginated auctions with optional filters.
func AuctionList(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := auctions.ListParams{
			Category:     strings.TrimSpace(r.URL.Query().Get("category")),
			NameContains: strings.TrimSpace(r.URL.Query().Get("name")),
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:        limit,
		}

		for _, raw := range r.URL.Query()["state"] {
			state, err := enums.ParseAuctionState(strings.TrimSpace(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid auction state"))
				return
			}
			params.States = append(params.States, state)
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("staff_id")); raw != "" {
			staffID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid staff_id"))
				return
			}
			params.StaffID = &staffID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("jewelry_id")); raw != "" {
			jewelryID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid jewelry_id"))
				return
			}
			params.JewelryID = &jewelryID
		}
		endingAfter, err := queryTime(r, "ending_after")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.EndingAfter = endingAfter
		endingBefore, err := queryTime(r, "ending_before")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.EndingBefore = endingBefore

		result, err := svc.ListAuctions(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := auctionListResponse{Items: make([]auctionResponse, 0, len(result.Items)), Cursor: result.Cursor}
		for i := range result.Items {
			resp.Items = append(resp.Items, auctionResponseFromModel(&result.Items[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuctionFeatured lists the highest-valued open lots.
func AuctionFeatured(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 3, 1, 20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.FeaturedAuctions(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]auctionResponse, 0, len(rows))
		for i := range rows {
			items = append(items, auctionResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type auctionResponse struct {
	ID               uuid.UUID          `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	StaffID          uuid.UUID          `json:"staff_id"`
	JewelryID        uuid.UUID          `json:"jewelry_id"`
	FirstPrice       decimal.Decimal    `json:"first_price"`
	PriceStep        decimal.Decimal    `json:"price_step"`
	ParticipationFee decimal.Decimal    `json:"participation_fee"`
	Deposit          decimal.Decimal    `json:"deposit"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	LastPrice        decimal.Decimal    `json:"last_price"`
	State            enums.AuctionState `json:"state"`
	SettledAt        *time.Time         `json:"settled_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func auctionResponseFromModel(m *models.Auction) auctionResponse {
	return auctionResponse{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		StaffID:          m.StaffID,
		JewelryID:        m.JewelryID,
		FirstPrice:       m.FirstPrice,
		PriceStep:        m.PriceStep,
		ParticipationFee: m.ParticipationFee,
		Deposit:          m.Deposit,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		LastPrice:        m.LastPrice,
		State:            m.State,
		SettledAt:        m.SettledAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return &ts, nil
}
