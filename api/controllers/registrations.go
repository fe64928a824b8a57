package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/api/responses"
	"github.com/gavelpoint/auctionhouse-backend/api/validators"
	"github.com/gavelpoint/auctionhouse-backend/internal/registrations"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

// RegistrationCreate signs the caller up for an auction and charges the fee.
func RegistrationCreate(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Register(r.Context(), registrations.RegisterInput{
			AuctionID: auctionID,
			UserID:    userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, registrationResponseFromModel(created))
	}
}

// RegistrationMine returns the caller's valid registration for an auction.
func RegistrationMine(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		registration, err := svc.FindValidRegistration(r.Context(), auctionID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, registrationResponseFromModel(registration))
	}
}

// RegistrationParticipantCount reports how many valid registrants an auction has.
func RegistrationParticipantCount(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.CountValidParticipants(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"participants": count})
	}
}

type registrationListResponse struct {
	Items []registrationWithAuctionResponse `json:"items"`
}

// RegistrationListMine lists the caller's registrations with auction names.
func RegistrationListMine(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListUserRegistrations(r.Context(), registrations.UserListQuery{
			UserID:       userID,
			NameContains: strings.TrimSpace(r.URL.Query().Get("name")),
			Limit:        limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := registrationListResponse{Items: make([]registrationWithAuctionResponse, 0, len(rows))}
		for i := range rows {
			resp.Items = append(resp.Items, registrationWithAuctionResponseFromRow(rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// RegistrationListForAuction lists an auction's registrants for staff review.
func RegistrationListForAuction(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		auctionID, err := pathUUID(r, "auctionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListAuctionRegistrants(r.Context(), auctionID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]registrationResponse, 0, len(rows))
		for i := range rows {
			items = append(items, registrationResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type registrationResponse struct {
	ID               uuid.UUID               `json:"id"`
	AuctionID        uuid.UUID               `json:"auction_id"`
	UserID           uuid.UUID               `json:"user_id"`
	RegistrationFee  decimal.Decimal         `json:"registration_fee"`
	State            enums.RegistrationState `json:"state"`
	RegistrationDate time.Time               `json:"registration_date"`
	CreatedAt        time.Time               `json:"created_at"`
}

func registrationResponseFromModel(m *models.AuctionRegistration) registrationResponse {
	return registrationResponse{
		ID:               m.ID,
		AuctionID:        m.AuctionID,
		UserID:           m.UserID,
		RegistrationFee:  m.RegistrationFee,
		State:            m.State,
		RegistrationDate: m.RegistrationDate,
		CreatedAt:        m.CreatedAt,
	}
}

type registrationWithAuctionResponse struct {
	registrationResponse
	AuctionName string `json:"auction_name"`
}

func registrationWithAuctionResponseFromRow(row registrations.RegistrationWithAuction) registrationWithAuctionResponse {
	return registrationWithAuctionResponse{
		registrationResponse: registrationResponseFromModel(&row.AuctionRegistration),
		AuctionName:          row.AuctionName,
	}
}
