package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gavelpoint/auctionhouse-backend/api/responses"
	"github.com/gavelpoint/auctionhouse-backend/api/validators"
	"github.com/gavelpoint/auctionhouse-backend/internal/registrations"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
)

const defaultTopSpenders = 10

// ReportRegistrationFees totals participation fees across all registrations.
func ReportRegistrationFees(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		total, err := svc.SumRegistrationFees(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"total_fees": total})
	}
}

// ReportDistinctRegistrants counts unique users who registered in a month.
func ReportDistinctRegistrants(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registration service unavailable"))
			return
		}

		month, err := validators.ParseQueryInt(r, "month", 0, 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if month == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "month is required"))
			return
		}

		year, err := validators.ParseQueryInt(r, "year", 0, 2000, 2200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if year == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "year is required"))
			return
		}

		count, err := svc.CountDistinctUsersRegisteredInPeriod(r.Context(), time.Month(month), year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"month": month, "year": year, "distinct_users": count})
	}
}

// ReportTopSpenders ranks winners by settled spend.
func ReportTopSpenders(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultTopSpenders, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.TopSpenders(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]spenderResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, spenderResponse{
				UserID:     row.UserID,
				TotalSpend: row.TotalSpend,
				Won:        row.Won,
			})
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

type spenderResponse struct {
	UserID     uuid.UUID       `json:"user_id"`
	TotalSpend decimal.Decimal `json:"total_spend"`
	Won        int64           `json:"won"`
}

// ReportTotalFees totals fees incurred across settled transactions.
func ReportTotalFees(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		total, err := svc.TotalFeesIncurred(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"total_fees": total})
	}
}
