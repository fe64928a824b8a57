package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gavelpoint/auctionhouse-backend/api/controllers"
	"github.com/gavelpoint/auctionhouse-backend/api/middleware"
	"github.com/gavelpoint/auctionhouse-backend/internal/auctions"
	"github.com/gavelpoint/auctionhouse-backend/internal/bids"
	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/internal/notifications"
	"github.com/gavelpoint/auctionhouse-backend/internal/registrations"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
	"github.com/gavelpoint/auctionhouse-backend/internal/users"
	"github.com/gavelpoint/auctionhouse-backend/pkg/config"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Auctions      auctions.Service
	Registrations registrations.Service
	Bids          bids.Service
	Settlement    settlement.Service
	Notifications notifications.Service
	Users         users.Service
	Jewelry       jewelry.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	pubsubP controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	bidPolicy := middleware.NewRateLimitPolicy(
		"bid",
		cfg.AuthRateLimit.BidWindow,
		cfg.AuthRateLimit.BidIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, pubsubP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/auctions", func(r chi.Router) {
			r.Get("/", controllers.AuctionList(svcs.Auctions, logg))
			r.Get("/featured", controllers.AuctionFeatured(svcs.Auctions, logg))
			r.Get("/{auctionId}", controllers.AuctionDetail(svcs.Auctions, logg))

			r.Route("/{auctionId}/bids", func(r chi.Router) {
				r.With(middleware.RateLimit(bidPolicy, redisClient, logg)).
					Post("/", controllers.BidPlace(svcs.Bids, logg))
				r.Get("/", controllers.BidHistory(svcs.Bids, logg))
				r.Get("/highest", controllers.BidHighest(svcs.Bids, logg))
			})

			r.Route("/{auctionId}/registrations", func(r chi.Router) {
				r.Post("/", controllers.RegistrationCreate(svcs.Registrations, logg))
				r.Get("/me", controllers.RegistrationMine(svcs.Registrations, logg))
				r.Get("/count", controllers.RegistrationParticipantCount(svcs.Registrations, logg))
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserMe(svcs.Users, logg))
			r.Get("/registrations", controllers.RegistrationListMine(svcs.Registrations, logg))
			r.Get("/bids", controllers.BidListMine(svcs.Bids, logg))
			r.Get("/spend", controllers.TransactionMySpend(svcs.Settlement, logg))
			r.Get("/dashboard", controllers.TransactionMyDashboard(svcs.Settlement, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{transactionId}", controllers.TransactionDetail(svcs.Settlement, logg))
			r.Post("/{transactionId}/payment-method", controllers.TransactionSetPaymentMethod(svcs.Settlement, logg))
		})

		r.Route("/jewelry", func(r chi.Router) {
			r.Get("/{jewelryId}", controllers.JewelryDetail(svcs.Jewelry, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleStaff), logg))

		r.Route("/auctions", func(r chi.Router) {
			r.Post("/", controllers.AuctionCreate(svcs.Auctions, logg))
			r.Post("/{auctionId}/close", controllers.AuctionClose(svcs.Auctions, logg))
			r.Post("/{auctionId}/state", controllers.AuctionSetState(svcs.Auctions, logg))
			r.Delete("/{auctionId}", controllers.AuctionDelete(svcs.Auctions, logg))
			r.Get("/{auctionId}/registrations", controllers.RegistrationListForAuction(svcs.Registrations, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(svcs.Settlement, logg))
			r.Post("/{transactionId}/state", controllers.TransactionAdvanceState(svcs.Settlement, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/registration-fees", controllers.ReportRegistrationFees(svcs.Registrations, logg))
			r.Get("/distinct-registrants", controllers.ReportDistinctRegistrants(svcs.Registrations, logg))
			r.Get("/top-spenders", controllers.ReportTopSpenders(svcs.Settlement, logg))
			r.Get("/transaction-fees", controllers.ReportTotalFees(svcs.Settlement, logg))
		})

		r.Get("/jewelry/sellable", controllers.JewelryListSellable(svcs.Jewelry, logg))
		r.Get("/users", controllers.UserList(svcs.Users, logg))
		r.Get("/users/lookup", controllers.UserLookup(svcs.Users, logg))
	})

	return r
}
