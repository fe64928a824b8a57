package auctions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
	pkgpagination "github.com/gavelpoint/auctionhouse-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type usersDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type jewelryRepository interface {
	WithTx(tx *gorm.DB) jewelry.Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Jewelry, error)
}

type settler interface {
	SettleInTx(ctx context.Context, tx *gorm.DB, auction *models.Auction) (*models.Transaction, error)
}

// Service owns the auction lifecycle state machine.
type Service interface {
	CreateAuction(ctx context.Context, input CreateAuctionInput) (*models.Auction, error)
	CloseAuction(ctx context.Context, input CloseAuctionInput) (*CloseResult, error)
	DeleteAuction(ctx context.Context, auctionID, actorID uuid.UUID) error
	SetState(ctx context.Context, auctionID, actorID uuid.UUID, newState enums.AuctionState) (*models.Auction, error)
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)
	ListAuctions(ctx context.Context, params ListParams) (*ListResult, error)
	FeaturedAuctions(ctx context.Context, limit int) ([]models.Auction, error)
}

type service struct {
	repo        Repository
	users       usersDirectory
	jewelryRepo jewelryRepository
	settler     settler
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the auction lifecycle service.
func NewService(repo Repository, users usersDirectory, jewelryRepo jewelryRepository, settler settler, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("auctions repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if jewelryRepo == nil {
		return nil, fmt.Errorf("jewelry repository required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		users:       users,
		jewelryRepo: jewelryRepo,
		settler:     settler,
		tx:          tx,
		outbox:      outboxSvc,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) CreateAuction(ctx context.Context, input CreateAuctionInput) (*models.Auction, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id is required")
	}
	if input.JewelryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jewelry id is required")
	}
	if !input.FirstPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first price must be positive")
	}
	if !input.PriceStep.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price step must be positive")
	}
	if input.ParticipationFee.IsNegative() || input.Deposit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fees cannot be negative")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}

	staff, err := s.users.FindByID(ctx, input.StaffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup staff user")
	}
	if !staff.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	item, err := s.jewelryRepo.FindByID(ctx, input.JewelryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "jewelry item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup jewelry item")
	}
	if item.State == enums.JewelryStateAuctioned || item.State == enums.JewelryStateSold {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "jewelry item already committed to an auction")
	}

	if existing, err := s.repo.FindActiveByJewelryID(ctx, input.JewelryID); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "jewelry item already committed to an auction")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check jewelry availability")
	}

	auction := &models.Auction{
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		StaffID:          input.StaffID,
		JewelryID:        input.JewelryID,
		FirstPrice:       input.FirstPrice,
		PriceStep:        input.PriceStep,
		ParticipationFee: input.ParticipationFee,
		Deposit:          input.Deposit,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		LastPrice:        input.FirstPrice,
		State:            enums.AuctionStateOpen,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, auction)
		if err != nil {
			// The partial unique index on jewelry_id closes the race between
			// the availability check and this insert.
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create auction")
		}
		auction = created

		if err := s.jewelryRepo.WithTx(tx).UpdateState(ctx, input.JewelryID, enums.JewelryStateAuctioned); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark jewelry auctioned")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuctionCreated,
			AggregateType: enums.AggregateAuction,
			AggregateID:   auction.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.StaffID, Role: string(staff.Role)},
			Data: payloads.AuctionCreatedEvent{
				AuctionID:  auction.ID,
				JewelryID:  auction.JewelryID,
				StaffID:    auction.StaffID,
				StartDate:  auction.StartDate,
				EndDate:    auction.EndDate,
				FirstPrice: auction.FirstPrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// CloseAuction transitions an open auction to closed and settles it. A close
// against an already closed auction is a no-op returning the existing row so
// the scheduler and staff can race safely.
func (s *service) CloseAuction(ctx context.Context, input CloseAuctionInput) (*CloseResult, error) {
	if input.AuctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}

	var result CloseResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		auction, err := repo.FindByIDForUpdate(ctx, input.AuctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
		}

		if auction.State == enums.AuctionStateClosed {
			result.Auction = auction
			result.AlreadyClosed = true
			return nil
		}
		if !auction.State.CanTransitionTo(enums.AuctionStateClosed) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot close auction in state %s", auction.State))
		}

		now := s.now()
		if now.Before(auction.EndDate) && !input.Override {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction has not reached its end date")
		}

		if err := repo.MarkClosed(ctx, auction.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close auction")
		}
		auction.State = enums.AuctionStateClosed
		auction.SettledAt = &now

		txn, err := s.settler.SettleInTx(ctx, tx, auction)
		if err != nil {
			if errors.Is(err, settlement.ErrNoWinner) {
				result.NoWinner = true
				if s.logg != nil {
					logCtx := s.logg.WithAuctionID(ctx, auction.ID.String())
					s.logg.Info(logCtx, "auction closed with no bids")
				}
				if err := s.jewelryRepo.WithTx(tx).UpdateState(ctx, auction.JewelryID, enums.JewelryStateActive); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release jewelry item")
				}
				result.Auction = auction
				return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventAuctionClosedNoWinner,
					AggregateType: enums.AggregateAuction,
					AggregateID:   auction.ID,
					Version:       1,
					Actor:         closeActor(input),
					Data: payloads.AuctionClosedNoWinnerEvent{
						AuctionID: auction.ID,
						ClosedAt:  now,
					},
				})
			}
			return err
		}

		result.Auction = auction
		result.Transaction = txn

		if err := s.jewelryRepo.WithTx(tx).UpdateState(ctx, auction.JewelryID, enums.JewelryStateSold); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark jewelry sold")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuctionClosed,
			AggregateType: enums.AggregateAuction,
			AggregateID:   auction.ID,
			Version:       1,
			Actor:         closeActor(input),
			Data: payloads.AuctionClosedEvent{
				AuctionID:     auction.ID,
				WinnerID:      txn.UserID,
				WinningAmount: txn.TotalPrice,
				TransactionID: txn.ID,
				ClosedAt:      now,
			},
		}); err != nil {
			return err
		}

		// Winner notification rides the outbox too, so delivery failures
		// never block the close.
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   auction.ID,
			Version:       1,
			Data: payloads.NotificationRequestedEvent{
				UserID:    txn.UserID,
				AuctionID: auction.ID,
				Type:      enums.NotificationTypeAuctionWon,
				Title:     "You won the auction",
				Message:   fmt.Sprintf("Your bid of %s won %s. Payment is due.", txn.TotalPrice.StringFixed(2), auction.Name),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) DeleteAuction(ctx context.Context, auctionID, actorID uuid.UUID) error {
	if auctionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		auction, err := repo.FindByIDForUpdate(ctx, auctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
		}
		if !auction.State.CanTransitionTo(enums.AuctionStateDeleted) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction already deleted")
		}

		if err := repo.UpdateState(ctx, auctionID, enums.AuctionStateDeleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete auction")
		}

		// Deleting before a sale releases the item back to the catalog.
		if auction.State == enums.AuctionStateOpen {
			if err := s.jewelryRepo.WithTx(tx).UpdateState(ctx, auction.JewelryID, enums.JewelryStateActive); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release jewelry item")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuctionDeleted,
			AggregateType: enums.AggregateAuction,
			AggregateID:   auctionID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data: payloads.AuctionDeletedEvent{
				AuctionID: auctionID,
				DeletedAt: s.now(),
			},
		})
	})
}

// SetState is the administrative override. Closing routes through the
// settlement path so the close stays exactly-once.
func (s *service) SetState(ctx context.Context, auctionID, actorID uuid.UUID, newState enums.AuctionState) (*models.Auction, error) {
	if !newState.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid auction state")
	}

	switch newState {
	case enums.AuctionStateClosed:
		result, err := s.CloseAuction(ctx, CloseAuctionInput{
			AuctionID: auctionID,
			ActorID:   actorID,
			Override:  true,
		})
		if err != nil {
			return nil, err
		}
		if result.AlreadyClosed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transition closed -> closed is not allowed")
		}
		return result.Auction, nil
	case enums.AuctionStateDeleted:
		if err := s.DeleteAuction(ctx, auctionID, actorID); err != nil {
			return nil, err
		}
		return s.GetAuction(ctx, auctionID)
	default:
		auction, err := s.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transition %s -> %s is not allowed", auction.State, newState))
	}
}

func (s *service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	auction, err := s.repo.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup auction")
	}
	return auction, nil
}

func (s *service) ListAuctions(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		states:       params.States,
		staffID:      params.StaffID,
		jewelryID:    params.JewelryID,
		category:     strings.TrimSpace(params.Category),
		nameContains: strings.TrimSpace(params.NameContains),
		endingAfter:  params.EndingAfter,
		endingBefore: params.EndingBefore,
		limit:        pkgpagination.LimitWithBuffer(params.Limit),
	}

	// Deleted lots stay out of listings unless a state filter names them.
	if len(query.states) == 0 && !params.IncludeDeleted {
		query.states = []enums.AuctionState{enums.AuctionStateOpen, enums.AuctionStateClosed}
	}

	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list auctions")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	return &ListResult{Items: rows, Cursor: nextCursor}, nil
}

const maxFeaturedLimit = 20

// FeaturedAuctions returns live lots ranked by opening price.
func (s *service) FeaturedAuctions(ctx context.Context, limit int) ([]models.Auction, error) {
	if limit <= 0 {
		limit = 3
	}
	if limit > maxFeaturedLimit {
		limit = maxFeaturedLimit
	}
	rows, err := s.repo.ListTopByFirstPrice(ctx, []enums.AuctionState{enums.AuctionStateOpen}, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured auctions")
	}
	return rows, nil
}

func closeActor(input CloseAuctionInput) *outbox.ActorRef {
	if input.ActorID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)}
}
