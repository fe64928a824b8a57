package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/gavelpoint/auctionhouse-backend/pkg/db"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
)

const uniqueValidRegistrationConstraint = "auction_registrations_user_valid_uniq"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type usersDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RegisterInput captures a member's request to join an auction's bidding pool.
type RegisterInput struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
}

// Service owns the registration ledger.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.AuctionRegistration, error)
	FindValidRegistration(ctx context.Context, auctionID, userID uuid.UUID) (*models.AuctionRegistration, error)
	CountValidParticipants(ctx context.Context, auctionID uuid.UUID) (int64, error)
	SumRegistrationFees(ctx context.Context) (decimal.Decimal, error)
	CountDistinctUsersRegisteredInPeriod(ctx context.Context, month time.Month, year int) (int64, error)
	ListUserRegistrations(ctx context.Context, query UserListQuery) ([]RegistrationWithAuction, error)
	ListAuctionRegistrants(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.AuctionRegistration, error)
}

type service struct {
	repo   Repository
	users  usersDirectory
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the registration ledger service.
func NewService(repo Repository, users usersDirectory, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("registrations repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		users:  users,
		tx:     tx,
		outbox: outboxSvc,
		now:    time.Now,
	}, nil
}

// Register admits a user into an auction's bidding pool, charging the
// auction's participation fee. The auction row is locked so registration
// serializes against close, and the partial unique index backs the
// one-valid-registration-per-user invariant.
func (s *service) Register(ctx context.Context, input RegisterInput) (*models.AuctionRegistration, error) {
	if input.AuctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account is deactivated")
	}

	var created *models.AuctionRegistration
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		auction, err := repo.FindAuctionForUpdate(ctx, input.AuctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load auction")
		}

		now := s.now()
		if auction.State != enums.AuctionStateOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction is not open for registration")
		}
		if !now.Before(auction.EndDate) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction registration window has ended")
		}

		if existing, err := repo.FindValidRegistration(ctx, input.AuctionID, input.UserID); err == nil && existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already registered for this auction")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing registration")
		}

		reg := &models.AuctionRegistration{
			AuctionID:        input.AuctionID,
			UserID:           input.UserID,
			RegistrationFee:  auction.ParticipationFee,
			RegistrationDate: now,
			State:            enums.RegistrationStateValid,
		}
		created, err = repo.Create(ctx, reg)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, uniqueValidRegistrationConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already registered for this auction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create registration")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRegistrationCreated,
			AggregateType: enums.AggregateRegistration,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(user.Role)},
			Data: payloads.RegistrationCreatedEvent{
				RegistrationID:  created.ID,
				AuctionID:       created.AuctionID,
				UserID:          created.UserID,
				RegistrationFee: created.RegistrationFee,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindValidRegistration returns the valid ledger entry or a not-found error,
// used by the bid ledger to authorize bids.
func (s *service) FindValidRegistration(ctx context.Context, auctionID, userID uuid.UUID) (*models.AuctionRegistration, error) {
	if auctionID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id and user id are required")
	}
	reg, err := s.repo.FindValidRegistration(ctx, auctionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no valid registration for this auction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup registration")
	}
	return reg, nil
}

func (s *service) CountValidParticipants(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	if auctionID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	count, err := s.repo.CountValidParticipants(ctx, auctionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count participants")
	}
	return count, nil
}

func (s *service) SumRegistrationFees(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.SumRegistrationFees(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum registration fees")
	}
	return total, nil
}

func (s *service) CountDistinctUsersRegisteredInPeriod(ctx context.Context, month time.Month, year int) (int64, error) {
	if month < time.January || month > time.December {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid month")
	}
	if year < 2000 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid year")
	}
	count, err := s.repo.CountDistinctUsersRegisteredInPeriod(ctx, month, year)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count registered users")
	}
	return count, nil
}

func (s *service) ListUserRegistrations(ctx context.Context, query UserListQuery) ([]RegistrationWithAuction, error) {
	if query.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list registrations")
	}
	return rows, nil
}

func (s *service) ListAuctionRegistrants(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.AuctionRegistration, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id is required")
	}
	rows, err := s.repo.ListValidByAuction(ctx, auctionID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list registrants")
	}
	return rows, nil
}
