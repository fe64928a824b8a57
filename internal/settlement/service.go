package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/internal/bids"
	dbpkg "github.com/gavelpoint/auctionhouse-backend/pkg/db"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/logger"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox/payloads"
)

// ErrNoWinner marks a close with zero bids. Callers log it and finish the
// close without a transaction.
var ErrNoWinner = errors.New("auction closed with no bids")

const uniqueSettlementConstraint = "transactions_auction_type_uniq"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns winner determination and the transaction state machine.
type Service interface {
	SettleInTx(ctx context.Context, tx *gorm.DB, auction *models.Auction) (*models.Transaction, error)
	AdvanceTransactionState(ctx context.Context, transactionID uuid.UUID, newState enums.TransactionState, actorID uuid.UUID) (*models.Transaction, error)
	SetPaymentMethod(ctx context.Context, transactionID uuid.UUID, method enums.PaymentMethod) (*models.Transaction, error)
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, query ListQuery) ([]models.Transaction, error)
	UserSpend(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	UserDashboard(ctx context.Context, userID uuid.UUID) (*DashboardRow, error)
	TopSpenders(ctx context.Context, limit int) ([]SpenderRow, error)
	TotalFeesIncurred(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	repo   Repository
	bids   bids.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the settlement engine.
func NewService(repo Repository, bidsRepo bids.Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if bidsRepo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		bids:   bidsRepo,
		tx:     tx,
		outbox: outboxSvc,
		logg:   logg,
	}, nil
}

// SettleInTx determines the winner and creates the pending payment
// transaction inside the caller's close transaction. The unique index on
// (auction_id, type) makes double settlement impossible even if two closes
// race past the existence check.
func (s *service) SettleInTx(ctx context.Context, tx *gorm.DB, auction *models.Auction) (*models.Transaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}
	if auction == nil || auction.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction is required")
	}

	repo := s.repo.WithTx(tx)

	if existing, err := repo.FindByAuctionAndType(ctx, auction.ID, enums.TransactionTypePaymentToWinner); err == nil && existing != nil {
		return existing, nil
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing settlement")
	}

	highest, err := s.bids.WithTx(tx).HighestBid(ctx, auction.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoWinner
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
	}

	txn := &models.Transaction{
		AuctionID:    auction.ID,
		UserID:       highest.UserID,
		Type:         enums.TransactionTypePaymentToWinner,
		State:        enums.TransactionStatePending,
		TotalPrice:   highest.Amount,
		FeesIncurred: decimal.Zero,
		CreateDate:   auction.EndDate,
	}
	created, err := repo.Create(ctx, txn)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, uniqueSettlementConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "auction already settled")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement transaction")
	}

	if s.logg != nil {
		logCtx := s.logg.WithAuctionID(ctx, auction.ID.String())
		logCtx = s.logg.WithUserID(logCtx, highest.UserID.String())
		s.logg.Info(logCtx, "winner determined")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWinnerDetermined,
		AggregateType: enums.AggregateAuction,
		AggregateID:   auction.ID,
		Version:       1,
		Data: payloads.WinnerDeterminedEvent{
			AuctionID:     auction.ID,
			WinnerID:      highest.UserID,
			WinningAmount: highest.Amount,
			WinningBidID:  highest.ID,
		},
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// AdvanceTransactionState moves a transaction along its lifecycle, rejecting
// edges outside the transition table.
func (s *service) AdvanceTransactionState(ctx context.Context, transactionID uuid.UUID, newState enums.TransactionState, actorID uuid.UUID) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if !newState.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction state")
	}

	var updated *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByID(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}

		if !txn.State.CanTransitionTo(newState) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transition %s -> %s is not allowed", txn.State, newState))
		}

		if err := repo.UpdateState(ctx, transactionID, newState); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction state")
		}

		fromState := txn.State
		txn.State = newState
		updated = txn

		var actor *outbox.ActorRef
		if actorID != uuid.Nil {
			actor = &outbox.ActorRef{UserID: actorID}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionStateChanged,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   transactionID,
			Version:       1,
			Actor:         actor,
			Data: payloads.TransactionStateChangedEvent{
				TransactionID: transactionID,
				AuctionID:     txn.AuctionID,
				UserID:        txn.UserID,
				FromState:     fromState,
				ToState:       newState,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetPaymentMethod records how the winner intends to pay. Only pending
// transactions accept a method change.
func (s *service) SetPaymentMethod(ctx context.Context, transactionID uuid.UUID, method enums.PaymentMethod) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var updated *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindByID(ctx, transactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}

		if txn.State != enums.TransactionStatePending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment method can only change while pending")
		}

		if err := repo.SetPaymentMethod(ctx, transactionID, method); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set payment method")
		}

		txn.PaymentMethod = &method
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	txn, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup transaction")
	}
	return txn, nil
}

func (s *service) ListTransactions(ctx context.Context, query ListQuery) ([]models.Transaction, error) {
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return rows, nil
}

func (s *service) UserSpend(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	total, err := s.repo.SumSpendByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum user spend")
	}
	return total, nil
}

func (s *service) UserDashboard(ctx context.Context, userID uuid.UUID) (*DashboardRow, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	row, err := s.repo.UserDashboard(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build user dashboard")
	}
	return row, nil
}

func (s *service) TopSpenders(ctx context.Context, limit int) ([]SpenderRow, error) {
	rows, err := s.repo.TopSpenders(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank top spenders")
	}
	return rows, nil
}

func (s *service) TotalFeesIncurred(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.SumFeesIncurred(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum fees incurred")
	}
	return total, nil
}
