package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/internal/bids"
	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
	pkgerrors "github.com/gavelpoint/auctionhouse-backend/pkg/errors"
	"github.com/gavelpoint/auctionhouse-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubRepo struct {
	existing *models.Transaction
	byID     *models.Transaction
	created  *models.Transaction
	updates  []enums.TransactionState
	methods  []enums.PaymentMethod
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	txn.ID = uuid.New()
	s.created = txn
	return txn, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if s.byID == nil || s.byID.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.byID
	return &copied, nil
}

func (s *stubRepo) FindByAuctionAndType(ctx context.Context, auctionID uuid.UUID, txnType enums.TransactionType) (*models.Transaction, error) {
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubRepo) UpdateState(ctx context.Context, id uuid.UUID, state enums.TransactionState) error {
	s.updates = append(s.updates, state)
	return nil
}

func (s *stubRepo) SetPaymentMethod(ctx context.Context, id uuid.UUID, method enums.PaymentMethod) error {
	s.methods = append(s.methods, method)
	return nil
}

func (s *stubRepo) List(ctx context.Context, opts ListQuery) ([]models.Transaction, error) {
	return nil, nil
}

func (s *stubRepo) SumSpendByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubRepo) TopSpenders(ctx context.Context, limit int) ([]SpenderRow, error) {
	return nil, nil
}

func (s *stubRepo) SumFeesIncurred(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubRepo) UserDashboard(ctx context.Context, userID uuid.UUID) (*DashboardRow, error) {
	return &DashboardRow{}, nil
}

type stubBidsRepo struct {
	highest *models.BidEvent
}

func (s *stubBidsRepo) WithTx(tx *gorm.DB) bids.Repository { return s }

func (s *stubBidsRepo) Append(ctx context.Context, bid *models.BidEvent) (*models.BidEvent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBidsRepo) HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.BidEvent, error) {
	if s.highest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.highest, nil
}

func (s *stubBidsRepo) FindAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBidsRepo) UpdateAuctionLastPrice(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error {
	return errors.New("not implemented")
}

func (s *stubBidsRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.BidEvent, error) {
	return nil, nil
}

func (s *stubBidsRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.BidEvent, error) {
	return nil, nil
}

func (s *stubBidsRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, repo Repository, ledger bids.Repository, sink *stubOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, ledger, stubTxRunner{}, sink, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func openAuction(endDate time.Time) *models.Auction {
	return &models.Auction{
		ID:        uuid.New(),
		Name:      "Emerald Ring Lot 4",
		JewelryID: uuid.New(),
		State:     enums.AuctionStateClosed,
		EndDate:   endDate,
	}
}

func TestSettleInTxCreatesPendingTransaction(t *testing.T) {
	endDate := time.Now().UTC().Add(-time.Hour)
	winner := uuid.New()
	repo := &stubRepo{}
	ledger := &stubBidsRepo{highest: &models.BidEvent{
		ID:      uuid.New(),
		UserID:  winner,
		Amount:  decimal.NewFromInt(120),
		BidTime: endDate.Add(-time.Minute),
	}}
	sink := &stubOutbox{}
	svc := newTestService(t, repo, ledger, sink)

	auction := openAuction(endDate)
	txn, err := svc.SettleInTx(context.Background(), &gorm.DB{}, auction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Type != enums.TransactionTypePaymentToWinner {
		t.Fatalf("expected payment_to_winner, got %s", txn.Type)
	}
	if txn.State != enums.TransactionStatePending {
		t.Fatalf("expected pending state, got %s", txn.State)
	}
	if txn.UserID != winner {
		t.Fatalf("winner mismatch")
	}
	if !txn.TotalPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected total price 120, got %s", txn.TotalPrice)
	}
	if !txn.CreateDate.Equal(endDate) {
		t.Fatalf("create date should match auction end date")
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventWinnerDetermined {
		t.Fatalf("expected winner_determined event, got %+v", sink.events)
	}
}

func TestSettleInTxNoBids(t *testing.T) {
	repo := &stubRepo{}
	sink := &stubOutbox{}
	svc := newTestService(t, repo, &stubBidsRepo{}, sink)

	_, err := svc.SettleInTx(context.Background(), &gorm.DB{}, openAuction(time.Now().UTC()))
	if !errors.Is(err, ErrNoWinner) {
		t.Fatalf("expected ErrNoWinner, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("no transaction should be created without bids")
	}
	if len(sink.events) != 0 {
		t.Fatal("no events should be emitted without bids")
	}
}

func TestSettleInTxIdempotent(t *testing.T) {
	existing := &models.Transaction{
		ID:    uuid.New(),
		Type:  enums.TransactionTypePaymentToWinner,
		State: enums.TransactionStatePending,
	}
	repo := &stubRepo{existing: existing}
	sink := &stubOutbox{}
	svc := newTestService(t, repo, &stubBidsRepo{}, sink)

	txn, err := svc.SettleInTx(context.Background(), &gorm.DB{}, openAuction(time.Now().UTC()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.ID != existing.ID {
		t.Fatal("expected the existing settlement to be returned")
	}
	if repo.created != nil {
		t.Fatal("repeat settlement must not create a second transaction")
	}
	if len(sink.events) != 0 {
		t.Fatal("repeat settlement must not emit events")
	}
}

func TestAdvanceTransactionStatePendingToPaid(t *testing.T) {
	txnID := uuid.New()
	repo := &stubRepo{byID: &models.Transaction{
		ID:    txnID,
		State: enums.TransactionStatePending,
	}}
	sink := &stubOutbox{}
	svc := newTestService(t, repo, &stubBidsRepo{}, sink)

	updated, err := svc.AdvanceTransactionState(context.Background(), txnID, enums.TransactionStatePaid, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != enums.TransactionStatePaid {
		t.Fatalf("expected paid, got %s", updated.State)
	}
	if len(repo.updates) != 1 || repo.updates[0] != enums.TransactionStatePaid {
		t.Fatalf("state update not persisted: %+v", repo.updates)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventTransactionStateChanged {
		t.Fatalf("expected transaction_state_changed event, got %+v", sink.events)
	}
}

func TestAdvanceTransactionStateRejectsPendingToHandover(t *testing.T) {
	txnID := uuid.New()
	repo := &stubRepo{byID: &models.Transaction{
		ID:    txnID,
		State: enums.TransactionStatePending,
	}}
	svc := newTestService(t, repo, &stubBidsRepo{}, &stubOutbox{})

	_, err := svc.AdvanceTransactionState(context.Background(), txnID, enums.TransactionStateHandover, uuid.Nil)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatal("rejected transition must not persist")
	}
}

func TestAdvanceTransactionStateRejectsTerminalStates(t *testing.T) {
	for _, state := range []enums.TransactionState{
		enums.TransactionStateHandover,
		enums.TransactionStateCancelled,
		enums.TransactionStateDefaulted,
	} {
		txnID := uuid.New()
		repo := &stubRepo{byID: &models.Transaction{ID: txnID, State: state}}
		svc := newTestService(t, repo, &stubBidsRepo{}, &stubOutbox{})

		_, err := svc.AdvanceTransactionState(context.Background(), txnID, enums.TransactionStatePaid, uuid.Nil)
		if err == nil {
			t.Fatalf("expected %s to be terminal", state)
		}
	}
}

func TestSetPaymentMethodPendingOnly(t *testing.T) {
	txnID := uuid.New()
	repo := &stubRepo{byID: &models.Transaction{
		ID:    txnID,
		State: enums.TransactionStatePaid,
	}}
	svc := newTestService(t, repo, &stubBidsRepo{}, &stubOutbox{})

	_, err := svc.SetPaymentMethod(context.Background(), txnID, enums.PaymentMethodBanking)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	repo.byID.State = enums.TransactionStatePending
	updated, err := svc.SetPaymentMethod(context.Background(), txnID, enums.PaymentMethodBanking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PaymentMethod == nil || *updated.PaymentMethod != enums.PaymentMethodBanking {
		t.Fatal("payment method not applied")
	}
	if len(repo.methods) != 1 {
		t.Fatal("payment method not persisted")
	}
}
