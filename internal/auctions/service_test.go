package auctions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/internal/jewelry"
	"github.com/gavelpoint/auctionhouse-backend/internal/settlement"
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

func (s *stubOutbox) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.EventType)
	}
	return types
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubJewelry struct {
	items  map[uuid.UUID]*models.Jewelry
	states []enums.JewelryState
}

func (s *stubJewelry) WithTx(tx *gorm.DB) jewelry.Repository { return s }

func (s *stubJewelry) FindByID(ctx context.Context, id uuid.UUID) (*models.Jewelry, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubJewelry) UpdateState(ctx context.Context, id uuid.UUID, state enums.JewelryState) error {
	s.states = append(s.states, state)
	if item, ok := s.items[id]; ok {
		item.State = state
	}
	return nil
}

func (s *stubJewelry) ListByState(ctx context.Context, state enums.JewelryState, limit int) ([]models.Jewelry, error) {
	return nil, nil
}

type stubAuctionRepo struct {
	auctions map[uuid.UUID]*models.Auction
	closed   []uuid.UUID
}

func (s *stubAuctionRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubAuctionRepo) Create(ctx context.Context, auction *models.Auction) (*models.Auction, error) {
	auction.ID = uuid.New()
	auction.CreatedAt = time.Now().UTC()
	if s.auctions == nil {
		s.auctions = map[uuid.UUID]*models.Auction{}
	}
	s.auctions[auction.ID] = auction
	return auction, nil
}

func (s *stubAuctionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if auction, ok := s.auctions[id]; ok {
		copied := *auction
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuctionRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.FindByID(ctx, id)
}

func (s *stubAuctionRepo) FindActiveByJewelryID(ctx context.Context, jewelryID uuid.UUID) (*models.Auction, error) {
	for _, auction := range s.auctions {
		if auction.JewelryID == jewelryID && auction.State != enums.AuctionStateDeleted {
			return auction, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuctionRepo) UpdateState(ctx context.Context, id uuid.UUID, state enums.AuctionState) error {
	if auction, ok := s.auctions[id]; ok {
		auction.State = state
	}
	return nil
}

func (s *stubAuctionRepo) MarkClosed(ctx context.Context, id uuid.UUID, settledAt time.Time) error {
	s.closed = append(s.closed, id)
	if auction, ok := s.auctions[id]; ok {
		auction.State = enums.AuctionStateClosed
		auction.SettledAt = &settledAt
	}
	return nil
}

func (s *stubAuctionRepo) UpdateLastPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return nil
}

func (s *stubAuctionRepo) List(ctx context.Context, opts listQuery) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubAuctionRepo) ListTopByFirstPrice(ctx context.Context, states []enums.AuctionState, limit int) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubAuctionRepo) ListOpenPastEndDate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	return nil, nil
}

type stubSettler struct {
	txn      *models.Transaction
	noWinner bool
	calls    int
}

func (s *stubSettler) SettleInTx(ctx context.Context, tx *gorm.DB, auction *models.Auction) (*models.Transaction, error) {
	s.calls++
	if s.noWinner {
		return nil, settlement.ErrNoWinner
	}
	return s.txn, nil
}

type fixture struct {
	repo    *stubAuctionRepo
	users   *stubUsers
	jewels  *stubJewelry
	settler *stubSettler
	sink    *stubOutbox
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    &stubAuctionRepo{auctions: map[uuid.UUID]*models.Auction{}},
		users:   &stubUsers{users: map[uuid.UUID]*models.User{}},
		jewels:  &stubJewelry{items: map[uuid.UUID]*models.Jewelry{}},
		settler: &stubSettler{},
		sink:    &stubOutbox{},
	}
	svc, err := NewService(f.repo, f.users, f.jewels, f.settler, stubTxRunner{}, f.sink, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addStaff() *models.User {
	staff := &models.User{ID: uuid.New(), Username: "appraiser", Role: enums.UserRoleStaff, IsActive: true}
	f.users.users[staff.ID] = staff
	return staff
}

func (f *fixture) addJewelry(state enums.JewelryState) *models.Jewelry {
	item := &models.Jewelry{ID: uuid.New(), Name: "Art Deco Bracelet", State: state}
	f.jewels.items[item.ID] = item
	return item
}

func (f *fixture) addOpenAuction(jewelryID uuid.UUID, endDate time.Time) *models.Auction {
	auction := &models.Auction{
		ID:         uuid.New(),
		Name:       "Art Deco Bracelet Lot 7",
		JewelryID:  jewelryID,
		FirstPrice: decimal.NewFromInt(100),
		PriceStep:  decimal.NewFromInt(10),
		State:      enums.AuctionStateOpen,
		StartDate:  endDate.Add(-2 * time.Hour),
		EndDate:    endDate,
	}
	f.repo.auctions[auction.ID] = auction
	return auction
}

func validCreateInput(staffID, jewelryID uuid.UUID) CreateAuctionInput {
	now := time.Now().UTC()
	return CreateAuctionInput{
		Name:             "Art Deco Bracelet Lot 7",
		StaffID:          staffID,
		JewelryID:        jewelryID,
		FirstPrice:       decimal.NewFromInt(100),
		PriceStep:        decimal.NewFromInt(10),
		ParticipationFee: decimal.NewFromInt(25),
		Deposit:          decimal.NewFromInt(50),
		StartDate:        now,
		EndDate:          now.Add(48 * time.Hour),
	}
}

func TestCreateAuctionOpensWithFirstPrice(t *testing.T) {
	f := newFixture(t)
	staff := f.addStaff()
	item := f.addJewelry(enums.JewelryStateActive)

	auction, err := f.svc.CreateAuction(context.Background(), validCreateInput(staff.ID, item.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auction.State != enums.AuctionStateOpen {
		t.Fatalf("expected open auction, got %s", auction.State)
	}
	if !auction.LastPrice.Equal(auction.FirstPrice) {
		t.Fatal("last price should start at first price")
	}
	if len(f.jewels.states) != 1 || f.jewels.states[0] != enums.JewelryStateAuctioned {
		t.Fatalf("jewelry should be marked auctioned, got %+v", f.jewels.states)
	}
	if len(f.sink.events) != 1 || f.sink.events[0].EventType != enums.EventAuctionCreated {
		t.Fatalf("expected auction_created event, got %+v", f.sink.eventTypes())
	}
}

func TestCreateAuctionRequiresStaffRole(t *testing.T) {
	f := newFixture(t)
	member := &models.User{ID: uuid.New(), Role: enums.UserRoleMember, IsActive: true}
	f.users.users[member.ID] = member
	item := f.addJewelry(enums.JewelryStateActive)

	_, err := f.svc.CreateAuction(context.Background(), validCreateInput(member.ID, item.ID))
	if err == nil {
		t.Fatal("expected forbidden")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCreateAuctionRejectsCommittedJewelry(t *testing.T) {
	f := newFixture(t)
	staff := f.addStaff()
	item := f.addJewelry(enums.JewelryStateAuctioned)

	_, err := f.svc.CreateAuction(context.Background(), validCreateInput(staff.ID, item.ID))
	if err == nil {
		t.Fatal("expected conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestCreateAuctionRejectsInvertedDates(t *testing.T) {
	f := newFixture(t)
	staff := f.addStaff()
	item := f.addJewelry(enums.JewelryStateActive)

	input := validCreateInput(staff.ID, item.ID)
	input.EndDate = input.StartDate.Add(-time.Hour)
	_, err := f.svc.CreateAuction(context.Background(), input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestCloseAuctionSettlesWinner(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateAuctioned)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(-time.Minute))
	winner := uuid.New()
	f.settler.txn = &models.Transaction{
		ID:         uuid.New(),
		AuctionID:  auction.ID,
		UserID:     winner,
		Type:       enums.TransactionTypePaymentToWinner,
		State:      enums.TransactionStatePending,
		TotalPrice: decimal.NewFromInt(120),
	}

	result, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: auction.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadyClosed || result.NoWinner {
		t.Fatalf("expected a settled close, got %+v", result)
	}
	if result.Transaction == nil || result.Transaction.UserID != winner {
		t.Fatal("settlement transaction missing from result")
	}
	if result.Auction.State != enums.AuctionStateClosed || result.Auction.SettledAt == nil {
		t.Fatal("auction should be closed with a settlement timestamp")
	}
	if len(f.jewels.states) != 1 || f.jewels.states[0] != enums.JewelryStateSold {
		t.Fatalf("jewelry should be marked sold, got %+v", f.jewels.states)
	}

	types := f.sink.eventTypes()
	if len(types) != 2 || types[0] != enums.EventAuctionClosed || types[1] != enums.EventNotificationRequested {
		t.Fatalf("expected close and notification events, got %+v", types)
	}
}

func TestCloseAuctionNoBids(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateAuctioned)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(-time.Minute))
	f.settler.noWinner = true

	result, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: auction.ID})
	if err != nil {
		t.Fatalf("a close with zero bids must succeed: %v", err)
	}
	if !result.NoWinner || result.Transaction != nil {
		t.Fatalf("expected no-winner close, got %+v", result)
	}
	if len(f.jewels.states) != 1 || f.jewels.states[0] != enums.JewelryStateActive {
		t.Fatalf("jewelry should return to the catalog, got %+v", f.jewels.states)
	}
	types := f.sink.eventTypes()
	if len(types) != 1 || types[0] != enums.EventAuctionClosedNoWinner {
		t.Fatalf("expected no-winner event, got %+v", types)
	}
}

func TestCloseAuctionIdempotent(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateSold)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(-time.Minute))
	auction.State = enums.AuctionStateClosed

	result, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: auction.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AlreadyClosed {
		t.Fatal("expected the idempotent close path")
	}
	if f.settler.calls != 0 {
		t.Fatal("repeat close must not settle again")
	}
	if len(f.sink.events) != 0 {
		t.Fatal("repeat close must not emit events")
	}
}

func TestCloseAuctionBeforeEndDateNeedsOverride(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateAuctioned)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(time.Hour))

	_, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: auction.ID})
	if err == nil {
		t.Fatal("expected state conflict before end date")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}

	f.settler.noWinner = true
	if _, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: auction.ID, Override: true}); err != nil {
		t.Fatalf("override close should succeed: %v", err)
	}
}

func TestDeleteOpenAuctionReleasesJewelry(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateAuctioned)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(time.Hour))

	if err := f.svc.DeleteAuction(context.Background(), auction.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.auctions[auction.ID].State != enums.AuctionStateDeleted {
		t.Fatal("auction should be deleted")
	}
	if len(f.jewels.states) != 1 || f.jewels.states[0] != enums.JewelryStateActive {
		t.Fatalf("jewelry should be released, got %+v", f.jewels.states)
	}
	types := f.sink.eventTypes()
	if len(types) != 1 || types[0] != enums.EventAuctionDeleted {
		t.Fatalf("expected delete event, got %+v", types)
	}
}

func TestDeleteAuctionTwiceFails(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateActive)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(time.Hour))
	auction.State = enums.AuctionStateDeleted

	err := f.svc.DeleteAuction(context.Background(), auction.ID, uuid.New())
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestSetStateRejectsReopening(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateSold)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(-time.Hour))
	auction.State = enums.AuctionStateClosed

	_, err := f.svc.SetState(context.Background(), auction.ID, uuid.New(), enums.AuctionStateOpen)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestSetStateClosedRoutesThroughSettlement(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateAuctioned)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(time.Hour))
	f.settler.noWinner = true

	updated, err := f.svc.SetState(context.Background(), auction.ID, uuid.New(), enums.AuctionStateClosed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != enums.AuctionStateClosed {
		t.Fatalf("expected closed, got %s", updated.State)
	}
	if f.settler.calls != 1 {
		t.Fatal("administrative close must still run settlement")
	}
}

func TestSetStateRejectsClosingClosedAuction(t *testing.T) {
	f := newFixture(t)
	item := f.addJewelry(enums.JewelryStateSold)
	auction := f.addOpenAuction(item.ID, time.Now().UTC().Add(-time.Hour))
	auction.State = enums.AuctionStateClosed

	_, err := f.svc.SetState(context.Background(), auction.ID, uuid.New(), enums.AuctionStateClosed)
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if f.settler.calls != 0 {
		t.Fatal("no settlement expected for an already closed auction")
	}
}

func TestCloseAuctionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CloseAuction(context.Background(), CloseAuctionInput{AuctionID: uuid.New()})
	if err == nil {
		t.Fatal("expected not found")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
