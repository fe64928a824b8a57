package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubLedger struct {
	auction *models.Auction
	rows    []models.AuctionRegistration
}

func (s *stubLedger) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLedger) Create(ctx context.Context, reg *models.AuctionRegistration) (*models.AuctionRegistration, error) {
	reg.ID = uuid.New()
	s.rows = append(s.rows, *reg)
	return reg, nil
}

func (s *stubLedger) FindAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	if s.auction == nil || s.auction.ID != auctionID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.auction
	return &copied, nil
}

func (s *stubLedger) FindValidRegistration(ctx context.Context, auctionID, userID uuid.UUID) (*models.AuctionRegistration, error) {
	for i := range s.rows {
		row := s.rows[i]
		if row.AuctionID == auctionID && row.UserID == userID && row.State == enums.RegistrationStateValid {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLedger) CountValidParticipants(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if row.AuctionID == auctionID && row.State == enums.RegistrationStateValid {
			count++
		}
	}
	return count, nil
}

func (s *stubLedger) SumRegistrationFees(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range s.rows {
		if row.State == enums.RegistrationStateValid {
			total = total.Add(row.RegistrationFee)
		}
	}
	return total, nil
}

func (s *stubLedger) CountDistinctUsersRegisteredInPeriod(ctx context.Context, month time.Month, year int) (int64, error) {
	seen := map[uuid.UUID]bool{}
	for _, row := range s.rows {
		if row.RegistrationDate.Month() == month && row.RegistrationDate.Year() == year {
			seen[row.UserID] = true
		}
	}
	return int64(len(seen)), nil
}

func (s *stubLedger) ListByUser(ctx context.Context, opts UserListQuery) ([]RegistrationWithAuction, error) {
	return nil, nil
}

func (s *stubLedger) ListValidByAuction(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.AuctionRegistration, error) {
	return s.rows, nil
}

func activeMember() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "opal-collector",
		Role:     enums.UserRoleMember,
		IsActive: true,
	}
}

func openAuction(fee decimal.Decimal) *models.Auction {
	now := time.Now().UTC()
	return &models.Auction{
		ID:               uuid.New(),
		Name:             "Vintage Brooch Lot 2",
		State:            enums.AuctionStateOpen,
		ParticipationFee: fee,
		StartDate:        now.Add(-time.Hour),
		EndDate:          now.Add(time.Hour),
	}
}

func newTestService(t *testing.T, ledger *stubLedger, users *stubUsers) (Service, *stubOutbox) {
	t.Helper()
	sink := &stubOutbox{}
	svc, err := NewService(ledger, users, stubTxRunner{}, sink)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sink
}

func TestRegisterChargesParticipationFee(t *testing.T) {
	fee := decimal.NewFromInt(25)
	auction := openAuction(fee)
	member := activeMember()
	ledger := &stubLedger{auction: auction}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member}}
	svc, sink := newTestService(t, ledger, users)

	reg, err := svc.Register(context.Background(), RegisterInput{AuctionID: auction.ID, UserID: member.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reg.RegistrationFee.Equal(fee) {
		t.Fatalf("fee should come from the auction, got %s", reg.RegistrationFee)
	}
	if reg.State != enums.RegistrationStateValid {
		t.Fatalf("expected valid registration, got %s", reg.State)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != enums.EventRegistrationCreated {
		t.Fatalf("expected registration_created event, got %+v", sink.events)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	auction := openAuction(decimal.NewFromInt(25))
	member := activeMember()
	ledger := &stubLedger{auction: auction}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member}}
	svc, sink := newTestService(t, ledger, users)

	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{AuctionID: auction.ID, UserID: member.ID}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{AuctionID: auction.ID, UserID: member.ID})
	if err == nil {
		t.Fatal("second registration must be rejected")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if len(ledger.rows) != 1 || len(sink.events) != 1 {
		t.Fatal("duplicate must not write a second row or event")
	}
}

func TestRegisterRejectsClosedAuction(t *testing.T) {
	auction := openAuction(decimal.NewFromInt(25))
	auction.State = enums.AuctionStateClosed
	member := activeMember()
	ledger := &stubLedger{auction: auction}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member}}
	svc, _ := newTestService(t, ledger, users)

	_, err := svc.Register(context.Background(), RegisterInput{AuctionID: auction.ID, UserID: member.ID})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestRegisterRejectsExpiredWindow(t *testing.T) {
	auction := openAuction(decimal.NewFromInt(25))
	auction.EndDate = time.Now().UTC().Add(-time.Minute)
	member := activeMember()
	ledger := &stubLedger{auction: auction}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member}}
	svc, _ := newTestService(t, ledger, users)

	_, err := svc.Register(context.Background(), RegisterInput{AuctionID: auction.ID, UserID: member.ID})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestRegisterRejectsDeactivatedUser(t *testing.T) {
	auction := openAuction(decimal.NewFromInt(25))
	member := activeMember()
	member.IsActive = false
	ledger := &stubLedger{auction: auction}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member}}
	svc, _ := newTestService(t, ledger, users)

	_, err := svc.Register(context.Background(), RegisterInput{AuctionID: auction.ID, UserID: member.ID})
	if err == nil {
		t.Fatal("expected forbidden")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCountDistinctUsersValidatesPeriod(t *testing.T) {
	ledger := &stubLedger{}
	users := &stubUsers{users: map[uuid.UUID]*models.User{}}
	svc, _ := newTestService(t, ledger, users)

	if _, err := svc.CountDistinctUsersRegisteredInPeriod(context.Background(), time.Month(13), 2026); err == nil {
		t.Fatal("expected invalid month to be rejected")
	}
	if _, err := svc.CountDistinctUsersRegisteredInPeriod(context.Background(), time.March, 1970); err == nil {
		t.Fatal("expected invalid year to be rejected")
	}
}
