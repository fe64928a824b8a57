package auctions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gavelpoint/auctionhouse-backend/pkg/db/models"
	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

func setupAuctionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	auctions := `
CREATE TABLE IF NOT EXISTS auctions (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  staff_id TEXT NOT NULL,
  jewelry_id TEXT NOT NULL,
  first_price NUMERIC NOT NULL,
  price_step NUMERIC NOT NULL,
  participation_fee NUMERIC NOT NULL DEFAULT 0,
  deposit NUMERIC NOT NULL DEFAULT 0,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  last_price NUMERIC NOT NULL,
  state TEXT NOT NULL DEFAULT 'open',
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(auctions).Error)
	return db
}

func createAuction(t *testing.T, repo Repository, name string, state enums.AuctionState, endDate time.Time) *models.Auction {
	t.Helper()

	auction := &models.Auction{
		ID:         uuid.New(),
		Name:       name,
		StaffID:    uuid.New(),
		JewelryID:  uuid.New(),
		FirstPrice: decimal.NewFromInt(100),
		PriceStep:  decimal.NewFromInt(10),
		LastPrice:  decimal.NewFromInt(100),
		State:      state,
		StartDate:  endDate.Add(-48 * time.Hour),
		EndDate:    endDate,
	}
	created, err := repo.Create(context.Background(), auction)
	require.NoError(t, err)
	return created
}

func TestRepositoryFindActiveByJewelryIgnoresDeleted(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	endDate := time.Now().UTC().Add(time.Hour)
	deleted := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateDeleted, endDate)

	_, err := repo.FindActiveByJewelryID(context.Background(), deleted.JewelryID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	open := createAuction(t, repo, "Cameo Brooch Lot 6", enums.AuctionStateOpen, endDate)
	found, err := repo.FindActiveByJewelryID(context.Background(), open.JewelryID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, found.ID)
}

func TestRepositoryMarkClosedStampsSettledAt(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	auction := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, time.Now().UTC())
	settledAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkClosed(context.Background(), auction.ID, settledAt))

	found, err := repo.FindByID(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStateClosed, found.State)
	require.NotNil(t, found.SettledAt)
	assert.True(t, found.SettledAt.Equal(settledAt))
}

func TestRepositoryListFiltersByStateAndName(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	endDate := time.Now().UTC().Add(time.Hour)
	createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, endDate)
	createAuction(t, repo, "Garnet Choker Lot 6", enums.AuctionStateClosed, endDate)
	createAuction(t, repo, "Cameo Pin Lot 7", enums.AuctionStateDeleted, endDate)

	rows, err := repo.List(context.Background(), listQuery{
		states: []enums.AuctionState{enums.AuctionStateOpen, enums.AuctionStateClosed},
		limit:  10,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	named, err := repo.List(context.Background(), listQuery{
		states:       []enums.AuctionState{enums.AuctionStateOpen, enums.AuctionStateClosed},
		nameContains: "cameo",
		limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "Cameo Brooch Lot 5", named[0].Name)
}

func TestRepositoryListFiltersByCategory(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	jewelries := `
CREATE TABLE IF NOT EXISTS jewelries (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  buy_now_price NUMERIC NOT NULL,
  state TEXT NOT NULL DEFAULT 'approving',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(jewelries).Error)

	endDate := time.Now().UTC().Add(time.Hour)
	ring := createAuction(t, repo, "Emerald Ring Lot 2", enums.AuctionStateOpen, endDate)
	brooch := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, endDate)

	insertJewelry := func(id uuid.UUID, name, category string) {
		item := &models.Jewelry{
			ID:          id,
			Name:        name,
			Category:    category,
			OwnerID:     uuid.New(),
			BuyNowPrice: decimal.NewFromInt(500),
			State:       enums.JewelryStateAuctioned,
		}
		require.NoError(t, db.Create(item).Error)
	}
	insertJewelry(ring.JewelryID, "Emerald Ring", "rings")
	insertJewelry(brooch.JewelryID, "Cameo Brooch", "brooches")

	rows, err := repo.List(context.Background(), listQuery{
		states:   []enums.AuctionState{enums.AuctionStateOpen},
		category: "brooches",
		limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, brooch.ID, rows[0].ID)

	none, err := repo.List(context.Background(), listQuery{
		states:   []enums.AuctionState{enums.AuctionStateOpen},
		category: "necklaces",
		limit:    10,
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepositoryListOpenPastEndDate(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	expired := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, now.Add(-time.Hour))
	createAuction(t, repo, "Garnet Choker Lot 6", enums.AuctionStateOpen, now.Add(time.Hour))
	createAuction(t, repo, "Cameo Pin Lot 7", enums.AuctionStateClosed, now.Add(-2*time.Hour))

	rows, err := repo.ListOpenPastEndDate(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, expired.ID, rows[0].ID)
}

func TestRepositoryUpdateLastPrice(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	auction := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, time.Now().UTC().Add(time.Hour))
	require.NoError(t, repo.UpdateLastPrice(context.Background(), auction.ID, decimal.NewFromInt(130)))

	found, err := repo.FindByID(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.True(t, found.LastPrice.Equal(decimal.NewFromInt(130)))
}

func TestRepositoryListTopByFirstPrice(t *testing.T) {
	db := setupAuctionsTestDB(t)
	repo := NewRepository(db)

	endDate := time.Now().UTC().Add(time.Hour)
	cheap := createAuction(t, repo, "Garnet Choker Lot 6", enums.AuctionStateOpen, endDate)
	mid := createAuction(t, repo, "Cameo Brooch Lot 5", enums.AuctionStateOpen, endDate)
	pricey := createAuction(t, repo, "Sapphire Tiara Lot 9", enums.AuctionStateOpen, endDate)
	closed := createAuction(t, repo, "Emerald Ring Lot 2", enums.AuctionStateClosed, endDate)

	require.NoError(t, db.Model(&models.Auction{}).Where("id = ?", mid.ID).Update("first_price", 250).Error)
	require.NoError(t, db.Model(&models.Auction{}).Where("id = ?", pricey.ID).Update("first_price", 900).Error)
	require.NoError(t, db.Model(&models.Auction{}).Where("id = ?", closed.ID).Update("first_price", 5000).Error)

	rows, err := repo.ListTopByFirstPrice(context.Background(), []enums.AuctionState{enums.AuctionStateOpen}, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pricey.ID, rows[0].ID)
	assert.Equal(t, mid.ID, rows[1].ID)
	assert.NotEqual(t, cheap.ID, rows[1].ID)
}
