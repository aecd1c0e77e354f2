package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/persistence"
)

func newTestListing(t *testing.T, productID uuid.UUID, platform listing.Platform) *listing.Listing {
	t.Helper()

	l, err := listing.NewListing(productID, platform, listing.ListingRequest{
		Title:       "Vintage Denim Jacket",
		Description: "Lightly worn, size M",
		Price:       decimal.NewFromFloat(45.00),
		Quantity:    1,
	})
	require.NoError(t, err)
	return l
}

// TestListingRepository_Integration tests the ListingRepository against a real PostgreSQL database
func TestListingRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormListingRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and FindByID", func(t *testing.T) {
		l := newTestListing(t, uuid.New(), listing.PlatformEbay)

		err := repo.Save(ctx, l)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, l.ID, found.ID)
		assert.Equal(t, l.ProductID, found.ProductID)
		assert.Equal(t, listing.PlatformEbay, found.Platform)
		assert.Equal(t, listing.ListingStatusPending, found.Status)
		assert.Equal(t, "Vintage Denim Jacket", found.Title)
		assert.True(t, l.Price.Equal(found.Price))
	})

	t.Run("FindByID not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, listing.ErrListingNotFound)
	})

	t.Run("FindByPlatformListingID", func(t *testing.T) {
		l := newTestListing(t, uuid.New(), listing.PlatformDepop)
		require.NoError(t, l.Activate("DP-77001", "https://depop.com/p/77001", nil))
		require.NoError(t, repo.Save(ctx, l))

		found, err := repo.FindByPlatformListingID(ctx, listing.PlatformDepop, "DP-77001")
		require.NoError(t, err)
		assert.Equal(t, l.ID, found.ID)
		assert.Equal(t, listing.ListingStatusActive, found.Status)
		require.NotNil(t, found.ListedAt)

		// Same identifier on another platform does not match
		_, err = repo.FindByPlatformListingID(ctx, listing.PlatformEbay, "DP-77001")
		assert.ErrorIs(t, err, listing.ErrListingNotFound)
	})

	t.Run("FindOpenByProductAndPlatform", func(t *testing.T) {
		productID := uuid.New()

		// A terminal listing is not an open one
		ended := newTestListing(t, productID, listing.PlatformFacebook)
		require.NoError(t, ended.Activate("FB-100", "", nil))
		require.NoError(t, ended.End("cleanup"))
		require.NoError(t, repo.Save(ctx, ended))

		_, err := repo.FindOpenByProductAndPlatform(ctx, productID, listing.PlatformFacebook)
		assert.ErrorIs(t, err, listing.ErrListingNotFound)

		open := newTestListing(t, productID, listing.PlatformFacebook)
		require.NoError(t, repo.Save(ctx, open))

		found, err := repo.FindOpenByProductAndPlatform(ctx, productID, listing.PlatformFacebook)
		require.NoError(t, err)
		assert.Equal(t, open.ID, found.ID)
	})

	t.Run("second open listing per product and platform is rejected", func(t *testing.T) {
		productID := uuid.New()

		first := newTestListing(t, productID, listing.PlatformEbay)
		require.NoError(t, first.Activate("EB-700", "", nil))
		require.NoError(t, repo.Save(ctx, first))

		second := newTestListing(t, productID, listing.PlatformEbay)
		err := repo.Save(ctx, second)
		assert.ErrorIs(t, err, listing.ErrDuplicateListing)

		// Once the first listing closes, the slot opens up again
		require.NoError(t, first.Delist("cleanup"))
		require.NoError(t, repo.Save(ctx, first))
		assert.NoError(t, repo.Save(ctx, second))
	})

	t.Run("FindByProduct returns every status", func(t *testing.T) {
		productID := uuid.New()

		active := newTestListing(t, productID, listing.PlatformEbay)
		require.NoError(t, active.Activate("EB-200", "", nil))
		require.NoError(t, repo.Save(ctx, active))

		delisted := newTestListing(t, productID, listing.PlatformDepop)
		require.NoError(t, delisted.Activate("DP-200", "", nil))
		require.NoError(t, delisted.Delist("sold elsewhere"))
		require.NoError(t, repo.Save(ctx, delisted))

		all, err := repo.FindByProduct(ctx, productID)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("List with filters and pagination", func(t *testing.T) {
		productID := uuid.New()
		for i := 0; i < 3; i++ {
			l := newTestListing(t, productID, listing.AllPlatforms()[i])
			require.NoError(t, repo.Save(ctx, l))
		}

		status := listing.ListingStatusPending
		page, err := repo.List(ctx, listing.ListingFilter{
			Filter:    shared.Filter{Page: 1, PageSize: 2},
			ProductID: &productID,
			Status:    &status,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.TotalPages)

		platform := listing.PlatformDepop
		page, err = repo.List(ctx, listing.ListingFilter{
			Filter:    shared.Filter{Page: 1, PageSize: 10},
			ProductID: &productID,
			Platform:  &platform,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("List OpenOnly excludes terminal listings", func(t *testing.T) {
		productID := uuid.New()

		open := newTestListing(t, productID, listing.PlatformEbay)
		require.NoError(t, repo.Save(ctx, open))

		sold := newTestListing(t, productID, listing.PlatformDepop)
		require.NoError(t, sold.Activate("DP-300", "", nil))
		require.NoError(t, sold.MarkSold(listing.SaleData{Price: decimal.NewFromFloat(30)}))
		require.NoError(t, repo.Save(ctx, sold))

		page, err := repo.List(ctx, listing.ListingFilter{
			Filter:    shared.Filter{Page: 1, PageSize: 10},
			ProductID: &productID,
			OpenOnly:  true,
		})
		require.NoError(t, err)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, open.ID, page.Items[0].ID)
	})

	t.Run("ListActive", func(t *testing.T) {
		testDB.CleanTables()

		active := newTestListing(t, uuid.New(), listing.PlatformCraigslist)
		require.NoError(t, active.Activate("CL-400", "", nil))
		require.NoError(t, repo.Save(ctx, active))

		pending := newTestListing(t, uuid.New(), listing.PlatformEbay)
		require.NoError(t, repo.Save(ctx, pending))

		listings, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, active.ID, listings[0].ID)
	})

	t.Run("StatsByPlatform aggregates revenue and fees", func(t *testing.T) {
		testDB.CleanTables()

		sold := newTestListing(t, uuid.New(), listing.PlatformEbay)
		require.NoError(t, sold.Activate("EB-500", "", nil))
		require.NoError(t, sold.MarkSold(listing.SaleData{
			Price: decimal.NewFromFloat(80.00),
			Fees: &listing.FeeBreakdown{
				FinalValueFee: decimal.NewFromFloat(8.00),
			},
		}))
		require.NoError(t, repo.Save(ctx, sold))

		active := newTestListing(t, uuid.New(), listing.PlatformEbay)
		require.NoError(t, active.Activate("EB-501", "", nil))
		require.NoError(t, repo.Save(ctx, active))

		stats, err := repo.StatsByPlatform(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, listing.PlatformEbay, stats[0].Platform)
		assert.Equal(t, int64(2), stats[0].TotalListings)
		assert.Equal(t, int64(1), stats[0].ActiveListings)
		assert.Equal(t, int64(1), stats[0].SoldListings)

		revenue, err := decimal.NewFromString(stats[0].TotalRevenue)
		require.NoError(t, err)
		assert.True(t, revenue.Equal(decimal.NewFromFloat(80.00)), "revenue %s", stats[0].TotalRevenue)

		fees, err := decimal.NewFromString(stats[0].TotalFees)
		require.NoError(t, err)
		assert.True(t, fees.Equal(decimal.NewFromFloat(8.00)), "fees %s", stats[0].TotalFees)
	})

	t.Run("Save persists sale details", func(t *testing.T) {
		l := newTestListing(t, uuid.New(), listing.PlatformFacebook)
		require.NoError(t, l.Activate("FB-600", "", nil))
		require.NoError(t, l.MarkSold(listing.SaleData{
			Price: decimal.NewFromFloat(25.50),
			Buyer: &listing.BuyerInfo{Username: "thriftfan22"},
		}))
		require.NoError(t, repo.Save(ctx, l))

		found, err := repo.FindByID(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, listing.ListingStatusSold, found.Status)
		require.NotNil(t, found.SalePrice)
		assert.True(t, found.SalePrice.Equal(decimal.NewFromFloat(25.50)))
		require.NotNil(t, found.Buyer)
		assert.Equal(t, "thriftfan22", found.Buyer.Username)
		require.NotNil(t, found.SoldAt)
	})
}
