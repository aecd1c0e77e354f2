package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/auth"
	"github.com/crosslist/backend/internal/infrastructure/persistence"
)

// TestPlatformConfigRepository_Integration tests the PlatformConfigRepository
// against a real PostgreSQL database, including credential sealing.
func TestPlatformConfigRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	cipher, err := auth.NewCredentialCipher("integration-test-secret-0123456789abcdef")
	require.NoError(t, err)
	repo := persistence.NewGormPlatformConfigRepository(testDB.DB, cipher)
	ctx := context.Background()

	t.Run("Save and FindByPlatform round-trips credentials", func(t *testing.T) {
		config, err := listing.NewPlatformConfig(listing.PlatformEbay)
		require.NoError(t, err)
		require.NoError(t, config.Connect(listing.Credentials{
			AccessToken:  "ebay-access-token",
			RefreshToken: "ebay-refresh-token",
		}))

		require.NoError(t, repo.Save(ctx, config))

		found, err := repo.FindByPlatform(ctx, listing.PlatformEbay)
		require.NoError(t, err)
		assert.Equal(t, config.ID, found.ID)
		assert.True(t, found.Enabled)
		assert.Equal(t, listing.ConnectionStatusConnected, found.Status)
		assert.Equal(t, "ebay-access-token", found.Credentials.AccessToken)
		assert.Equal(t, "ebay-refresh-token", found.Credentials.RefreshToken)
	})

	t.Run("credentials are sealed at rest", func(t *testing.T) {
		var stored string
		err := testDB.DB.Raw(
			"SELECT credentials FROM platform_configs WHERE platform = ?",
			listing.PlatformEbay,
		).Scan(&stored).Error
		require.NoError(t, err)
		require.NotEmpty(t, stored)
		assert.NotContains(t, stored, "ebay-access-token")
		assert.NotContains(t, stored, "access_token")
	})

	t.Run("Save persists settings and history", func(t *testing.T) {
		config, err := listing.NewPlatformConfig(listing.PlatformCraigslist)
		require.NoError(t, err)
		config.Settings.Craigslist.City = "portland"
		config.Settings.Craigslist.ContactEmail = "seller@example.com"
		require.NoError(t, config.Connect(listing.Credentials{
			Username: "poster",
			Password: "hunter2",
		}))

		require.NoError(t, repo.Save(ctx, config))

		found, err := repo.FindByPlatform(ctx, listing.PlatformCraigslist)
		require.NoError(t, err)
		require.NotNil(t, found.Settings.Craigslist)
		assert.Equal(t, "portland", found.Settings.Craigslist.City)
		require.NotEmpty(t, found.History)
		assert.Equal(t, listing.ConnectionActionConnected, found.History[len(found.History)-1].Action)
	})

	t.Run("FindByPlatform not found", func(t *testing.T) {
		_, err := repo.FindByPlatform(ctx, listing.PlatformDepop)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindAll returns stored configs in platform order", func(t *testing.T) {
		config, err := listing.NewPlatformConfig(listing.PlatformDepop)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, config))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, listing.PlatformCraigslist, all[0].Platform)
		assert.Equal(t, listing.PlatformDepop, all[1].Platform)
		assert.Equal(t, listing.PlatformEbay, all[2].Platform)
	})

	t.Run("IncrementUsage adjusts counters atomically", func(t *testing.T) {
		err := repo.IncrementUsage(ctx, listing.PlatformEbay, listing.UsageDelta{
			TotalListings:  1,
			ActiveListings: 1,
		})
		require.NoError(t, err)

		err = repo.IncrementUsage(ctx, listing.PlatformEbay, listing.UsageDelta{
			ActiveListings: -1,
			TotalSales:     1,
			Revenue:        "42.50",
			Fees:           "4.25",
		})
		require.NoError(t, err)

		found, err := repo.FindByPlatform(ctx, listing.PlatformEbay)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.Usage.TotalListings)
		assert.Equal(t, int64(0), found.Usage.ActiveListings)
		assert.Equal(t, int64(1), found.Usage.TotalSales)
		assert.True(t, found.Usage.TotalRevenue.Equal(decimal.NewFromFloat(42.50)))
		assert.True(t, found.Usage.TotalFees.Equal(decimal.NewFromFloat(4.25)))
	})

	t.Run("IncrementUsage floors active listings at zero", func(t *testing.T) {
		err := repo.IncrementUsage(ctx, listing.PlatformEbay, listing.UsageDelta{
			ActiveListings: -5,
		})
		require.NoError(t, err)

		found, err := repo.FindByPlatform(ctx, listing.PlatformEbay)
		require.NoError(t, err)
		assert.Equal(t, int64(0), found.Usage.ActiveListings)
	})

	t.Run("IncrementUsage for unknown platform", func(t *testing.T) {
		err := repo.IncrementUsage(ctx, listing.PlatformFacebook, listing.UsageDelta{
			TotalListings: 1,
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Save update replaces credentials", func(t *testing.T) {
		found, err := repo.FindByPlatform(ctx, listing.PlatformEbay)
		require.NoError(t, err)

		expiry := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, found.RefreshCredentials(listing.Credentials{
			AccessToken: "rotated-token",
			ExpiresAt:   &expiry,
		}))
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByPlatform(ctx, listing.PlatformEbay)
		require.NoError(t, err)
		assert.Equal(t, "rotated-token", reloaded.Credentials.AccessToken)
		require.NotNil(t, reloaded.Credentials.ExpiresAt)
		assert.True(t, expiry.Equal(reloaded.Credentials.ExpiresAt.UTC()))
	})
}
