package listing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
)

func newReconciler(registry listing.AdapterRegistry) (*ReconciliationService, *MockListingRepository, *MockNotificationRepository, *MockPlatformConfigRepository) {
	listings := new(MockListingRepository)
	notifs := new(MockNotificationRepository)
	configs := new(MockPlatformConfigRepository)
	svc := NewReconciliationService(listings, notifs, registry, configs, nil, zap.NewNop())
	return svc, listings, notifs, configs
}

func emptyNotifPage() *shared.Paginated[*listing.Notification] {
	page := shared.NewPaginated([]*listing.Notification{}, 0, 1, 100)
	return &page
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()

	t.Run("remote sale becomes an approvable notification", func(t *testing.T) {
		ebay := NewMockAdapter(listing.PlatformEbay, listing.FullCapabilities())
		svc, listings, notifs, configs := newReconciler(newFakeRegistry(ebay))
		l := activeListing(t, uuid.New(), listing.PlatformEbay, "EB-1")

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)
		configs.On("FindByPlatform", mock.Anything, listing.PlatformEbay).
			Return(connectedConfig(t, listing.PlatformEbay), nil)
		ebay.On("GetListing", mock.Anything, "EB-1").
			Return(&listing.RemoteListing{PlatformListingID: "EB-1", Status: listing.RemoteStatusSold}, nil)
		listings.On("Save", mock.Anything, l).Return(nil)
		notifs.On("List", mock.Anything, mock.Anything).Return(emptyNotifPage(), nil)
		notifs.On("Save", mock.Anything, mock.MatchedBy(func(n *listing.Notification) bool {
			return n.Approvable() && n.Action.Kind == listing.ThirdPartySold
		})).Return(nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Checked)
		assert.Equal(t, 1, stats.Drifted)
		notifs.AssertExpectations(t)
	})

	t.Run("price drift raises price_changed", func(t *testing.T) {
		ebay := NewMockAdapter(listing.PlatformEbay, listing.FullCapabilities())
		svc, listings, notifs, configs := newReconciler(newFakeRegistry(ebay))
		l := activeListing(t, uuid.New(), listing.PlatformEbay, "EB-1")
		remotePrice := decimal.NewFromFloat(55.00)

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)
		configs.On("FindByPlatform", mock.Anything, listing.PlatformEbay).
			Return(connectedConfig(t, listing.PlatformEbay), nil)
		ebay.On("GetListing", mock.Anything, "EB-1").Return(&listing.RemoteListing{
			PlatformListingID: "EB-1",
			Status:            listing.RemoteStatusActive,
			Price:             &remotePrice,
			Views:             12,
			Watchers:          3,
		}, nil)
		listings.On("Save", mock.Anything, l).Return(nil)
		notifs.On("List", mock.Anything, mock.Anything).Return(emptyNotifPage(), nil)
		notifs.On("Save", mock.Anything, mock.MatchedBy(func(n *listing.Notification) bool {
			return n.Action != nil && n.Action.Kind == listing.ThirdPartyPriceChanged &&
				n.Action.Observed["remote_price"] == "55"
		})).Return(nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Drifted)
		assert.Equal(t, 12, l.Views)
		assert.Equal(t, 3, l.Watchers)
	})

	t.Run("quantity drift raises quantity_changed", func(t *testing.T) {
		ebay := NewMockAdapter(listing.PlatformEbay, listing.FullCapabilities())
		svc, listings, notifs, configs := newReconciler(newFakeRegistry(ebay))
		l := activeListing(t, uuid.New(), listing.PlatformEbay, "EB-1")
		samePrice := l.Price
		remoteQty := 5

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)
		configs.On("FindByPlatform", mock.Anything, listing.PlatformEbay).
			Return(connectedConfig(t, listing.PlatformEbay), nil)
		ebay.On("GetListing", mock.Anything, "EB-1").Return(&listing.RemoteListing{
			PlatformListingID: "EB-1",
			Status:            listing.RemoteStatusActive,
			Price:             &samePrice,
			Quantity:          &remoteQty,
		}, nil)
		listings.On("Save", mock.Anything, l).Return(nil)
		notifs.On("List", mock.Anything, mock.Anything).Return(emptyNotifPage(), nil)
		notifs.On("Save", mock.Anything, mock.MatchedBy(func(n *listing.Notification) bool {
			return n.Action != nil && n.Action.Kind == listing.ThirdPartyQuantityChanged &&
				n.Action.Observed["remote_quantity"] == 5
		})).Return(nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Drifted)
		notifs.AssertExpectations(t)
	})

	t.Run("matching remote state raises nothing", func(t *testing.T) {
		ebay := NewMockAdapter(listing.PlatformEbay, listing.FullCapabilities())
		svc, listings, notifs, configs := newReconciler(newFakeRegistry(ebay))
		l := activeListing(t, uuid.New(), listing.PlatformEbay, "EB-1")
		samePrice := l.Price

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)
		configs.On("FindByPlatform", mock.Anything, listing.PlatformEbay).
			Return(connectedConfig(t, listing.PlatformEbay), nil)
		ebay.On("GetListing", mock.Anything, "EB-1").Return(&listing.RemoteListing{
			PlatformListingID: "EB-1",
			Status:            listing.RemoteStatusActive,
			Price:             &samePrice,
		}, nil)
		listings.On("Save", mock.Anything, l).Return(nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Drifted)
		notifs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("platforms without a read API are skipped", func(t *testing.T) {
		caps := listing.CapabilitySet{listing.CapabilityCreate: true, listing.CapabilityEnd: true}
		craigslist := NewMockAdapter(listing.PlatformCraigslist, caps)
		svc, listings, _, _ := newReconciler(newFakeRegistry(craigslist))
		l := activeListing(t, uuid.New(), listing.PlatformCraigslist, "CL-1")

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Checked)
		assert.Equal(t, 0, stats.Drifted)
		craigslist.AssertNotCalled(t, "GetListing", mock.Anything, mock.Anything)
	})

	t.Run("open pending action suppresses duplicate notifications", func(t *testing.T) {
		ebay := NewMockAdapter(listing.PlatformEbay, listing.FullCapabilities())
		svc, listings, notifs, configs := newReconciler(newFakeRegistry(ebay))
		l := activeListing(t, uuid.New(), listing.PlatformEbay, "EB-1")

		pending, err := listing.NewThirdPartyNotification(listing.PlatformEbay, l.ProductID, l.ID,
			listing.ThirdPartyAction{Kind: listing.ThirdPartySold}, "Sold outside app", "")
		require.NoError(t, err)
		page := shared.NewPaginated([]*listing.Notification{pending}, 1, 1, 100)

		listings.On("ListActive", mock.Anything).Return([]*listing.Listing{l}, nil)
		configs.On("FindByPlatform", mock.Anything, listing.PlatformEbay).
			Return(connectedConfig(t, listing.PlatformEbay), nil)
		ebay.On("GetListing", mock.Anything, "EB-1").
			Return(&listing.RemoteListing{PlatformListingID: "EB-1", Status: listing.RemoteStatusSold}, nil)
		listings.On("Save", mock.Anything, l).Return(nil)
		notifs.On("List", mock.Anything, mock.Anything).Return(&page, nil)

		stats, err := svc.ReconcileAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Drifted)
		notifs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
