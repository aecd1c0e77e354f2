package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/crosslist/backend/internal/domain/catalog"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
)

// MockListingRepository is a mock implementation of ListingRepository
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Save(ctx context.Context, l *listing.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindByPlatformListingID(ctx context.Context, platform listing.Platform, platformListingID string) (*listing.Listing, error) {
	args := m.Called(ctx, platform, platformListingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindOpenByProductAndPlatform(ctx context.Context, productID uuid.UUID, platform listing.Platform) (*listing.Listing, error) {
	args := m.Called(ctx, productID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*listing.Listing, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) List(ctx context.Context, filter listing.ListingFilter) (*shared.Paginated[*listing.Listing], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*listing.Listing]), args.Error(1)
}

func (m *MockListingRepository) ListActive(ctx context.Context) ([]*listing.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) StatsByPlatform(ctx context.Context) ([]listing.PlatformStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]listing.PlatformStats), args.Error(1)
}

var _ listing.ListingRepository = (*MockListingRepository)(nil)

// MockPlatformConfigRepository is a mock implementation of PlatformConfigRepository
type MockPlatformConfigRepository struct {
	mock.Mock
}

func (m *MockPlatformConfigRepository) Save(ctx context.Context, c *listing.PlatformConfig) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) FindByPlatform(ctx context.Context, platform listing.Platform) (*listing.PlatformConfig, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) FindAll(ctx context.Context) ([]*listing.PlatformConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listing.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) IncrementUsage(ctx context.Context, platform listing.Platform, delta listing.UsageDelta) error {
	args := m.Called(ctx, platform, delta)
	return args.Error(0)
}

var _ listing.PlatformConfigRepository = (*MockPlatformConfigRepository)(nil)

// MockSyncLogRepository is a mock implementation of SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Save(ctx context.Context, e *listing.SyncLogEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.SyncLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.SyncLogEntry), args.Error(1)
}

func (m *MockSyncLogRepository) List(ctx context.Context, filter listing.SyncLogFilter) (*shared.Paginated[*listing.SyncLogEntry], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*listing.SyncLogEntry]), args.Error(1)
}

func (m *MockSyncLogRepository) CountByStatus(ctx context.Context, since time.Time) (map[listing.AggregateStatus]int64, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[listing.AggregateStatus]int64), args.Error(1)
}

var _ listing.SyncLogRepository = (*MockSyncLogRepository)(nil)

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *listing.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, filter listing.NotificationFilter) (*shared.Paginated[*listing.Notification], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*listing.Notification]), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ listing.NotificationRepository = (*MockNotificationRepository)(nil)

// MockProductCatalog is a mock implementation of ProductCatalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductCatalog) SetProductStatus(ctx context.Context, id uuid.UUID, status catalog.ProductStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockProductCatalog) DecrementQuantity(ctx context.Context, id uuid.UUID, n int) (int, error) {
	args := m.Called(ctx, id, n)
	return args.Int(0), args.Error(1)
}

var _ catalog.ProductCatalog = (*MockProductCatalog)(nil)

// MockAdapter is a mock implementation of PlatformAdapter
type MockAdapter struct {
	mock.Mock
	platform     listing.Platform
	capabilities listing.CapabilitySet
}

func NewMockAdapter(platform listing.Platform, capabilities listing.CapabilitySet) *MockAdapter {
	return &MockAdapter{platform: platform, capabilities: capabilities}
}

func (m *MockAdapter) Platform() listing.Platform {
	return m.platform
}

func (m *MockAdapter) Capabilities() listing.CapabilitySet {
	return m.capabilities
}

func (m *MockAdapter) CreateListing(ctx context.Context, req listing.ListingRequest) (*listing.CreateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.CreateResult), args.Error(1)
}

func (m *MockAdapter) UpdateListing(ctx context.Context, platformListingID string, upd listing.ListingUpdate) (*listing.UpdateResult, error) {
	args := m.Called(ctx, platformListingID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.UpdateResult), args.Error(1)
}

func (m *MockAdapter) EndListing(ctx context.Context, platformListingID, reason string) (*listing.EndResult, error) {
	args := m.Called(ctx, platformListingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.EndResult), args.Error(1)
}

func (m *MockAdapter) GetListing(ctx context.Context, platformListingID string) (*listing.RemoteListing, error) {
	args := m.Called(ctx, platformListingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.RemoteListing), args.Error(1)
}

var _ listing.PlatformAdapter = (*MockAdapter)(nil)

// fakeRegistry is a map-backed AdapterRegistry for tests
type fakeRegistry struct {
	adapters map[listing.Platform]listing.PlatformAdapter
}

func newFakeRegistry(adapters ...listing.PlatformAdapter) *fakeRegistry {
	r := &fakeRegistry{adapters: make(map[listing.Platform]listing.PlatformAdapter)}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *fakeRegistry) Adapter(platform listing.Platform) (listing.PlatformAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, listing.ErrPlatformUnknown
	}
	return a, nil
}

func (r *fakeRegistry) Adapters() []listing.PlatformAdapter {
	out := make([]listing.PlatformAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

var _ listing.AdapterRegistry = (*fakeRegistry)(nil)

// fakeIdempotencyStore remembers processed keys in memory
type fakeIdempotencyStore struct {
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return f.seen[eventID], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*fakeIdempotencyStore)(nil)
