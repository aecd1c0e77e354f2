package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/persistence/models"
)

// GormListingRepository implements ListingRepository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// Save creates or updates a listing. A second open listing for the same
// product and platform trips the partial unique index and surfaces as
// ErrDuplicateListing.
func (r *GormListingRepository) Save(ctx context.Context, l *listing.Listing) error {
	model := models.ListingModelFromDomain(l)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return listing.ErrDuplicateListing
		}
		return err
	}
	return nil
}

// FindByID finds a listing by its local ID
func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	var model models.ListingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrListingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformListingID finds a listing by its marketplace identifier
func (r *GormListingRepository) FindByPlatformListingID(ctx context.Context, platform listing.Platform, platformListingID string) (*listing.Listing, error) {
	var model models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND platform_listing_id = ?", platform, platformListingID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrListingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByProductAndPlatform finds the pending or active listing for a
// (product, platform) pair. At most one such row exists.
func (r *GormListingRepository) FindOpenByProductAndPlatform(ctx context.Context, productID uuid.UUID, platform listing.Platform) (*listing.Listing, error) {
	var model models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND platform = ? AND status IN ?",
			productID, platform, []listing.ListingStatus{listing.ListingStatusPending, listing.ListingStatusActive}).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrListingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct finds all listings for a product, any status
func (r *GormListingRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*listing.Listing, error) {
	var listingModels []models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&listingModels).Error; err != nil {
		return nil, err
	}

	listings := make([]*listing.Listing, len(listingModels))
	for i := range listingModels {
		listings[i] = listingModels[i].ToDomain()
	}
	return listings, nil
}

// List finds listings matching the filter with a total count
func (r *GormListingRepository) List(ctx context.Context, filter listing.ListingFilter) (*shared.Paginated[*listing.Listing], error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ListingModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var listingModels []models.ListingModel
	if err := query.
		Order(sortClause(filter.OrderBy, filter.OrderDir, listingSortFields, "created_at")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listingModels).Error; err != nil {
		return nil, err
	}

	listings := make([]*listing.Listing, len(listingModels))
	for i := range listingModels {
		listings[i] = listingModels[i].ToDomain()
	}

	result := shared.NewPaginated(listings, total, page, pageSize)
	return &result, nil
}

// ListActive finds all active listings, for reconciliation sweeps
func (r *GormListingRepository) ListActive(ctx context.Context) ([]*listing.Listing, error) {
	var listingModels []models.ListingModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", listing.ListingStatusActive).
		Order("last_synced_at ASC").
		Find(&listingModels).Error; err != nil {
		return nil, err
	}

	listings := make([]*listing.Listing, len(listingModels))
	for i := range listingModels {
		listings[i] = listingModels[i].ToDomain()
	}
	return listings, nil
}

// StatsByPlatform aggregates listing counts and revenue per platform
func (r *GormListingRepository) StatsByPlatform(ctx context.Context) ([]listing.PlatformStats, error) {
	type row struct {
		Platform       listing.Platform
		TotalListings  int64
		ActiveListings int64
		SoldListings   int64
		TotalRevenue   string
		TotalFees      string
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.ListingModel{}).
		Select(`platform,
			COUNT(*) AS total_listings,
			COUNT(*) FILTER (WHERE status = 'active') AS active_listings,
			COUNT(*) FILTER (WHERE status = 'sold') AS sold_listings,
			COALESCE(SUM(sale_price) FILTER (WHERE status = 'sold'), 0)::text AS total_revenue,
			COALESCE(SUM(
				(fees->>'listing_fee')::numeric +
				(fees->>'final_value_fee')::numeric +
				(fees->>'payment_processing_fee')::numeric +
				(fees->>'shipping_fee')::numeric
			) FILTER (WHERE status = 'sold'), 0)::text AS total_fees`).
		Group("platform").
		Order("platform ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := make([]listing.PlatformStats, len(rows))
	for i, r := range rows {
		stats[i] = listing.PlatformStats{
			Platform:       r.Platform,
			TotalListings:  r.TotalListings,
			ActiveListings: r.ActiveListings,
			SoldListings:   r.SoldListings,
			TotalRevenue:   r.TotalRevenue,
			TotalFees:      r.TotalFees,
		}
	}
	return stats, nil
}

// applyFilter applies filter conditions without pagination or ordering
func (r *GormListingRepository) applyFilter(query *gorm.DB, filter listing.ListingFilter) *gorm.DB {
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Platform != nil && filter.Platform.IsValid() {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Status != nil && filter.Status.IsValid() {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SyncStatus != nil && filter.SyncStatus.IsValid() {
		query = query.Where("sync_status = ?", *filter.SyncStatus)
	}
	if filter.OpenOnly {
		query = query.Where("status IN ?", []listing.ListingStatus{listing.ListingStatusPending, listing.ListingStatusActive})
	}
	if filter.Search != "" {
		pattern := "%" + escapeLikePattern(filter.Search) + "%"
		query = query.Where("title ILIKE ? OR platform_listing_id ILIKE ?", pattern, pattern)
	}
	return query
}

// listingSortFields names the columns listing queries may sort by
var listingSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"title":          true,
	"price":          true,
	"status":         true,
	"listed_at":      true,
	"sold_at":        true,
	"views":          true,
	"last_synced_at": true,
}

// escapeLikePattern escapes special characters in LIKE patterns
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// Ensure GormListingRepository implements ListingRepository
var _ listing.ListingRepository = (*GormListingRepository)(nil)
