package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save creates or updates an entry
func (r *GormSyncLogRepository) Save(ctx context.Context, e *listing.SyncLogEntry) error {
	model := models.SyncLogModelFromDomain(e)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an entry by ID
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.SyncLogEntry, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List finds entries matching the filter, newest first
func (r *GormSyncLogRepository) List(ctx context.Context, filter listing.SyncLogFilter) (*shared.Paginated[*listing.SyncLogEntry], error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Operation != nil && filter.Operation.IsValid() {
		query = query.Where("operation = ?", *filter.Operation)
	}
	if filter.Status != nil && filter.Status.IsValid() {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Trigger != nil && filter.Trigger.IsValid() {
		query = query.Where(`"trigger" = ?`, *filter.Trigger)
	}
	if filter.Since != nil {
		query = query.Where("started_at >= ?", *filter.Since)
	}

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

	var logModels []models.SyncLogModel
	if err := query.
		Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*listing.SyncLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = logModels[i].ToDomain()
	}

	result := shared.NewPaginated(entries, total, page, pageSize)
	return &result, nil
}

// CountByStatus counts entries per aggregate status since a time
func (r *GormSyncLogRepository) CountByStatus(ctx context.Context, since time.Time) (map[listing.AggregateStatus]int64, error) {
	type row struct {
		Status listing.AggregateStatus
		Count  int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.SyncLogModel{}).
		Select("status, COUNT(*) AS count").
		Where("started_at >= ?", since).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[listing.AggregateStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// Ensure GormSyncLogRepository implements SyncLogRepository
var _ listing.SyncLogRepository = (*GormSyncLogRepository)(nil)
