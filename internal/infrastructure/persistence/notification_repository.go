package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/persistence/models"
)

// GormNotificationRepository implements NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *listing.Notification) error {
	model := models.NotificationModelFromDomain(n)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Notification, error) {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listing.ErrNotificationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List finds notifications matching the filter, urgent and newest first
func (r *GormNotificationRepository) List(ctx context.Context, filter listing.NotificationFilter) (*shared.Paginated[*listing.Notification], error) {
	query := r.db.WithContext(ctx).Model(&models.NotificationModel{})

	if filter.Type != nil && filter.Type.IsValid() {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Platform != nil && filter.Platform.IsValid() {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
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

	var notifModels []models.NotificationModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifModels).Error; err != nil {
		return nil, err
	}

	notifications := make([]*listing.Notification, len(notifModels))
	for i := range notifModels {
		notifications[i] = notifModels[i].ToDomain()
	}

	result := shared.NewPaginated(notifications, total, page, pageSize)
	return &result, nil
}

// CountUnread counts unread, unarchived notifications
func (r *GormNotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("read = ? AND archived = ?", false, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAllRead stamps every unread notification read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("read = ?", false).
		Updates(map[string]any{
			"read":       true,
			"read_at":    gorm.Expr("NOW()"),
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

// DeleteExpired removes aged-out notifications and reports how many
func (r *GormNotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < NOW()").
		Delete(&models.NotificationModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormNotificationRepository implements NotificationRepository
var _ listing.NotificationRepository = (*GormNotificationRepository)(nil)
