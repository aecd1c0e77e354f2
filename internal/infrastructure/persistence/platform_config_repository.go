package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/infrastructure/auth"
	"github.com/crosslist/backend/internal/infrastructure/persistence/models"
)

// GormPlatformConfigRepository implements PlatformConfigRepository using GORM.
// Credential bundles are sealed with the cipher before they touch the database
// and unsealed on the way out.
type GormPlatformConfigRepository struct {
	db     *gorm.DB
	cipher *auth.CredentialCipher
}

// NewGormPlatformConfigRepository creates a new GormPlatformConfigRepository
func NewGormPlatformConfigRepository(db *gorm.DB, cipher *auth.CredentialCipher) *GormPlatformConfigRepository {
	return &GormPlatformConfigRepository{db: db, cipher: cipher}
}

// Save creates or updates a config, sealing the credentials
func (r *GormPlatformConfigRepository) Save(ctx context.Context, c *listing.PlatformConfig) error {
	model := &models.PlatformConfigModel{}
	model.FromDomain(c)

	if !c.Credentials.Empty() {
		plain, err := json.Marshal(c.Credentials)
		if err != nil {
			return err
		}
		sealed, err := r.cipher.Seal(plain)
		if err != nil {
			return err
		}
		model.CredentialsSealed = sealed
	}

	return r.db.WithContext(ctx).Save(model).Error
}

// FindByPlatform finds the config for a platform
func (r *GormPlatformConfigRepository) FindByPlatform(ctx context.Context, platform listing.Platform) (*listing.PlatformConfig, error) {
	var model models.PlatformConfigModel
	if err := r.db.WithContext(ctx).Where("platform = ?", platform).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindAll finds every stored config
func (r *GormPlatformConfigRepository) FindAll(ctx context.Context) ([]*listing.PlatformConfig, error) {
	var configModels []models.PlatformConfigModel
	if err := r.db.WithContext(ctx).Order("platform ASC").Find(&configModels).Error; err != nil {
		return nil, err
	}

	configs := make([]*listing.PlatformConfig, len(configModels))
	for i := range configModels {
		c, err := r.toDomain(&configModels[i])
		if err != nil {
			return nil, err
		}
		configs[i] = c
	}
	return configs, nil
}

// IncrementUsage atomically adjusts the usage counters for a platform
func (r *GormPlatformConfigRepository) IncrementUsage(ctx context.Context, platform listing.Platform, delta listing.UsageDelta) error {
	updates := map[string]any{}
	if delta.TotalListings != 0 {
		updates["total_listings"] = gorm.Expr("total_listings + ?", delta.TotalListings)
	}
	if delta.ActiveListings != 0 {
		updates["active_listings"] = gorm.Expr("GREATEST(active_listings + ?, 0)", delta.ActiveListings)
	}
	if delta.TotalSales != 0 {
		updates["total_sales"] = gorm.Expr("total_sales + ?", delta.TotalSales)
	}
	if delta.Revenue != "" {
		updates["total_revenue"] = gorm.Expr("total_revenue + ?::numeric", delta.Revenue)
	}
	if delta.Fees != "" {
		updates["total_fees"] = gorm.Expr("total_fees + ?::numeric", delta.Fees)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = gorm.Expr("NOW()")

	result := r.db.WithContext(ctx).
		Model(&models.PlatformConfigModel{}).
		Where("platform = ?", platform).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// toDomain converts a model and unseals its credential bundle
func (r *GormPlatformConfigRepository) toDomain(model *models.PlatformConfigModel) (*listing.PlatformConfig, error) {
	c := model.ToDomain()
	if model.CredentialsSealed == "" {
		return c, nil
	}

	plain, err := r.cipher.Open(model.CredentialsSealed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plain, &c.Credentials); err != nil {
		return nil, err
	}
	return c, nil
}

// Ensure GormPlatformConfigRepository implements PlatformConfigRepository
var _ listing.PlatformConfigRepository = (*GormPlatformConfigRepository)(nil)
