package listing

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
)

// PlatformConfigService manages marketplace connections: credentials,
// per-platform defaults, and the connection audit trail.
type PlatformConfigService struct {
	configRepo listing.PlatformConfigRepository
	eventBus   shared.EventBus
	logger     *zap.Logger
}

// NewPlatformConfigService creates a new PlatformConfigService
func NewPlatformConfigService(
	configRepo listing.PlatformConfigRepository,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *PlatformConfigService {
	return &PlatformConfigService{
		configRepo: configRepo,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Connect stores credentials for a platform, creating the config on first use
func (s *PlatformConfigService) Connect(ctx context.Context, platform listing.Platform, creds listing.Credentials) (*listing.PlatformConfig, error) {
	config, err := s.getOrCreate(ctx, platform)
	if err != nil {
		return nil, err
	}

	if err := config.Connect(creds); err != nil {
		return nil, err
	}
	if err := s.configRepo.Save(ctx, config); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, listing.NewPlatformConnectedEvent(config)); err != nil {
			s.logger.Warn("Failed to publish platform connected event", zap.Error(err))
		}
	}

	s.logger.Info("Platform connected", zap.String("platform", platform.String()))
	return config, nil
}

// Disconnect drops credentials and disables a platform
func (s *PlatformConfigService) Disconnect(ctx context.Context, platform listing.Platform, reason string) error {
	config, err := s.configRepo.FindByPlatform(ctx, platform)
	if err != nil {
		return err
	}

	config.Disconnect(reason)
	if err := s.configRepo.Save(ctx, config); err != nil {
		return err
	}

	s.logger.Info("Platform disconnected",
		zap.String("platform", platform.String()),
		zap.String("reason", reason),
	)
	return nil
}

// RefreshCredentials replaces the credential bundle without touching settings
func (s *PlatformConfigService) RefreshCredentials(ctx context.Context, platform listing.Platform, creds listing.Credentials) (*listing.PlatformConfig, error) {
	config, err := s.configRepo.FindByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}

	if err := config.RefreshCredentials(creds); err != nil {
		return nil, err
	}
	if err := s.configRepo.Save(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// UpdateSettings replaces the per-platform settings union and defaults
func (s *PlatformConfigService) UpdateSettings(ctx context.Context, platform listing.Platform, settings *listing.PlatformSettings, defaults *listing.ListingDefaults) (*listing.PlatformConfig, error) {
	config, err := s.getOrCreate(ctx, platform)
	if err != nil {
		return nil, err
	}

	if settings != nil {
		config.Settings = *settings
		if err := config.ValidateSettings(); err != nil {
			return nil, err
		}
	}
	if defaults != nil {
		config.Defaults = *defaults
	}

	if err := s.configRepo.Save(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// GetConfig returns the config for one platform
func (s *PlatformConfigService) GetConfig(ctx context.Context, platform listing.Platform) (*listing.PlatformConfig, error) {
	if !platform.IsValid() {
		return nil, listing.ErrPlatformUnknown
	}
	return s.configRepo.FindByPlatform(ctx, platform)
}

// ListConfigs returns the config for every platform, creating missing ones
// on the fly so the caller always sees the full platform set
func (s *PlatformConfigService) ListConfigs(ctx context.Context) ([]*listing.PlatformConfig, error) {
	stored, err := s.configRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	byPlatform := make(map[listing.Platform]*listing.PlatformConfig, len(stored))
	for _, c := range stored {
		byPlatform[c.Platform] = c
	}

	out := make([]*listing.PlatformConfig, 0, len(listing.AllPlatforms()))
	for _, p := range listing.AllPlatforms() {
		if c, ok := byPlatform[p]; ok {
			out = append(out, c)
			continue
		}
		c, err := listing.NewPlatformConfig(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// GetConnectionHistory returns the connection audit trail for a platform
func (s *PlatformConfigService) GetConnectionHistory(ctx context.Context, platform listing.Platform) ([]listing.ConnectionEvent, error) {
	config, err := s.configRepo.FindByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}
	return config.History, nil
}

func (s *PlatformConfigService) getOrCreate(ctx context.Context, platform listing.Platform) (*listing.PlatformConfig, error) {
	if !platform.IsValid() {
		return nil, listing.ErrPlatformUnknown
	}

	config, err := s.configRepo.FindByPlatform(ctx, platform)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return listing.NewPlatformConfig(platform)
}
