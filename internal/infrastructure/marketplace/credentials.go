package marketplace

import (
	"context"
	"errors"
	"sync"

	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
)

// CredentialSource provides marketplace credentials for adapter calls.
// Adapters resolve credentials per request so that reconnects and token
// refreshes take effect without restarting the process.
type CredentialSource interface {
	// Credentials returns the current credentials for the platform.
	// Returns listing.ErrPlatformNotProvisioned when the platform has
	// never been connected and listing.ErrCredentialsExpired when the
	// stored credentials are past their expiry.
	Credentials(ctx context.Context, platform listing.Platform) (listing.Credentials, error)
}

// RepositoryCredentialSource reads credentials from the platform
// configuration store.
type RepositoryCredentialSource struct {
	configs listing.PlatformConfigRepository
}

// NewRepositoryCredentialSource creates a credential source backed by the
// platform configuration repository.
func NewRepositoryCredentialSource(configs listing.PlatformConfigRepository) *RepositoryCredentialSource {
	return &RepositoryCredentialSource{configs: configs}
}

// Credentials implements CredentialSource.
func (s *RepositoryCredentialSource) Credentials(ctx context.Context, platform listing.Platform) (listing.Credentials, error) {
	config, err := s.configs.FindByPlatform(ctx, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return listing.Credentials{}, listing.ErrPlatformNotProvisioned
		}
		return listing.Credentials{}, err
	}
	if !config.Enabled || config.Credentials.Empty() {
		return listing.Credentials{}, listing.ErrPlatformNotProvisioned
	}
	if config.Credentials.Expired() {
		return listing.Credentials{}, listing.ErrCredentialsExpired
	}
	return config.Credentials, nil
}

// StaticCredentialSource serves fixed credentials from memory. Useful for
// tests and single-account command line tooling.
type StaticCredentialSource struct {
	mu    sync.RWMutex
	creds map[listing.Platform]listing.Credentials
}

// NewStaticCredentialSource creates an in-memory credential source.
func NewStaticCredentialSource() *StaticCredentialSource {
	return &StaticCredentialSource{creds: make(map[listing.Platform]listing.Credentials)}
}

// Set stores credentials for a platform.
func (s *StaticCredentialSource) Set(platform listing.Platform, creds listing.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[platform] = creds
}

// Credentials implements CredentialSource.
func (s *StaticCredentialSource) Credentials(_ context.Context, platform listing.Platform) (listing.Credentials, error) {
	s.mu.RLock()
	creds, ok := s.creds[platform]
	s.mu.RUnlock()
	if !ok || creds.Empty() {
		return listing.Credentials{}, listing.ErrPlatformNotProvisioned
	}
	if creds.Expired() {
		return listing.Credentials{}, listing.ErrCredentialsExpired
	}
	return creds, nil
}

var (
	_ CredentialSource = (*RepositoryCredentialSource)(nil)
	_ CredentialSource = (*StaticCredentialSource)(nil)
)
