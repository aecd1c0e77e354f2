package listing

import "errors"

// ---------------------------------------------------------------------------
// Listing domain errors
// ---------------------------------------------------------------------------

var (
	// Platform readiness errors
	ErrPlatformUnknown        = errors.New("listing: unknown platform")
	ErrPlatformUnavailable    = errors.New("listing: platform not active or not connected")
	ErrPlatformNotProvisioned = errors.New("listing: platform config not provisioned")
	ErrCredentialsExpired     = errors.New("listing: platform credentials expired")

	// Listing lifecycle errors
	ErrListingNotFound   = errors.New("listing: listing not found")
	ErrDuplicateListing  = errors.New("listing: active listing already exists for product on platform")
	ErrListingNotActive  = errors.New("listing: listing is not active")
	ErrInvalidTransition = errors.New("listing: invalid status transition")

	// Adapter errors
	ErrUnsupportedOperation = errors.New("listing: operation not supported by platform")

	// Sync ledger errors
	ErrSyncLogNotFound      = errors.New("listing: sync log entry not found")
	ErrSyncLogAlreadyFinal  = errors.New("listing: sync log entry already completed")
	ErrSyncLogUnknownResult = errors.New("listing: no sub-result recorded for platform")

	// Notification errors
	ErrNotificationNotFound = errors.New("listing: notification not found")
	ErrNotApprovable        = errors.New("listing: notification does not require approval")
)

// ---------------------------------------------------------------------------
// Platform enum
// ---------------------------------------------------------------------------

// Platform identifies one of the supported external marketplaces. The set is
// closed: adapters are resolved from a static registry built at startup, never
// loaded dynamically by name.
type Platform string

const (
	// PlatformEbay represents the eBay marketplace
	PlatformEbay Platform = "ebay"
	// PlatformFacebook represents Facebook Marketplace
	PlatformFacebook Platform = "facebook"
	// PlatformDepop represents the Depop marketplace
	PlatformDepop Platform = "depop"
	// PlatformCraigslist represents Craigslist classifieds
	PlatformCraigslist Platform = "craigslist"
)

// AllPlatforms returns every supported platform in stable order
func AllPlatforms() []Platform {
	return []Platform{PlatformEbay, PlatformFacebook, PlatformDepop, PlatformCraigslist}
}

// IsValid returns true if the platform is a known value
func (p Platform) IsValid() bool {
	switch p {
	case PlatformEbay, PlatformFacebook, PlatformDepop, PlatformCraigslist:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the platform
func (p Platform) DisplayName() string {
	switch p {
	case PlatformEbay:
		return "eBay"
	case PlatformFacebook:
		return "Facebook Marketplace"
	case PlatformDepop:
		return "Depop"
	case PlatformCraigslist:
		return "Craigslist"
	default:
		return string(p)
	}
}

// ---------------------------------------------------------------------------
// Adapter capabilities
// ---------------------------------------------------------------------------

// Capability names one operation a platform adapter may support
type Capability string

const (
	// CapabilityCreate is the ability to create a listing remotely
	CapabilityCreate Capability = "create"
	// CapabilityUpdate is the ability to partially update a live listing
	CapabilityUpdate Capability = "update"
	// CapabilityEnd is the ability to end a live listing
	CapabilityEnd Capability = "end"
	// CapabilityGet is the ability to read a listing's remote state
	CapabilityGet Capability = "get"
)

// CapabilitySet declares, out of band, which operations an adapter supports.
// The engine consults it before invoking the adapter so that a missing
// capability surfaces as ErrUnsupportedOperation instead of a fabricated
// success.
type CapabilitySet map[Capability]bool

// Supports returns true if the capability is declared
func (s CapabilitySet) Supports(c Capability) bool {
	return s[c]
}

// FullCapabilities returns a set with every capability enabled
func FullCapabilities() CapabilitySet {
	return CapabilitySet{
		CapabilityCreate: true,
		CapabilityUpdate: true,
		CapabilityEnd:    true,
		CapabilityGet:    true,
	}
}
