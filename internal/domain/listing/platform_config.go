package listing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Connection status
// ---------------------------------------------------------------------------

// ConnectionStatus represents the health of a platform connection
type ConnectionStatus string

const (
	// ConnectionStatusConnected indicates credentials are present and working
	ConnectionStatusConnected ConnectionStatus = "connected"
	// ConnectionStatusDisconnected indicates the platform has been unlinked
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	// ConnectionStatusExpired indicates the stored credentials have lapsed
	ConnectionStatusExpired ConnectionStatus = "expired"
	// ConnectionStatusError indicates repeated adapter failures tripped the connection
	ConnectionStatusError ConnectionStatus = "error"
)

// IsValid returns true if the status is a known value
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusConnected, ConnectionStatusDisconnected,
		ConnectionStatusExpired, ConnectionStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is the secret bundle for one platform account. The persistence
// layer seals the bundle at rest; domain code only ever sees it open.
type Credentials struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	APIKey       string     `json:"api_key,omitempty"`
	APISecret    string     `json:"api_secret,omitempty"`
	Username     string     `json:"username,omitempty"`
	Password     string     `json:"password,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the bundle has a lapsed expiry
func (c Credentials) Expired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// Empty reports whether no secret material is present at all
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.APIKey == "" &&
		c.APISecret == "" && c.Username == "" && c.Password == ""
}

// ---------------------------------------------------------------------------
// Platform settings
// ---------------------------------------------------------------------------

// PlatformSettings is the tagged union of per-platform listing options. For
// any config exactly the member matching its Platform is set; the rest are
// nil.
type PlatformSettings struct {
	EBay       *EBaySettings       `json:"ebay,omitempty"`
	Facebook   *FacebookSettings   `json:"facebook,omitempty"`
	Depop      *DepopSettings      `json:"depop,omitempty"`
	Craigslist *CraigslistSettings `json:"craigslist,omitempty"`
}

// EBaySettings are eBay-specific listing options
type EBaySettings struct {
	ListingFormat   string `json:"listing_format"`
	ListingDuration string `json:"listing_duration"`
	PayPalEmail     string `json:"paypal_email,omitempty"`
	ReturnPolicy    string `json:"return_policy,omitempty"`
	ShippingService string `json:"shipping_service,omitempty"`
}

// FacebookSettings are Facebook Marketplace specific listing options
type FacebookSettings struct {
	Location       string `json:"location,omitempty"`
	DeliveryMethod string `json:"delivery_method"`
	Availability   string `json:"availability"`
}

// DepopSettings are Depop-specific listing options
type DepopSettings struct {
	Style        []string `json:"style,omitempty"`
	Source       string   `json:"source,omitempty"`
	Age          string   `json:"age,omitempty"`
	ShippingType string   `json:"shipping_type"`
}

// CraigslistSettings are Craigslist-specific listing options
type CraigslistSettings struct {
	City            string `json:"city"`
	Area            string `json:"area,omitempty"`
	ContactEmail    string `json:"contact_email,omitempty"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	PostingCategory string `json:"posting_category,omitempty"`
}

// forPlatform reports whether the union member matching p is populated
func (s PlatformSettings) forPlatform(p Platform) bool {
	switch p {
	case PlatformEbay:
		return s.EBay != nil
	case PlatformFacebook:
		return s.Facebook != nil
	case PlatformDepop:
		return s.Depop != nil
	case PlatformCraigslist:
		return s.Craigslist != nil
	default:
		return false
	}
}

// DefaultSettingsFor returns the default settings union for a platform
func DefaultSettingsFor(p Platform) PlatformSettings {
	switch p {
	case PlatformEbay:
		return PlatformSettings{EBay: &EBaySettings{
			ListingFormat:   "fixed_price",
			ListingDuration: "GTC",
		}}
	case PlatformFacebook:
		return PlatformSettings{Facebook: &FacebookSettings{
			DeliveryMethod: "shipping",
			Availability:   "in_stock",
		}}
	case PlatformDepop:
		return PlatformSettings{Depop: &DepopSettings{
			ShippingType: "own_shipping",
		}}
	case PlatformCraigslist:
		return PlatformSettings{Craigslist: &CraigslistSettings{
			City: "sfbay",
		}}
	default:
		return PlatformSettings{}
	}
}

// ---------------------------------------------------------------------------
// Listing defaults, fees, limits
// ---------------------------------------------------------------------------

// ListingDefaults shape the payload the engine prepares for this platform
type ListingDefaults struct {
	// AutoList controls whether new catalog products are listed here automatically
	AutoList bool `json:"auto_list"`
	// MarkupPercent is applied to the product price before clamping
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	// MinPrice and MaxPrice clamp the marked-up price when positive
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
	// DefaultShippingCost is used when a product carries no shipping cost
	DefaultShippingCost decimal.Decimal `json:"default_shipping_cost"`
	// HandlingDays is the promised handling time
	HandlingDays int `json:"handling_days"`
}

// DefaultListingDefaults returns the default payload shaping options
func DefaultListingDefaults() ListingDefaults {
	return ListingDefaults{
		AutoList:     false,
		HandlingDays: 3,
	}
}

// AdjustPrice applies the markup and clamps to the configured bounds
func (d ListingDefaults) AdjustPrice(base decimal.Decimal) decimal.Decimal {
	price := base
	if !d.MarkupPercent.IsZero() {
		factor := decimal.NewFromInt(1).Add(d.MarkupPercent.Div(decimal.NewFromInt(100)))
		price = price.Mul(factor).Round(2)
	}
	if d.MinPrice.IsPositive() && price.LessThan(d.MinPrice) {
		price = d.MinPrice
	}
	if d.MaxPrice.IsPositive() && price.GreaterThan(d.MaxPrice) {
		price = d.MaxPrice
	}
	return price
}

// FeeSchedule describes how a platform charges for listings and sales
type FeeSchedule struct {
	// ListingFee is the flat fee per listing
	ListingFee decimal.Decimal `json:"listing_fee"`
	// FinalValuePercent is the percentage of the sale price taken on sale
	FinalValuePercent decimal.Decimal `json:"final_value_percent"`
	// PaymentPercent and PaymentFixed make up the payment processing fee
	PaymentPercent decimal.Decimal `json:"payment_percent"`
	PaymentFixed   decimal.Decimal `json:"payment_fixed"`
}

// DefaultFeeScheduleFor returns the published fee schedule for a platform
func DefaultFeeScheduleFor(p Platform) FeeSchedule {
	switch p {
	case PlatformEbay:
		return FeeSchedule{
			FinalValuePercent: decimal.NewFromFloat(13.25),
			PaymentPercent:    decimal.NewFromFloat(2.9),
			PaymentFixed:      decimal.NewFromFloat(0.30),
		}
	case PlatformFacebook:
		return FeeSchedule{
			FinalValuePercent: decimal.NewFromFloat(5),
		}
	case PlatformDepop:
		return FeeSchedule{
			FinalValuePercent: decimal.NewFromFloat(10),
			PaymentPercent:    decimal.NewFromFloat(3.3),
			PaymentFixed:      decimal.NewFromFloat(0.45),
		}
	case PlatformCraigslist:
		return FeeSchedule{}
	default:
		return FeeSchedule{}
	}
}

// Compute derives the fee breakdown for a sale at the given price
func (f FeeSchedule) Compute(salePrice decimal.Decimal) FeeBreakdown {
	hundred := decimal.NewFromInt(100)
	return FeeBreakdown{
		ListingFee:           f.ListingFee,
		FinalValueFee:        salePrice.Mul(f.FinalValuePercent).Div(hundred).Round(2),
		PaymentProcessingFee: salePrice.Mul(f.PaymentPercent).Div(hundred).Round(2).Add(f.PaymentFixed),
	}
}

// RateLimits caps how fast the engine may call a platform
type RateLimits struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	ListingsPerDay    int `json:"listings_per_day"`
}

// DefaultRateLimitsFor returns conservative per-platform rate limits
func DefaultRateLimitsFor(p Platform) RateLimits {
	switch p {
	case PlatformEbay:
		return RateLimits{RequestsPerMinute: 60, ListingsPerDay: 250}
	case PlatformFacebook:
		return RateLimits{RequestsPerMinute: 30, ListingsPerDay: 150}
	case PlatformDepop:
		return RateLimits{RequestsPerMinute: 30, ListingsPerDay: 100}
	case PlatformCraigslist:
		return RateLimits{RequestsPerMinute: 5, ListingsPerDay: 20}
	default:
		return RateLimits{RequestsPerMinute: 10, ListingsPerDay: 50}
	}
}

// Usage counts platform activity since the config was created
type Usage struct {
	TotalListings  int64           `json:"total_listings"`
	ActiveListings int64           `json:"active_listings"`
	TotalSales     int64           `json:"total_sales"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalFees      decimal.Decimal `json:"total_fees"`
}

// ConnectionEvent is one entry of the connection audit trail
type ConnectionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

// Connection event actions
const (
	ConnectionActionConnected    = "connected"
	ConnectionActionDisconnected = "disconnected"
	ConnectionActionRefreshed    = "refreshed"
	ConnectionActionErrored      = "errored"
)

// ---------------------------------------------------------------------------
// PlatformConfig entity
// ---------------------------------------------------------------------------

// consecutiveErrorTrip is how many back-to-back adapter failures flip a
// connection into error state.
const consecutiveErrorTrip = 3

// PlatformConfig is the account-level record for one marketplace: connection
// state, credentials, listing defaults and usage counters. At most one config
// exists per platform.
type PlatformConfig struct {
	shared.BaseEntity

	// Platform identifies the marketplace
	Platform Platform
	// Enabled gates all engine activity on this platform
	Enabled bool
	// Status is the connection health
	Status ConnectionStatus

	// Credentials is the secret bundle, sealed at rest
	Credentials Credentials
	// Settings is the per-platform options union
	Settings PlatformSettings
	// Defaults shape prepared listing payloads
	Defaults ListingDefaults
	// Fees is the platform's fee schedule
	Fees FeeSchedule
	// Limits caps outbound call rates
	Limits RateLimits

	// Usage accumulates activity counters
	Usage Usage
	// ConsecutiveErrors counts back-to-back adapter failures
	ConsecutiveErrors int
	// LastError is the most recent adapter failure message
	LastError string
	// LastUsedAt is when the engine last called this platform
	LastUsedAt *time.Time

	// History is the connection audit trail, oldest first
	History []ConnectionEvent
}

// NewPlatformConfig creates a disconnected config with platform defaults
func NewPlatformConfig(platform Platform) (*PlatformConfig, error) {
	if !platform.IsValid() {
		return nil, ErrPlatformUnknown
	}
	return &PlatformConfig{
		BaseEntity: shared.NewBaseEntity(),
		Platform:   platform,
		Enabled:    false,
		Status:     ConnectionStatusDisconnected,
		Settings:   DefaultSettingsFor(platform),
		Defaults:   DefaultListingDefaults(),
		Fees:       DefaultFeeScheduleFor(platform),
		Limits:     DefaultRateLimitsFor(platform),
		History:    make([]ConnectionEvent, 0),
	}, nil
}

// Connect stores fresh credentials and marks the platform connected
func (c *PlatformConfig) Connect(creds Credentials) error {
	if creds.Empty() {
		return shared.NewDomainError("INVALID_INPUT", "credentials are required")
	}
	if creds.Expired() {
		return ErrCredentialsExpired
	}
	c.Credentials = creds
	c.Enabled = true
	c.Status = ConnectionStatusConnected
	c.ConsecutiveErrors = 0
	c.LastError = ""
	c.appendHistory(ConnectionActionConnected, "")
	c.UpdatedAt = time.Now()
	return nil
}

// Disconnect drops the credentials and disables the platform. Existing
// listings stay in place; the engine just stops touching them.
func (c *PlatformConfig) Disconnect(reason string) {
	c.Credentials = Credentials{}
	c.Enabled = false
	c.Status = ConnectionStatusDisconnected
	c.appendHistory(ConnectionActionDisconnected, reason)
	c.UpdatedAt = time.Now()
}

// RefreshCredentials replaces the secret bundle without resetting settings
func (c *PlatformConfig) RefreshCredentials(creds Credentials) error {
	if creds.Empty() {
		return shared.NewDomainError("INVALID_INPUT", "credentials are required")
	}
	c.Credentials = creds
	if c.Status == ConnectionStatusExpired || c.Status == ConnectionStatusError {
		c.Status = ConnectionStatusConnected
		c.ConsecutiveErrors = 0
		c.LastError = ""
	}
	c.appendHistory(ConnectionActionRefreshed, "")
	c.UpdatedAt = time.Now()
	return nil
}

// RecordError notes an adapter failure; enough in a row trip the connection
func (c *PlatformConfig) RecordError(message string) {
	c.ConsecutiveErrors++
	c.LastError = message
	if c.ConsecutiveErrors >= consecutiveErrorTrip && c.Status == ConnectionStatusConnected {
		c.Status = ConnectionStatusError
		c.appendHistory(ConnectionActionErrored,
			fmt.Sprintf("tripped after %d consecutive failures: %s", c.ConsecutiveErrors, message))
	}
	c.UpdatedAt = time.Now()
}

// ResetErrors clears the failure streak after a successful call
func (c *PlatformConfig) ResetErrors() {
	c.ConsecutiveErrors = 0
	c.LastError = ""
	if c.Status == ConnectionStatusError {
		c.Status = ConnectionStatusConnected
	}
	now := time.Now()
	c.LastUsedAt = &now
	c.UpdatedAt = now
}

// IsReady reports whether the engine may dispatch calls to this platform
func (c *PlatformConfig) IsReady() error {
	if !c.Enabled {
		return ErrPlatformNotProvisioned
	}
	if c.Credentials.Expired() {
		return ErrCredentialsExpired
	}
	switch c.Status {
	case ConnectionStatusConnected:
		return nil
	case ConnectionStatusExpired:
		return ErrCredentialsExpired
	default:
		return ErrPlatformUnavailable
	}
}

// ComputeFees derives the fee breakdown for a sale on this platform
func (c *PlatformConfig) ComputeFees(salePrice decimal.Decimal) FeeBreakdown {
	return c.Fees.Compute(salePrice)
}

// ValidateSettings checks that the settings union matches the platform
func (c *PlatformConfig) ValidateSettings() error {
	if !c.Settings.forPlatform(c.Platform) {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("settings do not match platform %s", c.Platform))
	}
	return nil
}

const maxConnectionHistory = 50

func (c *PlatformConfig) appendHistory(action, detail string) {
	c.History = append(c.History, ConnectionEvent{
		Timestamp: time.Now(),
		Action:    action,
		Detail:    detail,
	})
	if len(c.History) > maxConnectionHistory {
		c.History = c.History[len(c.History)-maxConnectionHistory:]
	}
}
