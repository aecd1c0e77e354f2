package handler

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
)

// titleCaser renders enum-ish values as operator-facing labels
var titleCaser = cases.Title(language.English)

// formatTime renders a timestamp as RFC3339, or "" for nil
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// labelFor turns a snake_case enum value into a display label,
// e.g. "price_changed" -> "Price Changed"
func labelFor(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// ===================== Listing =====================

// SyncErrorResponse is one failed remote update in a listing response
type SyncErrorResponse struct {
	Timestamp string         `json:"timestamp"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// FeesResponse itemizes marketplace fees
type FeesResponse struct {
	ListingFee           string `json:"listing_fee"`
	FinalValueFee        string `json:"final_value_fee"`
	PaymentProcessingFee string `json:"payment_processing_fee"`
	ShippingFee          string `json:"shipping_fee"`
	Total                string `json:"total"`
}

// BuyerResponse identifies the buyer as reported by the marketplace
type BuyerResponse struct {
	PlatformUserID string `json:"platform_user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
}

// ListingResponse is the API shape of a listing
type ListingResponse struct {
	ID                string                   `json:"id"`
	ProductID         string                   `json:"product_id"`
	Platform          string                   `json:"platform"`
	PlatformName      string                   `json:"platform_name"`
	PlatformListingID string                   `json:"platform_listing_id,omitempty"`
	ListingURL        string                   `json:"listing_url,omitempty"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description,omitempty"`
	Price             string                   `json:"price"`
	Quantity          int                      `json:"quantity"`
	Status            string                   `json:"status"`
	ListedAt          string                   `json:"listed_at,omitempty"`
	EndedAt           string                   `json:"ended_at,omitempty"`
	SoldAt            string                   `json:"sold_at,omitempty"`
	AgeDays           int                      `json:"age_days"`
	Views             int                      `json:"views"`
	Watchers          int                      `json:"watchers"`
	SalePrice         string                   `json:"sale_price,omitempty"`
	NetProfit         string                   `json:"net_profit,omitempty"`
	Buyer             *BuyerResponse           `json:"buyer,omitempty"`
	Fees              FeesResponse             `json:"fees"`
	SyncStatus        string                   `json:"sync_status"`
	LastSyncedAt      string                   `json:"last_synced_at,omitempty"`
	SyncErrors        []SyncErrorResponse      `json:"sync_errors,omitempty"`
	AutoSync          listing.AutoSyncSettings `json:"auto_sync"`
	Notes             string                   `json:"notes,omitempty"`
	CreatedAt         string                   `json:"created_at"`
	UpdatedAt         string                   `json:"updated_at"`
}

// toFeesResponse maps a fee breakdown to its API shape
func toFeesResponse(f listing.FeeBreakdown) FeesResponse {
	return FeesResponse{
		ListingFee:           f.ListingFee.StringFixed(2),
		FinalValueFee:        f.FinalValueFee.StringFixed(2),
		PaymentProcessingFee: f.PaymentProcessingFee.StringFixed(2),
		ShippingFee:          f.ShippingFee.StringFixed(2),
		Total:                f.Total().StringFixed(2),
	}
}

// toListingResponse maps a domain listing to its API shape
func toListingResponse(l *listing.Listing) ListingResponse {
	resp := ListingResponse{
		ID:                l.ID.String(),
		ProductID:         l.ProductID.String(),
		Platform:          l.Platform.String(),
		PlatformName:      l.Platform.DisplayName(),
		PlatformListingID: l.PlatformListingID,
		ListingURL:        l.ListingURL,
		Title:             l.Title,
		Description:       l.Description,
		Price:             l.Price.StringFixed(2),
		Quantity:          l.Quantity,
		Status:            l.Status.String(),
		ListedAt:          formatTime(l.ListedAt),
		EndedAt:           formatTime(l.EndedAt),
		SoldAt:            formatTime(l.SoldAt),
		AgeDays:           l.AgeDays(),
		Views:             l.Views,
		Watchers:          l.Watchers,
		Fees:              toFeesResponse(l.Fees),
		SyncStatus:        l.SyncStatus.String(),
		LastSyncedAt:      formatTime(l.LastSyncedAt),
		AutoSync:          l.AutoSync,
		Notes:             l.Notes,
		CreatedAt:         l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         l.UpdatedAt.Format(time.RFC3339),
	}
	if l.SalePrice != nil {
		resp.SalePrice = l.SalePrice.StringFixed(2)
		resp.NetProfit = l.NetProfit().StringFixed(2)
	}
	if l.Buyer != nil {
		resp.Buyer = &BuyerResponse{
			PlatformUserID: l.Buyer.PlatformUserID,
			Username:       l.Buyer.Username,
			Email:          l.Buyer.Email,
		}
	}
	for _, e := range l.SyncErrors {
		resp.SyncErrors = append(resp.SyncErrors, SyncErrorResponse{
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Code:      e.Code,
			Message:   e.Message,
			Details:   e.Details,
		})
	}
	return resp
}

// toListingResponses maps a slice of domain listings
func toListingResponses(ls []*listing.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toListingResponse(l))
	}
	return out
}

// ===================== Sync log =====================

// PlatformResultResponse is one platform's outcome inside a sync log entry
type PlatformResultResponse struct {
	Platform          string         `json:"platform"`
	Status            string         `json:"status"`
	PlatformListingID string         `json:"platform_listing_id,omitempty"`
	ErrorCode         string         `json:"error_code,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
	DurationMS        int64          `json:"duration_ms"`
}

// SyncLogResponse is the API shape of a sync log entry
type SyncLogResponse struct {
	ID          string                   `json:"id"`
	ProductID   string                   `json:"product_id"`
	Operation   string                   `json:"operation"`
	Trigger     string                   `json:"trigger"`
	Status      string                   `json:"status"`
	Results     []PlatformResultResponse `json:"results"`
	StartedAt   string                   `json:"started_at"`
	CompletedAt string                   `json:"completed_at,omitempty"`
	DurationMS  int64                    `json:"duration_ms"`
	Detail      string                   `json:"detail,omitempty"`
}

// toSyncLogResponse maps a domain sync log entry to its API shape
func toSyncLogResponse(e *listing.SyncLogEntry) SyncLogResponse {
	resp := SyncLogResponse{
		ID:          e.ID.String(),
		ProductID:   e.ProductID.String(),
		Operation:   e.Operation.String(),
		Trigger:     e.Trigger.String(),
		Status:      e.Status.String(),
		Results:     make([]PlatformResultResponse, 0, len(e.Results)),
		StartedAt:   e.StartedAt.Format(time.RFC3339),
		CompletedAt: formatTime(e.CompletedAt),
		DurationMS:  e.DurationMS,
		Detail:      e.Detail,
	}
	for _, r := range e.Results {
		resp.Results = append(resp.Results, PlatformResultResponse{
			Platform:          r.Platform.String(),
			Status:            string(r.Status),
			PlatformListingID: r.PlatformListingID,
			ErrorCode:         r.ErrorCode,
			ErrorMessage:      r.ErrorMessage,
			Details:           r.Details,
			DurationMS:        r.DurationMS,
		})
	}
	return resp
}

// ===================== Notifications =====================

// ThirdPartyActionResponse is the pending action on an approvable notification
type ThirdPartyActionResponse struct {
	Kind       string         `json:"kind"`
	KindLabel  string         `json:"kind_label"`
	ListingID  string         `json:"listing_id"`
	Observed   map[string]any `json:"observed,omitempty"`
	DetectedAt string         `json:"detected_at"`
	Approved   bool           `json:"approved"`
	ApprovedBy string         `json:"approved_by,omitempty"`
	ApprovedAt string         `json:"approved_at,omitempty"`
}

// NotificationResponse is the API shape of a notification
type NotificationResponse struct {
	ID         string                    `json:"id"`
	Type       string                    `json:"type"`
	Priority   string                    `json:"priority"`
	Title      string                    `json:"title"`
	Message    string                    `json:"message,omitempty"`
	Platform   string                    `json:"platform,omitempty"`
	ProductID  string                    `json:"product_id,omitempty"`
	ListingID  string                    `json:"listing_id,omitempty"`
	Data       map[string]any            `json:"data,omitempty"`
	Action     *ThirdPartyActionResponse `json:"action,omitempty"`
	Approvable bool                      `json:"approvable"`
	Read       bool                      `json:"read"`
	ReadAt     string                    `json:"read_at,omitempty"`
	Archived   bool                      `json:"archived"`
	ExpiresAt  string                    `json:"expires_at,omitempty"`
	CreatedAt  string                    `json:"created_at"`
}

// toNotificationResponse maps a domain notification to its API shape
func toNotificationResponse(n *listing.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:         n.ID.String(),
		Type:       n.Type.String(),
		Priority:   string(n.Priority),
		Title:      n.Title,
		Message:    n.Message,
		Platform:   n.Platform.String(),
		Data:       n.Data,
		Approvable: n.Approvable(),
		Read:       n.Read,
		ReadAt:     formatTime(n.ReadAt),
		Archived:   n.Archived,
		ExpiresAt:  formatTime(n.ExpiresAt),
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
	}
	if n.ProductID != nil {
		resp.ProductID = n.ProductID.String()
	}
	if n.ListingID != nil {
		resp.ListingID = n.ListingID.String()
	}
	if n.Action != nil {
		resp.Action = &ThirdPartyActionResponse{
			Kind:       string(n.Action.Kind),
			KindLabel:  labelFor(string(n.Action.Kind)),
			ListingID:  n.Action.ListingID.String(),
			Observed:   n.Action.Observed,
			DetectedAt: n.Action.DetectedAt.Format(time.RFC3339),
			Approved:   n.Action.Approved,
			ApprovedBy: n.Action.ApprovedBy,
			ApprovedAt: formatTime(n.Action.ApprovedAt),
		}
	}
	return resp
}

// ===================== Platform configs =====================

// UsageResponse reports a platform's accumulated activity
type UsageResponse struct {
	TotalListings  int64  `json:"total_listings"`
	ActiveListings int64  `json:"active_listings"`
	TotalSales     int64  `json:"total_sales"`
	TotalRevenue   string `json:"total_revenue"`
	TotalFees      string `json:"total_fees"`
}

// ConnectionEventResponse is one entry of the connection audit trail
type ConnectionEventResponse struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}

// PlatformConfigResponse is the API shape of a platform config. Credentials
// never leave the server; only their presence is reported.
type PlatformConfigResponse struct {
	ID                string                   `json:"id"`
	Platform          string                   `json:"platform"`
	PlatformName      string                   `json:"platform_name"`
	Enabled           bool                     `json:"enabled"`
	Status            string                   `json:"status"`
	HasCredentials    bool                     `json:"has_credentials"`
	CredentialsExpire string                   `json:"credentials_expire_at,omitempty"`
	Settings          listing.PlatformSettings `json:"settings"`
	Defaults          listing.ListingDefaults  `json:"defaults"`
	Fees              listing.FeeSchedule      `json:"fees"`
	Limits            listing.RateLimits       `json:"limits"`
	Usage             UsageResponse            `json:"usage"`
	ConsecutiveErrors int                      `json:"consecutive_errors"`
	LastError         string                   `json:"last_error,omitempty"`
	LastUsedAt        string                   `json:"last_used_at,omitempty"`
	CreatedAt         string                   `json:"created_at"`
	UpdatedAt         string                   `json:"updated_at"`
}

// toPlatformConfigResponse maps a domain config to its API shape
func toPlatformConfigResponse(cfg *listing.PlatformConfig) PlatformConfigResponse {
	resp := PlatformConfigResponse{
		ID:             cfg.ID.String(),
		Platform:       cfg.Platform.String(),
		PlatformName:   cfg.Platform.DisplayName(),
		Enabled:        cfg.Enabled,
		Status:         cfg.Status.String(),
		HasCredentials: !cfg.Credentials.Empty(),
		Settings:       cfg.Settings,
		Defaults:       cfg.Defaults,
		Fees:           cfg.Fees,
		Limits:         cfg.Limits,
		Usage: UsageResponse{
			TotalListings:  cfg.Usage.TotalListings,
			ActiveListings: cfg.Usage.ActiveListings,
			TotalSales:     cfg.Usage.TotalSales,
			TotalRevenue:   cfg.Usage.TotalRevenue.StringFixed(2),
			TotalFees:      cfg.Usage.TotalFees.StringFixed(2),
		},
		ConsecutiveErrors: cfg.ConsecutiveErrors,
		LastError:         cfg.LastError,
		LastUsedAt:        formatTime(cfg.LastUsedAt),
		CreatedAt:         cfg.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         cfg.UpdatedAt.Format(time.RFC3339),
	}
	if cfg.Credentials.ExpiresAt != nil {
		resp.CredentialsExpire = cfg.Credentials.ExpiresAt.Format(time.RFC3339)
	}
	return resp
}

// ===================== Multi-platform results =====================

// PlatformOutcomeResponse is one platform's result in a fan-out response
type PlatformOutcomeResponse struct {
	Platform     string `json:"platform"`
	Success      bool   `json:"success"`
	ListingID    string `json:"listing_id,omitempty"`
	ListingURL   string `json:"listing_url,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// toOutcomeResponses maps application-layer platform outcomes
func toOutcomeResponses(outcomes []listingapp.PlatformOutcome) []PlatformOutcomeResponse {
	out := make([]PlatformOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		resp := PlatformOutcomeResponse{
			Platform:     o.Platform.String(),
			Success:      o.Success,
			ListingURL:   o.ListingURL,
			ErrorCode:    o.ErrorCode,
			ErrorMessage: o.ErrorMessage,
			DurationMS:   o.DurationMS,
		}
		if o.ListingID != nil {
			resp.ListingID = o.ListingID.String()
		}
		out = append(out, resp)
	}
	return out
}

// MultiPlatformResponse summarizes a fan-out operation
type MultiPlatformResponse struct {
	SyncLogID    string                    `json:"sync_log_id"`
	Status       string                    `json:"status"`
	Outcomes     []PlatformOutcomeResponse `json:"outcomes"`
	Skipped      []string                  `json:"skipped,omitempty"`
	SuccessCount int                       `json:"success_count"`
	TotalCount   int                       `json:"total_count"`
}
