package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
)

// WebhookHandler receives inbound marketplace events
type WebhookHandler struct {
	BaseHandler
	syncService *listingapp.SyncService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(syncService *listingapp.SyncService) *WebhookHandler {
	return &WebhookHandler{
		syncService: syncService,
	}
}

// RegisterRoutes registers webhook routes on the API group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/:platform/sale", h.SaleEvent)
	}
}

// ===================== Request Types =====================

// SaleBuyerRequest identifies the buyer as reported by the marketplace
type SaleBuyerRequest struct {
	PlatformUserID string `json:"platform_user_id"`
	Username       string `json:"username"`
	Email          string `json:"email" binding:"omitempty,email"`
}

// SaleFeesRequest itemizes the fees the marketplace reported on the sale
type SaleFeesRequest struct {
	ListingFee           float64 `json:"listing_fee" binding:"omitempty,gte=0"`
	FinalValueFee        float64 `json:"final_value_fee" binding:"omitempty,gte=0"`
	PaymentProcessingFee float64 `json:"payment_processing_fee" binding:"omitempty,gte=0"`
	ShippingFee          float64 `json:"shipping_fee" binding:"omitempty,gte=0"`
}

// SaleEventRequest reports a sale detected on a platform
type SaleEventRequest struct {
	PlatformListingID string            `json:"platform_listing_id" binding:"required"`
	EventID           string            `json:"event_id" binding:"required"`
	Price             float64           `json:"price" binding:"required,gt=0"`
	Buyer             *SaleBuyerRequest `json:"buyer"`
	Fees              *SaleFeesRequest  `json:"fees"`
	SoldAt            string            `json:"sold_at"`
}

// SaleResultResponse summarizes sale handling including the cross-delist
type SaleResultResponse struct {
	ListingID         string                    `json:"listing_id"`
	ProductID         string                    `json:"product_id"`
	RemainingQuantity int                       `json:"remaining_quantity"`
	Delisted          []PlatformOutcomeResponse `json:"delisted,omitempty"`
	Duplicate         bool                      `json:"duplicate"`
}

// ===================== Handlers =====================

// SaleEvent handles an inbound sale notification from a marketplace. The
// event ID deduplicates webhook retries; a replay returns the original
// outcome with duplicate set.
func (h *WebhookHandler) SaleEvent(c *gin.Context) {
	platform := listing.Platform(c.Param("platform"))
	if !platform.IsValid() {
		h.BadRequest(c, "Unknown platform: "+c.Param("platform"))
		return
	}

	var req SaleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sale := listing.SaleData{
		Price:   priceFrom(req.Price),
		EventID: req.EventID,
	}
	if req.Buyer != nil {
		sale.Buyer = &listing.BuyerInfo{
			PlatformUserID: req.Buyer.PlatformUserID,
			Username:       req.Buyer.Username,
			Email:          req.Buyer.Email,
		}
	}
	if req.Fees != nil {
		sale.Fees = &listing.FeeBreakdown{
			ListingFee:           priceFrom(req.Fees.ListingFee),
			FinalValueFee:        priceFrom(req.Fees.FinalValueFee),
			PaymentProcessingFee: priceFrom(req.Fees.PaymentProcessingFee),
			ShippingFee:          priceFrom(req.Fees.ShippingFee),
		}
	}
	if req.SoldAt != "" {
		soldAt, err := time.Parse(time.RFC3339, req.SoldAt)
		if err != nil {
			h.BadRequest(c, "Invalid sold_at timestamp")
			return
		}
		sale.SoldAt = soldAt
	}

	result, err := h.syncService.HandleSale(c.Request.Context(), listingapp.SaleCommand{
		Platform:          platform,
		PlatformListingID: req.PlatformListingID,
		Trigger:           listing.TriggerWebhook,
		Sale:              sale,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SaleResultResponse{
		ListingID:         result.ListingID.String(),
		ProductID:         result.ProductID.String(),
		RemainingQuantity: result.RemainingQuantity,
		Delisted:          toOutcomeResponses(result.Delisted),
		Duplicate:         result.Duplicate,
	})
}
