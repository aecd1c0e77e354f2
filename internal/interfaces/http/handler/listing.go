package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/interfaces/http/dto"
)

// ListingHandler handles listing lifecycle API endpoints
type ListingHandler struct {
	BaseHandler
	syncService *listingapp.SyncService
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(syncService *listingapp.SyncService) *ListingHandler {
	return &ListingHandler{
		syncService: syncService,
	}
}

// RegisterRoutes registers listing routes on the API group
func (h *ListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	listings := rg.Group("/listings")
	{
		listings.POST("", h.CreateListing)
		listings.GET("", h.ListListings)
		listings.GET("/:id", h.GetListing)
		listings.PUT("/:id", h.UpdateListing)
		listings.POST("/:id/delist", h.DelistListing)
		listings.POST("/:id/relist", h.RelistListing)
	}

	products := rg.Group("/products")
	{
		products.GET("/:id/listings", h.GetProductListings)
		products.POST("/:id/sync", h.SyncProduct)
	}

	rg.GET("/stats/platforms", h.GetPlatformStats)
	rg.GET("/sync-logs", h.GetSyncHistory)
}

// ===================== Request Types =====================

// ListingOverridesRequest carries caller-supplied listing field overrides
type ListingOverridesRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Quantity    *int     `json:"quantity" binding:"omitempty,gte=0"`
	Category    *string  `json:"category"`
}

func (r *ListingOverridesRequest) toOverrides() *listingapp.ListingOverrides {
	if r == nil {
		return nil
	}
	o := &listingapp.ListingOverrides{
		Title:       r.Title,
		Description: r.Description,
		Quantity:    r.Quantity,
		Category:    r.Category,
	}
	if r.Price != nil {
		o.Price = optionalPrice(*r.Price)
	}
	return o
}

// CreateListingRequest asks the engine to list a product on one or more platforms
type CreateListingRequest struct {
	ProductID string                   `json:"product_id" binding:"required,uuid"`
	Platforms []string                 `json:"platforms" binding:"required,min=1,dive,oneof=ebay facebook depop craigslist"`
	Overrides *ListingOverridesRequest `json:"overrides"`
}

// UpdateListingRequest is a partial update pushed to a live listing
type UpdateListingRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Quantity    *int     `json:"quantity" binding:"omitempty,gte=0"`
}

// DelistRequest carries the delist reason
type DelistRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ListListingsQuery narrows listing queries
type ListListingsQuery struct {
	dto.ListRequest
	ProductID  string `form:"product_id" binding:"omitempty,uuid"`
	Platform   string `form:"platform" binding:"omitempty,oneof=ebay facebook depop craigslist"`
	Status     string `form:"status" binding:"omitempty,oneof=draft pending active sold delisted ended"`
	SyncStatus string `form:"sync_status" binding:"omitempty,oneof=synced pending error manual"`
	OpenOnly   bool   `form:"open_only"`
}

// SyncHistoryQuery narrows sync ledger queries
type SyncHistoryQuery struct {
	dto.ListRequest
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
	Operation string `form:"operation" binding:"omitempty,oneof=create update delete sync delist relist reconcile"`
	Status    string `form:"status" binding:"omitempty,oneof=in_progress success partial failed"`
	Trigger   string `form:"trigger" binding:"omitempty,oneof=user system webhook scheduled"`
	Since     string `form:"since"`
}

// ===================== Handlers =====================

// CreateListing lists a product on the requested platforms. A single platform
// returns the created listing; several platforms return per-platform outcomes.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	if len(req.Platforms) == 1 {
		created, err := h.syncService.CreateListing(c.Request.Context(), listingapp.CreateListingCommand{
			ProductID: productID,
			Platform:  listing.Platform(req.Platforms[0]),
			Trigger:   listing.TriggerUser,
			Overrides: req.Overrides.toOverrides(),
		})
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, toListingResponse(created))
		return
	}

	platforms := make([]listing.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, listing.Platform(p))
	}

	result, err := h.syncService.CreateMultiPlatform(c.Request.Context(), listingapp.CreateMultiPlatformCommand{
		ProductID: productID,
		Platforms: platforms,
		Trigger:   listing.TriggerUser,
		Overrides: req.Overrides.toOverrides(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, MultiPlatformResponse{
		SyncLogID:    result.SyncLogID.String(),
		Status:       result.Status.String(),
		Outcomes:     toOutcomeResponses(result.Outcomes),
		SuccessCount: result.SuccessCount,
		TotalCount:   result.TotalCount,
	})
}

// ListListings returns listings matching the query filters
func (h *ListingHandler) ListListings(c *gin.Context) {
	query := ListListingsQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := listing.ListingFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
			Search:   query.Search,
		},
		OpenOnly: query.OpenOnly,
	}
	if query.ProductID != "" {
		id, _ := uuid.Parse(query.ProductID)
		filter.ProductID = &id
	}
	if query.Platform != "" {
		p := listing.Platform(query.Platform)
		filter.Platform = &p
	}
	if query.Status != "" {
		s := listing.ListingStatus(query.Status)
		filter.Status = &s
	}
	if query.SyncStatus != "" {
		s := listing.ListingSyncStatus(query.SyncStatus)
		filter.SyncStatus = &s
	}

	page, err := h.syncService.ListListings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toListingResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetListing returns one listing by ID
func (h *ListingHandler) GetListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID")
		return
	}

	l, err := h.syncService.GetListing(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(l))
}

// UpdateListing pushes a partial update to a live listing
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID")
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	upd := listing.ListingUpdate{
		Title:       req.Title,
		Description: req.Description,
		Quantity:    req.Quantity,
	}
	if req.Price != nil {
		upd.Price = optionalPrice(*req.Price)
	}
	if upd.IsEmpty() {
		h.BadRequest(c, "At least one field must be provided")
		return
	}

	l, err := h.syncService.UpdateListing(c.Request.Context(), listingapp.UpdateListingCommand{
		ListingID: id,
		Trigger:   listing.TriggerUser,
		Update:    upd,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(l))
}

// DelistListing retires a listing locally and remotely
func (h *ListingHandler) DelistListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID")
		return
	}

	// The body is optional; an absent body means no reason
	var req DelistRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	l, err := h.syncService.DelistListing(c.Request.Context(), id, req.Reason, listing.TriggerUser)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(l))
}

// RelistListing re-creates a previously ended listing
func (h *ListingHandler) RelistListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID")
		return
	}

	l, err := h.syncService.RelistListing(c.Request.Context(), id, listing.TriggerUser)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toListingResponse(l))
}

// GetProductListings returns every listing for a product, any status
func (h *ListingHandler) GetProductListings(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	ls, err := h.syncService.GetProductListings(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponses(ls))
}

// SyncProduct propagates product changes to all its auto-sync listings
func (h *ListingHandler) SyncProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	result, err := h.syncService.SyncProduct(c.Request.Context(), productID, listing.TriggerUser)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	skipped := make([]string, 0, len(result.Skipped))
	for _, p := range result.Skipped {
		skipped = append(skipped, p.String())
	}

	h.Success(c, MultiPlatformResponse{
		SyncLogID:    result.SyncLogID.String(),
		Status:       result.Status.String(),
		Outcomes:     toOutcomeResponses(result.Outcomes),
		Skipped:      skipped,
		SuccessCount: result.SuccessCount,
		TotalCount:   result.TotalCount,
	})
}

// GetPlatformStats returns per-platform listing aggregates
func (h *ListingHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.syncService.GetPlatformStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// GetSyncHistory returns sync ledger entries matching the query, newest first
func (h *ListingHandler) GetSyncHistory(c *gin.Context) {
	query := SyncHistoryQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := listing.SyncLogFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
	}
	if query.ProductID != "" {
		id, _ := uuid.Parse(query.ProductID)
		filter.ProductID = &id
	}
	if query.Operation != "" {
		op := listing.OperationKind(query.Operation)
		filter.Operation = &op
	}
	if query.Status != "" {
		s := listing.AggregateStatus(query.Status)
		filter.Status = &s
	}
	if query.Trigger != "" {
		t := listing.TriggerSource(query.Trigger)
		filter.Trigger = &t
	}
	if query.Since != "" {
		since, err := parseDateTime(query.Since)
		if err != nil {
			h.BadRequest(c, "Invalid since timestamp")
			return
		}
		filter.Since = &since
	}

	page, err := h.syncService.GetSyncHistory(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entries := make([]SyncLogResponse, 0, len(page.Items))
	for _, e := range page.Items {
		entries = append(entries, toSyncLogResponse(e))
	}

	h.SuccessWithMeta(c, entries, page.Total, page.Page, page.PageSize)
}

// parseDateTime parses a datetime string in the formats clients commonly send
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
