package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/interfaces/http/dto"
)

// NotificationHandler handles notification feed API endpoints
type NotificationHandler struct {
	BaseHandler
	notificationService *listingapp.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *listingapp.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// RegisterRoutes registers notification routes on the API group
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.GET("/:id", h.GetNotification)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.POST("/:id/archive", h.ArchiveNotification)
		notifications.POST("/:id/approve", h.ApproveAction)
	}
}

// ===================== Request Types =====================

// ListNotificationsQuery narrows notification queries
type ListNotificationsQuery struct {
	dto.ListRequest
	Type            string `form:"type" binding:"omitempty,oneof=sale sync_error delist_result third_party_action connection"`
	Platform        string `form:"platform" binding:"omitempty,oneof=ebay facebook depop craigslist"`
	UnreadOnly      bool   `form:"unread_only"`
	IncludeArchived bool   `form:"include_archived"`
}

// ApproveActionRequest identifies who accepts a pending third-party change
type ApproveActionRequest struct {
	Approver string `json:"approver" binding:"required,max=100"`
}

// ===================== Handlers =====================

// ListNotifications returns notifications matching the query, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	query := ListNotificationsQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := listing.NotificationFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
		UnreadOnly:      query.UnreadOnly,
		IncludeArchived: query.IncludeArchived,
	}
	if query.Type != "" {
		t := listing.NotificationType(query.Type)
		filter.Type = &t
	}
	if query.Platform != "" {
		p := listing.Platform(query.Platform)
		filter.Platform = &p
	}

	page, err := h.notificationService.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]NotificationResponse, 0, len(page.Items))
	for _, n := range page.Items {
		out = append(out, toNotificationResponse(n))
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// UnreadCount returns the number of unread, unarchived notifications
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}

// GetNotification returns one notification by ID
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	n, err := h.notificationService.GetNotification(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toNotificationResponse(n))
}

// MarkRead stamps one notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// MarkAllRead stamps every unread notification read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ArchiveNotification hides a notification from the default feed
func (h *NotificationHandler) ArchiveNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.ArchiveNotification(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ApproveAction accepts a pending third-party change and applies it locally
func (h *NotificationHandler) ApproveAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	var req ApproveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	n, err := h.notificationService.ApproveAction(c.Request.Context(), id, req.Approver)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toNotificationResponse(n))
}
