package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	listingapp "github.com/crosslist/backend/internal/application/listing"
	"github.com/crosslist/backend/internal/domain/listing"
)

// PlatformHandler handles platform connection API endpoints
type PlatformHandler struct {
	BaseHandler
	configService *listingapp.PlatformConfigService
}

// NewPlatformHandler creates a new PlatformHandler
func NewPlatformHandler(configService *listingapp.PlatformConfigService) *PlatformHandler {
	return &PlatformHandler{
		configService: configService,
	}
}

// RegisterRoutes registers platform routes on the API group
func (h *PlatformHandler) RegisterRoutes(rg *gin.RouterGroup) {
	platforms := rg.Group("/platforms")
	{
		platforms.GET("", h.ListPlatforms)
		platforms.GET("/:platform", h.GetPlatform)
		platforms.POST("/:platform/connect", h.Connect)
		platforms.POST("/:platform/disconnect", h.Disconnect)
		platforms.POST("/:platform/credentials", h.RefreshCredentials)
		platforms.PUT("/:platform/settings", h.UpdateSettings)
		platforms.GET("/:platform/history", h.GetConnectionHistory)
	}
}

// ===================== Request Types =====================

// CredentialsRequest is the secret bundle supplied on connect or refresh
type CredentialsRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	ExpiresAt    string `json:"expires_at"`
}

func (r CredentialsRequest) toCredentials() (listing.Credentials, error) {
	creds := listing.Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		APIKey:       r.APIKey,
		APISecret:    r.APISecret,
		Username:     r.Username,
		Password:     r.Password,
	}
	if r.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, r.ExpiresAt)
		if err != nil {
			return listing.Credentials{}, err
		}
		creds.ExpiresAt = &t
	}
	return creds, nil
}

// DisconnectRequest carries the disconnect reason
type DisconnectRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// UpdateSettingsRequest replaces platform settings and listing defaults.
// Nil sections are left untouched.
type UpdateSettingsRequest struct {
	Settings *listing.PlatformSettings `json:"settings"`
	Defaults *listing.ListingDefaults  `json:"defaults"`
}

// ===================== Handlers =====================

// parsePlatform reads and validates the :platform route parameter
func (h *PlatformHandler) parsePlatform(c *gin.Context) (listing.Platform, bool) {
	platform := listing.Platform(c.Param("platform"))
	if !platform.IsValid() {
		h.BadRequest(c, "Unknown platform: "+c.Param("platform"))
		return "", false
	}
	return platform, true
}

// ListPlatforms returns the config for every supported platform
func (h *PlatformHandler) ListPlatforms(c *gin.Context) {
	configs, err := h.configService.ListConfigs(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]PlatformConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, toPlatformConfigResponse(cfg))
	}
	h.Success(c, out)
}

// GetPlatform returns one platform's config
func (h *PlatformHandler) GetPlatform(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	cfg, err := h.configService.GetConfig(c.Request.Context(), platform)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPlatformConfigResponse(cfg))
}

// Connect stores credentials and marks the platform connected
func (h *PlatformHandler) Connect(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	creds, err := req.toCredentials()
	if err != nil {
		h.BadRequest(c, "Invalid expires_at timestamp")
		return
	}

	cfg, err := h.configService.Connect(c.Request.Context(), platform, creds)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPlatformConfigResponse(cfg))
}

// Disconnect drops the credentials and disables the platform
func (h *PlatformHandler) Disconnect(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	// The body is optional; an absent body means no reason
	var req DisconnectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	if err := h.configService.Disconnect(c.Request.Context(), platform, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RefreshCredentials replaces the stored secret bundle
func (h *PlatformHandler) RefreshCredentials(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	creds, err := req.toCredentials()
	if err != nil {
		h.BadRequest(c, "Invalid expires_at timestamp")
		return
	}

	cfg, err := h.configService.RefreshCredentials(c.Request.Context(), platform, creds)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPlatformConfigResponse(cfg))
}

// UpdateSettings replaces platform settings and listing defaults
func (h *PlatformHandler) UpdateSettings(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Settings == nil && req.Defaults == nil {
		h.BadRequest(c, "At least one of settings or defaults must be provided")
		return
	}

	cfg, err := h.configService.UpdateSettings(c.Request.Context(), platform, req.Settings, req.Defaults)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPlatformConfigResponse(cfg))
}

// GetConnectionHistory returns the platform's connection audit trail
func (h *PlatformHandler) GetConnectionHistory(c *gin.Context) {
	platform, ok := h.parsePlatform(c)
	if !ok {
		return
	}

	events, err := h.configService.GetConnectionHistory(c.Request.Context(), platform)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]ConnectionEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, ConnectionEventResponse{
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Action:    e.Action,
			Detail:    e.Detail,
		})
	}
	h.Success(c, out)
}
