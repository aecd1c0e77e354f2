package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/listing"
)

// ListingModel is the persistence model for the Listing domain entity.
type ListingModel struct {
	BaseModel
	ProductID         uuid.UUID                 `gorm:"type:uuid;not null;index:idx_listing_product,priority:1;index:idx_listing_product_platform,priority:1"`
	Platform          listing.Platform          `gorm:"type:varchar(20);not null;index:idx_listing_platform,priority:1;index:idx_listing_product_platform,priority:2"`
	PlatformListingID string                    `gorm:"type:varchar(100);index:idx_listing_platform_listing"`
	ListingURL        string                    `gorm:"type:varchar(500)"`
	Title             string                    `gorm:"type:varchar(255);not null"`
	Description       string                    `gorm:"type:text"`
	Price             decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Quantity          int                       `gorm:"not null;default:1"`
	Status            listing.ListingStatus     `gorm:"type:varchar(20);not null;index"`
	ListedAt          *time.Time
	EndedAt           *time.Time
	SoldAt            *time.Time
	Views             int                       `gorm:"not null;default:0"`
	Watchers          int                       `gorm:"not null;default:0"`
	SalePrice         *decimal.Decimal          `gorm:"type:decimal(18,4)"`
	BuyerJSON         string                    `gorm:"type:jsonb;column:buyer"`
	FeesJSON          string                    `gorm:"type:jsonb;column:fees"`
	LastSyncedAt      *time.Time
	SyncStatus        listing.ListingSyncStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	SyncErrorsJSON    string                    `gorm:"type:jsonb;column:sync_errors"`
	AutoSyncJSON      string                    `gorm:"type:jsonb;column:auto_sync"`
	Notes             string                    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ListingModel) TableName() string {
	return "listings"
}

// ToDomain converts the persistence model to a domain Listing entity.
func (m *ListingModel) ToDomain() *listing.Listing {
	l := &listing.Listing{
		BaseEntity:        m.BaseModel.baseEntity(),
		ProductID:         m.ProductID,
		Platform:          m.Platform,
		PlatformListingID: m.PlatformListingID,
		ListingURL:        m.ListingURL,
		Title:             m.Title,
		Description:       m.Description,
		Price:             m.Price,
		Quantity:          m.Quantity,
		Status:            m.Status,
		ListedAt:          m.ListedAt,
		EndedAt:           m.EndedAt,
		SoldAt:            m.SoldAt,
		Views:             m.Views,
		Watchers:          m.Watchers,
		SalePrice:         m.SalePrice,
		LastSyncedAt:      m.LastSyncedAt,
		SyncStatus:        m.SyncStatus,
		SyncErrors:        make([]listing.SyncErrorEntry, 0),
		AutoSync:          listing.DefaultAutoSyncSettings(),
		Notes:             m.Notes,
	}

	if m.BuyerJSON != "" {
		var buyer listing.BuyerInfo
		if err := json.Unmarshal([]byte(m.BuyerJSON), &buyer); err == nil {
			l.Buyer = &buyer
		}
	}
	if m.FeesJSON != "" {
		var fees listing.FeeBreakdown
		if err := json.Unmarshal([]byte(m.FeesJSON), &fees); err == nil {
			l.Fees = fees
		}
	}
	if m.SyncErrorsJSON != "" {
		var entries []listing.SyncErrorEntry
		if err := json.Unmarshal([]byte(m.SyncErrorsJSON), &entries); err == nil {
			l.SyncErrors = entries
		}
	}
	if m.AutoSyncJSON != "" {
		var settings listing.AutoSyncSettings
		if err := json.Unmarshal([]byte(m.AutoSyncJSON), &settings); err == nil {
			l.AutoSync = settings
		}
	}
	return l
}

// FromDomain populates the persistence model from a domain Listing entity.
func (m *ListingModel) FromDomain(l *listing.Listing) {
	m.setBaseEntity(l.BaseEntity)
	m.ProductID = l.ProductID
	m.Platform = l.Platform
	m.PlatformListingID = l.PlatformListingID
	m.ListingURL = l.ListingURL
	m.Title = l.Title
	m.Description = l.Description
	m.Price = l.Price
	m.Quantity = l.Quantity
	m.Status = l.Status
	m.ListedAt = l.ListedAt
	m.EndedAt = l.EndedAt
	m.SoldAt = l.SoldAt
	m.Views = l.Views
	m.Watchers = l.Watchers
	m.SalePrice = l.SalePrice
	m.LastSyncedAt = l.LastSyncedAt
	m.SyncStatus = l.SyncStatus
	m.Notes = l.Notes

	m.BuyerJSON = ""
	if l.Buyer != nil {
		if b, err := json.Marshal(l.Buyer); err == nil {
			m.BuyerJSON = string(b)
		}
	}
	if b, err := json.Marshal(l.Fees); err == nil {
		m.FeesJSON = string(b)
	}
	if len(l.SyncErrors) > 0 {
		if b, err := json.Marshal(l.SyncErrors); err == nil {
			m.SyncErrorsJSON = string(b)
		}
	} else {
		m.SyncErrorsJSON = "[]"
	}
	if b, err := json.Marshal(l.AutoSync); err == nil {
		m.AutoSyncJSON = string(b)
	}
}

// ListingModelFromDomain creates a new persistence model from a domain Listing entity.
func ListingModelFromDomain(l *listing.Listing) *ListingModel {
	m := &ListingModel{}
	m.FromDomain(l)
	return m
}

// PlatformConfigModel is the persistence model for the PlatformConfig domain
// entity. Credentials are stored sealed; the repository owns the cipher.
type PlatformConfigModel struct {
	BaseModel
	Platform          listing.Platform         `gorm:"type:varchar(20);not null;uniqueIndex"`
	Enabled           bool                     `gorm:"not null;default:false"`
	Status            listing.ConnectionStatus `gorm:"type:varchar(20);not null;default:'disconnected'"`
	CredentialsSealed string                   `gorm:"type:text;column:credentials"`
	SettingsJSON      string                   `gorm:"type:jsonb;column:settings"`
	DefaultsJSON      string                   `gorm:"type:jsonb;column:defaults"`
	FeesJSON          string                   `gorm:"type:jsonb;column:fees"`
	LimitsJSON        string                   `gorm:"type:jsonb;column:limits"`
	TotalListings     int64                    `gorm:"not null;default:0"`
	ActiveListings    int64                    `gorm:"not null;default:0"`
	TotalSales        int64                    `gorm:"not null;default:0"`
	TotalRevenue      decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TotalFees         decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ConsecutiveErrors int                      `gorm:"not null;default:0"`
	LastError         string                   `gorm:"type:text"`
	LastUsedAt        *time.Time
	HistoryJSON       string                   `gorm:"type:jsonb;column:history"`
}

// TableName returns the table name for GORM
func (PlatformConfigModel) TableName() string {
	return "platform_configs"
}

// ToDomain converts the persistence model to a domain PlatformConfig. The
// credential bundle is left empty; the repository unseals it separately.
func (m *PlatformConfigModel) ToDomain() *listing.PlatformConfig {
	c := &listing.PlatformConfig{
		BaseEntity: m.BaseModel.baseEntity(),
		Platform:   m.Platform,
		Enabled:    m.Enabled,
		Status:     m.Status,
		Usage: listing.Usage{
			TotalListings:  m.TotalListings,
			ActiveListings: m.ActiveListings,
			TotalSales:     m.TotalSales,
			TotalRevenue:   m.TotalRevenue,
			TotalFees:      m.TotalFees,
		},
		ConsecutiveErrors: m.ConsecutiveErrors,
		LastError:         m.LastError,
		LastUsedAt:        m.LastUsedAt,
		History:           make([]listing.ConnectionEvent, 0),
	}

	if m.SettingsJSON != "" {
		_ = json.Unmarshal([]byte(m.SettingsJSON), &c.Settings)
	}
	if m.DefaultsJSON != "" {
		_ = json.Unmarshal([]byte(m.DefaultsJSON), &c.Defaults)
	}
	if m.FeesJSON != "" {
		_ = json.Unmarshal([]byte(m.FeesJSON), &c.Fees)
	}
	if m.LimitsJSON != "" {
		_ = json.Unmarshal([]byte(m.LimitsJSON), &c.Limits)
	}
	if m.HistoryJSON != "" {
		var history []listing.ConnectionEvent
		if err := json.Unmarshal([]byte(m.HistoryJSON), &history); err == nil {
			c.History = history
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain PlatformConfig.
// Credentials are not copied; the repository seals them into the model.
func (m *PlatformConfigModel) FromDomain(c *listing.PlatformConfig) {
	m.setBaseEntity(c.BaseEntity)
	m.Platform = c.Platform
	m.Enabled = c.Enabled
	m.Status = c.Status
	m.TotalListings = c.Usage.TotalListings
	m.ActiveListings = c.Usage.ActiveListings
	m.TotalSales = c.Usage.TotalSales
	m.TotalRevenue = c.Usage.TotalRevenue
	m.TotalFees = c.Usage.TotalFees
	m.ConsecutiveErrors = c.ConsecutiveErrors
	m.LastError = c.LastError
	m.LastUsedAt = c.LastUsedAt

	if b, err := json.Marshal(c.Settings); err == nil {
		m.SettingsJSON = string(b)
	}
	if b, err := json.Marshal(c.Defaults); err == nil {
		m.DefaultsJSON = string(b)
	}
	if b, err := json.Marshal(c.Fees); err == nil {
		m.FeesJSON = string(b)
	}
	if b, err := json.Marshal(c.Limits); err == nil {
		m.LimitsJSON = string(b)
	}
	if len(c.History) > 0 {
		if b, err := json.Marshal(c.History); err == nil {
			m.HistoryJSON = string(b)
		}
	} else {
		m.HistoryJSON = "[]"
	}
}

// SyncLogModel is the persistence model for the SyncLogEntry domain entity.
type SyncLogModel struct {
	BaseModel
	ProductID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Operation   listing.OperationKind   `gorm:"type:varchar(20);not null;index"`
	Trigger     listing.TriggerSource   `gorm:"type:varchar(20);not null"`
	Status      listing.AggregateStatus `gorm:"type:varchar(20);not null;index"`
	ResultsJSON string                  `gorm:"type:jsonb;column:results"`
	StartedAt   time.Time               `gorm:"not null;index"`
	CompletedAt *time.Time
	DurationMS  int64                   `gorm:"not null;default:0"`
	Detail      string                  `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry.
func (m *SyncLogModel) ToDomain() *listing.SyncLogEntry {
	e := &listing.SyncLogEntry{
		BaseEntity:  m.BaseModel.baseEntity(),
		ProductID:   m.ProductID,
		Operation:   m.Operation,
		Trigger:     m.Trigger,
		Status:      m.Status,
		Results:     make([]listing.PlatformResult, 0),
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		DurationMS:  m.DurationMS,
		Detail:      m.Detail,
	}
	if m.ResultsJSON != "" {
		var results []listing.PlatformResult
		if err := json.Unmarshal([]byte(m.ResultsJSON), &results); err == nil {
			e.Results = results
		}
	}
	return e
}

// FromDomain populates the persistence model from a domain SyncLogEntry.
func (m *SyncLogModel) FromDomain(e *listing.SyncLogEntry) {
	m.setBaseEntity(e.BaseEntity)
	m.ProductID = e.ProductID
	m.Operation = e.Operation
	m.Trigger = e.Trigger
	m.Status = e.Status
	m.StartedAt = e.StartedAt
	m.CompletedAt = e.CompletedAt
	m.DurationMS = e.DurationMS
	m.Detail = e.Detail

	if len(e.Results) > 0 {
		if b, err := json.Marshal(e.Results); err == nil {
			m.ResultsJSON = string(b)
		}
	} else {
		m.ResultsJSON = "[]"
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain SyncLogEntry.
func SyncLogModelFromDomain(e *listing.SyncLogEntry) *SyncLogModel {
	m := &SyncLogModel{}
	m.FromDomain(e)
	return m
}

// NotificationModel is the persistence model for the Notification domain entity.
type NotificationModel struct {
	BaseModel
	Type       listing.NotificationType     `gorm:"type:varchar(30);not null;index"`
	Priority   listing.NotificationPriority `gorm:"type:varchar(10);not null"`
	Title      string                       `gorm:"type:varchar(255);not null"`
	Message    string                       `gorm:"type:text"`
	Platform   listing.Platform             `gorm:"type:varchar(20);index"`
	ProductID  *uuid.UUID                   `gorm:"type:uuid;index"`
	ListingID  *uuid.UUID                   `gorm:"type:uuid;index"`
	DataJSON   string                       `gorm:"type:jsonb;column:data"`
	ActionJSON string                       `gorm:"type:jsonb;column:action"`
	Read       bool                         `gorm:"not null;default:false;index"`
	ReadAt     *time.Time
	Archived   bool                         `gorm:"not null;default:false"`
	ExpiresAt  *time.Time                   `gorm:"index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *listing.Notification {
	n := &listing.Notification{
		BaseEntity: m.BaseModel.baseEntity(),
		Type:       m.Type,
		Priority:   m.Priority,
		Title:      m.Title,
		Message:    m.Message,
		Platform:   m.Platform,
		ProductID:  m.ProductID,
		ListingID:  m.ListingID,
		Read:       m.Read,
		ReadAt:     m.ReadAt,
		Archived:   m.Archived,
		ExpiresAt:  m.ExpiresAt,
	}
	if m.DataJSON != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(m.DataJSON), &data); err == nil {
			n.Data = data
		}
	}
	if m.ActionJSON != "" && m.ActionJSON != "null" {
		var action listing.ThirdPartyAction
		if err := json.Unmarshal([]byte(m.ActionJSON), &action); err == nil {
			n.Action = &action
		}
	}
	return n
}

// FromDomain populates the persistence model from a domain Notification.
func (m *NotificationModel) FromDomain(n *listing.Notification) {
	m.setBaseEntity(n.BaseEntity)
	m.Type = n.Type
	m.Priority = n.Priority
	m.Title = n.Title
	m.Message = n.Message
	m.Platform = n.Platform
	m.ProductID = n.ProductID
	m.ListingID = n.ListingID
	m.Read = n.Read
	m.ReadAt = n.ReadAt
	m.Archived = n.Archived
	m.ExpiresAt = n.ExpiresAt

	if len(n.Data) > 0 {
		if b, err := json.Marshal(n.Data); err == nil {
			m.DataJSON = string(b)
		}
	} else {
		m.DataJSON = "{}"
	}
	m.ActionJSON = ""
	if n.Action != nil {
		if b, err := json.Marshal(n.Action); err == nil {
			m.ActionJSON = string(b)
		}
	}
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification.
func NotificationModelFromDomain(n *listing.Notification) *NotificationModel {
	m := &NotificationModel{}
	m.FromDomain(n)
	return m
}
