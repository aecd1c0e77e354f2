package marketplace

import (
	"github.com/shopspring/decimal"

	"github.com/crosslist/backend/internal/domain/listing"
)

// ebayMoney is eBay's amount-plus-currency envelope
type ebayMoney struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// ebayListingPayload is the request body for creating a fixed-price listing
type ebayListingPayload struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Price           ebayMoney  `json:"price"`
	Quantity        int        `json:"availableQuantity"`
	ConditionID     string     `json:"conditionId"`
	CategoryName    string     `json:"categoryName,omitempty"`
	ImageURLs       []string   `json:"imageUrls,omitempty"`
	SKU             string     `json:"sku,omitempty"`
	UPC             string     `json:"upc,omitempty"`
	Brand           string     `json:"brand,omitempty"`
	MPN             string     `json:"mpn,omitempty"`
	Format          string     `json:"format"`
	Duration        string     `json:"listingDuration"`
	ShippingCost    *ebayMoney `json:"shippingCost,omitempty"`
	HandlingDays    int        `json:"handlingTime,omitempty"`
	MarketplaceSite string     `json:"marketplaceId"`
}

// ebayUpdatePayload is the request body for revising a live listing
type ebayUpdatePayload struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Price       *ebayMoney `json:"price,omitempty"`
	Quantity    *int       `json:"availableQuantity,omitempty"`
}

// ebayEndPayload is the request body for ending a listing
type ebayEndPayload struct {
	Reason string `json:"endingReason"`
}

// ebayFees mirrors the fee summary eBay returns on create
type ebayFees struct {
	InsertionFee  decimal.Decimal `json:"insertionFee"`
	FinalValueFee decimal.Decimal `json:"finalValueFee"`
	ProcessingFee decimal.Decimal `json:"paymentProcessingFee"`
}

// ebayCreateResponse is the response body for a successful create
type ebayCreateResponse struct {
	ListingID string    `json:"listingId"`
	ViewURL   string    `json:"listingUrl"`
	Fees      *ebayFees `json:"fees,omitempty"`
}

// ebayEndResponse is the response body for a successful end call
type ebayEndResponse struct {
	ListingID string `json:"listingId"`
	EndedAt   string `json:"endTime"`
}

// ebayGetResponse is the response body for a listing read
type ebayGetResponse struct {
	ListingID    string    `json:"listingId"`
	Status       string    `json:"listingStatus"`
	Price        ebayMoney `json:"price"`
	Quantity     int       `json:"availableQuantity"`
	QuantitySold int       `json:"quantitySold"`
	HitCount     int       `json:"hitCount"`
	WatchCount   int       `json:"watchCount"`
}

// ebayErrorResponse is eBay's error envelope
type ebayErrorResponse struct {
	Errors []struct {
		ErrorID  int    `json:"errorId"`
		Message  string `json:"message"`
		LongText string `json:"longMessage"`
	} `json:"errors"`
}

// message returns the first error message, preferring the long form
func (e *ebayErrorResponse) message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if e.Errors[0].LongText != "" {
		return e.Errors[0].LongText
	}
	return e.Errors[0].Message
}

// ebayConditionID maps the catalog condition to eBay's numeric condition IDs
var ebayConditionID = map[string]string{
	"new":        "1000",
	"like-new":   "2750",
	"good":       "4000",
	"fair":       "5000",
	"acceptable": "6000",
}

// mapEbayStatus translates eBay listing statuses to the neutral remote status
func mapEbayStatus(status string, quantity, sold int) listing.RemoteStatus {
	switch status {
	case "ACTIVE":
		return listing.RemoteStatusActive
	case "ENDED", "COMPLETED":
		if sold > 0 && quantity == 0 {
			return listing.RemoteStatusSold
		}
		return listing.RemoteStatusEnded
	case "SOLD":
		return listing.RemoteStatusSold
	default:
		return listing.RemoteStatusUnknown
	}
}
