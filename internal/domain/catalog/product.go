package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound indicates the catalog has no product with the given ID
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogUnavailable indicates the catalog service could not be reached
	ErrCatalogUnavailable = errors.New("catalog: catalog service unavailable")
	// ErrInvalidProductStatus indicates an unknown product status value
	ErrInvalidProductStatus = errors.New("catalog: invalid product status")
)

// ProductStatus represents the lifecycle status of a catalog product
type ProductStatus string

const (
	// ProductStatusDraft indicates the product has not been listed anywhere yet
	ProductStatusDraft ProductStatus = "draft"
	// ProductStatusActive indicates the product is listed on at least one platform
	ProductStatusActive ProductStatus = "active"
	// ProductStatusSold indicates the product quantity reached zero through sales
	ProductStatusSold ProductStatus = "sold"
	// ProductStatusArchived indicates the product was retired without selling out
	ProductStatusArchived ProductStatus = "archived"
)

// IsValid returns true if the status is a known value
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusSold, ProductStatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProductStatus
func (s ProductStatus) String() string {
	return string(s)
}

// Condition describes the physical condition of a second-hand product
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionLikeNew    Condition = "like-new"
	ConditionGood       Condition = "good"
	ConditionFair       Condition = "fair"
	ConditionAcceptable Condition = "acceptable"
)

// IsValid returns true if the condition is a known value
func (c Condition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionAcceptable:
		return true
	default:
		return false
	}
}

// String returns the string representation of Condition
func (c Condition) String() string {
	return string(c)
}

// Product is the catalog's view of a sellable item. The listing engine never
// mutates product attributes other than status and quantity, and only through
// the ProductCatalog port.
type Product struct {
	// ID is the catalog product identifier
	ID uuid.UUID
	// Title is the product title
	Title string
	// Description is the long-form product description
	Description string
	// Price is the asking price
	Price decimal.Decimal
	// Quantity is the number of physical units on hand
	Quantity int
	// Condition describes the item's physical condition
	Condition Condition
	// ImageURLs contains product image URLs in display order
	ImageURLs []string
	// Category is the catalog category name
	Category string
	// Brand is the manufacturer brand, if known
	Brand string
	// Model is the manufacturer model, if known
	Model string
	// SKU is the internal stock-keeping unit
	SKU string
	// UPC is the universal product code, if known
	UPC string
	// Status is the product lifecycle status
	Status ProductStatus
}

// InStock returns true if at least one physical unit remains
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// ProductCatalog is the port to the product/inventory catalog, which is an
// external collaborator. The engine consumes it through this narrow surface
// and never reaches into catalog storage directly.
type ProductCatalog interface {
	// GetProduct fetches a product by ID
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// SetProductStatus updates the product lifecycle status
	SetProductStatus(ctx context.Context, id uuid.UUID, status ProductStatus) error

	// DecrementQuantity atomically reduces on-hand quantity by n, flooring at
	// zero, and returns the remaining quantity
	DecrementQuantity(ctx context.Context, id uuid.UUID, n int) (int, error)
}
