package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/catalog"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU               string          `json:"sku" form:"sku" binding:"required,min=1,max=64"`
	EAN               string          `json:"ean" form:"ean" binding:"omitempty,numeric,max=14"`
	Name              string          `json:"name" form:"name" binding:"required,min=1,max=255"`
	Description       string          `json:"description" form:"description" binding:"max=5000"`
	Price             decimal.Decimal `json:"price" form:"price"`
	Currency          string          `json:"currency" form:"currency" binding:"omitempty,len=3"`
	StockQuantity     int             `json:"stock_quantity" form:"stock_quantity" binding:"gte=0"`
	LowStockThreshold int             `json:"low_stock_threshold" form:"low_stock_threshold" binding:"gte=0"`
}

func (r CreateProductRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		SKU:               r.SKU,
		EAN:               r.EAN,
		Name:              r.Name,
		Description:       r.Description,
		Price:             r.Price,
		Currency:          r.Currency,
		StockQuantity:     r.StockQuantity,
		LowStockThreshold: r.LowStockThreshold,
	}
}

// UpdateProductRequest represents a request to update a product.
// Nil fields keep their current value.
type UpdateProductRequest struct {
	SKU               *string          `json:"sku" form:"sku" binding:"omitempty,min=1,max=64"`
	EAN               *string          `json:"ean" form:"ean" binding:"omitempty,max=14"`
	Name              *string          `json:"name" form:"name" binding:"omitempty,min=1,max=255"`
	Description       *string          `json:"description" form:"description" binding:"omitempty,max=5000"`
	Price             *decimal.Decimal `json:"price" form:"price"`
	Currency          *string          `json:"currency" form:"currency" binding:"omitempty,len=3"`
	LowStockThreshold *int             `json:"low_stock_threshold" form:"low_stock_threshold" binding:"omitempty,gte=0"`
}

func (r UpdateProductRequest) merge(p *catalog.Product) catalog.ProductInput {
	in := catalog.ProductInput{
		SKU:               p.SKU,
		EAN:               p.EAN,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		Currency:          p.Currency,
		LowStockThreshold: p.LowStockThreshold,
	}
	if r.SKU != nil {
		in.SKU = *r.SKU
	}
	if r.EAN != nil {
		in.EAN = *r.EAN
	}
	if r.Name != nil {
		in.Name = *r.Name
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Currency != nil {
		in.Currency = *r.Currency
	}
	if r.LowStockThreshold != nil {
		in.LowStockThreshold = *r.LowStockThreshold
	}
	return in
}

// AdjustStockRequest changes the stock level by a signed delta
type AdjustStockRequest struct {
	Delta  int    `json:"delta" form:"delta" binding:"required"`
	Reason string `json:"reason" form:"reason" binding:"max=200"`
}

// ProductListFilter holds the list query parameters
type ProductListFilter struct {
	Search   string `form:"q"`
	LowStock bool   `form:"low_stock"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	EAN               string          `json:"ean"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsLowStock        bool            `json:"is_low_stock"`
	ImageURL          string          `json:"image_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		EAN:               p.EAN,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		Currency:          p.Currency,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		IsLowStock:        p.IsLowStock(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// DuplicateResponse is a pair of products that look like the same item
type DuplicateResponse struct {
	First      ProductResponse `json:"first"`
	Second     ProductResponse `json:"second"`
	Similarity float64         `json:"similarity"`
	Reason     string          `json:"reason"`
}
