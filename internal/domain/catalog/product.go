package catalog

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/shared"
)

// DefaultLowStockThreshold is the stock level at or below which a product is reported low
const DefaultLowStockThreshold = 5

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidationRules toggles the optional identifier checks
type ValidationRules struct {
	EAN bool
	SKU bool
}

// Product is a sellable item and its stock level
type Product struct {
	shared.BaseEntity
	SKU               string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	EAN               string          `gorm:"type:varchar(14);index" json:"ean"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	StockQuantity     int             `gorm:"not null;default:0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"not null;default:5" json:"low_stock_threshold"`
	ImageKey          string          `gorm:"type:varchar(255)" json:"image_key,omitempty"`
	// Version is checked and incremented by every update of a stored product
	Version int `gorm:"not null;default:1" json:"version"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ProductInput carries the editable product fields
type ProductInput struct {
	SKU               string
	EAN               string
	Name              string
	Description       string
	Price             decimal.Decimal
	Currency          string
	StockQuantity     int
	LowStockThreshold int
}

// NewProduct validates the input and creates a product
func NewProduct(in ProductInput, rules ValidationRules) (*Product, error) {
	if in.StockQuantity < 0 {
		return nil, shared.InvalidInput("stock quantity cannot be negative")
	}
	p := &Product{
		BaseEntity:        shared.NewBaseEntity(),
		Version:           1,
		StockQuantity:     in.StockQuantity,
		LowStockThreshold: DefaultLowStockThreshold,
	}
	if err := p.apply(in, rules); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the editable fields. Stock is changed through AdjustStock only.
func (p *Product) Update(in ProductInput, rules ValidationRules) error {
	if err := p.apply(in, rules); err != nil {
		return err
	}
	p.Touch()
	return nil
}

func (p *Product) apply(in ProductInput, rules ValidationRules) error {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return shared.InvalidInput("SKU is required")
	}
	if rules.SKU && !skuPattern.MatchString(sku) {
		return shared.InvalidInput("SKU may only contain letters, digits, '.', '_' and '-' (max 64)")
	}

	ean := strings.TrimSpace(in.EAN)
	if ean != "" && rules.EAN && !ValidEAN(ean) {
		return shared.InvalidInput("EAN must be 8 or 13 digits with a valid check digit")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return shared.InvalidInput("name is required")
	}
	if len(name) > 255 {
		return shared.InvalidInput("name cannot exceed 255 characters")
	}

	if in.Price.IsNegative() {
		return shared.InvalidInput("price cannot be negative")
	}
	currency, err := shared.NormalizeCurrency(in.Currency)
	if err != nil {
		return err
	}
	if in.LowStockThreshold < 0 {
		return shared.InvalidInput("low stock threshold cannot be negative")
	}

	p.SKU = sku
	p.EAN = ean
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	p.Price = shared.RoundMoney(in.Price)
	p.Currency = currency
	if in.LowStockThreshold > 0 {
		p.LowStockThreshold = in.LowStockThreshold
	}
	return nil
}

// AdjustStock changes the stock level by delta. The level never drops below zero.
func (p *Product) AdjustStock(delta int) error {
	if p.StockQuantity+delta < 0 {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code,
			"insufficient stock for "+p.SKU)
	}
	p.StockQuantity += delta
	p.Touch()
	return nil
}

// SetStock overwrites the stock level, e.g. from a stock count
func (p *Product) SetStock(quantity int) error {
	if quantity < 0 {
		return shared.InvalidInput("stock quantity cannot be negative")
	}
	p.StockQuantity = quantity
	p.Touch()
	return nil
}

// IsLowStock reports whether the stock level is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// SetImage records the storage key of the product image
func (p *Product) SetImage(key string) {
	p.ImageKey = key
	p.Touch()
}

// ValidEAN reports whether code is an EAN-8 or EAN-13 with a correct GS1 check digit
func ValidEAN(code string) bool {
	if len(code) != 8 && len(code) != 13 {
		return false
	}
	sum := 0
	// weights alternate 3,1 from the digit left of the check digit
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * weight
		weight = 4 - weight
	}
	last := code[len(code)-1]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}
