package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
)

// Warehouse is a stock location run by a fulfiller
type Warehouse struct {
	shared.BaseEntity
	Name        string     `gorm:"type:varchar(200);not null" json:"name"`
	AddressID   *uuid.UUID `gorm:"index" json:"address_id,omitempty"`
	FulfillerID *uuid.UUID `gorm:"index" json:"fulfiller_id,omitempty"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a warehouse
func NewWarehouse(name string, addressID, fulfillerID *uuid.UUID) (*Warehouse, error) {
	w := &Warehouse{BaseEntity: shared.NewBaseEntity()}
	if err := w.Update(name, addressID, fulfillerID); err != nil {
		return nil, err
	}
	return w, nil
}

// Update replaces the warehouse fields
func (w *Warehouse) Update(name string, addressID, fulfillerID *uuid.UUID) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.InvalidInput("name is required")
	}
	w.Name = name
	w.AddressID = addressID
	w.FulfillerID = fulfillerID
	w.Touch()
	return nil
}
