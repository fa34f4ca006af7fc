package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
)

// Seller is a trading name that sells on the marketplaces
type Seller struct {
	shared.BaseEntity
	Name      string     `gorm:"type:varchar(200);not null" json:"name"`
	AddressID *uuid.UUID `gorm:"index" json:"address_id,omitempty"`
}

// TableName returns the table name for GORM
func (Seller) TableName() string {
	return "sellers"
}

// NewSeller creates a seller
func NewSeller(name string, addressID *uuid.UUID) (*Seller, error) {
	s := &Seller{BaseEntity: shared.NewBaseEntity()}
	if err := s.Update(name, addressID); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the seller fields
func (s *Seller) Update(name string, addressID *uuid.UUID) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.InvalidInput("name is required")
	}
	s.Name = name
	s.AddressID = addressID
	s.Touch()
	return nil
}
