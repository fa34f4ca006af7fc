package partner

import (
	"strings"

	"github.com/stockitup/backend/internal/domain/shared"
)

// DefaultCountry is used when an address has no country
const DefaultCountry = "NL"

// Address is a postal address used by sellers and warehouses
type Address struct {
	shared.BaseEntity
	Name                string `gorm:"type:varchar(200);not null" json:"name"`
	Street              string `gorm:"type:varchar(200);not null" json:"street"`
	HouseNumber         string `gorm:"type:varchar(20);not null" json:"housenumber"`
	HouseNumberExtended string `gorm:"type:varchar(20)" json:"housenumber_extended"`
	ZipCode             string `gorm:"type:varchar(20);not null" json:"zipcode"`
	City                string `gorm:"type:varchar(100);not null" json:"city"`
	Country             string `gorm:"type:varchar(2);not null;default:'NL'" json:"country"`
}

// TableName returns the table name for GORM
func (Address) TableName() string {
	return "addresses"
}

// AddressInput carries the editable address fields
type AddressInput struct {
	Name                string
	Street              string
	HouseNumber         string
	HouseNumberExtended string
	ZipCode             string
	City                string
	Country             string
}

// NewAddress validates the input and creates an address
func NewAddress(in AddressInput) (*Address, error) {
	a := &Address{BaseEntity: shared.NewBaseEntity()}
	if err := a.Update(in); err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the address fields
func (a *Address) Update(in AddressInput) error {
	fields := map[string]string{
		"name":        in.Name,
		"street":      in.Street,
		"housenumber": in.HouseNumber,
		"zipcode":     in.ZipCode,
		"city":        in.City,
	}
	for _, f := range []string{"name", "street", "housenumber", "zipcode", "city"} {
		if strings.TrimSpace(fields[f]) == "" {
			return shared.InvalidInput(f + " is required")
		}
	}
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if country == "" {
		country = DefaultCountry
	}
	if len(country) != 2 {
		return shared.InvalidInput("country must be a two-letter code")
	}

	a.Name = strings.TrimSpace(in.Name)
	a.Street = strings.TrimSpace(in.Street)
	a.HouseNumber = strings.TrimSpace(in.HouseNumber)
	a.HouseNumberExtended = strings.TrimSpace(in.HouseNumberExtended)
	a.ZipCode = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.ZipCode), " ", ""))
	a.City = strings.TrimSpace(in.City)
	a.Country = country
	a.Touch()
	return nil
}

// Lines renders the address for a shipping label
func (a *Address) Lines() []string {
	number := a.HouseNumber
	if a.HouseNumberExtended != "" {
		number += " " + a.HouseNumberExtended
	}
	return []string{
		a.Name,
		a.Street + " " + number,
		a.ZipCode + " " + a.City,
		a.Country,
	}
}
