package partner

import (
	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/partner"
)

// AddressRequest carries the address form fields. A set ID updates that address.
type AddressRequest struct {
	ID                  string `json:"id" form:"id"`
	Name                string `json:"name" form:"name" binding:"required,max=200"`
	Street              string `json:"street" form:"street" binding:"required,max=200"`
	HouseNumber         string `json:"housenumber" form:"housenumber" binding:"required,max=20"`
	HouseNumberExtended string `json:"housenumber_extended" form:"housenumber_extended" binding:"max=20"`
	ZipCode             string `json:"zipcode" form:"zipcode" binding:"required,max=20"`
	City                string `json:"city" form:"city" binding:"required,max=100"`
	Country             string `json:"country" form:"country" binding:"omitempty,len=2"`
}

func (r AddressRequest) input() partner.AddressInput {
	return partner.AddressInput{
		Name:                r.Name,
		Street:              r.Street,
		HouseNumber:         r.HouseNumber,
		HouseNumberExtended: r.HouseNumberExtended,
		ZipCode:             r.ZipCode,
		City:                r.City,
		Country:             r.Country,
	}
}

// SellerRequest carries the seller form fields
type SellerRequest struct {
	ID        string `json:"id" form:"id"`
	Name      string `json:"name" form:"name" binding:"required,max=200"`
	AddressID string `json:"address_id" form:"address"`
}

// FulfillerRequest carries the fulfiller form fields
type FulfillerRequest struct {
	ID    string `json:"id" form:"id"`
	Name  string `json:"name" form:"name" binding:"required,max=200"`
	Email string `json:"email" form:"email" binding:"omitempty,email,max=200"`
	Phone string `json:"phone" form:"phone" binding:"max=50"`
}

// WarehouseRequest carries the warehouse form fields
type WarehouseRequest struct {
	ID          string `json:"id" form:"id"`
	Name        string `json:"name" form:"name" binding:"required,max=200"`
	AddressID   string `json:"address_id" form:"address"`
	FulfillerID string `json:"fulfiller_id" form:"fulfiller"`
}

// DeleteRequest is the JSON body of the delete endpoints
type DeleteRequest struct {
	ID string `json:"id" binding:"required"`
}

// OnboardingOverview is everything the welcome flow shows
type OnboardingOverview struct {
	Progress   partner.Progress    `json:"progress"`
	Addresses  []partner.Address   `json:"addresses"`
	Sellers    []partner.Seller    `json:"sellers"`
	Fulfillers []partner.Fulfiller `json:"fulfillers"`
	Warehouses []partner.Warehouse `json:"warehouses"`
}

// OnboardingPage is one step of the welcome flow. Records holds the step's own
// records; the later steps also get the addresses to pick from.
type OnboardingPage struct {
	Step      partner.OnboardingStep `json:"step"`
	Percent   int                    `json:"percent"`
	Progress  partner.Progress       `json:"progress"`
	Records   any                    `json:"records"`
	Addresses []partner.Address      `json:"addresses,omitempty"`
}

// parseOptionalID parses an optional form id; empty means none
func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidID(field)
	}
	return &id, nil
}
