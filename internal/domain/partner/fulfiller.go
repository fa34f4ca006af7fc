package partner

import (
	"net/mail"
	"strings"

	"github.com/stockitup/backend/internal/domain/shared"
)

// Fulfiller ships orders on behalf of the sellers, in-house or as a third party
type Fulfiller struct {
	shared.BaseEntity
	Name  string `gorm:"type:varchar(200);not null" json:"name"`
	Email string `gorm:"type:varchar(200)" json:"email"`
	Phone string `gorm:"type:varchar(50)" json:"phone"`
}

// TableName returns the table name for GORM
func (Fulfiller) TableName() string {
	return "fulfillers"
}

// NewFulfiller creates a fulfiller
func NewFulfiller(name, email, phone string) (*Fulfiller, error) {
	f := &Fulfiller{BaseEntity: shared.NewBaseEntity()}
	if err := f.Update(name, email, phone); err != nil {
		return nil, err
	}
	return f, nil
}

// Update replaces the fulfiller fields
func (f *Fulfiller) Update(name, email, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.InvalidInput("name is required")
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.InvalidInput("email is not valid")
		}
	}
	f.Name = name
	f.Email = email
	f.Phone = strings.TrimSpace(phone)
	f.Touch()
	return nil
}
