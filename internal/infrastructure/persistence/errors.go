package persistence

import (
	"errors"

	"github.com/stockitup/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm errors onto the domain's sentinels
func translateError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, resource+" already exists")
	}
	return err
}
