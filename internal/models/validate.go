package models

import (
	"github.com/transitworks/bus-booking-backend/internal/errs"
)

// errInvalid shortens validation error construction inside model methods
func errInvalid(message string) error {
	return errs.Validation(message)
}
