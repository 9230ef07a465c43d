package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrAlreadyClaimed means another invoice or payment linked one of the
	// requested operations first. The surrounding transaction is rolled back.
	ErrAlreadyClaimed = errors.New("operations already claimed")
	// ErrIneligible means a requested operation cannot be billed or settled.
	ErrIneligible = errors.New("operation not eligible")
	// ErrNothingToClaim means the selection matched no operation.
	ErrNothingToClaim = errors.New("no eligible operations")
	// ErrStateChanged means a conditional write lost a race.
	ErrStateChanged = errors.New("state changed concurrently")
)

// deleted reports a conditional delete that matched no row as ErrStateChanged.
func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}
