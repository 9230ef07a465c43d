package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/haulops/internal/repository"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
)

// translate maps storage level errors onto the service taxonomy. Unknown
// errors pass through and end up as internal errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: already exists", ErrConflict)
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	case errors.Is(err, repository.ErrStateChanged):
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	case errors.Is(err, repository.ErrIneligible), errors.Is(err, repository.ErrNothingToClaim):
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return err
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
