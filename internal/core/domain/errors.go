package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidInput       = errors.New("invalid input")

	ErrNotFound = errors.New("not found")

	ErrClientNotFound        = fmt.Errorf("client %w", ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrServiceNotFound       = fmt.Errorf("service %w", ErrNotFound)
	ErrTariffNotFound        = fmt.Errorf("tariff %w", ErrNotFound)
	ErrClientServiceNotFound = fmt.Errorf("client service %w", ErrNotFound)
	ErrUserServiceNotFound   = fmt.Errorf("user service %w", ErrNotFound)

	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateName     = errors.New("name already exists")

	ErrAlreadySubscribed = errors.New("service already connected to client")
	ErrAlreadyAssigned   = errors.New("service already assigned to user")
	ErrHasDependents     = errors.New("resource still has dependent records")
	ErrBusy              = errors.New("resource is being modified concurrently, retry later")

	ErrTariffLimitExceeded = errors.New("tariff limit exceeded")
	ErrNotSubscribed       = errors.New("service is not connected to your client")
	ErrNotAssigned         = errors.New("service is not assigned to user")
	ErrDuplicateReport     = errors.New("usage report already recorded")
)

// LimitError reports which tariff cap blocked a mutation.
type LimitError struct {
	Limit   string
	Max     int
	Current int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s is %d (current %d)", ErrTariffLimitExceeded, e.Limit, e.Max, e.Current)
}

func (e *LimitError) Unwrap() error { return ErrTariffLimitExceeded }
