package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSchedule     = errors.New("invalid schedule")
	ErrSeatUnavailable     = errors.New("seat unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrStorage             = errors.New("storage error")
)

// SeatUnavailableError names the seat that could not be reserved.
type SeatUnavailableError struct {
	SeatID int64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %d is unavailable", e.SeatID)
}

func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}

// StorageError wraps a failure of the underlying store. Callers may retry the
// whole operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
