package repository

import (
	"errors"
	"fmt"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
)

const activeSeatIndex = "bookings_active_seat_uniq"

// mapError translates driver errors into the domain error taxonomy. Anything it
// does not recognise is reported as a storage failure.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == activeSeatIndex {
				return fmt.Errorf("%s: %w", op, domain.ErrSeatUnavailable)
			}
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConstraintViolation, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConstraintViolation, pgErr.ConstraintName)
		case pgExclusionViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrInvalidSchedule)
		case pgCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidArgument, pgErr.ConstraintName)
		}
	}

	// Domain errors raised inside a transaction callback pass through untouched.
	if isDomainError(err) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidSchedule,
		domain.ErrSeatUnavailable,
		domain.ErrConstraintViolation,
		domain.ErrInvalidArgument,
		domain.ErrPaymentFailed,
		domain.ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
