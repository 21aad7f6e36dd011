package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatUnavailableError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &SeatUnavailableError{SeatID: 7})

	assert.True(t, errors.Is(err, ErrSeatUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))

	var seatErr *SeatUnavailableError
	assert.True(t, errors.As(err, &seatErr))
	assert.Equal(t, int64(7), seatErr.SeatID)
}

func TestStorageError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StorageError{Op: "insert booking", Err: cause}

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "insert booking")
}

func TestParsePaymentOutcome(t *testing.T) {
	outcome, err := ParsePaymentOutcome(" Confirmed ")
	assert.NoError(t, err)
	assert.Equal(t, PaymentOutcomeConfirmed, outcome)

	outcome, err = ParsePaymentOutcome("failed")
	assert.NoError(t, err)
	assert.Equal(t, PaymentOutcomeFailed, outcome)

	_, err = ParsePaymentOutcome("refunded")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
