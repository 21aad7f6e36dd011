package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusVoided    PaymentStatus = "VOIDED"
)

type Payment struct {
	ID        int64
	BookingID int64
	Amount    decimal.Decimal
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentOutcome is what the external payment processor reports for a payment.
type PaymentOutcome string

const (
	PaymentOutcomeConfirmed PaymentOutcome = "confirmed"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

func ParsePaymentOutcome(s string) (PaymentOutcome, error) {
	switch PaymentOutcome(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentOutcomeConfirmed:
		return PaymentOutcomeConfirmed, nil
	case PaymentOutcomeFailed:
		return PaymentOutcomeFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown payment outcome %q", ErrInvalidArgument, s)
	}
}
