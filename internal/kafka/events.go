package kafka

import "time"

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventPaymentFailed    = "payment_failed"
)

type BookingEvent struct {
	Type        string    `json:"type"`
	Reference   string    `json:"reference"`
	BookingID   int64     `json:"booking_id"`
	ShowtimeID  int64     `json:"showtime_id"`
	SeatID      int64     `json:"seat_id"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	IsBookedOut bool      `json:"is_booked_out"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentResult is published by the external payment processor once it has
// settled the payment of a booking.
type PaymentResult struct {
	BookingID int64  `json:"booking_id"`
	PaymentID int64  `json:"payment_id"`
	Outcome   string `json:"outcome"`
}
