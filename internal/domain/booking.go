package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID         int64
	ShowtimeID int64
	SeatID     int64
	Reference  string
	Status     BookingStatus
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the booking occupies its seat.
func (b Booking) IsActive() bool {
	return b.Status != BookingStatusCancelled
}

// ReservedSeat pairs a booking created by a reservation with its payment.
type ReservedSeat struct {
	Booking Booking
	Payment Payment
}

type Reservation struct {
	Showtime Showtime
	Seats    []ReservedSeat
	Total    decimal.Decimal
}

type Ticket struct {
	Reference  string
	BookingID  int64
	Status     BookingStatus
	MovieTitle string
	ScreenName string
	SeatNumber string
	Category   string
	StartTime  time.Time
	Amount     decimal.Decimal
}
