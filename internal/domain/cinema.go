package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cinema struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Screen is a showroom. Capacity tracks the number of seats created for it.
type Screen struct {
	ID        int64
	CinemaID  int64
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SeatCategory struct {
	ID                int64
	Name              string
	Description       string
	PremiumPercentage decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Seat is part of a screen layout. IsAvailable marks the seat as usable at all;
// occupancy for a particular showtime is derived from active bookings.
type Seat struct {
	ID             int64
	ScreenID       int64
	SeatCategoryID int64
	SeatNumber     string
	IsAvailable    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
