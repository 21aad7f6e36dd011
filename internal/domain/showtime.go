package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Showtime struct {
	ID          int64
	MovieID     int64
	ScreenID    int64
	StartTime   time.Time
	EndTime     time.Time
	BasePrice   decimal.Decimal
	// IsBookedOut is set when every usable seat (IsAvailable) on the screen
	// has an active booking. Seats marked unavailable are not counted, and a
	// screen without usable seats is never booked out.
	IsBookedOut bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overlaps reports whether the half-open interval [start, end) intersects the showtime.
func (s Showtime) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// MovieSchedule is a movie with the showtimes a user can still book.
type MovieSchedule struct {
	Movie     Movie
	Showtimes []Showtime
}
