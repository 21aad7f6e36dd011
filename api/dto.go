package api

import (
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/pricing"
	"github.com/Domenick1991/showbooking/internal/service/availability"
	"github.com/shopspring/decimal"
)

// money renders amounts with two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(pricing.MinorUnits)
}

type movieResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

func toMovie(m domain.Movie) movieResponse {
	return movieResponse{ID: m.ID, Title: m.Title, Description: m.Description, DurationMinutes: m.DurationMinutes}
}

type showtimeResponse struct {
	ID          int64     `json:"id"`
	MovieID     int64     `json:"movie_id"`
	ScreenID    int64     `json:"screen_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	BasePrice   string    `json:"base_price"`
	IsBookedOut bool      `json:"is_booked_out"`
}

func toShowtime(s domain.Showtime) showtimeResponse {
	return showtimeResponse{
		ID:          s.ID,
		MovieID:     s.MovieID,
		ScreenID:    s.ScreenID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		BasePrice:   money(s.BasePrice),
		IsBookedOut: s.IsBookedOut,
	}
}

func toShowtimes(list []domain.Showtime) []showtimeResponse {
	out := make([]showtimeResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toShowtime(s))
	}
	return out
}

type scheduleEntry struct {
	Movie     movieResponse      `json:"movie"`
	Showtimes []showtimeResponse `json:"showtimes"`
}

type cinemaResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type screenResponse struct {
	ID       int64  `json:"id"`
	CinemaID int64  `json:"cinema_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type seatCategoryResponse struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	PremiumPercentage string `json:"premium_percentage"`
}

func toSeatCategory(c domain.SeatCategory) seatCategoryResponse {
	return seatCategoryResponse{
		ID:                c.ID,
		Name:              c.Name,
		Description:       c.Description,
		PremiumPercentage: c.PremiumPercentage.String(),
	}
}

type seatResponse struct {
	ID             int64  `json:"id"`
	ScreenID       int64  `json:"screen_id"`
	SeatCategoryID int64  `json:"seat_category_id"`
	SeatNumber     string `json:"seat_number"`
	IsAvailable    bool   `json:"is_available"`
}

func toSeat(s domain.Seat) seatResponse {
	return seatResponse{
		ID:             s.ID,
		ScreenID:       s.ScreenID,
		SeatCategoryID: s.SeatCategoryID,
		SeatNumber:     s.SeatNumber,
		IsAvailable:    s.IsAvailable,
	}
}

type seatStatusResponse struct {
	SeatID     int64  `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	Category   string `json:"category"`
	Price      string `json:"price"`
	Free       bool   `json:"free"`
}

func toSeatStatus(s availability.SeatStatus) seatStatusResponse {
	return seatStatusResponse{
		SeatID:     s.Seat.ID,
		SeatNumber: s.Seat.SeatNumber,
		Category:   s.Category.Name,
		Price:      money(s.Price),
		Free:       s.Free,
	}
}

type bookingResponse struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	ShowtimeID    int64     `json:"showtime_id"`
	SeatID        int64     `json:"seat_id"`
	Status        string    `json:"status"`
	Email         string    `json:"email,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBooking(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		Reference:  b.Reference,
		ShowtimeID: b.ShowtimeID,
		SeatID:     b.SeatID,
		Status:     string(b.Status),
		Email:      b.Email,
		CreatedAt:  b.CreatedAt,
	}
}

func toReservedSeat(rs domain.ReservedSeat) bookingResponse {
	resp := toBooking(rs.Booking)
	resp.Amount = money(rs.Payment.Amount)
	resp.PaymentStatus = string(rs.Payment.Status)
	return resp
}

type reservationResponse struct {
	Showtime showtimeResponse  `json:"showtime"`
	Bookings []bookingResponse `json:"bookings"`
	Total    string            `json:"total"`
}

type ticketResponse struct {
	Reference  string    `json:"reference"`
	BookingID  int64     `json:"booking_id"`
	Status     string    `json:"status"`
	MovieTitle string    `json:"movie_title"`
	ScreenName string    `json:"screen_name"`
	SeatNumber string    `json:"seat_number"`
	Category   string    `json:"category"`
	StartTime  time.Time `json:"start_time"`
	Amount     string    `json:"amount"`
}

func toTicket(t domain.Ticket) ticketResponse {
	return ticketResponse{
		Reference:  t.Reference,
		BookingID:  t.BookingID,
		Status:     string(t.Status),
		MovieTitle: t.MovieTitle,
		ScreenName: t.ScreenName,
		SeatNumber: t.SeatNumber,
		Category:   t.Category,
		StartTime:  t.StartTime,
		Amount:     money(t.Amount),
	}
}
