package repository

import (
	"context"

	"github.com/Domenick1991/showbooking/internal/domain"
)

// Tx is the set of storage operations the booking engine runs inside a single
// transaction. Implementations must run with at least read-committed isolation
// and must reject a second active booking for the same (showtime, seat) pair
// with domain.ErrSeatUnavailable regardless of what the caller checked before.
type Tx interface {
	GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error)
	// LockShowtime reads the showtime and holds its row lock until the end of
	// the transaction.
	LockShowtime(ctx context.Context, id int64) (*domain.Showtime, error)
	SetShowtimeBookedOut(ctx context.Context, id int64, bookedOut bool) error

	ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error)
	ListSeatCategories(ctx context.Context) ([]domain.SeatCategory, error)

	ActiveSeatIDs(ctx context.Context, showtimeID int64) ([]int64, error)

	InsertBooking(ctx context.Context, booking *domain.Booking) error
	GetBookingForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)

	InsertPayment(ctx context.Context, payment *domain.Payment) error
	GetPaymentByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error)
}

// TxManager runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
