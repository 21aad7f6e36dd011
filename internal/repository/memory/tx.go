package memory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/repository"
)

// memTx runs with the store's write lock already held.
type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetShowtime(_ context.Context, id int64) (*domain.Showtime, error) {
	st, ok := t.s.showtimes[id]
	if !ok {
		return nil, notFound("showtime", id)
	}
	return &st, nil
}

func (t *memTx) LockShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	return t.GetShowtime(ctx, id)
}

func (t *memTx) SetShowtimeBookedOut(_ context.Context, id int64, bookedOut bool) error {
	prev, ok := t.s.showtimes[id]
	if !ok {
		return notFound("showtime", id)
	}
	next := prev
	next.IsBookedOut = bookedOut
	next.UpdatedAt = t.s.now()
	t.s.showtimes[id] = next
	t.undo = append(t.undo, func() { t.s.showtimes[id] = prev })
	return nil
}

func (t *memTx) ListSeatsForScreen(_ context.Context, screenID int64) ([]domain.Seat, error) {
	return t.s.listSeatsForScreen(screenID), nil
}

func (t *memTx) ListSeatCategories(_ context.Context) ([]domain.SeatCategory, error) {
	return t.s.listSeatCategories(), nil
}

func (t *memTx) ActiveSeatIDs(_ context.Context, showtimeID int64) ([]int64, error) {
	return t.s.activeSeatIDs(showtimeID), nil
}

func (t *memTx) InsertBooking(_ context.Context, booking *domain.Booking) error {
	if _, ok := t.s.showtimes[booking.ShowtimeID]; !ok {
		return violation("showtime %d does not exist", booking.ShowtimeID)
	}
	if _, ok := t.s.seats[booking.SeatID]; !ok {
		return violation("seat %d does not exist", booking.SeatID)
	}
	if _, taken := t.s.references[booking.Reference]; taken {
		return violation("booking reference %s already exists", booking.Reference)
	}
	key := seatKey{showtimeID: booking.ShowtimeID, seatID: booking.SeatID}
	if booking.IsActive() {
		if _, taken := t.s.activeSeats[key]; taken {
			return fmt.Errorf("insert booking for seat %d: %w", booking.SeatID, domain.ErrSeatUnavailable)
		}
	}

	now := t.s.now()
	booking.ID = t.s.nextID()
	booking.CreatedAt, booking.UpdatedAt = now, now
	t.s.bookings[booking.ID] = *booking
	t.s.references[booking.Reference] = booking.ID
	if booking.IsActive() {
		t.s.activeSeats[key] = booking.ID
	}

	id, ref, active := booking.ID, booking.Reference, booking.IsActive()
	t.undo = append(t.undo, func() {
		delete(t.s.bookings, id)
		delete(t.s.references, ref)
		if active {
			delete(t.s.activeSeats, key)
		}
	})
	return nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	prev, ok := t.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	next := prev
	next.Status = status
	next.UpdatedAt = t.s.now()

	key := seatKey{showtimeID: prev.ShowtimeID, seatID: prev.SeatID}
	switch {
	case prev.IsActive() && !next.IsActive():
		delete(t.s.activeSeats, key)
	case !prev.IsActive() && next.IsActive():
		if _, taken := t.s.activeSeats[key]; taken {
			return nil, fmt.Errorf("reactivate booking %d: %w", id, domain.ErrSeatUnavailable)
		}
		t.s.activeSeats[key] = id
	}
	t.s.bookings[id] = next

	t.undo = append(t.undo, func() {
		t.s.bookings[id] = prev
		if prev.IsActive() {
			t.s.activeSeats[key] = id
		} else if owner, ok := t.s.activeSeats[key]; ok && owner == id {
			delete(t.s.activeSeats, key)
		}
	})
	return &next, nil
}

func (t *memTx) InsertPayment(_ context.Context, payment *domain.Payment) error {
	if _, ok := t.s.bookings[payment.BookingID]; !ok {
		return violation("booking %d does not exist", payment.BookingID)
	}
	if _, exists := t.s.paymentByBooking[payment.BookingID]; exists {
		return violation("booking %d already has a payment", payment.BookingID)
	}
	if payment.Amount.IsNegative() {
		return fmt.Errorf("%w: payment amount is negative", domain.ErrInvalidArgument)
	}

	now := t.s.now()
	payment.ID = t.s.nextID()
	payment.CreatedAt, payment.UpdatedAt = now, now
	t.s.payments[payment.ID] = *payment
	t.s.paymentByBooking[payment.BookingID] = payment.ID

	id, bookingID := payment.ID, payment.BookingID
	t.undo = append(t.undo, func() {
		delete(t.s.payments, id)
		delete(t.s.paymentByBooking, bookingID)
	})
	return nil
}

func (t *memTx) GetPaymentByBooking(_ context.Context, bookingID int64) (*domain.Payment, error) {
	return t.s.paymentOf(bookingID)
}

func (t *memTx) UpdatePaymentStatus(_ context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error) {
	prev, ok := t.s.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	next := prev
	next.Status = status
	next.UpdatedAt = t.s.now()
	t.s.payments[id] = next
	t.undo = append(t.undo, func() { t.s.payments[id] = prev })
	return &next, nil
}

var _ repository.Tx = (*memTx)(nil)
