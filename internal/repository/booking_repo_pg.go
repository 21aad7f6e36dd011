package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	TxManager
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetPayment(ctx context.Context, bookingID int64) (*domain.Payment, error)
	ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.Booking, error)
	ActiveSeatIDs(ctx context.Context, showtimeID int64) ([]int64, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const (
	bookingColumns = `id, showtime_id, seat_id, reference, status, email, created_at, updated_at`
	paymentColumns = `id, booking_id, amount, status, created_at, updated_at`
)

// WithinTx runs fn in a read-committed transaction. Admission of a seat is
// arbitrated by the partial unique index on (showtime_id, seat_id), not by
// the isolation level.
func (r *PGBookingRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return mapError("commit transaction", tx.Commit(ctx))
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, r.db, id, false)
}

func (r *PGBookingRepository) GetPayment(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return getPaymentByBooking(ctx, r.db, bookingID)
}

func (r *PGBookingRepository) ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE showtime_id=$1 ORDER BY id`, showtimeID)
	if err != nil {
		return nil, mapError("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapError("list bookings", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, mapError("list bookings", rows.Err())
}

func (r *PGBookingRepository) ActiveSeatIDs(ctx context.Context, showtimeID int64) ([]int64, error) {
	return activeSeatIDs(ctx, r.db, showtimeID)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	return getShowtime(ctx, t.tx, id, false)
}

func (t *pgTx) LockShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	return getShowtime(ctx, t.tx, id, true)
}

func (t *pgTx) SetShowtimeBookedOut(ctx context.Context, id int64, bookedOut bool) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE showtimes SET is_booked_out=$1, updated_at=now() WHERE id=$2`, bookedOut, id)
	if err != nil {
		return mapError("update booked out", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("showtime %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error) {
	return listSeatsForScreen(ctx, t.tx, screenID)
}

func (t *pgTx) ListSeatCategories(ctx context.Context) ([]domain.SeatCategory, error) {
	return listSeatCategories(ctx, t.tx)
}

func (t *pgTx) ActiveSeatIDs(ctx context.Context, showtimeID int64) ([]int64, error) {
	return activeSeatIDs(ctx, t.tx, showtimeID)
}

func (t *pgTx) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings (showtime_id, seat_id, reference, status, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		booking.ShowtimeID, booking.SeatID, booking.Reference, booking.Status, booking.Email).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return mapError(fmt.Sprintf("insert booking for seat %d", booking.SeatID), err)
	}
	return nil
}

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	row := t.tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, status, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("update booking %d", id), err)
	}
	return b, nil
}

func (t *pgTx) InsertPayment(ctx context.Context, payment *domain.Payment) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (booking_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, payment.BookingID, payment.Amount, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	return mapError("insert payment", err)
}

func (t *pgTx) GetPaymentByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return getPaymentByBooking(ctx, t.tx, bookingID)
}

func (t *pgTx) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error) {
	row := t.tx.QueryRow(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+paymentColumns, status, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("update payment %d", id), err)
	}
	return p, nil
}

func getBooking(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get booking %d", id), err)
	}
	return b, nil
}

func getPaymentByBooking(ctx context.Context, q querier, bookingID int64) (*domain.Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1`, bookingID))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get payment of booking %d", bookingID), err)
	}
	return p, nil
}

func activeSeatIDs(ctx context.Context, q querier, showtimeID int64) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT seat_id FROM bookings WHERE showtime_id=$1 AND status <> $2 ORDER BY seat_id`,
		showtimeID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, mapError("list active seats", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("list active seats", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError("list active seats", rows.Err())
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.ShowtimeID, &b.SeatID, &b.Reference, &b.Status, &b.Email, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

var (
	_ BookingRepository = (*PGBookingRepository)(nil)
	_ Tx                = (*pgTx)(nil)
)
