package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/kafka"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/Domenick1991/showbooking/internal/repository/memory"
	"github.com/Domenick1991/showbooking/internal/service/showtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) Invalidate(ctx context.Context, showtimeID int64) {
	m.Called(ctx, showtimeID)
}

// failingBookings injects a storage failure into every transaction after the
// first booking row has been written.
type failingBookings struct {
	repository.BookingRepository
	err error
}

func (f *failingBookings) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return f.BookingRepository.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, err: f.err})
	})
}

type failingTx struct {
	repository.Tx
	err error
}

func (t *failingTx) InsertPayment(context.Context, *domain.Payment) error {
	return &domain.StorageError{Op: "insert payment", Err: t.err}
}

// staleBookings hands out transactions whose ActiveSeatIDs reports no taken
// seats, as a snapshot read before a concurrent commit would.
type staleBookings struct {
	repository.BookingRepository
}

func (b *staleBookings) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return b.BookingRepository.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &staleTx{Tx: tx})
	})
}

type staleTx struct {
	repository.Tx
}

func (t *staleTx) ActiveSeatIDs(context.Context, int64) ([]int64, error) {
	return nil, nil
}

type fixture struct {
	store    *memory.Store
	showtime domain.Showtime
	a1       domain.Seat // standard
	a2       domain.Seat // vip, +50%
	broken   domain.Seat // not usable
	foreign  domain.Seat // on another screen
	soldOut  *showtime.ShowtimeService
}

// seed builds the "Heat" showtime at 10.00 with a standard seat A1, a vip seat
// A2 and an unusable seat A3.
func seed(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	catalog := store.Catalog()

	movie := &domain.Movie{Title: "Heat", DurationMinutes: 170}
	require.NoError(t, catalog.CreateMovie(ctx, movie))
	cinema := &domain.Cinema{Name: "Odeon"}
	require.NoError(t, catalog.CreateCinema(ctx, cinema))
	screen := &domain.Screen{CinemaID: cinema.ID, Name: "Screen 1"}
	require.NoError(t, catalog.CreateScreen(ctx, screen))
	other := &domain.Screen{CinemaID: cinema.ID, Name: "Screen 2"}
	require.NoError(t, catalog.CreateScreen(ctx, other))

	standard := &domain.SeatCategory{Name: "standard", PremiumPercentage: decimal.Zero}
	require.NoError(t, catalog.CreateSeatCategory(ctx, standard))
	vip := &domain.SeatCategory{Name: "vip", PremiumPercentage: decimal.NewFromInt(50)}
	require.NoError(t, catalog.CreateSeatCategory(ctx, vip))

	f := &fixture{store: store}
	f.a1 = domain.Seat{ScreenID: screen.ID, SeatCategoryID: standard.ID, SeatNumber: "A1", IsAvailable: true}
	require.NoError(t, catalog.CreateSeat(ctx, &f.a1))
	f.a2 = domain.Seat{ScreenID: screen.ID, SeatCategoryID: vip.ID, SeatNumber: "A2", IsAvailable: true}
	require.NoError(t, catalog.CreateSeat(ctx, &f.a2))
	f.broken = domain.Seat{ScreenID: screen.ID, SeatCategoryID: standard.ID, SeatNumber: "A3", IsAvailable: false}
	require.NoError(t, catalog.CreateSeat(ctx, &f.broken))
	f.foreign = domain.Seat{ScreenID: other.ID, SeatCategoryID: standard.ID, SeatNumber: "A1", IsAvailable: true}
	require.NoError(t, catalog.CreateSeat(ctx, &f.foreign))

	start := time.Date(2026, 10, 20, 19, 30, 0, 0, time.UTC)
	st := &domain.Showtime{
		MovieID:   movie.ID,
		ScreenID:  screen.ID,
		StartTime: start,
		EndTime:   start.Add(movie.Duration()),
		BasePrice: decimal.RequireFromString("10.00"),
	}
	require.NoError(t, store.Showtimes().Create(ctx, st))
	f.showtime = *st

	f.soldOut = showtime.NewShowtimeService(store.Showtimes(), catalog, nil, nil, nil)
	return f
}

func (f *fixture) service(opts ...BookingServiceOption) *BookingService {
	return NewBookingService(f.store.Bookings(), f.store.Showtimes(), f.store.Catalog(), f.soldOut, opts...)
}

func (f *fixture) reserve(t *testing.T, s *BookingService, seatIDs ...int64) *domain.Reservation {
	t.Helper()
	r, err := s.Reserve(context.Background(), ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: seatIDs, Email: "guest@example.com"})
	require.NoError(t, err)
	return r
}

func (f *fixture) bookedOut(t *testing.T) bool {
	t.Helper()
	st, err := f.store.Showtimes().GetByID(context.Background(), f.showtime.ID)
	require.NoError(t, err)
	return st.IsBookedOut
}

func (f *fixture) activeSeats(t *testing.T) []int64 {
	t.Helper()
	ids, err := f.store.Bookings().ActiveSeatIDs(context.Background(), f.showtime.ID)
	require.NoError(t, err)
	return ids
}

func TestReserve_PricesEachSeatAndBooksOut(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "booking-events", mock.AnythingOfType("string"), mock.AnythingOfType("kafka.BookingEvent")).Return(nil).Twice()
	producer.On("Publish", mock.Anything, "notifications", mock.AnythingOfType("string"), mock.AnythingOfType("kafka.BookingEvent")).Return(nil).Twice()
	availability := &MockAvailability{}
	availability.On("Invalidate", mock.Anything, f.showtime.ID).Return().Once()

	s := f.service(
		WithProducer(producer, "booking-events"),
		WithNotificationsTopic("notifications"),
		WithAvailability(availability),
	)

	r, err := s.Reserve(ctx, ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a2.ID, f.a1.ID}, Email: " guest@example.com "})
	require.NoError(t, err)
	require.Len(t, r.Seats, 2)

	// seats come back in ascending id order
	assert.Equal(t, f.a1.ID, r.Seats[0].Booking.SeatID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(r.Seats[0].Payment.Amount))
	assert.Equal(t, f.a2.ID, r.Seats[1].Booking.SeatID)
	assert.True(t, decimal.RequireFromString("15.00").Equal(r.Seats[1].Payment.Amount))
	assert.True(t, decimal.RequireFromString("25.00").Equal(r.Total))

	for _, rs := range r.Seats {
		assert.Equal(t, domain.BookingStatusPending, rs.Booking.Status)
		assert.Equal(t, domain.PaymentStatusPending, rs.Payment.Status)
		assert.Equal(t, rs.Booking.ID, rs.Payment.BookingID)
		assert.NotEmpty(t, rs.Booking.Reference)
		assert.Equal(t, "guest@example.com", rs.Booking.Email)
	}
	assert.NotEqual(t, r.Seats[0].Booking.Reference, r.Seats[1].Booking.Reference)

	assert.True(t, r.Showtime.IsBookedOut)
	assert.True(t, f.bookedOut(t))
	producer.AssertExpectations(t)
	availability.AssertExpectations(t)
}

func TestReserve_AllOrNothing(t *testing.T) {
	f := seed(t)
	s := f.service()
	first := f.reserve(t, s, f.a1.ID)

	_, err := s.Reserve(context.Background(), ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a2.ID, f.a1.ID}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	var seatErr *domain.SeatUnavailableError
	require.True(t, errors.As(err, &seatErr))
	assert.Equal(t, f.a1.ID, seatErr.SeatID)

	assert.Equal(t, []int64{f.a1.ID}, f.activeSeats(t))
	history, err := f.store.Bookings().ListByShowtime(context.Background(), f.showtime.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, first.Seats[0].Booking.ID, history[0].ID)
	assert.False(t, f.bookedOut(t))
}

func TestReserve_StoreConstraintRejectsSeatMissedByPreCheck(t *testing.T) {
	f := seed(t)
	held := f.reserve(t, f.service(), f.a2.ID)
	require.False(t, f.bookedOut(t))

	s := NewBookingService(&staleBookings{BookingRepository: f.store.Bookings()}, f.store.Showtimes(), f.store.Catalog(), f.soldOut)
	_, err := s.Reserve(context.Background(), ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a1.ID, f.a2.ID}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	var seatErr *domain.SeatUnavailableError
	require.True(t, errors.As(err, &seatErr))
	assert.Equal(t, f.a2.ID, seatErr.SeatID)

	// the A1 row written before the conflict was rolled back
	assert.Equal(t, []int64{f.a2.ID}, f.activeSeats(t))
	history, err := f.store.Bookings().ListByShowtime(context.Background(), f.showtime.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, held.Seats[0].Booking.ID, history[0].ID)
	assert.False(t, f.bookedOut(t))
}

func TestReserve_RejectsSeatsOutsideTheShowtime(t *testing.T) {
	f := seed(t)
	s := f.service()
	ctx := context.Background()

	tests := []struct {
		name   string
		seatID int64
	}{
		{"unusable seat", f.broken.ID},
		{"seat on another screen", f.foreign.ID},
		{"unknown seat", 99999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Reserve(ctx, ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a1.ID, tt.seatID}})
			var seatErr *domain.SeatUnavailableError
			require.True(t, errors.As(err, &seatErr))
			assert.Equal(t, tt.seatID, seatErr.SeatID)
		})
	}
	assert.Empty(t, f.activeSeats(t))
}

func TestReserve_InputValidation(t *testing.T) {
	f := seed(t)
	s := f.service()
	ctx := context.Background()

	_, err := s.Reserve(ctx, ReserveInput{ShowtimeID: f.showtime.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.Reserve(ctx, ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{-1}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.Reserve(ctx, ReserveInput{ShowtimeID: 4242, SeatIDs: []int64{f.a1.ID}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r, err := s.Reserve(ctx, ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a1.ID, f.a1.ID}})
	require.NoError(t, err)
	assert.Len(t, r.Seats, 1)
}

func TestReserve_StorageFailureRollsBack(t *testing.T) {
	f := seed(t)
	cause := errors.New("connection reset")
	s := NewBookingService(&failingBookings{BookingRepository: f.store.Bookings(), err: cause},
		f.store.Showtimes(), f.store.Catalog(), f.soldOut)

	_, err := s.Reserve(context.Background(), ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a1.ID, f.a2.ID}})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, cause)

	assert.Empty(t, f.activeSeats(t))
	assert.False(t, f.bookedOut(t))
}

func TestReserve_PublishFailureIsNotFatal(t *testing.T) {
	f := seed(t)
	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	r := f.reserve(t, f.service(WithProducer(producer, "booking-events"), WithNotificationsTopic("notifications")), f.a1.ID)
	assert.Len(t, r.Seats, 1)
	producer.AssertNotCalled(t, "Publish", mock.Anything, "notifications", mock.Anything, mock.Anything)
}

func TestReserve_ConcurrentCallersOneWinnerPerSeat(t *testing.T) {
	f := seed(t)
	s := f.service()

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Reserve(context.Background(), ReserveInput{ShowtimeID: f.showtime.ID, SeatIDs: []int64{f.a1.ID}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrSeatUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, []int64{f.a1.ID}, f.activeSeats(t))
}

func TestCancel_ReleasesSeatAndVoidsPayment(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	s := f.service()

	r := f.reserve(t, s, f.a1.ID, f.a2.ID)
	require.True(t, f.bookedOut(t))
	target := r.Seats[1].Booking

	cancelled, err := s.Cancel(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.False(t, f.bookedOut(t))
	assert.Equal(t, []int64{f.a1.ID}, f.activeSeats(t))

	details, err := s.GetBooking(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusVoided, details.Payment.Status)

	// the seat can be booked again
	again := f.reserve(t, s, f.a2.ID)
	assert.NotEqual(t, target.ID, again.Seats[0].Booking.ID)
	assert.True(t, f.bookedOut(t))
}

func TestCancel_MissingOrAlreadyCancelled(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	s := f.service()

	_, err := s.Cancel(ctx, 4242)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r := f.reserve(t, s, f.a1.ID)
	_, err = s.Cancel(ctx, r.Seats[0].Booking.ID)
	require.NoError(t, err)

	_, err = s.Cancel(ctx, r.Seats[0].Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmPayment_Confirmed(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.Anything).Return(nil)
	s := f.service(WithProducer(producer, "booking-events"))

	r := f.reserve(t, s, f.a1.ID)
	id := r.Seats[0].Booking.ID

	confirmed, err := s.ConfirmPayment(ctx, id, domain.PaymentOutcomeConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)

	details, err := s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, details.Payment.Status)
	assert.Equal(t, []int64{f.a1.ID}, f.activeSeats(t))

	// confirmed is terminal
	_, err = s.ConfirmPayment(ctx, id, domain.PaymentOutcomeConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = s.Cancel(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	var confirmedEvents int
	for _, call := range producer.Calls {
		if event, ok := call.Arguments.Get(3).(kafka.BookingEvent); ok && event.Type == kafka.EventBookingConfirmed {
			confirmedEvents++
			assert.Equal(t, "10.00", event.Amount)
		}
	}
	assert.Equal(t, 1, confirmedEvents)
}

func TestConfirmPayment_FailedCancelsBooking(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	s := f.service()

	r := f.reserve(t, s, f.a1.ID, f.a2.ID)
	require.True(t, f.bookedOut(t))
	id := r.Seats[0].Booking.ID

	cancelled, err := s.ConfirmPayment(ctx, id, domain.PaymentOutcomeFailed)
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	require.NotNil(t, cancelled)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	details, err := s.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, details.Payment.Status)
	assert.Equal(t, []int64{f.a2.ID}, f.activeSeats(t))
	assert.False(t, f.bookedOut(t))

	_, err = s.ConfirmPayment(ctx, id, domain.PaymentOutcomeConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestConfirmPayment_UnknownOutcomeOrBooking(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	s := f.service()

	_, err := s.ConfirmPayment(ctx, 1, domain.PaymentOutcome("refunded"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.ConfirmPayment(ctx, 4242, domain.PaymentOutcomeConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetTicket(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	s := f.service()

	r := f.reserve(t, s, f.a2.ID)
	b := r.Seats[0].Booking

	ticket, err := s.GetTicket(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Reference, ticket.Reference)
	assert.Equal(t, "Heat", ticket.MovieTitle)
	assert.Equal(t, "Screen 1", ticket.ScreenName)
	assert.Equal(t, "A2", ticket.SeatNumber)
	assert.Equal(t, "vip", ticket.Category)
	assert.Equal(t, f.showtime.StartTime, ticket.StartTime)
	assert.True(t, decimal.RequireFromString("15.00").Equal(ticket.Amount))

	_, err = s.Cancel(ctx, b.ID)
	require.NoError(t, err)
	_, err = s.GetTicket(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeSeatIDs(t *testing.T) {
	ids, err := normalizeSeatIDs([]int64{5, 3, 5, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids)

	_, err = normalizeSeatIDs(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
