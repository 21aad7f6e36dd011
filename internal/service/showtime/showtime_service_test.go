package showtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/Domenick1991/showbooking/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockScheduleCache struct {
	mock.Mock
}

func (m *MockScheduleCache) GetSchedule(ctx context.Context) ([]domain.MovieSchedule, error) {
	args := m.Called(ctx)
	schedule, _ := args.Get(0).([]domain.MovieSchedule)
	return schedule, args.Error(1)
}

func (m *MockScheduleCache) SetSchedule(ctx context.Context, schedule []domain.MovieSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleCache) InvalidateSchedule(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) FreeSeats(ctx context.Context, showtimeID int64) ([]int64, error) {
	args := m.Called(ctx, showtimeID)
	seats, _ := args.Get(0).([]int64)
	return seats, args.Error(1)
}

var now = time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	movie  domain.Movie
	screen domain.Screen
	seats  []domain.Seat
}

func seed(t *testing.T, seatCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	catalog := store.Catalog()

	f := &fixture{store: store}
	f.movie = domain.Movie{Title: "Dune", DurationMinutes: 155}
	require.NoError(t, catalog.CreateMovie(ctx, &f.movie))
	cinema := &domain.Cinema{Name: "Rex"}
	require.NoError(t, catalog.CreateCinema(ctx, cinema))
	f.screen = domain.Screen{CinemaID: cinema.ID, Name: "Hall 1"}
	require.NoError(t, catalog.CreateScreen(ctx, &f.screen))
	category := &domain.SeatCategory{Name: "standard"}
	require.NoError(t, catalog.CreateSeatCategory(ctx, category))

	for i := 0; i < seatCount; i++ {
		seat := domain.Seat{
			ScreenID:       f.screen.ID,
			SeatCategoryID: category.ID,
			SeatNumber:     string(rune('A'+i)) + "1",
			IsAvailable:    true,
		}
		require.NoError(t, catalog.CreateSeat(ctx, &seat))
		f.seats = append(f.seats, seat)
	}
	return f
}

func (f *fixture) service(cache ScheduleCache, availability Availability) *ShowtimeService {
	return NewShowtimeService(f.store.Showtimes(), f.store.Catalog(), availability, cache, nil,
		WithClock(func() time.Time { return now }))
}

func TestCreateShowtime_DerivesEndTimeAndInvalidatesSchedule(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	cache := &MockScheduleCache{}
	cache.On("InvalidateSchedule", ctx).Return(nil).Once()

	start := now.Add(24 * time.Hour)
	st, err := f.service(cache, nil).CreateShowtime(ctx, CreateShowtimeInput{
		MovieID:   f.movie.ID,
		ScreenID:  f.screen.ID,
		StartTime: start,
		BasePrice: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	assert.NotZero(t, st.ID)
	assert.Equal(t, start.Add(155*time.Minute), st.EndTime)
	assert.False(t, st.IsBookedOut)
	cache.AssertExpectations(t)
}

func TestCreateShowtime_Errors(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	s := f.service(nil, nil)
	start := now.Add(24 * time.Hour)

	tests := []struct {
		name  string
		input CreateShowtimeInput
		want  error
	}{
		{"missing start", CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID}, domain.ErrInvalidArgument},
		{"negative price", CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: start, BasePrice: decimal.NewFromInt(-1)}, domain.ErrInvalidArgument},
		{"unknown movie", CreateShowtimeInput{MovieID: 999, ScreenID: f.screen.ID, StartTime: start}, domain.ErrNotFound},
		{"unknown screen", CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: 999, StartTime: start}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateShowtime(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateShowtime_OverlapOnSameScreen(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	s := f.service(nil, nil)
	start := now.Add(24 * time.Hour)

	_, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: start})
	require.NoError(t, err)

	_, err = s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: start.Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)

	// starts exactly when the first one ends
	_, err = s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: start.Add(155 * time.Minute)})
	assert.NoError(t, err)
}

func TestListSchedule_CacheMissBuildsAndStores(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	s := f.service(nil, nil)

	past, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: now.Add(-5 * time.Hour)})
	require.NoError(t, err)
	upcoming, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: now.Add(5 * time.Hour)})
	require.NoError(t, err)

	cache := &MockScheduleCache{}
	cache.On("GetSchedule", ctx).Return(nil, nil).Once()
	cache.On("SetSchedule", ctx, mock.AnythingOfType("[]domain.MovieSchedule")).Return(nil).Once()

	schedule, err := f.service(cache, nil).ListSchedule(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.Equal(t, f.movie.ID, schedule[0].Movie.ID)
	require.Len(t, schedule[0].Showtimes, 1)
	assert.Equal(t, upcoming.ID, schedule[0].Showtimes[0].ID)
	assert.NotEqual(t, past.ID, schedule[0].Showtimes[0].ID)
	cache.AssertExpectations(t)
}

func TestListSchedule_CacheHitDropsStartedShowtimes(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()

	cached := []domain.MovieSchedule{{
		Movie: f.movie,
		Showtimes: []domain.Showtime{
			{ID: 1, StartTime: now.Add(-time.Minute)},
			{ID: 2, StartTime: now.Add(time.Hour)},
		},
	}}
	cache := &MockScheduleCache{}
	cache.On("GetSchedule", ctx).Return(cached, nil).Once()

	schedule, err := f.service(cache, nil).ListSchedule(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	require.Len(t, schedule[0].Showtimes, 1)
	assert.Equal(t, int64(2), schedule[0].Showtimes[0].ID)
	cache.AssertNotCalled(t, "SetSchedule", mock.Anything, mock.Anything)
}

func TestListSchedule_ExplicitFromBypassesCache(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	cache := &MockScheduleCache{}

	schedule, err := f.service(cache, nil).ListSchedule(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, schedule)
	cache.AssertNotCalled(t, "GetSchedule", mock.Anything)
}

func TestGetAvailability_Delegates(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	availability := &MockAvailability{}
	availability.On("FreeSeats", ctx, int64(7)).Return([]int64{1, 2}, nil).Once()

	free, err := f.service(nil, availability).GetAvailability(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, free)

	availability.On("FreeSeats", ctx, int64(8)).Return(nil, domain.ErrNotFound).Once()
	_, err = f.service(nil, availability).GetAvailability(ctx, 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecomputeSoldOut_FlipsBothWays(t *testing.T) {
	f := seed(t, 2)
	ctx := context.Background()
	s := f.service(nil, nil)

	st, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: now.Add(time.Hour)})
	require.NoError(t, err)

	bookings := make([]*domain.Booking, 0, len(f.seats))
	for _, seat := range f.seats {
		var bookedOut, changed bool
		err := f.store.Bookings().WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			b := &domain.Booking{ShowtimeID: st.ID, SeatID: seat.ID, Reference: uuid.NewString(), Status: domain.BookingStatusPending}
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			bookings = append(bookings, b)
			var err error
			bookedOut, changed, err = s.RecomputeSoldOut(ctx, tx, st.ID)
			return err
		})
		require.NoError(t, err)
		last := len(bookings) == len(f.seats)
		assert.Equal(t, last, bookedOut)
		assert.Equal(t, last, changed)
	}

	got, err := s.GetShowtime(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBookedOut)

	visible, err := s.ListShowtimes(ctx, repository.ShowtimeFilter{From: now})
	require.NoError(t, err)
	assert.Empty(t, visible)

	err = f.store.Bookings().WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.UpdateBookingStatus(ctx, bookings[0].ID, domain.BookingStatusCancelled); err != nil {
			return err
		}
		bookedOut, changed, err := s.RecomputeSoldOut(ctx, tx, st.ID)
		assert.False(t, bookedOut)
		assert.True(t, changed)
		return err
	})
	require.NoError(t, err)

	visible, err = s.ListShowtimes(ctx, repository.ShowtimeFilter{From: now})
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestRecomputeSoldOut_NoUsableSeatsNeverBookedOut(t *testing.T) {
	f := seed(t, 0)
	ctx := context.Background()
	s := f.service(nil, nil)

	st, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: now.Add(time.Hour)})
	require.NoError(t, err)

	err = f.store.Bookings().WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		bookedOut, changed, err := s.RecomputeSoldOut(ctx, tx, st.ID)
		assert.False(t, bookedOut)
		assert.False(t, changed)
		return err
	})
	require.NoError(t, err)
}

func TestRecomputeSoldOut_IgnoresUnavailableSeats(t *testing.T) {
	f := seed(t, 1)
	ctx := context.Background()
	s := f.service(nil, nil)

	broken := domain.Seat{ScreenID: f.screen.ID, SeatCategoryID: f.seats[0].SeatCategoryID, SeatNumber: "Z9", IsAvailable: false}
	require.NoError(t, f.store.Catalog().CreateSeat(ctx, &broken))

	st, err := s.CreateShowtime(ctx, CreateShowtimeInput{MovieID: f.movie.ID, ScreenID: f.screen.ID, StartTime: now.Add(time.Hour)})
	require.NoError(t, err)

	err = f.store.Bookings().WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b := &domain.Booking{ShowtimeID: st.ID, SeatID: f.seats[0].ID, Reference: uuid.NewString(), Status: domain.BookingStatusPending}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		bookedOut, changed, err := s.RecomputeSoldOut(ctx, tx, st.ID)
		assert.True(t, bookedOut)
		assert.True(t, changed)
		return err
	})
	require.NoError(t, err)
}

func TestInvalidateSchedule_IgnoresCacheErrors(t *testing.T) {
	f := seed(t, 0)
	ctx := context.Background()
	cache := &MockScheduleCache{}
	cache.On("InvalidateSchedule", ctx).Return(errors.New("redis down")).Once()

	f.service(cache, nil).InvalidateSchedule(ctx)
	cache.AssertExpectations(t)
}
