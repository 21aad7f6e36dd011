package showtime

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ShowtimeUseCase interface {
	CreateShowtime(ctx context.Context, input CreateShowtimeInput) (*domain.Showtime, error)
	GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error)
	ListShowtimes(ctx context.Context, filter repository.ShowtimeFilter) ([]domain.Showtime, error)
	ListSchedule(ctx context.Context, from time.Time) ([]domain.MovieSchedule, error)
	GetAvailability(ctx context.Context, showtimeID int64) ([]int64, error)
}

type ScheduleCache interface {
	GetSchedule(ctx context.Context) ([]domain.MovieSchedule, error)
	SetSchedule(ctx context.Context, schedule []domain.MovieSchedule) error
	InvalidateSchedule(ctx context.Context) error
}

type Availability interface {
	FreeSeats(ctx context.Context, showtimeID int64) ([]int64, error)
}

type CreateShowtimeInput struct {
	MovieID   int64           `json:"movie_id"`
	ScreenID  int64           `json:"screen_id"`
	StartTime time.Time       `json:"start_time"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type ShowtimeService struct {
	showtimes    repository.ShowtimeRepository
	catalog      repository.CatalogRepository
	availability Availability
	cache        ScheduleCache
	log          *zap.Logger
	now          func() time.Time
}

type ShowtimeServiceOption func(*ShowtimeService)

func WithClock(now func() time.Time) ShowtimeServiceOption {
	return func(s *ShowtimeService) {
		s.now = now
	}
}

func NewShowtimeService(
	showtimes repository.ShowtimeRepository,
	catalog repository.CatalogRepository,
	availability Availability,
	cache ScheduleCache,
	log *zap.Logger,
	opts ...ShowtimeServiceOption,
) *ShowtimeService {
	if log == nil {
		log = zap.NewNop()
	}
	service := &ShowtimeService{
		showtimes:    showtimes,
		catalog:      catalog,
		availability: availability,
		cache:        cache,
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateShowtime derives the end time from the movie duration. A showtime that
// overlaps another one on the same screen is rejected with
// domain.ErrInvalidSchedule.
func (s *ShowtimeService) CreateShowtime(ctx context.Context, input CreateShowtimeInput) (*domain.Showtime, error) {
	if input.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", domain.ErrInvalidArgument)
	}
	if input.BasePrice.IsNegative() {
		return nil, fmt.Errorf("%w: base price must not be negative, got %s", domain.ErrInvalidArgument, input.BasePrice)
	}

	movie, err := s.catalog.GetMovie(ctx, input.MovieID)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetScreen(ctx, input.ScreenID); err != nil {
		return nil, err
	}

	showtime := &domain.Showtime{
		MovieID:   movie.ID,
		ScreenID:  input.ScreenID,
		StartTime: input.StartTime,
		EndTime:   input.StartTime.Add(movie.Duration()),
		BasePrice: input.BasePrice,
	}
	if err := s.showtimes.Create(ctx, showtime); err != nil {
		return nil, err
	}

	s.log.Info("showtime created",
		zap.Int64("showtime_id", showtime.ID),
		zap.Int64("screen_id", showtime.ScreenID),
		zap.Time("start_time", showtime.StartTime))
	s.InvalidateSchedule(ctx)
	return showtime, nil
}

func (s *ShowtimeService) GetShowtime(ctx context.Context, id int64) (*domain.Showtime, error) {
	return s.showtimes.GetByID(ctx, id)
}

func (s *ShowtimeService) ListShowtimes(ctx context.Context, filter repository.ShowtimeFilter) ([]domain.Showtime, error) {
	return s.showtimes.List(ctx, filter)
}

// ListSchedule returns every movie with its bookable showtimes starting at or
// after from. A zero from means now and is served from the schedule cache.
func (s *ShowtimeService) ListSchedule(ctx context.Context, from time.Time) ([]domain.MovieSchedule, error) {
	cacheable := from.IsZero()
	if cacheable {
		from = s.now()
		if s.cache != nil {
			cached, err := s.cache.GetSchedule(ctx)
			if err != nil {
				s.log.Warn("schedule cache read failed", zap.Error(err))
			} else if cached != nil {
				return dropStarted(cached, from), nil
			}
		}
	}

	showtimes, err := s.showtimes.List(ctx, repository.ShowtimeFilter{From: from})
	if err != nil {
		return nil, err
	}
	movies, err := s.catalog.ListMovies(ctx)
	if err != nil {
		return nil, err
	}

	byMovie := make(map[int64][]domain.Showtime)
	for _, st := range showtimes {
		byMovie[st.MovieID] = append(byMovie[st.MovieID], st)
	}
	schedule := make([]domain.MovieSchedule, 0, len(byMovie))
	for _, m := range movies {
		if shows := byMovie[m.ID]; len(shows) > 0 {
			schedule = append(schedule, domain.MovieSchedule{Movie: m, Showtimes: shows})
		}
	}

	if cacheable && s.cache != nil {
		if err := s.cache.SetSchedule(ctx, schedule); err != nil {
			s.log.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return schedule, nil
}

func (s *ShowtimeService) GetAvailability(ctx context.Context, showtimeID int64) ([]int64, error) {
	return s.availability.FreeSeats(ctx, showtimeID)
}

// RecomputeSoldOut must run inside the transaction that changed the bookings
// of the showtime. It locks the showtime row, so concurrent recomputations of
// the same showtime serialize and the last writer sees every committed booking.
// A showtime is booked out when it has at least one usable seat and every
// usable seat has an active booking.
func (s *ShowtimeService) RecomputeSoldOut(ctx context.Context, tx repository.Tx, showtimeID int64) (bookedOut, changed bool, err error) {
	showtime, err := tx.LockShowtime(ctx, showtimeID)
	if err != nil {
		return false, false, err
	}
	seats, err := tx.ListSeatsForScreen(ctx, showtime.ScreenID)
	if err != nil {
		return false, false, err
	}
	active, err := tx.ActiveSeatIDs(ctx, showtimeID)
	if err != nil {
		return false, false, err
	}

	taken := make(map[int64]bool, len(active))
	for _, id := range active {
		taken[id] = true
	}
	usable, occupied := 0, 0
	for _, seat := range seats {
		if !seat.IsAvailable {
			continue
		}
		usable++
		if taken[seat.ID] {
			occupied++
		}
	}

	bookedOut = usable > 0 && occupied >= usable
	if bookedOut == showtime.IsBookedOut {
		return bookedOut, false, nil
	}
	if err := tx.SetShowtimeBookedOut(ctx, showtimeID, bookedOut); err != nil {
		return false, false, err
	}
	s.log.Debug("showtime booked out flag changed",
		zap.Int64("showtime_id", showtimeID),
		zap.Bool("booked_out", bookedOut))
	return bookedOut, true, nil
}

// InvalidateSchedule drops the cached schedule. Failures are logged only.
func (s *ShowtimeService) InvalidateSchedule(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSchedule(ctx); err != nil {
		s.log.Warn("schedule cache invalidation failed", zap.Error(err))
	}
}

func dropStarted(schedule []domain.MovieSchedule, from time.Time) []domain.MovieSchedule {
	result := make([]domain.MovieSchedule, 0, len(schedule))
	for _, entry := range schedule {
		shows := make([]domain.Showtime, 0, len(entry.Showtimes))
		for _, st := range entry.Showtimes {
			if !st.StartTime.Before(from) {
				shows = append(shows, st)
			}
		}
		if len(shows) > 0 {
			result = append(result, domain.MovieSchedule{Movie: entry.Movie, Showtimes: shows})
		}
	}
	return result
}

var _ ShowtimeUseCase = (*ShowtimeService)(nil)
