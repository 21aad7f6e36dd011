// Package memory is an embedded, process-local implementation of the
// repository interfaces. It enforces the same constraints as the PostgreSQL
// schema: foreign keys, unique seat numbers, screen exclusivity and the
// partial unique index on active (showtime, seat) pairs. Transactions are
// serialized behind a single lock and undone on failure.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/repository"
)

type seatKey struct {
	showtimeID int64
	seatID     int64
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	movies     map[int64]domain.Movie
	cinemas    map[int64]domain.Cinema
	screens    map[int64]domain.Screen
	categories map[int64]domain.SeatCategory
	seats      map[int64]domain.Seat
	showtimes  map[int64]domain.Showtime
	bookings   map[int64]domain.Booking
	payments   map[int64]domain.Payment

	activeSeats      map[seatKey]int64
	paymentByBooking map[int64]int64
	references       map[string]int64
}

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:              time.Now,
		movies:           make(map[int64]domain.Movie),
		cinemas:          make(map[int64]domain.Cinema),
		screens:          make(map[int64]domain.Screen),
		categories:       make(map[int64]domain.SeatCategory),
		seats:            make(map[int64]domain.Seat),
		showtimes:        make(map[int64]domain.Showtime),
		bookings:         make(map[int64]domain.Booking),
		payments:         make(map[int64]domain.Payment),
		activeSeats:      make(map[seatKey]int64),
		paymentByBooking: make(map[int64]int64),
		references:       make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Catalog() repository.CatalogRepository {
	return &catalogRepo{s: s}
}

func (s *Store) Showtimes() repository.ShowtimeRepository {
	return &showtimeRepo{s: s}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepo{s: s}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// catalog

type catalogRepo struct {
	s *Store
}

func (r *catalogRepo) CreateMovie(_ context.Context, movie *domain.Movie) error {
	if strings.TrimSpace(movie.Title) == "" {
		return fmt.Errorf("%w: movie title is empty", domain.ErrInvalidArgument)
	}
	if movie.DurationMinutes <= 0 {
		return fmt.Errorf("%w: movie duration must be positive", domain.ErrInvalidArgument)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	movie.ID = r.s.nextID()
	movie.CreatedAt, movie.UpdatedAt = now, now
	r.s.movies[movie.ID] = *movie
	return nil
}

func (r *catalogRepo) GetMovie(_ context.Context, id int64) (*domain.Movie, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.movies[id]
	if !ok {
		return nil, notFound("movie", id)
	}
	return &m, nil
}

func (r *catalogRepo) ListMovies(_ context.Context) ([]domain.Movie, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	movies := make([]domain.Movie, 0, len(r.s.movies))
	for _, m := range r.s.movies {
		movies = append(movies, m)
	}
	sort.Slice(movies, func(i, j int) bool {
		if movies[i].Title != movies[j].Title {
			return movies[i].Title < movies[j].Title
		}
		return movies[i].ID < movies[j].ID
	})
	return movies, nil
}

func (r *catalogRepo) DeleteMovie(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.movies[id]; !ok {
		return notFound("movie", id)
	}
	for _, st := range r.s.showtimes {
		if st.MovieID == id {
			return violation("movie %d is referenced by showtime %d", id, st.ID)
		}
	}
	delete(r.s.movies, id)
	return nil
}

func (r *catalogRepo) CreateCinema(_ context.Context, cinema *domain.Cinema) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	cinema.ID = r.s.nextID()
	cinema.CreatedAt, cinema.UpdatedAt = now, now
	r.s.cinemas[cinema.ID] = *cinema
	return nil
}

func (r *catalogRepo) GetCinema(_ context.Context, id int64) (*domain.Cinema, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.cinemas[id]
	if !ok {
		return nil, notFound("cinema", id)
	}
	return &c, nil
}

func (r *catalogRepo) CreateScreen(_ context.Context, screen *domain.Screen) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.cinemas[screen.CinemaID]; !ok {
		return violation("cinema %d does not exist", screen.CinemaID)
	}
	for _, other := range r.s.screens {
		if other.CinemaID == screen.CinemaID && other.Name == screen.Name {
			return violation("screen %q already exists", screen.Name)
		}
	}
	now := r.s.now()
	screen.ID = r.s.nextID()
	screen.Capacity = 0
	screen.CreatedAt, screen.UpdatedAt = now, now
	r.s.screens[screen.ID] = *screen
	return nil
}

func (r *catalogRepo) GetScreen(_ context.Context, id int64) (*domain.Screen, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sc, ok := r.s.screens[id]
	if !ok {
		return nil, notFound("screen", id)
	}
	return &sc, nil
}

func (r *catalogRepo) DeleteScreen(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.screens[id]; !ok {
		return notFound("screen", id)
	}
	for _, seat := range r.s.seats {
		if seat.ScreenID == id {
			return violation("screen %d is referenced by seat %d", id, seat.ID)
		}
	}
	for _, st := range r.s.showtimes {
		if st.ScreenID == id {
			return violation("screen %d is referenced by showtime %d", id, st.ID)
		}
	}
	delete(r.s.screens, id)
	return nil
}

func (r *catalogRepo) CreateSeatCategory(_ context.Context, category *domain.SeatCategory) error {
	if category.PremiumPercentage.IsNegative() {
		return fmt.Errorf("%w: premium percentage is negative", domain.ErrInvalidArgument)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.categories {
		if other.Name == category.Name {
			return violation("seat category %q already exists", category.Name)
		}
	}
	now := r.s.now()
	category.ID = r.s.nextID()
	category.CreatedAt, category.UpdatedAt = now, now
	r.s.categories[category.ID] = *category
	return nil
}

func (r *catalogRepo) GetSeatCategory(_ context.Context, id int64) (*domain.SeatCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, notFound("seat category", id)
	}
	return &c, nil
}

func (r *catalogRepo) ListSeatCategories(_ context.Context) ([]domain.SeatCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listSeatCategories(), nil
}

func (r *catalogRepo) DeleteSeatCategory(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return notFound("seat category", id)
	}
	for _, seat := range r.s.seats {
		if seat.SeatCategoryID == id {
			return violation("seat category %d is referenced by seat %d", id, seat.ID)
		}
	}
	delete(r.s.categories, id)
	return nil
}

func (r *catalogRepo) CreateSeat(_ context.Context, seat *domain.Seat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	screen, ok := r.s.screens[seat.ScreenID]
	if !ok {
		return notFound("screen", seat.ScreenID)
	}
	if _, ok := r.s.categories[seat.SeatCategoryID]; !ok {
		return violation("seat category %d does not exist", seat.SeatCategoryID)
	}
	for _, other := range r.s.seats {
		if other.ScreenID == seat.ScreenID && other.SeatNumber == seat.SeatNumber {
			return violation("seat %q already exists on screen %d", seat.SeatNumber, seat.ScreenID)
		}
	}

	now := r.s.now()
	seat.ID = r.s.nextID()
	seat.CreatedAt, seat.UpdatedAt = now, now
	r.s.seats[seat.ID] = *seat

	screen.Capacity++
	screen.UpdatedAt = now
	r.s.screens[screen.ID] = screen
	return nil
}

func (r *catalogRepo) GetSeat(_ context.Context, id int64) (*domain.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seat, ok := r.s.seats[id]
	if !ok {
		return nil, notFound("seat", id)
	}
	return &seat, nil
}

func (r *catalogRepo) ListSeatsForScreen(_ context.Context, screenID int64) ([]domain.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listSeatsForScreen(screenID), nil
}

func (s *Store) listSeatsForScreen(screenID int64) []domain.Seat {
	seats := make([]domain.Seat, 0)
	for _, seat := range s.seats {
		if seat.ScreenID == screenID {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].SeatNumber != seats[j].SeatNumber {
			return seats[i].SeatNumber < seats[j].SeatNumber
		}
		return seats[i].ID < seats[j].ID
	})
	return seats
}

func (s *Store) listSeatCategories() []domain.SeatCategory {
	categories := make([]domain.SeatCategory, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories
}

// showtimes

type showtimeRepo struct {
	s *Store
}

func (r *showtimeRepo) Create(_ context.Context, showtime *domain.Showtime) error {
	if showtime.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price is negative", domain.ErrInvalidArgument)
	}
	if !showtime.EndTime.After(showtime.StartTime) {
		return fmt.Errorf("%w: showtime ends before it starts", domain.ErrInvalidArgument)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.movies[showtime.MovieID]; !ok {
		return violation("movie %d does not exist", showtime.MovieID)
	}
	if _, ok := r.s.screens[showtime.ScreenID]; !ok {
		return violation("screen %d does not exist", showtime.ScreenID)
	}
	for _, other := range r.s.showtimes {
		if other.ScreenID == showtime.ScreenID && other.Overlaps(showtime.StartTime, showtime.EndTime) {
			return fmt.Errorf("screen %d already runs showtime %d: %w", showtime.ScreenID, other.ID, domain.ErrInvalidSchedule)
		}
	}

	now := r.s.now()
	showtime.ID = r.s.nextID()
	showtime.IsBookedOut = false
	showtime.CreatedAt, showtime.UpdatedAt = now, now
	r.s.showtimes[showtime.ID] = *showtime
	return nil
}

func (r *showtimeRepo) GetByID(_ context.Context, id int64) (*domain.Showtime, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.showtimes[id]
	if !ok {
		return nil, notFound("showtime", id)
	}
	return &st, nil
}

func (r *showtimeRepo) List(_ context.Context, filter repository.ShowtimeFilter) ([]domain.Showtime, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	showtimes := make([]domain.Showtime, 0)
	for _, st := range r.s.showtimes {
		if filter.MovieID != 0 && st.MovieID != filter.MovieID {
			continue
		}
		if st.StartTime.Before(filter.From) {
			continue
		}
		if st.IsBookedOut && !filter.IncludeBookedOut {
			continue
		}
		showtimes = append(showtimes, st)
	}
	sort.Slice(showtimes, func(i, j int) bool {
		if !showtimes[i].StartTime.Equal(showtimes[j].StartTime) {
			return showtimes[i].StartTime.Before(showtimes[j].StartTime)
		}
		return showtimes[i].ID < showtimes[j].ID
	})
	return showtimes, nil
}

// bookings

type bookingRepo struct {
	s *Store
}

// WithinTx holds the store lock for the whole transaction, so transactions are
// serializable. Every mutation records an undo step that runs on failure.
func (r *bookingRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &memTx{s: r.s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (r *bookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (r *bookingRepo) GetPayment(_ context.Context, bookingID int64) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.paymentOf(bookingID)
}

func (r *bookingRepo) ListByShowtime(_ context.Context, showtimeID int64) ([]domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	bookings := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.ShowtimeID == showtimeID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *bookingRepo) ActiveSeatIDs(_ context.Context, showtimeID int64) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.activeSeatIDs(showtimeID), nil
}

func (s *Store) activeSeatIDs(showtimeID int64) []int64 {
	ids := make([]int64, 0)
	for key := range s.activeSeats {
		if key.showtimeID == showtimeID {
			ids = append(ids, key.seatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) paymentOf(bookingID int64) (*domain.Payment, error) {
	id, ok := s.paymentByBooking[bookingID]
	if !ok {
		return nil, fmt.Errorf("payment of booking %d: %w", bookingID, domain.ErrNotFound)
	}
	p := s.payments[id]
	return &p, nil
}

var (
	_ repository.CatalogRepository  = (*catalogRepo)(nil)
	_ repository.ShowtimeRepository = (*showtimeRepo)(nil)
	_ repository.BookingRepository  = (*bookingRepo)(nil)
)
