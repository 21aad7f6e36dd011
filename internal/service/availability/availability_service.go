package availability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/pricing"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AvailabilityUseCase interface {
	FreeSeats(ctx context.Context, showtimeID int64) ([]int64, error)
	IsFree(ctx context.Context, showtimeID, seatID int64) (bool, error)
	SeatMap(ctx context.Context, showtimeID int64) ([]SeatStatus, error)
	Invalidate(ctx context.Context, showtimeID int64)
}

// Cache holds free seat lists. It is advisory and reservations never consult
// it. Within one process a list read before an Invalidate is never written
// back; an Invalidate issued by another process can still leave a stale entry
// for at most the cache TTL.
type Cache interface {
	GetFreeSeats(ctx context.Context, showtimeID int64) ([]int64, bool, error)
	SetFreeSeats(ctx context.Context, showtimeID int64, seats []int64) error
	InvalidateShowtime(ctx context.Context, showtimeID int64) error
}

// SeatStatus is one entry of a showtime's seat map.
type SeatStatus struct {
	Seat     domain.Seat
	Category domain.SeatCategory
	Price    decimal.Decimal
	Free     bool
}

type AvailabilityService struct {
	showtimes repository.ShowtimeRepository
	catalog   repository.CatalogRepository
	bookings  repository.BookingRepository
	cache     Cache
	log       *zap.Logger

	// generations counts invalidations per showtime. mu also serialises cache
	// writes against Invalidate.
	mu          sync.Mutex
	generations map[int64]uint64
}

func NewAvailabilityService(
	showtimes repository.ShowtimeRepository,
	catalog repository.CatalogRepository,
	bookings repository.BookingRepository,
	cache Cache,
	log *zap.Logger,
) *AvailabilityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AvailabilityService{
		showtimes: showtimes,
		catalog:   catalog,
		bookings:  bookings,
		cache:       cache,
		log:         log,
		generations: make(map[int64]uint64),
	}
}

// FreeSeats returns the ids of usable seats without an active booking, in
// ascending order.
func (s *AvailabilityService) FreeSeats(ctx context.Context, showtimeID int64) ([]int64, error) {
	if s.cache != nil {
		seats, ok, err := s.cache.GetFreeSeats(ctx, showtimeID)
		if err != nil {
			s.log.Warn("free seats cache read failed", zap.Int64("showtime_id", showtimeID), zap.Error(err))
		} else if ok {
			return seats, nil
		}
	}
	generation := s.generation(showtimeID)

	showtime, err := s.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := s.catalog.ListSeatsForScreen(ctx, showtime.ScreenID)
	if err != nil {
		return nil, err
	}
	taken, err := s.takenSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	free := make([]int64, 0, len(seats))
	for _, seat := range seats {
		if seat.IsAvailable && !taken[seat.ID] {
			free = append(free, seat.ID)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })

	if s.cache != nil {
		s.fillCache(ctx, showtimeID, generation, free)
	}
	return free, nil
}

func (s *AvailabilityService) generation(showtimeID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[showtimeID]
}

// fillCache stores free unless the showtime was invalidated after the list
// was read.
func (s *AvailabilityService) fillCache(ctx context.Context, showtimeID int64, generation uint64, free []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[showtimeID] != generation {
		s.log.Debug("skip stale free seats cache write", zap.Int64("showtime_id", showtimeID))
		return
	}
	if err := s.cache.SetFreeSeats(ctx, showtimeID, free); err != nil {
		s.log.Warn("free seats cache write failed", zap.Int64("showtime_id", showtimeID), zap.Error(err))
	}
}

// IsFree always reads the store.
func (s *AvailabilityService) IsFree(ctx context.Context, showtimeID, seatID int64) (bool, error) {
	showtime, err := s.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return false, err
	}
	seat, err := s.catalog.GetSeat(ctx, seatID)
	if err != nil {
		return false, err
	}
	if seat.ScreenID != showtime.ScreenID {
		return false, fmt.Errorf("seat %d is not on screen %d: %w", seatID, showtime.ScreenID, domain.ErrNotFound)
	}
	if !seat.IsAvailable {
		return false, nil
	}
	taken, err := s.takenSeats(ctx, showtimeID)
	if err != nil {
		return false, err
	}
	return !taken[seatID], nil
}

func (s *AvailabilityService) SeatMap(ctx context.Context, showtimeID int64) ([]SeatStatus, error) {
	showtime, err := s.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := s.catalog.ListSeatsForScreen(ctx, showtime.ScreenID)
	if err != nil {
		return nil, err
	}
	categories, err := s.catalog.ListSeatCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.SeatCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	taken, err := s.takenSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	result := make([]SeatStatus, 0, len(seats))
	for _, seat := range seats {
		category, ok := byID[seat.SeatCategoryID]
		if !ok {
			return nil, fmt.Errorf("seat %d references category %d: %w", seat.ID, seat.SeatCategoryID, domain.ErrNotFound)
		}
		price, err := pricing.Price(showtime.BasePrice, category.PremiumPercentage)
		if err != nil {
			return nil, err
		}
		result = append(result, SeatStatus{
			Seat:     seat,
			Category: category,
			Price:    price,
			Free:     seat.IsAvailable && !taken[seat.ID],
		})
	}
	return result, nil
}

// Invalidate drops the cached free seat list. Failures are logged only.
func (s *AvailabilityService) Invalidate(ctx context.Context, showtimeID int64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[showtimeID]++
	if err := s.cache.InvalidateShowtime(ctx, showtimeID); err != nil {
		s.log.Warn("free seats cache invalidation failed", zap.Int64("showtime_id", showtimeID), zap.Error(err))
	}
}

func (s *AvailabilityService) takenSeats(ctx context.Context, showtimeID int64) (map[int64]bool, error) {
	active, err := s.bookings.ActiveSeatIDs(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(active))
	for _, id := range active {
		taken[id] = true
	}
	return taken, nil
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
