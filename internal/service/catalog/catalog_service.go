package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/repository"
	"go.uber.org/zap"
)

type CatalogUseCase interface {
	CreateMovie(ctx context.Context, movie *domain.Movie) error
	GetMovie(ctx context.Context, id int64) (*domain.Movie, error)
	ListMovies(ctx context.Context) ([]domain.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	CreateCinema(ctx context.Context, cinema *domain.Cinema) error
	GetCinema(ctx context.Context, id int64) (*domain.Cinema, error)

	CreateScreen(ctx context.Context, screen *domain.Screen) error
	GetScreen(ctx context.Context, id int64) (*domain.Screen, error)
	DeleteScreen(ctx context.Context, id int64) error

	CreateSeatCategory(ctx context.Context, category *domain.SeatCategory) error
	GetSeatCategory(ctx context.Context, id int64) (*domain.SeatCategory, error)
	ListSeatCategories(ctx context.Context) ([]domain.SeatCategory, error)
	DeleteSeatCategory(ctx context.Context, id int64) error

	CreateSeat(ctx context.Context, seat *domain.Seat) error
	GetSeat(ctx context.Context, id int64) (*domain.Seat, error)
	ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error)
}

type CatalogService struct {
	repo repository.CatalogRepository
	log  *zap.Logger
}

func NewCatalogService(repo repository.CatalogRepository, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{repo: repo, log: log}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func (s *CatalogService) CreateMovie(ctx context.Context, movie *domain.Movie) error {
	movie.Title = strings.TrimSpace(movie.Title)
	if movie.Title == "" {
		return invalid("movie title is required")
	}
	if movie.DurationMinutes <= 0 {
		return invalid("movie duration must be positive, got %d", movie.DurationMinutes)
	}
	if err := s.repo.CreateMovie(ctx, movie); err != nil {
		return err
	}
	s.log.Info("movie created", zap.Int64("movie_id", movie.ID), zap.String("title", movie.Title))
	return nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	return s.repo.GetMovie(ctx, id)
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	return s.repo.ListMovies(ctx)
}

func (s *CatalogService) DeleteMovie(ctx context.Context, id int64) error {
	if err := s.repo.DeleteMovie(ctx, id); err != nil {
		return err
	}
	s.log.Info("movie deleted", zap.Int64("movie_id", id))
	return nil
}

func (s *CatalogService) CreateCinema(ctx context.Context, cinema *domain.Cinema) error {
	cinema.Name = strings.TrimSpace(cinema.Name)
	if cinema.Name == "" {
		return invalid("cinema name is required")
	}
	return s.repo.CreateCinema(ctx, cinema)
}

func (s *CatalogService) GetCinema(ctx context.Context, id int64) (*domain.Cinema, error) {
	return s.repo.GetCinema(ctx, id)
}

// CreateScreen ignores any capacity set by the caller; capacity grows as
// seats are added.
func (s *CatalogService) CreateScreen(ctx context.Context, screen *domain.Screen) error {
	screen.Name = strings.TrimSpace(screen.Name)
	if screen.Name == "" {
		return invalid("screen name is required")
	}
	screen.Capacity = 0
	return s.repo.CreateScreen(ctx, screen)
}

func (s *CatalogService) GetScreen(ctx context.Context, id int64) (*domain.Screen, error) {
	return s.repo.GetScreen(ctx, id)
}

func (s *CatalogService) DeleteScreen(ctx context.Context, id int64) error {
	return s.repo.DeleteScreen(ctx, id)
}

func (s *CatalogService) CreateSeatCategory(ctx context.Context, category *domain.SeatCategory) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return invalid("seat category name is required")
	}
	if category.PremiumPercentage.IsNegative() {
		return invalid("premium percentage must not be negative, got %s", category.PremiumPercentage)
	}
	return s.repo.CreateSeatCategory(ctx, category)
}

func (s *CatalogService) GetSeatCategory(ctx context.Context, id int64) (*domain.SeatCategory, error) {
	return s.repo.GetSeatCategory(ctx, id)
}

func (s *CatalogService) ListSeatCategories(ctx context.Context) ([]domain.SeatCategory, error) {
	return s.repo.ListSeatCategories(ctx)
}

func (s *CatalogService) DeleteSeatCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteSeatCategory(ctx, id)
}

func (s *CatalogService) CreateSeat(ctx context.Context, seat *domain.Seat) error {
	seat.SeatNumber = strings.TrimSpace(seat.SeatNumber)
	if seat.SeatNumber == "" {
		return invalid("seat number is required")
	}
	if _, err := s.repo.GetScreen(ctx, seat.ScreenID); err != nil {
		return err
	}
	if _, err := s.repo.GetSeatCategory(ctx, seat.SeatCategoryID); err != nil {
		return err
	}
	return s.repo.CreateSeat(ctx, seat)
}

func (s *CatalogService) GetSeat(ctx context.Context, id int64) (*domain.Seat, error) {
	return s.repo.GetSeat(ctx, id)
}

func (s *CatalogService) ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error) {
	return s.repo.ListSeatsForScreen(ctx, screenID)
}

var _ CatalogUseCase = (*CatalogService)(nil)
