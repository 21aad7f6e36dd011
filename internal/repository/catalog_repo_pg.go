package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository interface {
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

	// CreateSeat inserts the seat and bumps the screen capacity in one transaction.
	CreateSeat(ctx context.Context, seat *domain.Seat) error
	GetSeat(ctx context.Context, id int64) (*domain.Seat, error)
	ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error)
}

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

const (
	movieColumns    = `id, title, description, duration_minutes, created_at, updated_at`
	screenColumns   = `id, cinema_id, name, capacity, created_at, updated_at`
	categoryColumns = `id, name, description, premium_percentage, created_at, updated_at`
	seatColumns     = `id, screen_id, seat_category_id, seat_number, is_available, created_at, updated_at`
)

func (r *PGCatalogRepository) CreateMovie(ctx context.Context, movie *domain.Movie) error {
	err := r.db.QueryRow(ctx, `INSERT INTO movies (title, description, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, movie.Title, movie.Description, movie.DurationMinutes).
		Scan(&movie.ID, &movie.CreatedAt, &movie.UpdatedAt)
	return mapError("create movie", err)
}

func (r *PGCatalogRepository) GetMovie(ctx context.Context, id int64) (*domain.Movie, error) {
	row := r.db.QueryRow(ctx, `SELECT `+movieColumns+` FROM movies WHERE id=$1`, id)
	m, err := scanMovie(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get movie %d", id), err)
	}
	return m, nil
}

func (r *PGCatalogRepository) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	rows, err := r.db.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title, id`)
	if err != nil {
		return nil, mapError("list movies", err)
	}
	defer rows.Close()

	movies := make([]domain.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, mapError("list movies", err)
		}
		movies = append(movies, *m)
	}
	return movies, mapError("list movies", rows.Err())
}

func (r *PGCatalogRepository) DeleteMovie(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "movies", id)
}

func (r *PGCatalogRepository) CreateCinema(ctx context.Context, cinema *domain.Cinema) error {
	err := r.db.QueryRow(ctx, `INSERT INTO cinemas (name) VALUES ($1) RETURNING id, created_at, updated_at`, cinema.Name).
		Scan(&cinema.ID, &cinema.CreatedAt, &cinema.UpdatedAt)
	return mapError("create cinema", err)
}

func (r *PGCatalogRepository) GetCinema(ctx context.Context, id int64) (*domain.Cinema, error) {
	var c domain.Cinema
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM cinemas WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get cinema %d", id), err)
	}
	return &c, nil
}

func (r *PGCatalogRepository) CreateScreen(ctx context.Context, screen *domain.Screen) error {
	err := r.db.QueryRow(ctx, `INSERT INTO screens (cinema_id, name, capacity)
		VALUES ($1, $2, 0)
		RETURNING id, capacity, created_at, updated_at`, screen.CinemaID, screen.Name).
		Scan(&screen.ID, &screen.Capacity, &screen.CreatedAt, &screen.UpdatedAt)
	return mapError("create screen", err)
}

func (r *PGCatalogRepository) GetScreen(ctx context.Context, id int64) (*domain.Screen, error) {
	var s domain.Screen
	err := r.db.QueryRow(ctx, `SELECT `+screenColumns+` FROM screens WHERE id=$1`, id).
		Scan(&s.ID, &s.CinemaID, &s.Name, &s.Capacity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get screen %d", id), err)
	}
	return &s, nil
}

func (r *PGCatalogRepository) DeleteScreen(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "screens", id)
}

func (r *PGCatalogRepository) CreateSeatCategory(ctx context.Context, category *domain.SeatCategory) error {
	err := r.db.QueryRow(ctx, `INSERT INTO seat_categories (name, description, premium_percentage)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, category.Name, category.Description, category.PremiumPercentage).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return mapError("create seat category", err)
}

func (r *PGCatalogRepository) GetSeatCategory(ctx context.Context, id int64) (*domain.SeatCategory, error) {
	row := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM seat_categories WHERE id=$1`, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get seat category %d", id), err)
	}
	return c, nil
}

func (r *PGCatalogRepository) ListSeatCategories(ctx context.Context) ([]domain.SeatCategory, error) {
	return listSeatCategories(ctx, r.db)
}

func (r *PGCatalogRepository) DeleteSeatCategory(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "seat_categories", id)
}

func (r *PGCatalogRepository) CreateSeat(ctx context.Context, seat *domain.Seat) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapError("begin create seat", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE screens SET capacity = capacity + 1, updated_at = now() WHERE id=$1`, seat.ScreenID)
	if err != nil {
		return mapError("bump screen capacity", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("screen %d: %w", seat.ScreenID, domain.ErrNotFound)
	}

	if err := tx.QueryRow(ctx, `INSERT INTO seats (screen_id, seat_category_id, seat_number, is_available)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`, seat.ScreenID, seat.SeatCategoryID, seat.SeatNumber, seat.IsAvailable).
		Scan(&seat.ID, &seat.CreatedAt, &seat.UpdatedAt); err != nil {
		return mapError("create seat", err)
	}

	return mapError("commit create seat", tx.Commit(ctx))
}

func (r *PGCatalogRepository) GetSeat(ctx context.Context, id int64) (*domain.Seat, error) {
	row := r.db.QueryRow(ctx, `SELECT `+seatColumns+` FROM seats WHERE id=$1`, id)
	s, err := scanSeat(row)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get seat %d", id), err)
	}
	return s, nil
}

func (r *PGCatalogRepository) ListSeatsForScreen(ctx context.Context, screenID int64) ([]domain.Seat, error) {
	return listSeatsForScreen(ctx, r.db, screenID)
}

func (r *PGCatalogRepository) deleteByID(ctx context.Context, table string, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return mapError("delete from "+table, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, domain.ErrNotFound)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func listSeatsForScreen(ctx context.Context, q querier, screenID int64) ([]domain.Seat, error) {
	rows, err := q.Query(ctx, `SELECT `+seatColumns+` FROM seats WHERE screen_id=$1 ORDER BY seat_number, id`, screenID)
	if err != nil {
		return nil, mapError("list seats", err)
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, mapError("list seats", err)
		}
		seats = append(seats, *s)
	}
	return seats, mapError("list seats", rows.Err())
}

func listSeatCategories(ctx context.Context, q querier) ([]domain.SeatCategory, error) {
	rows, err := q.Query(ctx, `SELECT `+categoryColumns+` FROM seat_categories ORDER BY id`)
	if err != nil {
		return nil, mapError("list seat categories", err)
	}
	defer rows.Close()

	categories := make([]domain.SeatCategory, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, mapError("list seat categories", err)
		}
		categories = append(categories, *c)
	}
	return categories, mapError("list seat categories", rows.Err())
}

func scanMovie(row pgx.Row) (*domain.Movie, error) {
	var m domain.Movie
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanCategory(row pgx.Row) (*domain.SeatCategory, error) {
	var c domain.SeatCategory
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.PremiumPercentage, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanSeat(row pgx.Row) (*domain.Seat, error) {
	var s domain.Seat
	if err := row.Scan(&s.ID, &s.ScreenID, &s.SeatCategoryID, &s.SeatNumber, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
