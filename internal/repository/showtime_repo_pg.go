package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShowtimeFilter struct {
	MovieID          int64
	From             time.Time
	IncludeBookedOut bool
}

type ShowtimeRepository interface {
	// Create inserts the showtime unless it overlaps another showtime on the
	// same screen, in which case domain.ErrInvalidSchedule is returned.
	Create(ctx context.Context, showtime *domain.Showtime) error
	GetByID(ctx context.Context, id int64) (*domain.Showtime, error)
	List(ctx context.Context, filter ShowtimeFilter) ([]domain.Showtime, error)
}

type PGShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewShowtimeRepository(db *pgxpool.Pool) ShowtimeRepository {
	return &PGShowtimeRepository{db: db}
}

const showtimeColumns = `id, movie_id, screen_id, start_time, end_time, base_price, is_booked_out, created_at, updated_at`

func (r *PGShowtimeRepository) Create(ctx context.Context, showtime *domain.Showtime) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapError("begin create showtime", err)
	}
	defer tx.Rollback(ctx)

	var clash int64
	err = tx.QueryRow(ctx, `SELECT id FROM showtimes
		WHERE screen_id=$1 AND start_time < $3 AND end_time > $2
		LIMIT 1`, showtime.ScreenID, showtime.StartTime, showtime.EndTime).Scan(&clash)
	switch {
	case err == nil:
		return fmt.Errorf("screen %d already runs showtime %d: %w", showtime.ScreenID, clash, domain.ErrInvalidSchedule)
	case !errors.Is(err, pgx.ErrNoRows):
		return mapError("check screen schedule", err)
	}

	// The exclusion constraint on showtimes catches inserts racing past the check above.
	if err := tx.QueryRow(ctx, `INSERT INTO showtimes (movie_id, screen_id, start_time, end_time, base_price, is_booked_out)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING id, is_booked_out, created_at, updated_at`,
		showtime.MovieID, showtime.ScreenID, showtime.StartTime, showtime.EndTime, showtime.BasePrice).
		Scan(&showtime.ID, &showtime.IsBookedOut, &showtime.CreatedAt, &showtime.UpdatedAt); err != nil {
		return mapError("create showtime", err)
	}

	return mapError("commit create showtime", tx.Commit(ctx))
}

func (r *PGShowtimeRepository) GetByID(ctx context.Context, id int64) (*domain.Showtime, error) {
	return getShowtime(ctx, r.db, id, false)
}

func (r *PGShowtimeRepository) List(ctx context.Context, filter ShowtimeFilter) ([]domain.Showtime, error) {
	rows, err := r.db.Query(ctx, `SELECT `+showtimeColumns+` FROM showtimes
		WHERE ($1::bigint = 0 OR movie_id = $1)
		  AND start_time >= $2
		  AND ($3::boolean OR NOT is_booked_out)
		ORDER BY start_time, id`, filter.MovieID, filter.From, filter.IncludeBookedOut)
	if err != nil {
		return nil, mapError("list showtimes", err)
	}
	defer rows.Close()

	showtimes := make([]domain.Showtime, 0)
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, mapError("list showtimes", err)
		}
		showtimes = append(showtimes, *s)
	}
	return showtimes, mapError("list showtimes", rows.Err())
}

func getShowtime(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanShowtime(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get showtime %d", id), err)
	}
	return s, nil
}

func scanShowtime(row pgx.Row) (*domain.Showtime, error) {
	var s domain.Showtime
	if err := row.Scan(&s.ID, &s.MovieID, &s.ScreenID, &s.StartTime, &s.EndTime, &s.BasePrice, &s.IsBookedOut, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ ShowtimeRepository = (*PGShowtimeRepository)(nil)
