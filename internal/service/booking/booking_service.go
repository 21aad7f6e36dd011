package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/kafka"
	"github.com/Domenick1991/showbooking/internal/pricing"
	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/Domenick1991/showbooking/booking"

type BookingUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Reservation, error)
	Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID int64, outcome domain.PaymentOutcome) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID int64) (*domain.ReservedSeat, error)
	GetTicket(ctx context.Context, bookingID int64) (*domain.Ticket, error)
}

// SoldOutTracker keeps the booked-out flag of a showtime in step with its
// bookings.
type SoldOutTracker interface {
	RecomputeSoldOut(ctx context.Context, tx repository.Tx, showtimeID int64) (bookedOut, changed bool, err error)
	InvalidateSchedule(ctx context.Context)
}

type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, showtimeID int64)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ReserveInput struct {
	ShowtimeID int64   `json:"showtime_id"`
	SeatIDs    []int64 `json:"seat_ids"`
	Email      string  `json:"email"`
}

type BookingService struct {
	bookings     repository.BookingRepository
	showtimes    repository.ShowtimeRepository
	catalog      repository.CatalogRepository
	soldOut      SoldOutTracker
	availability AvailabilityInvalidator
	producer     Producer
	log          *zap.Logger
	tracer       trace.Tracer

	bookingTopic       string
	notificationsTopic string

	reserveAttempts  metric.Int64Counter
	reserveConflicts metric.Int64Counter
	cancellations    metric.Int64Counter
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithAvailability(availability AvailabilityInvalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.availability = availability
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if log != nil {
			s.log = log
		}
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	showtimes repository.ShowtimeRepository,
	catalog repository.CatalogRepository,
	soldOut SoldOutTracker,
	opts ...BookingServiceOption,
) *BookingService {
	meter := otel.Meter(instrumentationName)
	service := &BookingService{
		bookings:  bookings,
		showtimes: showtimes,
		catalog:   catalog,
		soldOut:   soldOut,
		log:       zap.NewNop(),
		tracer:    otel.Tracer(instrumentationName),

		reserveAttempts:  counter(meter, "booking.reserve.attempts", "Reservation requests received"),
		reserveConflicts: counter(meter, "booking.reserve.conflicts", "Reservations rejected because a seat was taken"),
		cancellations:    counter(meter, "booking.cancellations", "Bookings cancelled"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

// Reserve books every requested seat of a showtime or none of them. Seat
// state is re-read inside the transaction, and the store's uniqueness
// constraint on active (showtime, seat) pairs settles races between
// concurrent reservations. The losing caller gets a
// *domain.SeatUnavailableError naming the contested seat.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.reserve",
		trace.WithAttributes(
			attribute.Int64("showtime.id", input.ShowtimeID),
			attribute.Int("seat.count", len(input.SeatIDs)),
		),
	)
	defer span.End()
	s.reserveAttempts.Add(ctx, 1)

	seatIDs, err := normalizeSeatIDs(input.SeatIDs)
	if err != nil {
		return nil, fail(span, err)
	}
	email := strings.TrimSpace(input.Email)

	var (
		reservation *domain.Reservation
		flipped     bool
	)
	err = s.bookings.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		showtime, err := tx.GetShowtime(ctx, input.ShowtimeID)
		if err != nil {
			return err
		}
		seats, err := seatsOnScreen(ctx, tx, showtime.ScreenID)
		if err != nil {
			return err
		}
		categories, err := categoriesByID(ctx, tx)
		if err != nil {
			return err
		}
		active, err := tx.ActiveSeatIDs(ctx, showtime.ID)
		if err != nil {
			return err
		}
		taken := make(map[int64]bool, len(active))
		for _, id := range active {
			taken[id] = true
		}

		for _, id := range seatIDs {
			seat, ok := seats[id]
			if !ok || !seat.IsAvailable || taken[id] {
				return &domain.SeatUnavailableError{SeatID: id}
			}
		}

		reservation = &domain.Reservation{Total: pricing.Total()}
		for _, id := range seatIDs {
			seat := seats[id]
			category, ok := categories[seat.SeatCategoryID]
			if !ok {
				return fmt.Errorf("seat %d references category %d: %w", seat.ID, seat.SeatCategoryID, domain.ErrConstraintViolation)
			}
			price, err := pricing.Price(showtime.BasePrice, category.PremiumPercentage)
			if err != nil {
				return err
			}

			booking := &domain.Booking{
				ShowtimeID: showtime.ID,
				SeatID:     seat.ID,
				Reference:  uuid.NewString(),
				Status:     domain.BookingStatusPending,
				Email:      email,
			}
			if err := tx.InsertBooking(ctx, booking); err != nil {
				if errors.Is(err, domain.ErrSeatUnavailable) {
					return &domain.SeatUnavailableError{SeatID: seat.ID}
				}
				return err
			}
			payment := &domain.Payment{
				BookingID: booking.ID,
				Amount:    price,
				Status:    domain.PaymentStatusPending,
			}
			if err := tx.InsertPayment(ctx, payment); err != nil {
				return err
			}

			reservation.Seats = append(reservation.Seats, domain.ReservedSeat{Booking: *booking, Payment: *payment})
			reservation.Total = pricing.Total(reservation.Total, price)
		}

		bookedOut, changed, err := s.soldOut.RecomputeSoldOut(ctx, tx, showtime.ID)
		if err != nil {
			return err
		}
		showtime.IsBookedOut = bookedOut
		reservation.Showtime = *showtime
		flipped = changed
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatUnavailable) {
			s.reserveConflicts.Add(ctx, 1)
			s.log.Info("reservation rejected",
				zap.Int64("showtime_id", input.ShowtimeID),
				zap.Error(err))
		}
		return nil, fail(span, err)
	}

	s.log.Info("seats reserved",
		zap.Int64("showtime_id", input.ShowtimeID),
		zap.Int64s("seat_ids", seatIDs),
		zap.String("total", reservation.Total.StringFixed(pricing.MinorUnits)))

	s.afterCommit(ctx, input.ShowtimeID, flipped)
	for i := range reservation.Seats {
		rs := &reservation.Seats[i]
		s.publish(ctx, kafka.EventBookingCreated, &rs.Booking, &rs.Payment, reservation.Showtime.IsBookedOut)
	}
	return reservation, nil
}

// Cancel releases the seat of a pending booking and voids its payment.
// Cancelling an unknown or already cancelled booking yields domain.ErrNotFound;
// a confirmed booking cannot be cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel",
		trace.WithAttributes(attribute.Int64("booking.id", bookingID)),
	)
	defer span.End()

	var (
		cancelled *domain.Booking
		payment   *domain.Payment
		bookedOut bool
		flipped   bool
	)
	err := s.bookings.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		switch current.Status {
		case domain.BookingStatusCancelled:
			return fmt.Errorf("booking %d is already cancelled: %w", bookingID, domain.ErrNotFound)
		case domain.BookingStatusConfirmed:
			return fmt.Errorf("%w: booking %d is confirmed", domain.ErrInvalidArgument, bookingID)
		}

		cancelled, payment, err = s.cancelInTx(ctx, tx, current, domain.PaymentStatusVoided)
		if err != nil {
			return err
		}
		bookedOut, flipped, err = s.soldOut.RecomputeSoldOut(ctx, tx, current.ShowtimeID)
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.cancellations.Add(ctx, 1)
	s.log.Info("booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.String("reference", cancelled.Reference))

	s.afterCommit(ctx, cancelled.ShowtimeID, flipped)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled, payment, bookedOut)
	return cancelled, nil
}

// ConfirmPayment applies the outcome reported by the payment processor to a
// pending booking. A failed payment cancels the booking in the same
// transaction; the cancelled booking is returned together with an error
// wrapping domain.ErrPaymentFailed.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID int64, outcome domain.PaymentOutcome) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.confirm_payment",
		trace.WithAttributes(
			attribute.Int64("booking.id", bookingID),
			attribute.String("payment.outcome", string(outcome)),
		),
	)
	defer span.End()

	if outcome != domain.PaymentOutcomeConfirmed && outcome != domain.PaymentOutcomeFailed {
		return nil, fail(span, fmt.Errorf("%w: unknown payment outcome %q", domain.ErrInvalidArgument, outcome))
	}

	var (
		updated   *domain.Booking
		payment   *domain.Payment
		bookedOut bool
		flipped   bool
	)
	err := s.bookings.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if current.Status != domain.BookingStatusPending {
			return fmt.Errorf("%w: booking %d is %s, not pending", domain.ErrInvalidArgument, bookingID, current.Status)
		}

		if outcome == domain.PaymentOutcomeFailed {
			updated, payment, err = s.cancelInTx(ctx, tx, current, domain.PaymentStatusFailed)
			if err != nil {
				return err
			}
			bookedOut, flipped, err = s.soldOut.RecomputeSoldOut(ctx, tx, current.ShowtimeID)
			return err
		}

		payment, err = tx.GetPaymentByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusPending {
			return fmt.Errorf("%w: payment %d is %s, not pending", domain.ErrInvalidArgument, payment.ID, payment.Status)
		}
		if payment, err = tx.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusConfirmed); err != nil {
			return err
		}
		updated, err = tx.UpdateBookingStatus(ctx, bookingID, domain.BookingStatusConfirmed)
		return err
	})
	if err != nil {
		return nil, fail(span, err)
	}

	if outcome == domain.PaymentOutcomeFailed {
		s.cancellations.Add(ctx, 1)
		s.log.Info("payment failed, booking cancelled", zap.Int64("booking_id", bookingID))
		s.afterCommit(ctx, updated.ShowtimeID, flipped)
		s.publish(ctx, kafka.EventPaymentFailed, updated, payment, bookedOut)
		return updated, fail(span, fmt.Errorf("booking %d: %w", bookingID, domain.ErrPaymentFailed))
	}

	s.log.Info("booking confirmed", zap.Int64("booking_id", bookingID))
	s.publish(ctx, kafka.EventBookingConfirmed, updated, payment, false)
	return updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*domain.ReservedSeat, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	payment, err := s.bookings.GetPayment(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &domain.ReservedSeat{Booking: *booking, Payment: *payment}, nil
}

// GetTicket assembles what a customer needs at the door. Cancelled bookings
// have no ticket.
func (s *BookingService) GetTicket(ctx context.Context, bookingID int64) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "booking.get_ticket",
		trace.WithAttributes(attribute.Int64("booking.id", bookingID)),
	)
	defer span.End()

	details, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fail(span, err)
	}
	if !details.Booking.IsActive() {
		return nil, fail(span, fmt.Errorf("booking %d is cancelled: %w", bookingID, domain.ErrNotFound))
	}

	showtime, err := s.showtimes.GetByID(ctx, details.Booking.ShowtimeID)
	if err != nil {
		return nil, fail(span, err)
	}
	movie, err := s.catalog.GetMovie(ctx, showtime.MovieID)
	if err != nil {
		return nil, fail(span, err)
	}
	screen, err := s.catalog.GetScreen(ctx, showtime.ScreenID)
	if err != nil {
		return nil, fail(span, err)
	}
	seat, err := s.catalog.GetSeat(ctx, details.Booking.SeatID)
	if err != nil {
		return nil, fail(span, err)
	}
	category, err := s.catalog.GetSeatCategory(ctx, seat.SeatCategoryID)
	if err != nil {
		return nil, fail(span, err)
	}

	return &domain.Ticket{
		Reference:  details.Booking.Reference,
		BookingID:  details.Booking.ID,
		Status:     details.Booking.Status,
		MovieTitle: movie.Title,
		ScreenName: screen.Name,
		SeatNumber: seat.SeatNumber,
		Category:   category.Name,
		StartTime:  showtime.StartTime,
		Amount:     details.Payment.Amount,
	}, nil
}

func (s *BookingService) cancelInTx(ctx context.Context, tx repository.Tx, current *domain.Booking, paymentStatus domain.PaymentStatus) (*domain.Booking, *domain.Payment, error) {
	cancelled, err := tx.UpdateBookingStatus(ctx, current.ID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, nil, err
	}
	payment, err := tx.GetPaymentByBooking(ctx, current.ID)
	if err != nil {
		return nil, nil, err
	}
	if payment.Status == domain.PaymentStatusPending {
		if payment, err = tx.UpdatePaymentStatus(ctx, payment.ID, paymentStatus); err != nil {
			return nil, nil, err
		}
	}
	return cancelled, payment, nil
}

// afterCommit refreshes derived read models. Failures never undo the commit.
func (s *BookingService) afterCommit(ctx context.Context, showtimeID int64, soldOutChanged bool) {
	if s.availability != nil {
		s.availability.Invalidate(ctx, showtimeID)
	}
	if soldOutChanged {
		s.soldOut.InvalidateSchedule(ctx)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, payment *domain.Payment, bookedOut bool) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		Reference:   booking.Reference,
		BookingID:   booking.ID,
		ShowtimeID:  booking.ShowtimeID,
		SeatID:      booking.SeatID,
		Email:       booking.Email,
		Status:      string(booking.Status),
		IsBookedOut: bookedOut,
		OccurredAt:  booking.UpdatedAt,
	}
	if payment != nil {
		event.Amount = payment.Amount.StringFixed(pricing.MinorUnits)
	}

	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.String("reference", booking.Reference),
			zap.Error(err))
		return
	}
	if s.notificationsTopic != "" && booking.Email != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
			s.log.Warn("failed to publish notification",
				zap.String("type", eventType),
				zap.String("reference", booking.Reference),
				zap.Error(err))
		}
	}
}

// normalizeSeatIDs drops duplicates and sorts ascending so concurrent
// reservations insert overlapping seats in the same order.
func normalizeSeatIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", domain.ErrInvalidArgument)
	}
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: invalid seat id %d", domain.ErrInvalidArgument, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func seatsOnScreen(ctx context.Context, tx repository.Tx, screenID int64) (map[int64]domain.Seat, error) {
	seats, err := tx.ListSeatsForScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	return byID, nil
}

func categoriesByID(ctx context.Context, tx repository.Tx) (map[int64]domain.SeatCategory, error) {
	categories, err := tx.ListSeatCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.SeatCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var _ BookingUseCase = (*BookingService)(nil)
