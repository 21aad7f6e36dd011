package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, bookingID int64, outcome domain.PaymentOutcome) (*domain.Booking, error)
}

type Notifier interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

// PaymentResults applies payment processor callbacks to bookings. Only storage
// failures are returned; the consumer retries them without committing the
// offset. Malformed and stale results are logged and skipped.
func PaymentResults(confirmer PaymentConfirmer, log *zap.Logger) kafka.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, msg kafkaGo.Message) error {
		var result kafka.PaymentResult
		if err := json.Unmarshal(msg.Value, &result); err != nil {
			log.Warn("decode payment result", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		outcome, err := domain.ParsePaymentOutcome(result.Outcome)
		if err != nil {
			log.Warn("skip payment result", zap.Int64("booking_id", result.BookingID), zap.Error(err))
			return nil
		}

		booking, err := confirmer.ConfirmPayment(ctx, result.BookingID, outcome)
		switch {
		case err == nil:
			log.Info("payment confirmed", zap.Int64("booking_id", booking.ID), zap.String("reference", booking.Reference))
			return nil
		case errors.Is(err, domain.ErrPaymentFailed):
			log.Info("payment failed, seat released", zap.Int64("booking_id", result.BookingID))
			return nil
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
			log.Warn("stale payment result", zap.Int64("booking_id", result.BookingID), zap.Error(err))
			return nil
		default:
			return err
		}
	}
}

// Notifications mails customers about booking events.
func Notifications(notifier Notifier, log *zap.Logger) kafka.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, msg kafkaGo.Message) error {
		var event kafka.BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Warn("decode booking event", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		return notifier.Send(ctx, event)
	}
}
