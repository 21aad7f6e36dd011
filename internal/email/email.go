package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/showbooking/internal/kafka"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Transport delivers a composed message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type Sender struct {
	transport Transport
	log       *zap.Logger
}

// NewSender builds a sender. A nil transport only logs the messages.
func NewSender(transport Transport, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sender{transport: transport, log: log}
	if s.transport == nil {
		s.transport = logTransport{log: log}
	}
	return s
}

// Send notifies the customer about a booking event. Events without an email
// address and event types nobody needs to hear about are skipped.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if strings.TrimSpace(event.Email) == "" {
		return nil
	}
	msg, ok := Compose(event)
	if !ok {
		s.log.Debug("no email for event", zap.String("type", event.Type), zap.String("reference", event.Reference))
		return nil
	}
	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver email for booking %s: %w", event.Reference, err)
	}
	return nil
}

func Compose(event kafka.BookingEvent) (Message, bool) {
	msg := Message{To: event.Email}
	switch event.Type {
	case kafka.EventBookingCreated:
		msg.Subject = "Your seat is reserved"
		msg.Body = fmt.Sprintf("Booking %s for seat %d is reserved. Amount due: %s.", event.Reference, event.SeatID, event.Amount)
	case kafka.EventBookingConfirmed:
		msg.Subject = "Your booking is confirmed"
		msg.Body = fmt.Sprintf("Payment received. Booking %s for seat %d is confirmed. Show this reference at the door.", event.Reference, event.SeatID)
	case kafka.EventBookingCancelled:
		msg.Subject = "Your booking was cancelled"
		msg.Body = fmt.Sprintf("Booking %s for seat %d was cancelled and the seat released.", event.Reference, event.SeatID)
	case kafka.EventPaymentFailed:
		msg.Subject = "Payment failed"
		msg.Body = fmt.Sprintf("The payment for booking %s failed, so the seat %d was released. You are welcome to book again.", event.Reference, event.SeatID)
	default:
		return Message{}, false
	}
	return msg, true
}

type logTransport struct {
	log *zap.Logger
}

func (t logTransport) Deliver(_ context.Context, msg Message) error {
	t.log.Info("send email", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
