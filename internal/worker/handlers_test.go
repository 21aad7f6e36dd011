package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) ConfirmPayment(ctx context.Context, bookingID int64, outcome domain.PaymentOutcome) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, outcome)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, event kafka.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func message(t *testing.T, v interface{}) kafkaGo.Message {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return kafkaGo.Message{Value: data}
}

func TestPaymentResults(t *testing.T) {
	ctx := context.Background()
	storageErr := &domain.StorageError{Op: "commit", Err: errors.New("connection reset")}

	tests := []struct {
		name    string
		outcome domain.PaymentOutcome
		booking *domain.Booking
		err     error
		wantErr error
	}{
		{"confirmed", domain.PaymentOutcomeConfirmed, &domain.Booking{ID: 1, Status: domain.BookingStatusConfirmed}, nil, nil},
		{"failed", domain.PaymentOutcomeFailed, &domain.Booking{ID: 1, Status: domain.BookingStatusCancelled}, fmt.Errorf("booking 1: %w", domain.ErrPaymentFailed), nil},
		{"already settled", domain.PaymentOutcomeConfirmed, nil, domain.ErrInvalidArgument, nil},
		{"unknown booking", domain.PaymentOutcomeConfirmed, nil, domain.ErrNotFound, nil},
		{"storage failure is retried", domain.PaymentOutcomeConfirmed, nil, storageErr, domain.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmer := &MockConfirmer{}
			confirmer.On("ConfirmPayment", ctx, int64(1), tt.outcome).Return(tt.booking, tt.err).Once()

			err := PaymentResults(confirmer, nil)(ctx, message(t, kafka.PaymentResult{BookingID: 1, Outcome: string(tt.outcome)}))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			confirmer.AssertExpectations(t)
		})
	}
}

func TestPaymentResults_SkipsMalformedMessages(t *testing.T) {
	confirmer := &MockConfirmer{}
	handler := PaymentResults(confirmer, nil)

	assert.NoError(t, handler(context.Background(), kafkaGo.Message{Value: []byte("{not json")}))
	assert.NoError(t, handler(context.Background(), message(t, kafka.PaymentResult{BookingID: 1, Outcome: "refunded"})))
	confirmer.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	event := kafka.BookingEvent{Type: kafka.EventBookingCreated, Reference: "ref-1", Email: "a@b.c"}

	notifier := &MockNotifier{}
	notifier.On("Send", ctx, mock.MatchedBy(func(e kafka.BookingEvent) bool { return e.Reference == "ref-1" })).Return(nil).Once()

	handler := Notifications(notifier, nil)
	require.NoError(t, handler(ctx, message(t, event)))
	assert.NoError(t, handler(ctx, kafkaGo.Message{Value: []byte("garbage")}))
	notifier.AssertExpectations(t)
}
