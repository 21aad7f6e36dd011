package ticket

import (
	"fmt"
	"strings"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/pricing"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// Payload is the text encoded in a ticket's QR code. Door staff scan it and
// look the booking up by reference.
func Payload(t *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SHOWBOOKING:%s\n", t.Reference)
	fmt.Fprintf(&b, "MOVIE:%s\n", t.MovieTitle)
	fmt.Fprintf(&b, "SCREEN:%s\n", t.ScreenName)
	fmt.Fprintf(&b, "SEAT:%s (%s)\n", t.SeatNumber, t.Category)
	fmt.Fprintf(&b, "START:%s\n", t.StartTime.UTC().Format("2006-01-02T15:04Z"))
	fmt.Fprintf(&b, "PRICE:%s", t.Amount.StringFixed(pricing.MinorUnits))
	return b.String()
}

// RenderPNG encodes the ticket payload as a square PNG QR code of the given
// size in pixels. Zero selects DefaultSize.
func RenderPNG(t *domain.Ticket, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: qr size must be between %d and %d, got %d", domain.ErrInvalidArgument, MinSize, MaxSize, size)
	}
	png, err := qrcode.Encode(Payload(t), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
