package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/service/booking"
	"github.com/Domenick1991/showbooking/internal/ticket"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
	limiter *RateLimiter
}

type createBookingRequest struct {
	ShowtimeID int64   `json:"showtime_id" binding:"required"`
	SeatIDs    []int64 `json:"seat_ids"`
	Email      string  `json:"email"`
}

type paymentRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// NewBookingHandler builds the handler. A nil limiter disables throttling of
// reservations.
func NewBookingHandler(service booking.BookingUseCase, limiter *RateLimiter) *BookingHandler {
	return &BookingHandler{service: service, limiter: limiter}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	create := []gin.HandlerFunc{h.create}
	if h.limiter != nil {
		create = append([]gin.HandlerFunc{h.limiter.Middleware()}, create...)
	}
	router.POST("", create...)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
	router.POST("/:id/payment", h.payment)
	router.GET("/:id/ticket", h.getTicket)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reservation, err := h.service.Reserve(c.Request.Context(), booking.ReserveInput{
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    req.SeatIDs,
		Email:      req.Email,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := reservationResponse{
		Showtime: toShowtime(reservation.Showtime),
		Bookings: make([]bookingResponse, 0, len(reservation.Seats)),
		Total:    money(reservation.Total),
	}
	for _, rs := range reservation.Seats {
		resp.Bookings = append(resp.Bookings, toReservedSeat(rs))
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	details, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservedSeat(*details))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cancelled, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBooking(*cancelled))
}

// payment is the callback for the payment processor.
func (h *BookingHandler) payment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	outcome, err := domain.ParsePaymentOutcome(req.Outcome)
	if err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.service.ConfirmPayment(c.Request.Context(), id, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentFailed) && updated != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "booking": toBooking(*updated)})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBooking(*updated))
}

// getTicket returns the ticket as JSON, or as a QR code PNG with format=png.
func (h *BookingHandler) getTicket(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTicket(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("format") != "png" {
		c.JSON(http.StatusOK, toTicket(*t))
		return
	}
	size := 0
	if raw := c.Query("size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil {
			badRequest(c, fmt.Errorf("invalid size"))
			return
		}
	}
	png, err := ticket.RenderPNG(t, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
