package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/showbooking/internal/repository"
	"github.com/Domenick1991/showbooking/internal/service/availability"
	"github.com/Domenick1991/showbooking/internal/service/showtime"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ShowtimeHandler struct {
	showtimes    showtime.ShowtimeUseCase
	availability availability.AvailabilityUseCase
}

type createShowtimeRequest struct {
	MovieID   int64           `json:"movie_id" binding:"required"`
	ScreenID  int64           `json:"screen_id" binding:"required"`
	StartTime time.Time       `json:"start_time" binding:"required"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type availabilityResponse struct {
	ShowtimeID int64   `json:"showtime_id"`
	FreeSeats  []int64 `json:"free_seats"`
}

func NewShowtimeHandler(showtimes showtime.ShowtimeUseCase, availability availability.AvailabilityUseCase) *ShowtimeHandler {
	return &ShowtimeHandler{showtimes: showtimes, availability: availability}
}

func (h *ShowtimeHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/seats", h.seatMap)
	router.GET("/:id/availability", h.freeSeats)
}

func (h *ShowtimeHandler) create(c *gin.Context) {
	var req createShowtimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.showtimes.CreateShowtime(c.Request.Context(), showtime.CreateShowtimeInput{
		MovieID:   req.MovieID,
		ScreenID:  req.ScreenID,
		StartTime: req.StartTime,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toShowtime(*st))
}

// list filters by movie_id and from; booked-out showtimes are hidden unless
// include_booked_out=true.
func (h *ShowtimeHandler) list(c *gin.Context) {
	var filter repository.ShowtimeFilter
	if raw := c.Query("movie_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid movie_id"))
			return
		}
		filter.MovieID = id
	}
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	filter.From = from
	if raw := c.Query("include_booked_out"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid include_booked_out"))
			return
		}
		filter.IncludeBookedOut = include
	}

	showtimes, err := h.showtimes.ListShowtimes(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toShowtimes(showtimes))
}

func (h *ShowtimeHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := h.showtimes.GetShowtime(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toShowtime(*st))
}

func (h *ShowtimeHandler) seatMap(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	seats, err := h.availability.SeatMap(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]seatStatusResponse, 0, len(seats))
	for _, s := range seats {
		resp = append(resp, toSeatStatus(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShowtimeHandler) freeSeats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	free, err := h.showtimes.GetAvailability(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{ShowtimeID: id, FreeSeats: free})
}
