package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/service/catalog"
	"github.com/Domenick1991/showbooking/internal/service/showtime"
	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	catalog   catalog.CatalogUseCase
	showtimes showtime.ShowtimeUseCase
}

type createMovieRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

func NewMovieHandler(catalog catalog.CatalogUseCase, showtimes showtime.ShowtimeUseCase) *MovieHandler {
	return &MovieHandler{catalog: catalog, showtimes: showtimes}
}

func (h *MovieHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.schedule)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.delete)
}

// schedule lists movies with the showtimes that can still be booked.
func (h *MovieHandler) schedule(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	schedule, err := h.showtimes.ListSchedule(c.Request.Context(), from)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]scheduleEntry, 0, len(schedule))
	for _, entry := range schedule {
		resp = append(resp, scheduleEntry{Movie: toMovie(entry.Movie), Showtimes: toShowtimes(entry.Showtimes)})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MovieHandler) create(c *gin.Context) {
	var req createMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	movie := &domain.Movie{Title: req.Title, Description: req.Description, DurationMinutes: req.DurationMinutes}
	if err := h.catalog.CreateMovie(c.Request.Context(), movie); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMovie(*movie))
}

func (h *MovieHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	movie, err := h.catalog.GetMovie(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMovie(*movie))
}

func (h *MovieHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteMovie(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseTimeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid %s: expected RFC 3339 time", name))
		return time.Time{}, false
	}
	return t, true
}
