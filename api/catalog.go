package api

import (
	"net/http"

	"github.com/Domenick1991/showbooking/internal/domain"
	"github.com/Domenick1991/showbooking/internal/service/catalog"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves the administrative catalog: cinemas, screens, seat
// categories and seats.
type CatalogHandler struct {
	service catalog.CatalogUseCase
}

type createCinemaRequest struct {
	Name string `json:"name" binding:"required"`
}

type createScreenRequest struct {
	CinemaID int64  `json:"cinema_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type createSeatCategoryRequest struct {
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	PremiumPercentage decimal.Decimal `json:"premium_percentage"`
}

type createSeatRequest struct {
	ScreenID       int64  `json:"screen_id" binding:"required"`
	SeatCategoryID int64  `json:"seat_category_id" binding:"required"`
	SeatNumber     string `json:"seat_number" binding:"required"`
	IsAvailable    *bool  `json:"is_available"`
}

func NewCatalogHandler(service catalog.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Register(router *gin.RouterGroup) {
	router.POST("/cinemas", h.createCinema)
	router.GET("/cinemas/:id", h.getCinema)

	router.POST("/screens", h.createScreen)
	router.GET("/screens/:id", h.getScreen)
	router.DELETE("/screens/:id", h.deleteScreen)
	router.GET("/screens/:id/seats", h.listSeats)

	router.POST("/seat-categories", h.createSeatCategory)
	router.GET("/seat-categories", h.listSeatCategories)
	router.DELETE("/seat-categories/:id", h.deleteSeatCategory)

	router.POST("/seats", h.createSeat)
	router.GET("/seats/:id", h.getSeat)
}

func (h *CatalogHandler) createCinema(c *gin.Context) {
	var req createCinemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cinema := &domain.Cinema{Name: req.Name}
	if err := h.service.CreateCinema(c.Request.Context(), cinema); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cinemaResponse{ID: cinema.ID, Name: cinema.Name})
}

func (h *CatalogHandler) getCinema(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cinema, err := h.service.GetCinema(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cinemaResponse{ID: cinema.ID, Name: cinema.Name})
}

func (h *CatalogHandler) createScreen(c *gin.Context) {
	var req createScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	screen := &domain.Screen{CinemaID: req.CinemaID, Name: req.Name}
	if err := h.service.CreateScreen(c.Request.Context(), screen); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, screenResponse{ID: screen.ID, CinemaID: screen.CinemaID, Name: screen.Name, Capacity: screen.Capacity})
}

func (h *CatalogHandler) getScreen(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	screen, err := h.service.GetScreen(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, screenResponse{ID: screen.ID, CinemaID: screen.CinemaID, Name: screen.Name, Capacity: screen.Capacity})
}

func (h *CatalogHandler) deleteScreen(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteScreen(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) listSeats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	seats, err := h.service.ListSeatsForScreen(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]seatResponse, 0, len(seats))
	for _, s := range seats {
		resp = append(resp, toSeat(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) createSeatCategory(c *gin.Context) {
	var req createSeatCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	category := &domain.SeatCategory{Name: req.Name, Description: req.Description, PremiumPercentage: req.PremiumPercentage}
	if err := h.service.CreateSeatCategory(c.Request.Context(), category); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSeatCategory(*category))
}

func (h *CatalogHandler) listSeatCategories(c *gin.Context) {
	categories, err := h.service.ListSeatCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]seatCategoryResponse, 0, len(categories))
	for _, cat := range categories {
		resp = append(resp, toSeatCategory(cat))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) deleteSeatCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteSeatCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) createSeat(c *gin.Context) {
	var req createSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	seat := &domain.Seat{
		ScreenID:       req.ScreenID,
		SeatCategoryID: req.SeatCategoryID,
		SeatNumber:     req.SeatNumber,
		IsAvailable:    req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := h.service.CreateSeat(c.Request.Context(), seat); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSeat(*seat))
}

func (h *CatalogHandler) getSeat(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	seat, err := h.service.GetSeat(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSeat(*seat))
}
