package api

import (
	"time"

	"github.com/Domenick1991/showbooking/internal/service/availability"
	"github.com/Domenick1991/showbooking/internal/service/booking"
	"github.com/Domenick1991/showbooking/internal/service/catalog"
	"github.com/Domenick1991/showbooking/internal/service/showtime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Catalog      catalog.CatalogUseCase
	Showtimes    showtime.ShowtimeUseCase
	Availability availability.AvailabilityUseCase
	Bookings     booking.BookingUseCase
	Limiter      *RateLimiter
}

// NewRouter mounts every handler under /api/v1.
func NewRouter(s Services, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	v1 := router.Group("/api/v1")
	NewMovieHandler(s.Catalog, s.Showtimes).Register(v1.Group("/movies"))
	NewCatalogHandler(s.Catalog).Register(v1)
	NewShowtimeHandler(s.Showtimes, s.Availability).Register(v1.Group("/showtimes"))
	NewBookingHandler(s.Bookings, s.Limiter).Register(v1.Group("/bookings"))
	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("request", fields...)
	}
}
