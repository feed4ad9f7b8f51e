package api

import (
	"errors"
	"net/http"

	"github.com/avelora/skybooking/internal/booking"
	"github.com/avelora/skybooking/internal/domain"
	"github.com/avelora/skybooking/internal/flights"
	"github.com/gin-gonic/gin"
)

func NewRouter(flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) *gin.Engine {
	router := gin.Default()

	NewFlightHandler(flightSvc).Register(router.Group("/flights"))
	NewBookingHandler(bookingSvc).Register(router.Group("/bookings"))

	return router
}

// writeError maps the domain error taxonomy onto HTTP statuses so callers can
// tell a missing seat from an occupied one.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSeatConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
