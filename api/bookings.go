package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avelora/skybooking/internal/booking"
	"github.com/avelora/skybooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type riderPayload struct {
	ID                   int64  `json:"id"`
	Guest                bool   `json:"guest"`
	BirthDate            string `json:"birth_date"`
	FirstBookingDiscount bool   `json:"first_booking_discount"`
}

type createBookingRequest struct {
	Rider         riderPayload `json:"rider"`
	FlightID      int64        `json:"flight_id"`
	SeatID        string       `json:"seat_id"`
	CouponKind    string       `json:"coupon_kind"`
	CouponPercent float64      `json:"coupon_percent"`
	Luggage       int          `json:"luggage"`
	Insured       bool         `json:"insured"`
}

type modifyBookingRequest struct {
	Rider   riderPayload `json:"rider"`
	SeatID  string       `json:"seat_id"`
	Luggage int          `json:"luggage"`
}

type bookingResponse struct {
	ID             int64   `json:"id"`
	Ref            string  `json:"ref"`
	Status         string  `json:"status"`
	FlightID       int64   `json:"flight_id"`
	SeatID         string  `json:"seat_id"`
	SeatClass      string  `json:"seat_class"`
	Luggage        int     `json:"luggage"`
	Insured        bool    `json:"insured"`
	DiscountFactor float64 `json:"discount_factor"`
	TotalPrice     float64 `json:"total_price"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/", h.create)
	router.DELETE("/:id", h.cancel)
	router.PUT("/:id", h.modify)
	router.GET("/user/:userId", h.listForUser)
	router.GET("/flight/:flightId", h.listForFlight)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rider, err := parseRider(req.Rider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), booking.CreateInput{
		Rider:    rider,
		FlightID: req.FlightID,
		SeatID:   req.SeatID,
		Coupon:   parseCoupon(req.CouponKind, req.CouponPercent),
		Luggage:  req.Luggage,
		Insured:  req.Insured,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ok, free, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true, "free_cancellation": free})
}

func (h *BookingHandler) modify(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rider, err := parseRider(req.Rider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.service.Modify(c.Request.Context(), id, rider, req.SeatID, req.Luggage)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"modified": true})
}

func (h *BookingHandler) listForUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	upcoming := c.Query("upcoming") == "true"

	bookings, err := h.service.GetForUser(c.Request.Context(), userID, upcoming)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) listForFlight(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("flightId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	bookings, err := h.service.ListForFlight(c.Request.Context(), flightID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func parseRider(p riderPayload) (domain.Rider, error) {
	rider := domain.Rider{
		ID:                   p.ID,
		Guest:                p.Guest,
		FirstBookingDiscount: p.FirstBookingDiscount,
	}
	if p.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", p.BirthDate)
		if err != nil {
			return domain.Rider{}, err
		}
		rider.BirthDate = birthDate
	}
	return rider, nil
}

func parseCoupon(kind string, percent float64) domain.Coupon {
	switch domain.CouponKind(kind) {
	case domain.CouponPercentage:
		return domain.PercentCoupon(percent)
	case domain.CouponSpice:
		return domain.SpiceCoupon()
	default:
		return domain.NoCoupon()
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	responses := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, toBookingResponse(&bookings[i]))
	}
	return responses
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:             b.ID,
		Ref:            b.Ref,
		Status:         string(b.Status),
		FlightID:       b.FlightID,
		SeatID:         b.SeatID,
		SeatClass:      string(b.SeatClass),
		Luggage:        b.Luggage,
		Insured:        b.Insured,
		DiscountFactor: b.DiscountFactor,
		TotalPrice:     b.TotalPrice,
	}
}
