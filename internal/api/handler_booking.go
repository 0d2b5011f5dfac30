package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldmatch-backend/internal/booking"
	"fieldmatch-backend/internal/model"
)

type createBookingRequest struct {
	PartialFieldID string  `json:"partial_field_id" binding:"required"`
	Date           string  `json:"date" binding:"required"`
	StartSec       int     `json:"start_sec"`
	EndSec         int     `json:"end_sec" binding:"required"`
	TeamID         *string `json:"team_id"`
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	b, err := h.bookings.Create(c.Request.Context(), booking.CreateInput{
		PartialFieldID: req.PartialFieldID,
		UserID:         userID,
		TeamID:         req.TeamID,
		Date:           date,
		StartSec:       req.StartSec,
		EndSec:         req.EndSec,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type autoBookingRequest struct {
	FieldID  string  `json:"field_id" binding:"required"`
	Date     string  `json:"date" binding:"required"`
	StartSec int     `json:"start_sec"`
	EndSec   int     `json:"end_sec" binding:"required"`
	TeamID   *string `json:"team_id"`
}

// AutoBooking handles POST /api/bookings/auto: the server picks the first
// free partial field of the requested field.
func (h *Handler) AutoBooking(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req autoBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	b, err := h.bookings.CreateAuto(c.Request.Context(), booking.AutoCreateInput{
		FieldID:  req.FieldID,
		UserID:   userID,
		TeamID:   req.TeamID,
		Date:     date,
		StartSec: req.StartSec,
		EndSec:   req.EndSec,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBooking handles GET /api/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	b, err := h.store.BookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type rescheduleBookingRequest struct {
	Date     string `json:"date" binding:"required"`
	StartSec int    `json:"start_sec"`
	EndSec   int    `json:"end_sec" binding:"required"`
}

// RescheduleBooking handles PATCH /api/bookings/:id.
func (h *Handler) RescheduleBooking(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req rescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	b, err := h.bookings.Reschedule(c.Request.Context(), c.Param("id"), userID, date, req.StartSec, req.EndSec)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type bookingStatusRequest struct {
	Status model.BookingStatus `json:"status" binding:"required"`
}

// SetBookingStatus handles PATCH /api/bookings/:id/status: the field
// owner/staff decision. Caller authorization as staff is resolved upstream.
func (h *Handler) SetBookingStatus(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}

	var req bookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.bookings.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles DELETE /api/bookings/:id, the owner-initiated
// cancellation before start time.
func (h *Handler) CancelBooking(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	b, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
