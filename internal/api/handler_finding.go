package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldmatch-backend/internal/finding"
)

type createPostFromBookingRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Content   string `json:"content"`
}

// CreatePostFromBooking handles POST /api/findings/from-booking.
func (h *Handler) CreatePostFromBooking(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req createPostFromBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.posts.CreateFromBooking(c.Request.Context(), req.BookingID, userID, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

type createPostRequest struct {
	Content   string `json:"content"`
	FieldName string `json:"field_name" binding:"required"`
	Address   string `json:"address"`
	Province  string `json:"province"`
	District  string `json:"district"`
	Commune   string `json:"commune"`
	Date      string `json:"date" binding:"required"`
	StartSec  int    `json:"start_sec"`
	EndSec    int    `json:"end_sec" binding:"required"`
}

// CreatePost handles POST /api/findings: a freestanding post.
func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	f, err := h.posts.Create(c.Request.Context(), finding.FreestandingInput{
		UserID:    userID,
		Content:   req.Content,
		FieldName: req.FieldName,
		Address:   req.Address,
		Province:  req.Province,
		District:  req.District,
		Commune:   req.Commune,
		Date:      date,
		StartSec:  req.StartSec,
		EndSec:    req.EndSec,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// GetPost handles GET /api/findings/:id.
func (h *Handler) GetPost(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	f, err := h.store.FindingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// CancelPost handles DELETE /api/findings/:id.
func (h *Handler) CancelPost(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	f, err := h.posts.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// CancelMatch handles POST /api/findings/:id/cancel-match.
func (h *Handler) CancelMatch(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	f, err := h.posts.CancelMatch(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

type restoreRequest struct {
	Supersede bool `json:"supersede"`
}

// RestorePost handles POST /api/findings/:id/restore. With supersede=true,
// overlapping live posts/requests of the caller are auto-cancelled first;
// without it the restore fails on conflict.
func (h *Handler) RestorePost(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	var f any
	if req.Supersede {
		f, err = h.posts.RestoreSupersede(c.Request.Context(), c.Param("id"), userID)
	} else {
		f, err = h.posts.Restore(c.Request.Context(), c.Param("id"), userID)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// PostRestoreConflicts handles GET /api/findings/:id/restore-conflicts,
// the dry run used to warn before a destructive restore.
func (h *Handler) PostRestoreConflicts(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	conflicts, err := h.posts.OverlapCandidates(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":    conflicts.Findings,
		"requests": conflicts.Requests,
		"bookings": conflicts.Bookings,
	})
}
