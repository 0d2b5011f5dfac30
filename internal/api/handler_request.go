package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type createJoinRequest struct {
	Message string `json:"message"`
}

// CreateRequest handles POST /api/findings/:id/requests.
func (h *Handler) CreateRequest(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req createJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.requests.Create(c.Request.Context(), c.Param("id"), userID, req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListRequests handles GET /api/findings/:id/requests?sort=asc|desc. The
// author's triage list: accepted first, then by status, then by creation
// time.
func (h *Handler) ListRequests(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	ascending := c.DefaultQuery("sort", "desc") == "asc"
	requests, err := h.requests.ListByPost(c.Request.Context(), c.Param("id"), userID, ascending)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// AcceptRequest handles POST /api/requests/:id/accept.
func (h *Handler) AcceptRequest(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	r, err := h.requests.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CancelRequest handles DELETE /api/requests/:id.
func (h *Handler) CancelRequest(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	r, err := h.requests.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// RestoreRequest handles POST /api/requests/:id/restore.
func (h *Handler) RestoreRequest(c *gin.Context) {
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
	var r any
	if req.Supersede {
		r, err = h.requests.RestoreSupersede(c.Request.Context(), c.Param("id"), userID)
	} else {
		r, err = h.requests.Restore(c.Request.Context(), c.Param("id"), userID)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// RequestRestoreConflicts handles GET /api/requests/:id/restore-conflicts.
func (h *Handler) RequestRestoreConflicts(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	conflicts, err := h.requests.OverlapCandidates(c.Request.Context(), c.Param("id"), userID)
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

// RequestConflicts handles GET /api/requests/conflicts?date=&start_sec=&end_sec=,
// the pre-flight check listing the caller's pending requests that would
// collide with the given window.
func (h *Handler) RequestConflicts(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}
	startSec, err := strconv.Atoi(c.Query("start_sec"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_sec"})
		return
	}
	endSec, err := strconv.Atoi(c.Query("end_sec"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_sec"})
		return
	}

	live, err := h.requests.OverlappingLive(c.Request.Context(), userID, date, startSec, endSec)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, live)
}
