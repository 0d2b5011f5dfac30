package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"fieldmatch-backend/internal/booking"
	"fieldmatch-backend/internal/finding"
	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/wallet"
)

// CallerHeader carries the pre-authorized caller identity. Authentication is
// the gateway's job; this service trusts the header.
const CallerHeader = "X-User-ID"

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	bookings *booking.Service
	posts    *finding.PostService
	requests *finding.RequestService
	ledger   *wallet.Ledger
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, b *booking.Service, p *finding.PostService, r *finding.RequestService, l *wallet.Ledger, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		bookings: b,
		posts:    p,
		requests: r,
		ledger:   l,
		webpush:  webpushOptions,
	}
}

// caller extracts the pre-authorized user identity, aborting with 401 when
// absent.
func caller(c *gin.Context) (string, bool) {
	userID := c.GetHeader(CallerHeader)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + CallerHeader + " header"})
		return "", false
	}
	return userID, true
}

// abortWithError maps domain errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrInvalidTimeRange),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrInvalidStatusTransition):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrOverlapConflict),
		errors.Is(err, model.ErrDuplicateRequest),
		errors.Is(err, model.ErrAlreadyAccepted):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// parseDate parses the wire date format (calendar date, no clock).
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
