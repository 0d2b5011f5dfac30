package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"fieldmatch-backend/config"
	"fieldmatch-backend/internal/booking"
	"fieldmatch-backend/internal/finding"
	"fieldmatch-backend/internal/mw"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/wallet"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, b *booking.Service, p *finding.PostService, rq *finding.RequestService, l *wallet.Ledger, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, b, p, rq, l, webpushOptions)

	perSec := cfg.Server.RateLimitPerSec
	if perSec <= 0 {
		perSec = 10
	}
	rateLimiter := mw.RateLimiter(rate.Limit(perSec), int(perSec)/2+1, cfg.Server.RequestIPHeader)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl, CallerHeader)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/bookings", handler.CreateBooking)
		api.POST("/bookings/auto", handler.AutoBooking)
		api.GET("/bookings/:id", handler.GetBooking)
		api.PATCH("/bookings/:id", handler.RescheduleBooking)
		api.PATCH("/bookings/:id/status", handler.SetBookingStatus)
		api.DELETE("/bookings/:id", handler.CancelBooking)

		api.POST("/findings", handler.CreatePost)
		api.POST("/findings/from-booking", handler.CreatePostFromBooking)
		api.GET("/findings/:id", handler.GetPost)
		api.DELETE("/findings/:id", handler.CancelPost)
		api.POST("/findings/:id/cancel-match", handler.CancelMatch)
		api.POST("/findings/:id/restore", handler.RestorePost)
		api.GET("/findings/:id/restore-conflicts", handler.PostRestoreConflicts)

		api.POST("/findings/:id/requests", handler.CreateRequest)
		api.GET("/findings/:id/requests", handler.ListRequests)
		api.GET("/requests/conflicts", caching, handler.RequestConflicts)
		api.POST("/requests/:id/accept", handler.AcceptRequest)
		api.DELETE("/requests/:id", handler.CancelRequest)
		api.POST("/requests/:id/restore", handler.RestoreRequest)
		api.GET("/requests/:id/restore-conflicts", handler.RequestRestoreConflicts)

		api.GET("/wallet", handler.GetWallet)
		api.POST("/wallet/topup", handler.TopUpWallet)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
