// Package reconcile runs the periodic sweeps that keep persisted lifecycle
// state honest: expiring bookings whose start time passed while still
// waiting, and marking opponent-finding posts overdue once their window has
// elapsed.
package reconcile

import (
	"context"
	"log"
	"time"

	"fieldmatch-backend/config"
)

// bookingExpirer is the slice of the booking service the reconciler needs.
type bookingExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// overdueMarker is the slice of the post service the reconciler needs.
type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// Reconciler drives both sweeps on a fixed interval.
type Reconciler struct {
	cfg      *config.ReconcilerConfig
	bookings bookingExpirer
	posts    overdueMarker
}

// New creates a reconciler over the given services.
func New(cfg *config.ReconcilerConfig, bookings bookingExpirer, posts overdueMarker) *Reconciler {
	return &Reconciler{cfg: cfg, bookings: bookings, posts: posts}
}

// Run starts the sweep loop. It performs one pass immediately, then one per
// interval, and exits when the context is cancelled. A failed pass is logged
// and retried unconditionally on the next tick; no backoff, this is a
// cleanup job.
func (r *Reconciler) Run(ctx context.Context) {
	if !r.cfg.Enabled {
		log.Println("Reconciler is disabled. Not starting.")
		return
	}
	log.Println("Starting reconciler...")

	r.Sweep(ctx)

	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciler shutting down.")
			return
		case <-timer.C:
			r.Sweep(ctx)
			timer.Reset(r.cfg.Interval)
		}
	}
}

// Sweep performs one reconciliation pass. A failure in one sweep never
// prevents the other from running.
func (r *Reconciler) Sweep(ctx context.Context) {
	expired, err := r.bookings.ExpireStale(ctx)
	if err != nil {
		log.Printf("Error expiring stale bookings: %v", err)
	} else if expired > 0 {
		log.Printf("Expired %d stale bookings", expired)
	}

	overdue, err := r.posts.MarkOverdue(ctx)
	if err != nil {
		log.Printf("Error marking overdue posts: %v", err)
	} else if overdue > 0 {
		log.Printf("Marked %d posts overdue", overdue)
	}
}
