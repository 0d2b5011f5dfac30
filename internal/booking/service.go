// Package booking owns the booking lifecycle: slot reservation with deposit
// escrow, status transitions by field staff, owner cancellation, and the
// expiry sweep that reclaims slots whose start time passed while the booking
// was still waiting.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/notification"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/timeslot"
)

// Service implements the booking lifecycle.
type Service struct {
	store    store.Store
	notifier notification.Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a booking service. loc is the business timezone used to
// decide whether a slot's start time has passed.
func NewService(s store.Store, n notification.Notifier, loc *time.Location) *Service {
	return &Service{
		store:    s,
		notifier: n,
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

// CreateInput carries the parameters for reserving a specific partial field.
type CreateInput struct {
	PartialFieldID string
	UserID         string
	TeamID         *string
	Date           time.Time
	StartSec       int
	EndSec         int
}

// Create reserves the slot: validates the time range and the partial field,
// computes the deposit from the field's configured amount, and persists the
// booking as WAITING with the deposit withdrawn, atomically. Two concurrent
// creations for the same slot serialize inside the store; at most one wins.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Booking, error) {
	win := timeslot.Window{Date: timeslot.DateOf(in.Date), StartSec: in.StartSec, EndSec: in.EndSec}
	if !win.Valid() {
		return nil, model.ErrInvalidTimeRange
	}

	pf, err := s.store.PartialFieldByID(ctx, in.PartialFieldID)
	if err != nil {
		return nil, err
	}
	if pf.Status != model.FieldActive || pf.Field.Status != model.FieldActive {
		return nil, model.ErrInvalidState
	}

	b := &model.Booking{
		ID:             uuid.NewString(),
		PartialFieldID: pf.ID,
		UserID:         in.UserID,
		TeamID:         in.TeamID,
		Date:           win.Date,
		StartSec:       win.StartSec,
		EndSec:         win.EndSec,
		Status:         model.BookingWaiting,
		DepositAmount:  pf.Field.DepositAmount,
	}

	if err := s.store.CreateBookingWithDeposit(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AutoCreateInput carries the parameters for field-level auto-assignment:
// the caller names a field and the service books the first of its active
// partial fields with a free slot.
type AutoCreateInput struct {
	FieldID  string
	UserID   string
	TeamID   *string
	Date     time.Time
	StartSec int
	EndSec   int
}

// CreateAuto books the first active partial field of the given field whose
// slot is free for the requested window. Returns OverlapConflict when every
// partial field is taken.
func (s *Service) CreateAuto(ctx context.Context, in AutoCreateInput) (*model.Booking, error) {
	win := timeslot.Window{Date: timeslot.DateOf(in.Date), StartSec: in.StartSec, EndSec: in.EndSec}
	if !win.Valid() {
		return nil, model.ErrInvalidTimeRange
	}

	pfs, err := s.store.ActivePartialFields(ctx, in.FieldID)
	if err != nil {
		return nil, err
	}
	if len(pfs) == 0 {
		return nil, model.ErrNotFound
	}

	for i := range pfs {
		taken, err := s.store.SlotTaken(ctx, pfs[i].ID, win, "")
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		b, err := s.Create(ctx, CreateInput{
			PartialFieldID: pfs[i].ID,
			UserID:         in.UserID,
			TeamID:         in.TeamID,
			Date:           in.Date,
			StartSec:       in.StartSec,
			EndSec:         in.EndSec,
		})
		if errors.Is(err, model.ErrOverlapConflict) {
			// Lost the slot between the probe and the insert; try the next one.
			continue
		}
		return b, err
	}
	return nil, model.ErrOverlapConflict
}

// Reschedule moves a WAITING booking to a new time range, re-running the
// overlap check against the new range excluding the booking itself.
func (s *Service) Reschedule(ctx context.Context, id, callerID string, date time.Time, startSec, endSec int) (*model.Booking, error) {
	win := timeslot.Window{Date: timeslot.DateOf(date), StartSec: startSec, EndSec: endSec}
	if !win.Valid() {
		return nil, model.ErrInvalidTimeRange
	}

	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, model.ErrForbidden
	}
	if b.Status != model.BookingWaiting {
		return nil, model.ErrInvalidStatusTransition
	}

	b.Date = win.Date
	b.StartSec = win.StartSec
	b.EndSec = win.EndSec
	if err := s.store.RescheduleBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SetStatus applies a field owner/staff decision: WAITING moves to ACCEPTED
// or REJECTED. Rejection returns the deposit and notifies the booker. The
// caller identity is assumed pre-authorized as field staff.
func (s *Service) SetStatus(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingWaiting {
		return nil, model.ErrInvalidStatusTransition
	}

	switch to {
	case model.BookingAccepted:
		if err := s.store.SaveBookingStatus(ctx, b, model.BookingAccepted); err != nil {
			return nil, err
		}
		s.notifier.SendToUsers(ctx, []string{b.UserID},
			"Booking accepted",
			fmt.Sprintf("Your booking on %s has been accepted.", b.Date.Format("2006-01-02")))
	case model.BookingRejected:
		if err := s.store.RejectBookingWithRefund(ctx, b); err != nil {
			return nil, err
		}
		s.notifier.SendToUsers(ctx, []string{b.UserID},
			"Booking rejected",
			fmt.Sprintf("Your booking on %s was rejected. Your deposit of %.0f has been refunded.",
				b.Date.Format("2006-01-02"), b.DepositAmount))
	default:
		return nil, model.ErrInvalidStatusTransition
	}
	return b, nil
}

// Cancel is the owner-initiated cancellation, permitted only before the
// slot's start time. The deposit is refunded and any opponent-finding post
// linked to the booking is cancelled along with its pending requests, in the
// same operation.
func (s *Service) Cancel(ctx context.Context, id, callerID string) (*model.Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, model.ErrForbidden
	}
	if b.Status.Terminal() {
		return nil, model.ErrInvalidStatusTransition
	}
	if b.Window().StartPassed(s.localNow()) {
		return nil, model.ErrInvalidStatusTransition
	}

	requesterIDs, err := s.store.CancelBookingCascade(ctx, b, true)
	if err != nil {
		return nil, err
	}

	if len(requesterIDs) > 0 {
		s.notifier.SendToUsers(ctx, requesterIDs,
			"Opponent post cancelled",
			"A post you requested to join was cancelled because its booking was cancelled.")
	}
	return b, nil
}

// ExpireStale sweeps WAITING bookings whose start time has passed, moving
// each to CANCELED with a refund and one notification to the booker.
// Idempotent per booking: the persisted status change keeps an already
// processed booking out of the next sweep. Per-item failures are logged and
// do not abort the sweep.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.store.StaleWaitingBookings(ctx, s.localNow())
	if err != nil {
		return 0, fmt.Errorf("list stale bookings: %w", err)
	}

	expired := 0
	for i := range stale {
		b := &stale[i]
		requesterIDs, err := s.store.CancelBookingCascade(ctx, b, false)
		if err != nil {
			log.Printf("Error expiring booking %s: %v", b.ID, err)
			continue
		}
		expired++

		s.notifier.SendToUsers(ctx, []string{b.UserID},
			"Booking expired",
			fmt.Sprintf("Your booking on %s was never confirmed and has been cancelled. Your deposit of %.0f has been refunded.",
				b.Date.Format("2006-01-02"), b.DepositAmount))
		if len(requesterIDs) > 0 {
			s.notifier.SendToUsers(ctx, requesterIDs,
				"Opponent post cancelled",
				"A post you requested to join was cancelled because its booking expired.")
		}
	}
	return expired, nil
}
