// Package finding owns the opponent-finding protocol: posts looking for an
// opponent team, requests to join them, acceptance, and the restore flows
// that keep each user down to one live slot per time window.
package finding

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/notification"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/timeslot"
)

// PostService manages opponent-finding posts.
type PostService struct {
	store    store.Store
	notifier notification.Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewPostService creates a post manager.
func NewPostService(s store.Store, n notification.Notifier, loc *time.Location) *PostService {
	return &PostService{store: s, notifier: n, loc: loc, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *PostService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PostService) localNow() time.Time {
	return s.now().In(s.loc)
}

// CreateFromBooking opens a post tied to one of the caller's bookings. Time
// and location defer to the booking; nothing is denormalized.
func (s *PostService) CreateFromBooking(ctx context.Context, bookingID, callerID, content string) (*model.OpponentFinding, error) {
	b, err := s.store.BookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, model.ErrForbidden
	}
	if !b.Status.HoldsSlot() {
		return nil, model.ErrInvalidState
	}
	if b.Window().StartPassed(s.localNow()) {
		return nil, model.ErrInvalidState
	}

	existing, err := s.store.ActiveFindingForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.ErrInvalidState
	}

	f := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: callerID,
		Content:       content,
		Status:        model.FindingOpen,
		BookingID:     &b.ID,
		FieldID:       &b.PartialField.FieldID,
		Booking:       b,
	}
	if err := s.store.CreateFindingGuarded(ctx, f, b.Window()); err != nil {
		return nil, err
	}
	return f, nil
}

// FreestandingInput carries the parameters for a post not backed by a
// booking: the author names the venue and window themselves.
type FreestandingInput struct {
	UserID    string
	Content   string
	FieldName string
	Address   string
	Province  string
	District  string
	Commune   string
	Date      time.Time
	StartSec  int
	EndSec    int
}

// Create opens a freestanding post. Fails with OverlapConflict when the
// caller already holds a live post, pending request, or booking overlapping
// the window; creation never auto-cancels (unlike the restore flows).
func (s *PostService) Create(ctx context.Context, in FreestandingInput) (*model.OpponentFinding, error) {
	win := timeslot.Window{Date: timeslot.DateOf(in.Date), StartSec: in.StartSec, EndSec: in.EndSec}
	if !win.Valid() {
		return nil, model.ErrInvalidTimeRange
	}

	f := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: in.UserID,
		Content:       in.Content,
		Status:        model.FindingOpen,
		FieldName:     in.FieldName,
		Address:       in.Address,
		Province:      in.Province,
		District:      in.District,
		Commune:       in.Commune,
		Date:          &win.Date,
		StartSec:      &win.StartSec,
		EndSec:        &win.EndSec,
	}
	if err := s.store.CreateFindingGuarded(ctx, f, win); err != nil {
		return nil, err
	}
	return f, nil
}

// Cancel closes an open post. Author-only. Pending requests under the post
// cascade to CANCELLED in the same operation and their requesters are
// notified.
func (s *PostService) Cancel(ctx context.Context, id, callerID string) (*model.OpponentFinding, error) {
	f, err := s.store.FindingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.UserFindingID != callerID {
		return nil, model.ErrForbidden
	}
	if f.Status != model.FindingOpen {
		return nil, model.ErrInvalidState
	}

	requesterIDs, err := s.store.CancelFindingCascade(ctx, f, model.FindingCancelled, model.RequestCancelled)
	if err != nil {
		return nil, err
	}
	if len(requesterIDs) > 0 {
		s.notifier.SendToUsers(ctx, requesterIDs,
			"Opponent post cancelled",
			"A post you requested to join has been cancelled by its author.")
	}
	return f, nil
}

// CancelMatch dissolves an accepted match. Either side may call it: the post
// author or the accepted requester. The post closes rather than reopening to
// FINDING; the side that did not act sees the opponent-cancelled status.
func (s *PostService) CancelMatch(ctx context.Context, id, callerID string) (*model.OpponentFinding, error) {
	f, err := s.store.FindingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != model.FindingAccepted {
		return nil, model.ErrInvalidState
	}

	accepted, err := s.store.AcceptedRequestForFinding(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		return nil, model.ErrInvalidState
	}

	switch callerID {
	case f.UserFindingID:
		if err := s.store.CloseMatch(ctx, f, accepted, model.FindingCancelled, model.RequestOpponentCancelled); err != nil {
			return nil, err
		}
		s.notifier.SendToUsers(ctx, []string{accepted.UserRequestingID},
			"Match cancelled",
			"The author of a post you were matched with has cancelled the match.")
	case accepted.UserRequestingID:
		if err := s.store.CloseMatch(ctx, f, accepted, model.FindingOpponentCancelled, model.RequestCancelled); err != nil {
			return nil, err
		}
		s.notifier.SendToUsers(ctx, []string{f.UserFindingID},
			"Match cancelled",
			"Your matched opponent has cancelled the match.")
	default:
		return nil, model.ErrForbidden
	}
	return f, nil
}

// restoredCopy builds a fresh FINDING post from a terminated one. The old
// row keeps its terminal status; restore never resurrects.
func restoredCopy(old *model.OpponentFinding) *model.OpponentFinding {
	return &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: old.UserFindingID,
		Content:       old.Content,
		Status:        model.FindingOpen,
		BookingID:     old.BookingID,
		FieldID:       old.FieldID,
		FieldName:     old.FieldName,
		Address:       old.Address,
		Province:      old.Province,
		District:      old.District,
		Commune:       old.Commune,
		Date:          old.Date,
		StartSec:      old.StartSec,
		EndSec:        old.EndSec,
		Booking:       old.Booking,
	}
}

// restorable validates that the old post belongs to the caller, is terminal,
// and that its window can still be played. Returns the old post and its
// window.
func (s *PostService) restorable(ctx context.Context, oldID, callerID string) (*model.OpponentFinding, timeslot.Window, error) {
	old, err := s.store.FindingByID(ctx, oldID)
	if err != nil {
		return nil, timeslot.Window{}, err
	}
	if old.UserFindingID != callerID {
		return nil, timeslot.Window{}, model.ErrForbidden
	}
	if !old.Status.Terminal() {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}

	win, ok := old.Window()
	if !ok {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	if win.StartPassed(s.localNow()) {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	if old.BookingID != nil && (old.Booking == nil || !old.Booking.Status.HoldsSlot()) {
		// The backing booking is gone; the post cannot be revived onto it.
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	return old, win, nil
}

// Restore re-creates a previously terminated post as a new FINDING post with
// the same content, window, and location. Fails with OverlapConflict when
// the author still holds live entities overlapping the window; use
// RestoreSupersede to cancel them instead.
func (s *PostService) Restore(ctx context.Context, oldID, callerID string) (*model.OpponentFinding, error) {
	old, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}

	fresh := restoredCopy(old)
	if err := s.store.CreateFindingGuarded(ctx, fresh, win); err != nil {
		return nil, err
	}
	return fresh, nil
}

// RestoreSupersede restores the old post after terminating, with
// OVERLAPPED_CANCELLED, every live post and pending request of the author
// that overlaps the window. The conflict collection, the auto-cancel, and
// the re-creation all commit in one store transaction, preserving the
// one-live-slot invariant throughout. Bookings cannot be superseded by a
// post restore; only the post's own backing booking may occupy the window.
func (s *PostService) RestoreSupersede(ctx context.Context, oldID, callerID string) (*model.OpponentFinding, error) {
	old, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}

	spec := store.SupersedeSpec{
		UserID:           callerID,
		Window:           win,
		ExcludeFindingID: old.ID,
	}
	if old.BookingID != nil {
		spec.AllowedBookingID = *old.BookingID
	}

	fresh := restoredCopy(old)
	if err := s.store.SupersedeAndRestore(ctx, spec, fresh, nil); err != nil {
		return nil, err
	}
	return fresh, nil
}

// OverlapCandidates is the read-only dry run of RestoreSupersede: the live
// posts and pending requests that restoring the old post would cancel.
// Callers use it to warn before committing the destructive restore.
func (s *PostService) OverlapCandidates(ctx context.Context, oldID, callerID string) (*store.Overlapping, error) {
	old, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}
	return s.store.UserOverlaps(ctx, callerID, win, old.ID, "")
}

// MarkOverdue flips IsOverdue on every post whose effective window has fully
// elapsed. Irreversible and orthogonal to status. Returns how many posts
// were marked.
func (s *PostService) MarkOverdue(ctx context.Context) (int, error) {
	candidates, err := s.store.OverdueCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list overdue candidates: %w", err)
	}

	now := s.localNow()
	var overdue []string
	for i := range candidates {
		win, ok := candidates[i].Window()
		if !ok {
			log.Printf("Skipping post %s: time window unresolvable", candidates[i].ID)
			continue
		}
		if win.EndPassed(now) {
			overdue = append(overdue, candidates[i].ID)
		}
	}

	if err := s.store.MarkFindingsOverdue(ctx, overdue); err != nil {
		return 0, fmt.Errorf("mark posts overdue: %w", err)
	}
	return len(overdue), nil
}
