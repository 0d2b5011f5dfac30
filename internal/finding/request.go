package finding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/notification"
	"fieldmatch-backend/internal/store"
	"fieldmatch-backend/internal/timeslot"
)

// RequestService manages requests to join opponent-finding posts.
type RequestService struct {
	store    store.Store
	notifier notification.Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewRequestService creates a request manager.
func NewRequestService(s store.Store, n notification.Notifier, loc *time.Location) *RequestService {
	return &RequestService{store: s, notifier: n, loc: loc, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *RequestService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *RequestService) localNow() time.Time {
	return s.now().In(s.loc)
}

// Create asks to join a post. The post must be open and not the caller's
// own; a duplicate pending request by the same caller is rejected, and the
// caller must hold no live post, request, or booking overlapping the post's
// window.
func (s *RequestService) Create(ctx context.Context, postID, callerID, message string) (*model.OpponentFindingRequest, error) {
	f, err := s.store.FindingByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if f.UserFindingID == callerID {
		return nil, model.ErrForbidden
	}
	if f.Status != model.FindingOpen || f.IsOverdue {
		return nil, model.ErrInvalidState
	}

	win, ok := f.Window()
	if !ok {
		return nil, model.ErrInvalidState
	}

	dup, err := s.store.HasPendingRequest(ctx, callerID, f.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, model.ErrDuplicateRequest
	}

	r := &model.OpponentFindingRequest{
		ID:                uuid.NewString(),
		OpponentFindingID: f.ID,
		UserRequestingID:  callerID,
		Message:           message,
		Status:            model.RequestPending,
	}
	if err := s.store.CreateRequestGuarded(ctx, r, win); err != nil {
		return nil, err
	}

	s.notifier.SendToUsers(ctx, []string{f.UserFindingID},
		"New opponent request",
		"Someone has asked to join your opponent-finding post.")
	return r, nil
}

// Accept is the post author's pick. The target request becomes accepted,
// every other pending request under the post becomes NOT_SELECTED, and the
// post moves to ACCEPTED, atomically. An overdue post can no longer accept.
func (s *RequestService) Accept(ctx context.Context, requestID, callerID string) (*model.OpponentFindingRequest, error) {
	r, err := s.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.OpponentFinding.UserFindingID != callerID {
		return nil, model.ErrForbidden
	}
	if r.IsAccepted {
		return nil, model.ErrAlreadyAccepted
	}
	if r.Status != model.RequestPending || r.OpponentFinding.Status != model.FindingOpen || r.OpponentFinding.IsOverdue {
		return nil, model.ErrInvalidState
	}

	if err := s.store.AcceptRequestCascade(ctx, r); err != nil {
		return nil, err
	}

	s.notifier.SendToUsers(ctx, []string{r.UserRequestingID},
		"Request accepted",
		"Your request to join an opponent-finding post has been accepted.")
	return r, nil
}

// Cancel withdraws the caller's own request. A pending request simply moves
// to CANCELLED; an accepted one dissolves the match, closing the post with
// OPPONENT_CANCELLED so the author sees who walked away.
func (s *RequestService) Cancel(ctx context.Context, requestID, callerID string) (*model.OpponentFindingRequest, error) {
	r, err := s.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.UserRequestingID != callerID {
		return nil, model.ErrForbidden
	}

	if r.IsAccepted && r.OpponentFinding.Status == model.FindingAccepted {
		f := &r.OpponentFinding
		if err := s.store.CloseMatch(ctx, f, r, model.FindingOpponentCancelled, model.RequestCancelled); err != nil {
			return nil, err
		}
		s.notifier.SendToUsers(ctx, []string{f.UserFindingID},
			"Match cancelled",
			"Your matched opponent has cancelled the match.")
		return r, nil
	}

	if r.Status != model.RequestPending {
		return nil, model.ErrInvalidState
	}
	if err := s.store.SaveRequestStatus(ctx, r, model.RequestCancelled); err != nil {
		return nil, err
	}
	return r, nil
}

// restorable validates that the old request belongs to the caller, is
// terminal, and that its post is still open for a new request.
func (s *RequestService) restorable(ctx context.Context, oldID, callerID string) (*model.OpponentFindingRequest, timeslot.Window, error) {
	old, err := s.store.RequestByID(ctx, oldID)
	if err != nil {
		return nil, timeslot.Window{}, err
	}
	if old.UserRequestingID != callerID {
		return nil, timeslot.Window{}, model.ErrForbidden
	}
	if !old.Status.Terminal() || old.IsAccepted {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	if old.OpponentFinding.Status != model.FindingOpen || old.OpponentFinding.IsOverdue {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}

	win, ok := old.OpponentFinding.Window()
	if !ok {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	if win.StartPassed(s.localNow()) {
		return nil, timeslot.Window{}, model.ErrInvalidState
	}
	return old, win, nil
}

// restoredRequest builds a fresh pending request from a terminated one. The
// old row keeps its terminal status.
func restoredRequest(old *model.OpponentFindingRequest) *model.OpponentFindingRequest {
	return &model.OpponentFindingRequest{
		ID:                uuid.NewString(),
		OpponentFindingID: old.OpponentFindingID,
		UserRequestingID:  old.UserRequestingID,
		Message:           old.Message,
		Status:            model.RequestPending,
	}
}

// Restore re-creates a previously terminated request as a new pending
// request on the same post. Fails with OverlapConflict when the caller still
// holds live entities overlapping the post's window.
func (s *RequestService) Restore(ctx context.Context, oldID, callerID string) (*model.OpponentFindingRequest, error) {
	old, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}

	fresh := restoredRequest(old)
	if err := s.store.CreateRequestGuarded(ctx, fresh, win); err != nil {
		return nil, err
	}

	s.notifier.SendToUsers(ctx, []string{old.OpponentFinding.UserFindingID},
		"New opponent request",
		"Someone has asked to join your opponent-finding post.")
	return fresh, nil
}

// RestoreSupersede restores the old request after terminating, with
// OVERLAPPED_CANCELLED, every live post and pending request of the caller
// overlapping the post's window. Collection, cancels, and the re-creation
// commit in one store transaction. A booking in the window cannot be
// superseded by a request restore and fails it with OverlapConflict.
func (s *RequestService) RestoreSupersede(ctx context.Context, oldID, callerID string) (*model.OpponentFindingRequest, error) {
	old, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}

	spec := store.SupersedeSpec{
		UserID:           callerID,
		Window:           win,
		ExcludeRequestID: old.ID,
	}

	fresh := restoredRequest(old)
	if err := s.store.SupersedeAndRestore(ctx, spec, nil, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// OverlapCandidates is the read-only dry run of RestoreSupersede.
func (s *RequestService) OverlapCandidates(ctx context.Context, oldID, callerID string) (*store.Overlapping, error) {
	_, win, err := s.restorable(ctx, oldID, callerID)
	if err != nil {
		return nil, err
	}
	return s.store.UserOverlaps(ctx, callerID, win, "", oldID)
}

// ListByPost returns a post's requests in triage order for the author:
// accepted first, then by status, then by creation time in the requested
// direction.
func (s *RequestService) ListByPost(ctx context.Context, postID, callerID string, ascending bool) ([]model.OpponentFindingRequest, error) {
	f, err := s.store.FindingByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if f.UserFindingID != callerID {
		return nil, model.ErrForbidden
	}
	return s.store.RequestsByFinding(ctx, f.ID, ascending)
}

// OverlappingLive returns the caller's pending requests whose post windows
// overlap the given window. Terminal requests never count as conflicts.
// Used as a pre-flight check before creating a new request.
func (s *RequestService) OverlappingLive(ctx context.Context, userID string, date time.Time, startSec, endSec int) ([]model.OpponentFindingRequest, error) {
	win := timeslot.Window{Date: timeslot.DateOf(date), StartSec: startSec, EndSec: endSec}
	if !win.Valid() {
		return nil, model.ErrInvalidTimeRange
	}

	pending, err := s.store.UserPendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	var live []model.OpponentFindingRequest
	for i := range pending {
		if w, ok := pending[i].OpponentFinding.Window(); ok && w.Overlaps(win) {
			live = append(live, pending[i])
		}
	}
	return live, nil
}
