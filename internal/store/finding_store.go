package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/timeslot"
)

func (s *gormStore) FindingByID(ctx context.Context, id string) (*model.OpponentFinding, error) {
	var f model.OpponentFinding
	err := s.db.WithContext(ctx).
		Preload("Booking", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&f, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// ActiveFindingForBooking returns the live post tied to a booking, or nil
// when the booking has none.
func (s *gormStore) ActiveFindingForBooking(ctx context.Context, bookingID string) (*model.OpponentFinding, error) {
	var f model.OpponentFinding
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Where("status IN ?", []model.FindingStatus{model.FindingOpen, model.FindingAccepted}).
		Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// userOverlapsTx collects the user's live posts, pending requests, and
// slot-holding bookings whose windows conflict with win. Window matching is
// done in Go because a post's effective window may live on its linked
// booking. Rows are locked when called inside a guarded create.
func userOverlapsTx(tx *gorm.DB, userID string, win timeslot.Window, excludeFindingID, excludeRequestID string) (*Overlapping, error) {
	out := &Overlapping{}

	findingQ := lockForUpdate(tx).
		Preload("Booking").
		Where("user_finding_id = ?", userID).
		Where("status IN ?", []model.FindingStatus{model.FindingOpen, model.FindingAccepted}).
		Where("is_overdue = ?", false)
	if excludeFindingID != "" {
		findingQ = findingQ.Where("id <> ?", excludeFindingID)
	}
	var findings []model.OpponentFinding
	if err := findingQ.Find(&findings).Error; err != nil {
		return nil, fmt.Errorf("load user posts: %w", err)
	}
	for i := range findings {
		if w, ok := findings[i].Window(); ok && w.Overlaps(win) {
			out.Findings = append(out.Findings, findings[i])
		}
	}

	requestQ := lockForUpdate(tx).
		Preload("OpponentFinding").
		Preload("OpponentFinding.Booking").
		Where("user_requesting_id = ?", userID).
		Where("status = ?", model.RequestPending)
	if excludeRequestID != "" {
		requestQ = requestQ.Where("id <> ?", excludeRequestID)
	}
	var requests []model.OpponentFindingRequest
	if err := requestQ.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("load user requests: %w", err)
	}
	for i := range requests {
		if w, ok := requests[i].OpponentFinding.Window(); ok && w.Overlaps(win) {
			out.Requests = append(out.Requests, requests[i])
		}
	}

	var bookings []model.Booking
	err := lockForUpdate(tx).
		Where("user_id = ?", userID).
		Where("status NOT IN ?", []model.BookingStatus{model.BookingCanceled, model.BookingRejected}).
		Where("date = ?", win.Date).
		Where("start_sec < ? AND end_sec > ?", win.EndSec, win.StartSec).
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("load user bookings: %w", err)
	}
	out.Bookings = bookings

	return out, nil
}

func (s *gormStore) UserOverlaps(ctx context.Context, userID string, win timeslot.Window, excludeFindingID, excludeRequestID string) (*Overlapping, error) {
	return userOverlapsTx(s.db.WithContext(ctx), userID, win, excludeFindingID, excludeRequestID)
}

// CreateFindingGuarded inserts the post after verifying, under lock, that
// the author holds no live post, pending request, or booking overlapping the
// post's window.
func (s *gormStore) CreateFindingGuarded(ctx context.Context, f *model.OpponentFinding, win timeslot.Window) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflicts, err := userOverlapsTx(tx, f.UserFindingID, win, "", "")
		if err != nil {
			return err
		}
		// A booking-tied post necessarily overlaps its own booking.
		if f.BookingID != nil {
			kept := conflicts.Bookings[:0]
			for _, b := range conflicts.Bookings {
				if b.ID != *f.BookingID {
					kept = append(kept, b)
				}
			}
			conflicts.Bookings = kept
		}
		if !conflicts.Empty() {
			return model.ErrOverlapConflict
		}
		return tx.Omit("Booking", "Requests").Create(f).Error
	})
}

// cancelFindingTx terminates a post and its pending requests inside an open
// transaction, returning the requester IDs whose requests were cascaded.
func cancelFindingTx(tx *gorm.DB, f *model.OpponentFinding, postStatus model.FindingStatus, reqStatus model.RequestStatus) ([]string, error) {
	if err := tx.Model(&model.OpponentFinding{}).Where("id = ?", f.ID).
		Update("status", postStatus).Error; err != nil {
		return nil, fmt.Errorf("cancel post %s: %w", f.ID, err)
	}

	var pending []model.OpponentFindingRequest
	if err := tx.Where("opponent_finding_id = ? AND status = ?", f.ID, model.RequestPending).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load pending requests of post %s: %w", f.ID, err)
	}

	if len(pending) > 0 {
		if err := tx.Model(&model.OpponentFindingRequest{}).
			Where("opponent_finding_id = ? AND status = ?", f.ID, model.RequestPending).
			Update("status", reqStatus).Error; err != nil {
			return nil, fmt.Errorf("cascade requests of post %s: %w", f.ID, err)
		}
	}

	f.Status = postStatus
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.UserRequestingID)
	}
	return ids, nil
}

func (s *gormStore) CancelFindingCascade(ctx context.Context, f *model.OpponentFinding, postStatus model.FindingStatus, reqStatus model.RequestStatus) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		ids, txErr = cancelFindingTx(tx, f, postStatus, reqStatus)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CloseMatch dissolves an accepted pairing: the post closes with postStatus
// and the accepted request is terminated with reqStatus. The post does not
// reopen to FINDING.
func (s *gormStore) CloseMatch(ctx context.Context, f *model.OpponentFinding, accepted *model.OpponentFindingRequest, postStatus model.FindingStatus, reqStatus model.RequestStatus) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.OpponentFinding{}).Where("id = ?", f.ID).
			Update("status", postStatus).Error; err != nil {
			return err
		}
		return tx.Model(&model.OpponentFindingRequest{}).Where("id = ?", accepted.ID).
			Update("status", reqStatus).Error
	})
	if err != nil {
		return err
	}
	f.Status = postStatus
	accepted.Status = reqStatus
	return nil
}

// SupersedeAndRestore terminates every conflicting sibling of the user with
// OVERLAPPED_CANCELLED and creates the restored entity. Pending requests
// under a superseded post cascade to CANCELLED. The conflicts are collected
// under lock inside the same transaction as the cancels and the insert, so a
// guarded create committing concurrently can never leave two live entities
// in the window. A booking other than the spec's allowed one occupying the
// window fails the whole restore with OverlapConflict. Exactly one of
// newPost and newRequest is non-nil.
func (s *gormStore) SupersedeAndRestore(ctx context.Context, spec SupersedeSpec, newPost *model.OpponentFinding, newRequest *model.OpponentFindingRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflicts, err := userOverlapsTx(tx, spec.UserID, spec.Window, spec.ExcludeFindingID, spec.ExcludeRequestID)
		if err != nil {
			return err
		}
		for _, b := range conflicts.Bookings {
			if b.ID != spec.AllowedBookingID {
				return model.ErrOverlapConflict
			}
		}

		for i := range conflicts.Findings {
			if _, err := cancelFindingTx(tx, &conflicts.Findings[i], model.FindingOverlapCancelled, model.RequestCancelled); err != nil {
				return err
			}
		}
		for i := range conflicts.Requests {
			if err := tx.Model(&model.OpponentFindingRequest{}).
				Where("id = ?", conflicts.Requests[i].ID).
				Update("status", model.RequestOverlapCancelled).Error; err != nil {
				return err
			}
		}

		if newPost != nil {
			if err := tx.Omit("Booking", "Requests").Create(newPost).Error; err != nil {
				return fmt.Errorf("create restored post: %w", err)
			}
		}
		if newRequest != nil {
			if err := tx.Omit("OpponentFinding").Create(newRequest).Error; err != nil {
				return fmt.Errorf("create restored request: %w", err)
			}
		}
		return nil
	})
}

// OverdueCandidates lists posts not yet marked overdue, with their linked
// booking preloaded so the sweep can resolve effective windows.
func (s *gormStore) OverdueCandidates(ctx context.Context) ([]model.OpponentFinding, error) {
	var posts []model.OpponentFinding
	err := s.db.WithContext(ctx).
		Preload("Booking", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("is_overdue = ?", false).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *gormStore) MarkFindingsOverdue(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&model.OpponentFinding{}).
		Where("id IN ?", ids).
		Update("is_overdue", true).Error
}
