package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/timeslot"
)

func (s *gormStore) RequestByID(ctx context.Context, id string) (*model.OpponentFindingRequest, error) {
	var r model.OpponentFindingRequest
	err := s.db.WithContext(ctx).
		Preload("OpponentFinding").
		Preload("OpponentFinding.Booking", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&r, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) HasPendingRequest(ctx context.Context, userID, findingID string) (bool, error) {
	var r model.OpponentFindingRequest
	err := s.db.WithContext(ctx).
		Where("user_requesting_id = ? AND opponent_finding_id = ? AND status = ?",
			userID, findingID, model.RequestPending).
		Take(&r).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// CreateRequestGuarded inserts the request after re-verifying, under lock,
// that the requester holds no duplicate pending request on the same post and
// no live post, request, or booking overlapping the post's window.
func (s *gormStore) CreateRequestGuarded(ctx context.Context, r *model.OpponentFindingRequest, win timeslot.Window) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup model.OpponentFindingRequest
		err := lockForUpdate(tx).
			Where("user_requesting_id = ? AND opponent_finding_id = ? AND status = ?",
				r.UserRequestingID, r.OpponentFindingID, model.RequestPending).
			Take(&dup).Error
		if err == nil {
			return model.ErrDuplicateRequest
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conflicts, err := userOverlapsTx(tx, r.UserRequestingID, win, "", "")
		if err != nil {
			return err
		}
		if !conflicts.Empty() {
			return model.ErrOverlapConflict
		}

		return tx.Omit("OpponentFinding").Create(r).Error
	})
}

// AcceptedRequestForFinding returns the post's accepted request, or nil when
// no request has been accepted.
func (s *gormStore) AcceptedRequestForFinding(ctx context.Context, findingID string) (*model.OpponentFindingRequest, error) {
	var r model.OpponentFindingRequest
	err := s.db.WithContext(ctx).
		Where("opponent_finding_id = ? AND is_accepted = ?", findingID, true).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AcceptRequestCascade marks the target request accepted, moves every other
// pending request under the same post to NOT_SELECTED, and moves the post to
// ACCEPTED, all in one transaction.
func (s *gormStore) AcceptRequestCascade(ctx context.Context, r *model.OpponentFindingRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.OpponentFindingRequest{}).Where("id = ?", r.ID).
			Updates(map[string]any{
				"is_accepted": true,
				"status":      model.RequestAccepted,
			}).Error; err != nil {
			return fmt.Errorf("accept request %s: %w", r.ID, err)
		}

		if err := tx.Model(&model.OpponentFindingRequest{}).
			Where("opponent_finding_id = ? AND id <> ? AND status = ?",
				r.OpponentFindingID, r.ID, model.RequestPending).
			Update("status", model.RequestNotSelected).Error; err != nil {
			return fmt.Errorf("mark sibling requests not selected: %w", err)
		}

		if err := tx.Model(&model.OpponentFinding{}).
			Where("id = ?", r.OpponentFindingID).
			Update("status", model.FindingAccepted).Error; err != nil {
			return fmt.Errorf("mark post accepted: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.IsAccepted = true
	r.Status = model.RequestAccepted
	return nil
}

func (s *gormStore) SaveRequestStatus(ctx context.Context, r *model.OpponentFindingRequest, to model.RequestStatus) error {
	err := s.db.WithContext(ctx).Model(&model.OpponentFindingRequest{}).
		Where("id = ?", r.ID).Update("status", to).Error
	if err != nil {
		return err
	}
	r.Status = to
	return nil
}

// RequestsByFinding lists a post's requests in triage order: the accepted
// request first, then grouped by status, then by creation time in the
// requested direction. The ordering is relied on by post authors and must
// not change.
func (s *gormStore) RequestsByFinding(ctx context.Context, findingID string, ascending bool) ([]model.OpponentFindingRequest, error) {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	var requests []model.OpponentFindingRequest
	err := s.db.WithContext(ctx).
		Where("opponent_finding_id = ?", findingID).
		Order("is_accepted DESC").
		Order("status ASC").
		Order("created_at " + dir).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// UserPendingRequests lists the user's pending requests with post windows
// resolvable (post and linked booking preloaded).
func (s *gormStore) UserPendingRequests(ctx context.Context, userID string) ([]model.OpponentFindingRequest, error) {
	var requests []model.OpponentFindingRequest
	err := s.db.WithContext(ctx).
		Preload("OpponentFinding").
		Preload("OpponentFinding.Booking", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_requesting_id = ? AND status = ?", userID, model.RequestPending).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
