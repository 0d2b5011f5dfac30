package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/timeslot"
)

func (s *gormStore) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := s.db.WithContext(ctx).Unscoped().
		Preload("PartialField").Preload("PartialField.Field").
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// slotConflict reports whether a non-cancelled booking overlaps the window on
// the given partial field. Runs against tx so the create path can hold row
// locks across check and insert.
func slotConflict(tx *gorm.DB, partialFieldID string, win timeslot.Window, excludeID string) (bool, error) {
	q := lockForUpdate(tx).Model(&model.Booking{}).
		Where("partial_field_id = ? AND date = ?", partialFieldID, win.Date).
		Where("status NOT IN ?", []model.BookingStatus{model.BookingCanceled, model.BookingRejected}).
		Where("start_sec < ? AND end_sec > ?", win.EndSec, win.StartSec)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var existing model.Booking
	err := q.Take(&existing).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (s *gormStore) SlotTaken(ctx context.Context, partialFieldID string, win timeslot.Window, excludeID string) (bool, error) {
	return slotConflict(s.db.WithContext(ctx).Session(&gorm.Session{}), partialFieldID, win, excludeID)
}

// CreateBookingWithDeposit inserts the booking and withdraws its deposit in
// one transaction. Candidate overlapping rows are locked before the check so
// two concurrent creations for the same slot serialize instead of racing.
func (s *gormStore) CreateBookingWithDeposit(ctx context.Context, b *model.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slotConflict(tx, b.PartialFieldID, b.Window(), "")
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if taken {
			return model.ErrOverlapConflict
		}

		if err := s.ledger.Withdraw(tx, b.UserID, b.DepositAmount, b.ID); err != nil {
			return err
		}

		if err := tx.Omit("PartialField").Create(b).Error; err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

// RescheduleBooking persists a new time range for a WAITING booking,
// re-running the overlap check against the new range excluding itself.
func (s *gormStore) RescheduleBooking(ctx context.Context, b *model.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slotConflict(tx, b.PartialFieldID, b.Window(), b.ID)
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if taken {
			return model.ErrOverlapConflict
		}
		return tx.Model(&model.Booking{}).Where("id = ?", b.ID).
			Updates(map[string]any{
				"date":      b.Date,
				"start_sec": b.StartSec,
				"end_sec":   b.EndSec,
			}).Error
	})
}

func (s *gormStore) SaveBookingStatus(ctx context.Context, b *model.Booking, to model.BookingStatus) error {
	err := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", b.ID).Update("status", to).Error
	if err != nil {
		return err
	}
	b.Status = to
	return nil
}

// RejectBookingWithRefund moves the booking to REJECTED and returns the
// deposit atomically.
func (s *gormStore) RejectBookingWithRefund(ctx context.Context, b *model.Booking) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Booking{}).Where("id = ?", b.ID).
			Update("status", model.BookingRejected).Error; err != nil {
			return err
		}
		return s.ledger.Refund(tx, b.UserID, b.DepositAmount, b.ID)
	})
	if err != nil {
		return err
	}
	b.Status = model.BookingRejected
	return nil
}

// CancelBookingCascade moves the booking to CANCELED, refunds the deposit,
// and cascades the cancellation into any active opponent-finding post linked
// to the booking and that post's pending requests, all in one transaction.
// Returns the requester IDs of the cascaded requests so the caller can
// notify them. softDelete marks the row deleted as well (owner-initiated
// cancellation); the expiry sweep keeps the row visible.
func (s *gormStore) CancelBookingCascade(ctx context.Context, b *model.Booking, softDelete bool) ([]string, error) {
	var affected []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Booking{}).Where("id = ?", b.ID).
			Update("status", model.BookingCanceled).Error; err != nil {
			return err
		}

		if err := s.ledger.Refund(tx, b.UserID, b.DepositAmount, b.ID); err != nil {
			return err
		}

		var posts []model.OpponentFinding
		if err := lockForUpdate(tx).
			Where("booking_id = ?", b.ID).
			Where("status IN ?", []model.FindingStatus{model.FindingOpen, model.FindingAccepted}).
			Find(&posts).Error; err != nil {
			return fmt.Errorf("load linked posts: %w", err)
		}

		for i := range posts {
			ids, err := cancelFindingTx(tx, &posts[i], model.FindingCancelled, model.RequestCancelled)
			if err != nil {
				return err
			}
			affected = append(affected, ids...)
		}

		if softDelete {
			if err := tx.Delete(&model.Booking{}, "id = ?", b.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingCanceled
	return affected, nil
}

// StaleWaitingBookings lists WAITING bookings whose start time has passed as
// of now. now must already be localized to the business timezone.
func (s *gormStore) StaleWaitingBookings(ctx context.Context, now time.Time) ([]model.Booking, error) {
	today, nowSec := timeslot.Split(now)
	var stale []model.Booking
	err := s.db.WithContext(ctx).
		Where("status = ?", model.BookingWaiting).
		Where("date < ? OR (date = ? AND start_sec <= ?)", today, today, nowSec).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}

func (s *gormStore) TransactionsForBooking(ctx context.Context, bookingID string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
