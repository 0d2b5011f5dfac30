// Package wallet implements the escrow ledger backing booking deposits.
// Mutations take a *gorm.DB so they can run inside the caller's transaction;
// a deposit withdrawal and the booking insert it pays for must commit or roll
// back together.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldmatch-backend/internal/model"
)

// Ledger performs wallet balance changes and records the matching
// transaction rows. SystemAccountID is the sender of refunds.
type Ledger struct {
	SystemAccountID string
}

// NewLedger creates a ledger that books refunds from the given system
// account.
func NewLedger(systemAccountID string) *Ledger {
	return &Ledger{SystemAccountID: systemAccountID}
}

// lockForUpdate adds a FOR UPDATE clause on dialects that support it. SQLite
// (used by the test suite) has a single writer and no row locks.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Withdraw removes amount from the user's balance and records a DEPOSIT
// transaction tied to the booking. The wallet row is locked for the duration
// of the enclosing transaction. Returns model.ErrInsufficientFunds when the
// balance does not cover the amount.
func (l *Ledger) Withdraw(tx *gorm.DB, userID string, amount float64, bookingID string) error {
	var w model.Wallet
	err := lockForUpdate(tx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("load wallet for user %s: %w", userID, err)
	}

	if w.Balance < amount {
		return model.ErrInsufficientFunds
	}

	w.Balance -= amount
	if err := tx.Save(&w).Error; err != nil {
		return fmt.Errorf("debit wallet for user %s: %w", userID, err)
	}

	entry := model.Transaction{
		ID:         uuid.NewString(),
		Type:       model.TransactionDeposit,
		Amount:     amount,
		SenderID:   userID,
		ReceiverID: l.SystemAccountID,
		BookingID:  &bookingID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record deposit transaction: %w", err)
	}
	return nil
}

// Refund returns amount to the user's balance and records a REFUND
// transaction from the system account, tied to the booking.
func (l *Ledger) Refund(tx *gorm.DB, userID string, amount float64, bookingID string) error {
	var w model.Wallet
	err := lockForUpdate(tx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A refund must never be lost: create the wallet row on the fly.
		w = model.Wallet{UserID: userID}
		if err := tx.Create(&w).Error; err != nil {
			return fmt.Errorf("create wallet for user %s: %w", userID, err)
		}
	} else if err != nil {
		return fmt.Errorf("load wallet for user %s: %w", userID, err)
	}

	w.Balance += amount
	if err := tx.Save(&w).Error; err != nil {
		return fmt.Errorf("credit wallet for user %s: %w", userID, err)
	}

	entry := model.Transaction{
		ID:         uuid.NewString(),
		Type:       model.TransactionRefund,
		Amount:     amount,
		SenderID:   l.SystemAccountID,
		ReceiverID: userID,
		BookingID:  &bookingID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record refund transaction: %w", err)
	}
	return nil
}

// Balance reads the user's current balance. A missing wallet reads as zero.
func (l *Ledger) Balance(ctx context.Context, db *gorm.DB, userID string) (float64, error) {
	var w model.Wallet
	err := db.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Credit tops up a user's balance outside any booking flow (funding the
// escrow). Creates the wallet row if absent.
func (l *Ledger) Credit(ctx context.Context, db *gorm.DB, userID string, amount float64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w model.Wallet
		err := lockForUpdate(tx).First(&w, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w = model.Wallet{UserID: userID, Balance: amount}
			return tx.Create(&w).Error
		}
		if err != nil {
			return err
		}
		w.Balance += amount
		return tx.Save(&w).Error
	})
}
