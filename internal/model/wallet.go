package model

import "time"

// Wallet holds a user's escrow balance. Deposits are withdrawn from it when a
// booking is created and returned on rejection or cancellation.
type Wallet struct {
	UserID    string  `gorm:"primaryKey;size:36"`
	Balance   float64 `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionType classifies wallet ledger entries.
type TransactionType string

const (
	TransactionDeposit TransactionType = "DEPOSIT"
	TransactionRefund  TransactionType = "REFUND"
)

// Transaction is one wallet ledger entry. Refunds are sent by the configured
// system account, never by a hard-coded user.
type Transaction struct {
	ID         string          `gorm:"primaryKey;size:36"`
	Type       TransactionType `gorm:"size:16;index;not null"`
	Amount     float64         `gorm:"type:decimal(12,2);not null"`
	SenderID   string          `gorm:"size:36;not null"`
	ReceiverID string          `gorm:"index;size:36;not null"`
	BookingID  *string         `gorm:"index;size:36"`
	CreatedAt  time.Time
}
