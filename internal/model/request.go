package model

import (
	"time"

	"gorm.io/gorm"
)

// RequestStatus is the closed set of opponent-finding request states. A
// request is pending until the post author accepts it, the requester cancels
// it, or a cascade terminates it. NOT_SELECTED marks the sibling requests of
// an accepted one; it is deliberately distinct from CANCELLED so the two
// remain queryable separately.
type RequestStatus string

const (
	RequestPending           RequestStatus = "PENDING"
	RequestAccepted          RequestStatus = "ACCEPTED"
	RequestNotSelected       RequestStatus = "NOT_SELECTED"
	RequestCancelled         RequestStatus = "CANCELLED"
	RequestOpponentCancelled RequestStatus = "OPPONENT_CANCELLED"
	RequestOverlapCancelled  RequestStatus = "OVERLAPPED_CANCELLED"
)

// Terminal reports whether the status admits no further transition.
func (s RequestStatus) Terminal() bool {
	return s != RequestPending
}

// OpponentFindingRequest is one user's ask to join another user's
// opponent-finding post. At most one request under a post may be accepted.
type OpponentFindingRequest struct {
	ID                string        `gorm:"primaryKey;size:36"`
	OpponentFindingID string        `gorm:"index;not null;size:36"`
	UserRequestingID  string        `gorm:"index;not null;size:36"`
	Message           string        `gorm:"size:2048"`
	IsAccepted        bool          `gorm:"not null;default:false"`
	Status            RequestStatus `gorm:"size:32;index;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`

	// Associations
	OpponentFinding OpponentFinding
}
