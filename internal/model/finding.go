package model

import (
	"time"

	"gorm.io/gorm"

	"fieldmatch-backend/internal/timeslot"
)

// FindingStatus is the closed set of opponent-finding post states.
type FindingStatus string

const (
	FindingOpen              FindingStatus = "FINDING"
	FindingAccepted          FindingStatus = "ACCEPTED"
	FindingCancelled         FindingStatus = "CANCELLED"
	FindingOpponentCancelled FindingStatus = "OPPONENT_CANCELLED"
	FindingOverlapCancelled  FindingStatus = "OVERLAPPED_CANCELLED"
)

// Active reports whether a post in this status still occupies its owner's
// time window for overlap purposes.
func (s FindingStatus) Active() bool {
	return s == FindingOpen || s == FindingAccepted
}

// Terminal reports whether the status is a cancellation end state. Restore
// operations create a new post; they never move a post out of these.
func (s FindingStatus) Terminal() bool {
	return s == FindingCancelled || s == FindingOpponentCancelled || s == FindingOverlapCancelled
}

// OpponentFinding is a post looking for an opponent team. It is either tied
// to an existing booking (BookingID set, time and location defer to the
// booking) or freestanding, carrying its own denormalized location snapshot
// and time window. Exactly one of the two forms is populated.
type OpponentFinding struct {
	ID            string        `gorm:"primaryKey;size:36"`
	UserFindingID string        `gorm:"index;not null;size:36"`
	Content       string        `gorm:"size:2048"`
	Status        FindingStatus `gorm:"size:32;index;not null"`
	IsOverdue     bool          `gorm:"not null;default:false"`

	// Booking-tied form.
	BookingID *string `gorm:"index;size:36"`
	FieldID   *string `gorm:"size:36"`

	// Freestanding form.
	FieldName string     `gorm:"size:256"`
	Address   string     `gorm:"size:512"`
	Province  string     `gorm:"size:128"`
	District  string     `gorm:"size:128"`
	Commune   string     `gorm:"size:128"`
	Date      *time.Time
	StartSec  *int
	EndSec    *int

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Associations
	Booking  *Booking
	Requests []OpponentFindingRequest `gorm:"foreignKey:OpponentFindingID"`
}

// Window returns the post's effective time window: its own fields for a
// freestanding post, the linked booking's for a booking-tied post. The
// Booking association must be preloaded for the latter; ok is false when the
// window cannot be resolved.
func (f *OpponentFinding) Window() (timeslot.Window, bool) {
	if f.BookingID != nil {
		if f.Booking == nil {
			return timeslot.Window{}, false
		}
		return f.Booking.Window(), true
	}
	if f.Date == nil || f.StartSec == nil || f.EndSec == nil {
		return timeslot.Window{}, false
	}
	return timeslot.Window{Date: *f.Date, StartSec: *f.StartSec, EndSec: *f.EndSec}, true
}
