package model

import (
	"time"

	"gorm.io/gorm"

	"fieldmatch-backend/internal/timeslot"
)

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	BookingWaiting  BookingStatus = "WAITING"
	BookingAccepted BookingStatus = "ACCEPTED"
	BookingRejected BookingStatus = "REJECTED"
	BookingCanceled BookingStatus = "CANCELED"
	BookingPayed    BookingStatus = "PAYED"
)

// HoldsSlot reports whether a booking in this status still occupies its time
// slot for overlap purposes.
func (s BookingStatus) HoldsSlot() bool {
	return s != BookingCanceled && s != BookingRejected
}

// Terminal reports whether no further lifecycle transition may leave this
// status.
func (s BookingStatus) Terminal() bool {
	return s == BookingCanceled || s == BookingRejected
}

// Booking reserves a partial field for a user on a given date and time range.
// Times are seconds since midnight; the calendar date is stored separately.
type Booking struct {
	ID             string        `gorm:"primaryKey;size:36"`
	PartialFieldID string        `gorm:"index;not null;size:36"`
	UserID         string        `gorm:"index;not null;size:36"`
	TeamID         *string       `gorm:"size:36"`
	Date           time.Time     `gorm:"index;not null"`
	StartSec       int           `gorm:"not null"`
	EndSec         int           `gorm:"not null"`
	Status         BookingStatus `gorm:"size:16;index;not null"`
	DepositAmount  float64       `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	// Associations
	PartialField PartialField
}

// Window returns the booking's time window.
func (b *Booking) Window() timeslot.Window {
	return timeslot.Window{Date: b.Date, StartSec: b.StartSec, EndSec: b.EndSec}
}
