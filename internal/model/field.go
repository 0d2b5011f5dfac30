package model

import (
	"time"

	"gorm.io/gorm"
)

// FieldStatus is the availability state of a field or partial field.
type FieldStatus string

const (
	FieldActive   FieldStatus = "ACTIVE"
	FieldInactive FieldStatus = "INACTIVE"
)

// Field is a bookable sports venue. The deposit amount configured here is
// withheld from the booker's wallet when a slot is reserved.
type Field struct {
	ID            string      `gorm:"primaryKey;size:36"`
	OwnerID       string      `gorm:"index;not null;size:36"`
	Name          string      `gorm:"size:256;not null"`
	Address       string      `gorm:"size:512"`
	Province      string      `gorm:"size:128"`
	District      string      `gorm:"size:128"`
	Commune       string      `gorm:"size:128"`
	DepositAmount float64     `gorm:"type:decimal(12,2);not null"`
	Status        FieldStatus `gorm:"size:16;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	// Associations
	PartialFields []PartialField `gorm:"foreignKey:FieldID"`
}

// PartialField is a bookable sub-unit of a field (a single pitch or court).
type PartialField struct {
	ID        string      `gorm:"primaryKey;size:36"`
	FieldID   string      `gorm:"index;not null;size:36"`
	Name      string      `gorm:"size:256;not null"`
	Status    FieldStatus `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Associations
	Field Field `gorm:"constraint:OnDelete:CASCADE"`
}
