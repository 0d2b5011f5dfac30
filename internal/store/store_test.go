package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fieldmatch-backend/internal/db"
	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/timeslot"
	"fieldmatch-backend/internal/wallet"
)

// newTestStore opens a fresh in-memory database with the full schema and a
// ledger refunding from the "system" account.
func newTestStore(t *testing.T) (*gormStore, *gorm.DB) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	s := NewGormStore(gormDB, wallet.NewLedger("system")).(*gormStore)
	return s, gormDB
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedField creates an active field with one active partial field and returns
// the partial field, preloaded.
func seedField(t *testing.T, gormDB *gorm.DB, deposit float64) *model.PartialField {
	field := model.Field{
		ID:            uuid.NewString(),
		OwnerID:       uuid.NewString(),
		Name:          "Central Stadium",
		DepositAmount: deposit,
		Status:        model.FieldActive,
	}
	require.NoError(t, gormDB.Create(&field).Error)

	pf := model.PartialField{
		ID:      uuid.NewString(),
		FieldID: field.ID,
		Name:    "Pitch A",
		Status:  model.FieldActive,
	}
	require.NoError(t, gormDB.Create(&pf).Error)
	pf.Field = field
	return &pf
}

func seedWallet(t *testing.T, gormDB *gorm.DB, userID string, balance float64) {
	require.NoError(t, gormDB.Create(&model.Wallet{UserID: userID, Balance: balance}).Error)
}

func seedBooking(t *testing.T, s *gormStore, pf *model.PartialField, userID string, date time.Time, startSec, endSec int, deposit float64) *model.Booking {
	b := &model.Booking{
		ID:             uuid.NewString(),
		PartialFieldID: pf.ID,
		UserID:         userID,
		Date:           date,
		StartSec:       startSec,
		EndSec:         endSec,
		Status:         model.BookingWaiting,
		DepositAmount:  deposit,
	}
	require.NoError(t, s.CreateBookingWithDeposit(context.Background(), b))
	return b
}

func seedFinding(t *testing.T, gormDB *gorm.DB, userID string, date time.Time, startSec, endSec int) *model.OpponentFinding {
	f := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: userID,
		Status:        model.FindingOpen,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &startSec,
		EndSec:        &endSec,
	}
	require.NoError(t, gormDB.Create(f).Error)
	return f
}

func seedRequest(t *testing.T, gormDB *gorm.DB, findingID, userID string, status model.RequestStatus) *model.OpponentFindingRequest {
	r := &model.OpponentFindingRequest{
		ID:                uuid.NewString(),
		OpponentFindingID: findingID,
		UserRequestingID:  userID,
		Status:            status,
	}
	require.NoError(t, gormDB.Create(r).Error)
	return r
}

func window(date time.Time, startSec, endSec int) timeslot.Window {
	return timeslot.Window{Date: date, StartSec: startSec, EndSec: endSec}
}
