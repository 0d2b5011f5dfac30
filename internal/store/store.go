package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldmatch-backend/internal/model"
	"fieldmatch-backend/internal/timeslot"
	"fieldmatch-backend/internal/wallet"
)

// Overlapping groups a user's live entities whose time windows conflict with
// a candidate window. Used both as the creation-time guard result and as the
// dry-run payload for the restore flows.
type Overlapping struct {
	Findings []model.OpponentFinding
	Requests []model.OpponentFindingRequest
	Bookings []model.Booking
}

// Empty reports whether no conflicts were found.
func (o *Overlapping) Empty() bool {
	return len(o.Findings) == 0 && len(o.Requests) == 0 && len(o.Bookings) == 0
}

// SupersedeSpec tells SupersedeAndRestore whose conflicts to collect and
// cancel: the user, the contested window, the old entity being restored
// (excluded from collection), and the one booking, if any, that may
// legitimately occupy the window. Any other overlapping booking aborts the
// restore.
type SupersedeSpec struct {
	UserID           string
	Window           timeslot.Window
	ExcludeFindingID string
	ExcludeRequestID string
	AllowedBookingID string
}

// Store defines the interface for all database operations. Write methods
// that touch more than one entity are transactional: a failed cascade leaves
// every row in its pre-call state.
type Store interface {
	DB() *gorm.DB

	// Fields
	PartialFieldByID(ctx context.Context, id string) (*model.PartialField, error)
	ActivePartialFields(ctx context.Context, fieldID string) ([]model.PartialField, error)

	// Bookings
	BookingByID(ctx context.Context, id string) (*model.Booking, error)
	SlotTaken(ctx context.Context, partialFieldID string, win timeslot.Window, excludeID string) (bool, error)
	CreateBookingWithDeposit(ctx context.Context, b *model.Booking) error
	RescheduleBooking(ctx context.Context, b *model.Booking) error
	SaveBookingStatus(ctx context.Context, b *model.Booking, to model.BookingStatus) error
	RejectBookingWithRefund(ctx context.Context, b *model.Booking) error
	CancelBookingCascade(ctx context.Context, b *model.Booking, softDelete bool) ([]string, error)
	StaleWaitingBookings(ctx context.Context, now time.Time) ([]model.Booking, error)
	TransactionsForBooking(ctx context.Context, bookingID string) ([]model.Transaction, error)

	// Opponent-finding posts
	FindingByID(ctx context.Context, id string) (*model.OpponentFinding, error)
	ActiveFindingForBooking(ctx context.Context, bookingID string) (*model.OpponentFinding, error)
	UserOverlaps(ctx context.Context, userID string, win timeslot.Window, excludeFindingID, excludeRequestID string) (*Overlapping, error)
	CreateFindingGuarded(ctx context.Context, f *model.OpponentFinding, win timeslot.Window) error
	CancelFindingCascade(ctx context.Context, f *model.OpponentFinding, postStatus model.FindingStatus, reqStatus model.RequestStatus) ([]string, error)
	CloseMatch(ctx context.Context, f *model.OpponentFinding, accepted *model.OpponentFindingRequest, postStatus model.FindingStatus, reqStatus model.RequestStatus) error
	AcceptedRequestForFinding(ctx context.Context, findingID string) (*model.OpponentFindingRequest, error)
	SupersedeAndRestore(ctx context.Context, spec SupersedeSpec, newPost *model.OpponentFinding, newRequest *model.OpponentFindingRequest) error
	OverdueCandidates(ctx context.Context) ([]model.OpponentFinding, error)
	MarkFindingsOverdue(ctx context.Context, ids []string) error

	// Opponent-finding requests
	RequestByID(ctx context.Context, id string) (*model.OpponentFindingRequest, error)
	HasPendingRequest(ctx context.Context, userID, findingID string) (bool, error)
	CreateRequestGuarded(ctx context.Context, r *model.OpponentFindingRequest, win timeslot.Window) error
	AcceptRequestCascade(ctx context.Context, r *model.OpponentFindingRequest) error
	SaveRequestStatus(ctx context.Context, r *model.OpponentFindingRequest, to model.RequestStatus) error
	RequestsByFinding(ctx context.Context, findingID string, ascending bool) ([]model.OpponentFindingRequest, error)
	UserPendingRequests(ctx context.Context, userID string) ([]model.OpponentFindingRequest, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	ledger *wallet.Ledger
}

// NewGormStore creates a new GORM-backed store. The ledger is used inside
// booking transactions so deposit and refund accounting commits atomically
// with the status change that caused it.
func NewGormStore(db *gorm.DB, ledger *wallet.Ledger) Store {
	return &gormStore{db: db, ledger: ledger}
}

// DB exposes the underlying handle for callers with bespoke read needs
// (handlers, tests).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// lockForUpdate adds a FOR UPDATE clause on dialects that support it. SQLite
// (used by the test suite) has a single writer and no row locks.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFound maps gorm's sentinel onto the domain taxonomy.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

func (s *gormStore) PartialFieldByID(ctx context.Context, id string) (*model.PartialField, error) {
	var pf model.PartialField
	if err := s.db.WithContext(ctx).Preload("Field").First(&pf, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &pf, nil
}

func (s *gormStore) ActivePartialFields(ctx context.Context, fieldID string) ([]model.PartialField, error) {
	var pfs []model.PartialField
	err := s.db.WithContext(ctx).
		Preload("Field").
		Where("field_id = ? AND status = ?", fieldID, model.FieldActive).
		Order("name ASC").
		Find(&pfs).Error
	if err != nil {
		return nil, err
	}
	return pfs, nil
}
