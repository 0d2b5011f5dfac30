package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldmatch-backend/internal/model"
)

func TestCreateFindingGuarded_RejectsOverlappingPost(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	seedFinding(t, gormDB, "user-a", date, 36000, 39600)

	// [37800, 41400) overlaps [36000, 39600).
	start, end := 37800, 41400
	f := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Elsewhere",
		Date:          &date,
		StartSec:      &start,
		EndSec:        &end,
	}
	err := s.CreateFindingGuarded(ctx, f, window(date, start, end))
	assert.ErrorIs(t, err, model.ErrOverlapConflict)

	// Another user is free to post the same window.
	g := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-b",
		Status:        model.FindingOpen,
		FieldName:     "Elsewhere",
		Date:          &date,
		StartSec:      &start,
		EndSec:        &end,
	}
	require.NoError(t, s.CreateFindingGuarded(ctx, g, window(date, start, end)))
}

func TestCreateFindingGuarded_OwnBookingAllowed(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	pf := seedField(t, gormDB, 100)
	date := testDate(2025, time.June, 1)
	seedWallet(t, gormDB, "user-a", 500)

	b := seedBooking(t, s, pf, "user-a", date, 32400, 36000, 100)

	f := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		BookingID:     &b.ID,
		FieldID:       &pf.FieldID,
	}
	require.NoError(t, s.CreateFindingGuarded(ctx, f, b.Window()))

	// A second booking in the window still blocks a freestanding post.
	other := seedBooking(t, s, pf, "user-a", date, 43200, 46800, 100)
	start, end := 43200, 45000
	free := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Elsewhere",
		Date:          &date,
		StartSec:      &start,
		EndSec:        &end,
	}
	err := s.CreateFindingGuarded(ctx, free, window(date, start, end))
	assert.ErrorIs(t, err, model.ErrOverlapConflict)
	_ = other
}

func TestUserOverlaps_CollectsAllThreeKinds(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	pf := seedField(t, gormDB, 100)
	date := testDate(2025, time.June, 1)
	seedWallet(t, gormDB, "user-a", 500)

	post := seedFinding(t, gormDB, "user-a", date, 36000, 39600)
	b := seedBooking(t, s, pf, "user-a", date, 37800, 41400, 100)

	otherPost := seedFinding(t, gormDB, "user-b", date, 36000, 39600)
	req := seedRequest(t, gormDB, otherPost.ID, "user-a", model.RequestPending)

	got, err := s.UserOverlaps(ctx, "user-a", window(date, 36000, 41400), "", "")
	require.NoError(t, err)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, post.ID, got.Findings[0].ID)
	require.Len(t, got.Requests, 1)
	assert.Equal(t, req.ID, got.Requests[0].ID)
	require.Len(t, got.Bookings, 1)
	assert.Equal(t, b.ID, got.Bookings[0].ID)

	// Exclusions drop the named entities.
	got, err = s.UserOverlaps(ctx, "user-a", window(date, 36000, 41400), post.ID, req.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Findings)
	assert.Empty(t, got.Requests)

	// A disjoint window sees nothing.
	got, err = s.UserOverlaps(ctx, "user-a", window(date, 50400, 54000), "", "")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestCancelFindingCascade(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	post := seedFinding(t, gormDB, "user-a", date, 36000, 39600)
	pending := seedRequest(t, gormDB, post.ID, "user-b", model.RequestPending)
	settled := seedRequest(t, gormDB, post.ID, "user-c", model.RequestNotSelected)

	ids, err := s.CancelFindingCascade(ctx, post, model.FindingCancelled, model.RequestCancelled)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-b"}, ids)
	assert.Equal(t, model.FindingCancelled, post.Status)

	var r model.OpponentFindingRequest
	require.NoError(t, gormDB.First(&r, "id = ?", pending.ID).Error)
	assert.Equal(t, model.RequestCancelled, r.Status)
	r = model.OpponentFindingRequest{}
	require.NoError(t, gormDB.First(&r, "id = ?", settled.ID).Error)
	assert.Equal(t, model.RequestNotSelected, r.Status)
}

func TestCloseMatch(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	post := seedFinding(t, gormDB, "user-a", date, 36000, 39600)
	req := seedRequest(t, gormDB, post.ID, "user-b", model.RequestPending)
	require.NoError(t, s.AcceptRequestCascade(ctx, req))

	require.NoError(t, s.CloseMatch(ctx, post, req, model.FindingOpponentCancelled, model.RequestCancelled))
	assert.Equal(t, model.FindingOpponentCancelled, post.Status)
	assert.Equal(t, model.RequestCancelled, req.Status)

	var gotPost model.OpponentFinding
	require.NoError(t, gormDB.First(&gotPost, "id = ?", post.ID).Error)
	assert.Equal(t, model.FindingOpponentCancelled, gotPost.Status)
}

func TestSupersedeAndRestore(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	// Terminated post the user wants back.
	oldStart, oldEnd := 36000, 39600
	old := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingCancelled,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	require.NoError(t, gormDB.Create(old).Error)

	// A live sibling in the window, holding a pending request of its own.
	sibling := seedFinding(t, gormDB, "user-a", date, 37800, 41400)
	siblingReq := seedRequest(t, gormDB, sibling.ID, "user-z", model.RequestPending)

	// A pending request of user-a elsewhere in the window.
	otherPost := seedFinding(t, gormDB, "user-b", date, 36000, 37800)
	ownReq := seedRequest(t, gormDB, otherPost.ID, "user-a", model.RequestPending)

	fresh := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	spec := SupersedeSpec{
		UserID:           "user-a",
		Window:           window(date, oldStart, oldEnd),
		ExcludeFindingID: old.ID,
	}
	require.NoError(t, s.SupersedeAndRestore(ctx, spec, fresh, nil))

	var got model.OpponentFinding
	require.NoError(t, gormDB.First(&got, "id = ?", sibling.ID).Error)
	assert.Equal(t, model.FindingOverlapCancelled, got.Status)

	var r model.OpponentFindingRequest
	require.NoError(t, gormDB.First(&r, "id = ?", siblingReq.ID).Error)
	assert.Equal(t, model.RequestCancelled, r.Status)

	r = model.OpponentFindingRequest{}
	require.NoError(t, gormDB.First(&r, "id = ?", ownReq.ID).Error)
	assert.Equal(t, model.RequestOverlapCancelled, r.Status)

	got = model.OpponentFinding{}
	require.NoError(t, gormDB.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, model.FindingOpen, got.Status)
}

// A post created after the caller last looked at the user's conflicts must
// still be superseded: SupersedeAndRestore collects conflicts inside its own
// transaction rather than trusting any earlier snapshot.
func TestSupersedeAndRestore_CancelsLateArrivingSibling(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	oldStart, oldEnd := 36000, 39600
	old := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingCancelled,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	require.NoError(t, gormDB.Create(old).Error)

	spec := SupersedeSpec{
		UserID:           "user-a",
		Window:           window(date, oldStart, oldEnd),
		ExcludeFindingID: old.ID,
	}

	// The window looks clear, then a guarded create slips in.
	snapshot, err := s.UserOverlaps(ctx, "user-a", spec.Window, old.ID, "")
	require.NoError(t, err)
	require.True(t, snapshot.Empty())

	lateStart, lateEnd := 37800, 41400
	late := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Elsewhere",
		Date:          &date,
		StartSec:      &lateStart,
		EndSec:        &lateEnd,
	}
	require.NoError(t, s.CreateFindingGuarded(ctx, late, window(date, lateStart, lateEnd)))

	fresh := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	require.NoError(t, s.SupersedeAndRestore(ctx, spec, fresh, nil))

	// Exactly one live post remains in the window.
	var got model.OpponentFinding
	require.NoError(t, gormDB.First(&got, "id = ?", late.ID).Error)
	assert.Equal(t, model.FindingOverlapCancelled, got.Status)
	got = model.OpponentFinding{}
	require.NoError(t, gormDB.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, model.FindingOpen, got.Status)
}

// A booking occupying the window, other than the allowed one, aborts the
// restore and leaves every row untouched.
func TestSupersedeAndRestore_BookingInWindowAborts(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	pf := seedField(t, gormDB, 100)
	date := testDate(2025, time.June, 1)
	seedWallet(t, gormDB, "user-a", 500)

	oldStart, oldEnd := 36000, 39600
	old := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingCancelled,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	require.NoError(t, gormDB.Create(old).Error)

	sibling := seedFinding(t, gormDB, "user-a", date, 37800, 41400)
	b := seedBooking(t, s, pf, "user-a", date, 36000, 37800, 100)

	fresh := &model.OpponentFinding{
		ID:            uuid.NewString(),
		UserFindingID: "user-a",
		Status:        model.FindingOpen,
		FieldName:     "Somewhere",
		Date:          &date,
		StartSec:      &oldStart,
		EndSec:        &oldEnd,
	}
	spec := SupersedeSpec{
		UserID:           "user-a",
		Window:           window(date, oldStart, oldEnd),
		ExcludeFindingID: old.ID,
	}
	err := s.SupersedeAndRestore(ctx, spec, fresh, nil)
	assert.ErrorIs(t, err, model.ErrOverlapConflict)

	// Nothing was cancelled or created.
	var got model.OpponentFinding
	require.NoError(t, gormDB.First(&got, "id = ?", sibling.ID).Error)
	assert.Equal(t, model.FindingOpen, got.Status)
	var count int64
	gormDB.Model(&model.OpponentFinding{}).Where("id = ?", fresh.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Naming the booking as allowed lets the restore through.
	spec.AllowedBookingID = b.ID
	require.NoError(t, s.SupersedeAndRestore(ctx, spec, fresh, nil))
	require.NoError(t, gormDB.First(&got, "id = ?", sibling.ID).Error)
	assert.Equal(t, model.FindingOverlapCancelled, got.Status)
}

func TestMarkFindingsOverdue(t *testing.T) {
	s, gormDB := newTestStore(t)
	ctx := context.Background()
	date := testDate(2025, time.June, 1)

	f1 := seedFinding(t, gormDB, "user-a", date, 36000, 39600)
	f2 := seedFinding(t, gormDB, "user-b", date, 43200, 46800)

	candidates, err := s.OverdueCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	require.NoError(t, s.MarkFindingsOverdue(ctx, []string{f1.ID}))

	candidates, err = s.OverdueCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, f2.ID, candidates[0].ID)

	// Empty input is a no-op.
	require.NoError(t, s.MarkFindingsOverdue(ctx, nil))
}
