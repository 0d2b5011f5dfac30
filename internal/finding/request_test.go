package finding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldmatch-backend/internal/model"
)

func TestRequestService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)

	// The author cannot request their own post.
	_, err := env.requests.Create(ctx, post.ID, "author", "")
	assert.ErrorIs(t, err, model.ErrForbidden)

	r, err := env.requests.Create(ctx, post.ID, "user-b", "let's play")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, r.Status)
	assert.False(t, r.IsAccepted)
	assert.Contains(t, env.notifier.recipients(), "author")

	// A duplicate pending request is rejected.
	_, err = env.requests.Create(ctx, post.ID, "user-b", "again")
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)

	// A pending request elsewhere in the window blocks a new one.
	other := env.freestanding(t, "author2", 37800, 41400)
	_, err = env.requests.Create(ctx, other.ID, "user-b", "")
	assert.ErrorIs(t, err, model.ErrOverlapConflict)

	// Requests on closed posts are rejected.
	_, err = env.posts.Cancel(ctx, post.ID, "author")
	require.NoError(t, err)
	_, err = env.requests.Create(ctx, post.ID, "user-c", "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRequestService_Accept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	winner, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	loser, err := env.requests.Create(ctx, post.ID, "user-c", "")
	require.NoError(t, err)

	// Only the post author may accept.
	_, err = env.requests.Accept(ctx, winner.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err := env.requests.Accept(ctx, winner.ID, "author")
	require.NoError(t, err)
	assert.True(t, got.IsAccepted)
	assert.Equal(t, model.RequestAccepted, got.Status)
	assert.Contains(t, env.notifier.recipients(), "user-b")

	// The sibling went to NOT_SELECTED and the post closed for requests.
	var gotLoser model.OpponentFindingRequest
	require.NoError(t, env.db.First(&gotLoser, "id = ?", loser.ID).Error)
	assert.Equal(t, model.RequestNotSelected, gotLoser.Status)

	var gotPost model.OpponentFinding
	require.NoError(t, env.db.First(&gotPost, "id = ?", post.ID).Error)
	assert.Equal(t, model.FindingAccepted, gotPost.Status)

	// Accepting again, or accepting the loser, fails.
	_, err = env.requests.Accept(ctx, winner.ID, "author")
	assert.ErrorIs(t, err, model.ErrAlreadyAccepted)
	_, err = env.requests.Accept(ctx, loser.ID, "author")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRequestService_AcceptOverduePostRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)

	// The window elapses before the author picks anyone.
	require.NoError(t, env.db.Model(&model.OpponentFinding{}).
		Where("id = ?", post.ID).Update("is_overdue", true).Error)

	_, err = env.requests.Accept(ctx, r.ID, "author")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	var got model.OpponentFindingRequest
	require.NoError(t, env.db.First(&got, "id = ?", r.ID).Error)
	assert.False(t, got.IsAccepted)
	assert.Equal(t, model.RequestPending, got.Status)
}

func TestRequestService_CancelPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)

	_, err = env.requests.Cancel(ctx, r.ID, "user-x")
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err := env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)
	assert.Equal(t, model.RequestCancelled, got.Status)

	// The post stays open.
	var gotPost model.OpponentFinding
	require.NoError(t, env.db.First(&gotPost, "id = ?", post.ID).Error)
	assert.Equal(t, model.FindingOpen, gotPost.Status)

	// A terminal request cannot be cancelled again.
	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRequestService_CancelAcceptedDissolvesMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	_, err = env.requests.Accept(ctx, r.ID, "author")
	require.NoError(t, err)

	got, err := env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)
	assert.Equal(t, model.RequestCancelled, got.Status)

	var gotPost model.OpponentFinding
	require.NoError(t, env.db.First(&gotPost, "id = ?", post.ID).Error)
	assert.Equal(t, model.FindingOpponentCancelled, gotPost.Status)

	assert.Contains(t, env.notifier.recipients(), "author")
}

func TestRequestService_Restore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "call me")
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)

	fresh, err := env.requests.Restore(ctx, r.ID, "user-b")
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, fresh.ID)
	assert.Equal(t, model.RequestPending, fresh.Status)
	assert.Equal(t, "call me", fresh.Message)

	// The old row keeps its terminal status.
	var old model.OpponentFindingRequest
	require.NoError(t, env.db.First(&old, "id = ?", r.ID).Error)
	assert.Equal(t, model.RequestCancelled, old.Status)

	// A pending request cannot be restored.
	_, err = env.requests.Restore(ctx, fresh.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRequestService_RestoreClosedPostRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)
	_, err = env.posts.Cancel(ctx, post.ID, "author")
	require.NoError(t, err)

	_, err = env.requests.Restore(ctx, r.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRequestService_RestoreSupersede(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)

	// user-b opened a post of their own in the window meanwhile.
	mine, err := env.posts.Create(ctx, FreestandingInput{
		UserID:    "user-b",
		FieldName: "City Park Pitch",
		Date:      gameDate,
		StartSec:  37800,
		EndSec:    41400,
	})
	require.NoError(t, err)

	// The plain restore refuses; the dry run names the conflict.
	_, err = env.requests.Restore(ctx, r.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrOverlapConflict)

	conflicts, err := env.requests.OverlapCandidates(ctx, r.ID, "user-b")
	require.NoError(t, err)
	require.Len(t, conflicts.Findings, 1)
	assert.Equal(t, mine.ID, conflicts.Findings[0].ID)

	fresh, err := env.requests.RestoreSupersede(ctx, r.ID, "user-b")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, fresh.Status)

	var gotMine model.OpponentFinding
	require.NoError(t, env.db.First(&gotMine, "id = ?", mine.ID).Error)
	assert.Equal(t, model.FindingOverlapCancelled, gotMine.Status)
}

func TestRequestService_RestoreSupersedeRejectsBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)

	env.seedBooking(t, "user-b", 36000, 39600)

	_, err = env.requests.RestoreSupersede(ctx, r.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrOverlapConflict)
}

func TestRequestService_ListByPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	_, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)
	_, err = env.requests.Create(ctx, post.ID, "user-c", "")
	require.NoError(t, err)

	// Author-only view.
	_, err = env.requests.ListByPost(ctx, post.ID, "user-b", true)
	assert.ErrorIs(t, err, model.ErrForbidden)

	got, err := env.requests.ListByPost(ctx, post.ID, "author", true)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRequestService_OverlappingLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post := env.freestanding(t, "author", 36000, 39600)
	r, err := env.requests.Create(ctx, post.ID, "user-b", "")
	require.NoError(t, err)

	live, err := env.requests.OverlappingLive(ctx, "user-b", gameDate, 37800, 41400)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, r.ID, live[0].ID)

	// Disjoint window, then a terminated request: no conflicts.
	live, err = env.requests.OverlappingLive(ctx, "user-b", gameDate, 50400, 54000)
	require.NoError(t, err)
	assert.Empty(t, live)

	_, err = env.requests.Cancel(ctx, r.ID, "user-b")
	require.NoError(t, err)
	live, err = env.requests.OverlappingLive(ctx, "user-b", gameDate, 37800, 41400)
	require.NoError(t, err)
	assert.Empty(t, live)
}
