package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRunTrackerClaimReturnsCachedSuccess(t *testing.T) {
	repo := newMemRepo()
	tracker := &runTracker{repo: repo}
	setID := uuid.New()
	entryID := int64(42)

	repo.st.runSeq++
	repo.st.runs[runKey(testTenant, setID)] = PostingRun{
		ID:               repo.st.runSeq,
		TenantID:         testTenant,
		TransactionSetID: setID,
		Status:           RunStatusSucceeded,
		JournalEntryID:   &entryID,
	}

	claim, err := tracker.Claim(context.Background(), testTenant, setID)
	require.NoError(t, err)
	require.True(t, claim.Cached)
	require.Equal(t, entryID, *claim.Run.JournalEntryID)
}

// raceRepo makes the insert lose to a concurrent winner that finishes between
// the lookup and the insert.
type raceRepo struct {
	*memRepo
	winner PostingRun
}

func (r *raceRepo) InsertRun(ctx context.Context, run PostingRun) (PostingRun, error) {
	key := runKey(r.winner.TenantID, r.winner.TransactionSetID)
	r.mu.Lock()
	r.st.runs[key] = r.winner
	r.mu.Unlock()
	return r.memRepo.InsertRun(ctx, run)
}

func TestRunTrackerClaimLosesRaceToFinishedWinner(t *testing.T) {
	setID := uuid.New()
	entryID := int64(9)
	base := newMemRepo()
	repo := &raceRepo{memRepo: base, winner: PostingRun{
		ID:               1,
		TenantID:         testTenant,
		TransactionSetID: setID,
		Status:           RunStatusSucceeded,
		JournalEntryID:   &entryID,
	}}
	tracker := &runTracker{repo: repo}

	claim, err := tracker.Claim(context.Background(), testTenant, setID)
	require.NoError(t, err)
	require.True(t, claim.Cached)
	require.Equal(t, entryID, *claim.Run.JournalEntryID)
}

func TestRunTrackerClaimLosesRaceToRunningWinner(t *testing.T) {
	setID := uuid.New()
	base := newMemRepo()
	repo := &raceRepo{memRepo: base, winner: PostingRun{
		ID:               1,
		TenantID:         testTenant,
		TransactionSetID: setID,
		Status:           RunStatusStarted,
	}}
	tracker := &runTracker{repo: repo}

	_, err := tracker.Claim(context.Background(), testTenant, setID)
	require.ErrorIs(t, err, ErrPostingInProgress)
}

func TestRunTrackerReleaseAppendsHistoryAndClearsClaim(t *testing.T) {
	repo := newMemRepo()
	tracker := &runTracker{repo: repo}
	setID := uuid.New()

	claim, err := tracker.Claim(context.Background(), testTenant, setID)
	require.NoError(t, err)
	require.False(t, claim.Cached)

	tracker.Release(context.Background(), claim.Run, ErrUnbalanced)

	_, found, err := repo.FindRun(context.Background(), testTenant, setID)
	require.NoError(t, err)
	require.False(t, found)
	require.Len(t, repo.st.history, 1)
	require.Equal(t, RunStatusFailed, repo.st.history[0].Status)
}
