package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func postSimpleEntry(t *testing.T, svc *Service, repo *memRepo) int64 {
	t.Helper()
	setID := seedSet(repo, SetStatusReview, balancedLines("1000"))
	grantEvidence(repo, setID)
	result, err := svc.PostTransactionSet(context.Background(), testTenant, testActor, setID)
	require.NoError(t, err)
	return result.JournalEntryID
}

func TestReverseJournalEntrySwapsLines(t *testing.T) {
	svc, repo, audit := newTestEngine(t)
	seedChart(repo)
	entryID := postSimpleEntry(t, svc, repo)

	result, err := svc.ReverseJournalEntry(context.Background(), testTenant, testActor, entryID, "duplicate entry", nil)
	require.NoError(t, err)
	require.False(t, result.Idempotent)
	require.NotEqual(t, entryID, result.ReversalJournalEntryID)

	original := repo.st.lines[entryID]
	reversed := repo.st.lines[result.ReversalJournalEntryID]
	require.Len(t, reversed, len(original))
	for i := range original {
		require.Equal(t, original[i].AccountID, reversed[i].AccountID)
		require.True(t, original[i].Debit.Equal(reversed[i].Credit))
		require.True(t, original[i].Credit.Equal(reversed[i].Debit))
		require.True(t, strings.HasPrefix(reversed[i].Description, "REVERSAL: "))
	}

	// Original rows stay untouched.
	require.True(t, original[0].Debit.Equal(decimal.RequireFromString("1000")))

	link := repo.st.reversals[reversalKey(testTenant, entryID)]
	require.Equal(t, result.ReversalJournalEntryID, link.ReversalJournalEntryID)
	require.True(t, audit.has("journal.reverse"))
}

func TestReverseJournalEntryIdempotent(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	entryID := postSimpleEntry(t, svc, repo)

	first, err := svc.ReverseJournalEntry(context.Background(), testTenant, testActor, entryID, "dup", nil)
	require.NoError(t, err)

	second, err := svc.ReverseJournalEntry(context.Background(), testTenant, testActor, entryID, "dup again", nil)
	require.NoError(t, err)
	require.True(t, second.Idempotent)
	require.Equal(t, first.ReversalJournalEntryID, second.ReversalJournalEntryID)
	require.Len(t, repo.st.entries, 2)
}

func TestReverseJournalEntryReasonInMemo(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	entryID := postSimpleEntry(t, svc, repo)

	result, err := svc.ReverseJournalEntry(context.Background(), testTenant, testActor, entryID, "posted twice", nil)
	require.NoError(t, err)

	reversal := repo.st.entries[result.ReversalJournalEntryID]
	require.Contains(t, reversal.Memo, "Reversal of journal entry")
	require.Contains(t, reversal.Memo, "posted twice")
}

func TestReverseJournalEntryUnknownEntry(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)

	_, err := svc.ReverseJournalEntry(context.Background(), testTenant, testActor, 404, "missing", nil)
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestVoidPaymentRequiresZeroedAllocations(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	paymentID := seedPayment(repo, PaymentKindReceipt, "bank", "100")

	_, err := svc.PostPayment(context.Background(), testTenant, testActor, paymentID, PostOptions{})
	require.NoError(t, err)

	_, err = svc.VoidPayment(context.Background(), testTenant, testActor, paymentID, "entered twice")
	require.ErrorIs(t, err, ErrAllocationsNotZeroed)
	require.Equal(t, DocStatusPosted, repo.st.payments[paymentID].Status)
}

func TestVoidPaymentReversesAndMarksVoid(t *testing.T) {
	svc, repo, audit := newTestEngine(t)
	seedChart(repo)
	paymentID := seedPayment(repo, PaymentKindReceipt, "bank", "100")

	posted, err := svc.PostPayment(context.Background(), testTenant, testActor, paymentID, PostOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.ZeroPaymentAllocation(context.Background(), testTenant, testActor, paymentID, 1))

	result, err := svc.VoidPayment(context.Background(), testTenant, testActor, paymentID, "entered twice")
	require.NoError(t, err)
	require.Equal(t, DocStatusVoid, result.Status)
	require.False(t, result.Idempotent)
	require.Equal(t, DocStatusVoid, repo.st.payments[paymentID].Status)

	original := repo.st.lines[posted.JournalEntryID]
	reversed := repo.st.lines[result.ReversalJournalEntryID]
	require.Len(t, reversed, len(original))
	for i := range original {
		require.True(t, original[i].Debit.Equal(reversed[i].Credit))
		require.True(t, original[i].Credit.Equal(reversed[i].Debit))
	}
	require.True(t, audit.has("payment.void"))
}

func TestVoidPaymentIdempotent(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	paymentID := seedPayment(repo, PaymentKindReceipt, "bank", "100")

	_, err := svc.PostPayment(context.Background(), testTenant, testActor, paymentID, PostOptions{})
	require.NoError(t, err)
	require.NoError(t, svc.ZeroPaymentAllocation(context.Background(), testTenant, testActor, paymentID, 1))

	first, err := svc.VoidPayment(context.Background(), testTenant, testActor, paymentID, "dup")
	require.NoError(t, err)

	second, err := svc.VoidPayment(context.Background(), testTenant, testActor, paymentID, "dup")
	require.NoError(t, err)
	require.True(t, second.Idempotent)
	require.Equal(t, first.ReversalJournalEntryID, second.ReversalJournalEntryID)
}

func TestVoidPaymentNeverPostedRejected(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	paymentID := seedPayment(repo, PaymentKindReceipt, "bank", "100")

	_, err := svc.VoidPayment(context.Background(), testTenant, testActor, paymentID, "nope")
	require.ErrorIs(t, err, ErrPaymentNotVoidable)
}
