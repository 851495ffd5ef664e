package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedPurchaseInvoice(repo *memRepo, total string, lines []PurchaseInvoiceLine) uuid.UUID {
	id := uuid.New()
	repo.st.purchaseInvoices[id] = PurchaseInvoice{
		ID:          id,
		TenantID:    testTenant,
		Number:      "PI-0001",
		Status:      DocStatusApproved,
		InvoiceDate: testNow,
		Total:       dec(total),
		Lines:       lines,
	}
	return id
}

func TestPostPurchaseInvoiceSplitsInventoryAndExpense(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	invoiceID := seedPurchaseInvoice(repo, "250", []PurchaseInvoiceLine{
		{Description: "widgets", Quantity: dec("10"), UnitPrice: dec("5"), Amount: dec("50"), InventoryTracked: true},
		{Description: "installation", Quantity: dec("1"), UnitPrice: dec("200"), Amount: dec("200")},
	})

	result, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.NoError(t, err)

	require.Len(t, repo.st.lines[result.JournalEntryID], 3)
	require.True(t, lineByCode(t, repo, result.JournalEntryID, "1300").Debit.Equal(dec("50")))
	require.True(t, lineByCode(t, repo, result.JournalEntryID, "6000").Debit.Equal(dec("200")))
	require.True(t, lineByCode(t, repo, result.JournalEntryID, "2000").Credit.Equal(dec("250")))
	require.Equal(t, DocStatusPosted, repo.st.purchaseInvoices[invoiceID].Status)
}

func TestPostPurchaseInvoiceExpenseOnly(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	invoiceID := seedPurchaseInvoice(repo, "120", []PurchaseInvoiceLine{
		{Description: "subscription", Amount: dec("120")},
	})

	result, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.NoError(t, err)
	require.Len(t, repo.st.lines[result.JournalEntryID], 2)
	require.True(t, lineByCode(t, repo, result.JournalEntryID, "6000").Debit.Equal(dec("120")))
}

func TestPostPurchaseInvoiceLineTotalMismatchRejected(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	// Document total disagrees with the line sum; the builder refuses the
	// unbalanced entry instead of silently plugging the difference.
	invoiceID := seedPurchaseInvoice(repo, "300", []PurchaseInvoiceLine{
		{Amount: dec("250")},
	})

	_, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.st.entries)
	require.Equal(t, DocStatusApproved, repo.st.purchaseInvoices[invoiceID].Status)
}

func TestPostPurchaseInvoiceMissingBucketAccount(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	svc.defaults.Inventory = ""
	invoiceID := seedPurchaseInvoice(repo, "50", []PurchaseInvoiceLine{
		{Amount: dec("50"), InventoryTracked: true},
	})

	_, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.ErrorIs(t, err, ErrAccountNotConfigured)
	require.Empty(t, repo.st.entries)
}

func TestPostPurchaseInvoiceIdempotent(t *testing.T) {
	svc, repo, _ := newTestEngine(t)
	seedChart(repo)
	invoiceID := seedPurchaseInvoice(repo, "75", []PurchaseInvoiceLine{
		{Amount: dec("75")},
	})

	first, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.NoError(t, err)

	second, err := svc.PostPurchaseInvoice(context.Background(), testTenant, testActor, invoiceID, PostOptions{})
	require.NoError(t, err)
	require.True(t, second.Idempotent)
	require.Equal(t, first.JournalEntryID, second.JournalEntryID)
	require.Len(t, repo.st.entries, 1)
}
