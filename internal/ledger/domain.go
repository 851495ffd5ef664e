package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart-of-accounts classifications.
type AccountType string

const (
	AccountTypeAsset         AccountType = "asset"
	AccountTypeLiability     AccountType = "liability"
	AccountTypeEquity        AccountType = "equity"
	AccountTypeIncome        AccountType = "income"
	AccountTypeExpense       AccountType = "expense"
	AccountTypeContraAsset   AccountType = "contra_asset"
	AccountTypeContraIncome  AccountType = "contra_income"
	AccountTypeContraExpense AccountType = "contra_expense"
)

// Account is one row of a tenant's chart of accounts. Immutable once referenced
// by a posted line except for the Active toggle.
type Account struct {
	ID        int64
	TenantID  uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetStatus enumerates the transaction-set workflow states.
type SetStatus string

const (
	SetStatusDraft  SetStatus = "draft"
	SetStatusReview SetStatus = "review"
	SetStatusPosted SetStatus = "posted"
)

// TransactionSet is the workflow container wrapping one posting intent.
type TransactionSet struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Status       SetStatus
	Source       string
	BusinessDate time.Time
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IntentLine is one proposed journal line. The account may be referenced by
// code or by id; exactly one of Debit/Credit must be nonzero.
type IntentLine struct {
	AccountCode string
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostingIntent is the proposed, not-yet-committed entry for a transaction set.
type PostingIntent struct {
	TransactionSetID uuid.UUID
	PostingDate      time.Time
	Memo             string
	Lines            []IntentLine
}

// RunStatus enumerates posting-run lifecycle values.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PostingRun is the idempotency record for one posting attempt. At most one
// row with status started or succeeded exists per (tenant, transaction set);
// the partial unique index in the store is the concurrency-control primitive.
type PostingRun struct {
	ID               int64
	TenantID         uuid.UUID
	TransactionSetID uuid.UUID
	Status           RunStatus
	JournalEntryID   *int64
	Error            string
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// RunHistory is an append-only record of a failed posting attempt, kept after
// the active claim row is cleared so retries restart cleanly without losing
// the failure for observability.
type RunHistory struct {
	ID               int64
	TenantID         uuid.UUID
	TransactionSetID uuid.UUID
	Status           RunStatus
	Error            string
	RecordedAt       time.Time
}

// JournalEntry is a posted ledger header. Append-only.
type JournalEntry struct {
	ID                     int64
	TenantID               uuid.UUID
	PostingDate            time.Time
	Memo                   string
	SourceTransactionSetID *uuid.UUID
	PostedBy               int64
	PostedAt               time.Time
	Lines                  []JournalLine
}

// JournalLine holds a single debit or credit against an account. Exactly one
// of Debit/Credit is nonzero per line.
type JournalLine struct {
	ID             int64
	JournalEntryID int64
	LineNo         int
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Description    string
}

// ReversalLink ties an original entry to its reversal. Unique per original
// entry, which enforces one reversal per entry.
type ReversalLink struct {
	ID                     int64
	TenantID               uuid.UUID
	OriginalJournalEntryID int64
	ReversalJournalEntryID int64
	Reason                 string
	CreatedAt              time.Time
}

// PeriodStatus enumerates accounting-period close states.
type PeriodStatus string

const (
	PeriodStatusOpen       PeriodStatus = "open"
	PeriodStatusSoftClosed PeriodStatus = "soft_closed"
	PeriodStatusHardClosed PeriodStatus = "hard_closed"
)

// Period is a calendar-month accounting period. Absence of a row means open.
type Period struct {
	ID          int64
	TenantID    uuid.UUID
	MonthKey    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      PeriodStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocKind discriminates the per-document posting-link tables.
type DocKind string

const (
	DocKindSalesInvoice    DocKind = "sales_invoice"
	DocKindPurchaseInvoice DocKind = "purchase_invoice"
	DocKindPayment         DocKind = "payment"
)

// PostingLink maps a source document to its journal entry. Unique per
// (tenant, doc), used purely as the idempotency key for that document kind.
type PostingLink struct {
	ID               int64
	TenantID         uuid.UUID
	DocKind          DocKind
	DocID            uuid.UUID
	JournalEntryID   int64
	TransactionSetID *uuid.UUID
	CreatedAt        time.Time
}

// DocStatus enumerates source-document lifecycle values the engine touches.
type DocStatus string

const (
	DocStatusApproved DocStatus = "approved"
	DocStatusPosted   DocStatus = "posted"
	DocStatusVoid     DocStatus = "void"
)

// SalesInvoice is the read model the sales adapter posts from.
type SalesInvoice struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Number      string
	Status      DocStatus
	InvoiceDate time.Time
	Total       decimal.Decimal
	Lines       []SalesInvoiceLine
}

// SalesInvoiceLine carries the quantities and resolved costs needed for the
// COGS leg. MovementUnitCost is the recorded inventory-movement cost;
// DefaultUnitCost is the item's default purchase cost. Either may be unknown.
type SalesInvoiceLine struct {
	ID               int64
	ItemID           *uuid.UUID
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	Shipped          bool
	MovementUnitCost *decimal.Decimal
	DefaultUnitCost  *decimal.Decimal
}

// PurchaseInvoice is the read model the purchase adapter posts from.
type PurchaseInvoice struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Number      string
	Status      DocStatus
	InvoiceDate time.Time
	Total       decimal.Decimal
	Lines       []PurchaseInvoiceLine
}

// PurchaseInvoiceLine classifies spend by whether the item is
// inventory-tracked (debit inventory) or a service (debit expense).
type PurchaseInvoiceLine struct {
	ID               int64
	ItemID           *uuid.UUID
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	InventoryTracked bool
}

// PaymentKind distinguishes money-in from money-out.
type PaymentKind string

const (
	PaymentKindReceipt PaymentKind = "receipt"
	PaymentKindPayment PaymentKind = "payment"
)

// Payment is the read model the payment adapter posts from. The cash/bank
// account code comes from the record itself (it depends on the method).
type Payment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Number          string
	Kind            PaymentKind
	Status          DocStatus
	PaymentDate     time.Time
	Method          string
	CashAccountCode string
	Allocations     []PaymentAllocation
}

// PaymentAllocation applies part of a payment against a document. Allocations
// are zeroed, never deleted, so the audit trail stays reconstructable.
type PaymentAllocation struct {
	ID        int64
	PaymentID uuid.UUID
	DocID     uuid.UUID
	Amount    decimal.Decimal
}

// ValidationIssue is a read-only gate input: an open issue recorded against an
// entity by the upstream validation engine.
type ValidationIssue struct {
	ID         int64
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Code       string
	Severity   string
	Message    string
	Open       bool
	Overridden bool
}

// SeverityError marks issues that block posting unless overridden.
const SeverityError = "error"
