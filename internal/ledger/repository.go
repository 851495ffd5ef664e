package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

const pgUniqueViolation = "23505"

// Repository is the engine's store boundary. Posting-run claims run in their
// own statements so a claim is visible to concurrent transactions; everything
// else happens inside WithTx so gate reads and ledger writes share one
// transaction.
type Repository interface {
	FindRun(ctx context.Context, tenantID, setID uuid.UUID) (PostingRun, bool, error)
	InsertRun(ctx context.Context, run PostingRun) (PostingRun, error)
	DeleteRun(ctx context.Context, tenantID, setID uuid.UUID) error
	AppendRunHistory(ctx context.Context, rec RunHistory) error

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a posting transaction.
type TxRepository interface {
	GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error)
	GetAccountByID(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error)

	GetPeriod(ctx context.Context, tenantID uuid.UUID, monthKey string) (Period, bool, error)
	CreatePeriod(ctx context.Context, p Period) (Period, error)

	GetTransactionSet(ctx context.Context, tenantID, id uuid.UUID) (TransactionSet, error)
	UpdateTransactionSetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to SetStatus) error
	GetPostingIntent(ctx context.Context, tenantID, setID uuid.UUID) (PostingIntent, error)

	CountPendingApprovals(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (int, error)
	ListUnresolvedIssues(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]ValidationIssue, error)
	HasEvidence(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error)
	HasEntityOverride(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error)

	InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []JournalLine) error
	GetJournalEntry(ctx context.Context, tenantID uuid.UUID, id int64) (JournalEntry, error)
	GetJournalLines(ctx context.Context, entryID int64) ([]JournalLine, error)

	GetReversalLink(ctx context.Context, tenantID uuid.UUID, originalEntryID int64) (ReversalLink, bool, error)
	InsertReversalLink(ctx context.Context, link ReversalLink) (ReversalLink, error)

	MarkRunSucceeded(ctx context.Context, runID, entryID int64) error

	GetPostingLink(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID) (PostingLink, bool, error)
	InsertPostingLink(ctx context.Context, link PostingLink) (PostingLink, error)

	GetSalesInvoice(ctx context.Context, tenantID, id uuid.UUID) (SalesInvoice, error)
	GetPurchaseInvoice(ctx context.Context, tenantID, id uuid.UUID) (PurchaseInvoice, error)
	GetPayment(ctx context.Context, tenantID, id uuid.UUID) (Payment, error)
	UpdateDocStatus(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID, status DocStatus) error
	ZeroPaymentAllocation(ctx context.Context, tenantID, paymentID uuid.UUID, allocationID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires the engine against a pgx pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindRun(ctx context.Context, tenantID, setID uuid.UUID) (PostingRun, bool, error) {
	var run PostingRun
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, transaction_set_id, status, journal_entry_id, error, started_at, updated_at
FROM posting_runs WHERE tenant_id=$1 AND transaction_set_id=$2`, tenantID, setID).
		Scan(&run.ID, &run.TenantID, &run.TransactionSetID, &run.Status, &run.JournalEntryID, &run.Error, &run.StartedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostingRun{}, false, nil
		}
		return PostingRun{}, false, err
	}
	return run, true, nil
}

func (r *repository) InsertRun(ctx context.Context, run PostingRun) (PostingRun, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO posting_runs (tenant_id, transaction_set_id, status, error)
VALUES ($1,$2,$3,$4) RETURNING id, started_at, updated_at`, run.TenantID, run.TransactionSetID, run.Status, run.Error).
		Scan(&run.ID, &run.StartedAt, &run.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return PostingRun{}, ErrRunConflict
		}
		return PostingRun{}, err
	}
	return run, nil
}

func (r *repository) DeleteRun(ctx context.Context, tenantID, setID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM posting_runs WHERE tenant_id=$1 AND transaction_set_id=$2`, tenantID, setID)
	return err
}

func (r *repository) AppendRunHistory(ctx context.Context, rec RunHistory) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO posting_run_history (tenant_id, transaction_set_id, status, error)
VALUES ($1,$2,$3,$4)`, rec.TenantID, rec.TransactionSetID, rec.Status, rec.Error)
	return err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	return r.scanAccount(ctx, `SELECT id, tenant_id, code, name, type, active, created_at, updated_at
FROM accounts WHERE tenant_id=$1 AND code=$2`, tenantID, code)
}

func (r *txRepository) GetAccountByID(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error) {
	return r.scanAccount(ctx, `SELECT id, tenant_id, code, name, type, active, created_at, updated_at
FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id)
}

func (r *txRepository) scanAccount(ctx context.Context, query string, args ...any) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, query, args...).
		Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) GetPeriod(ctx context.Context, tenantID uuid.UUID, monthKey string) (Period, bool, error) {
	var p Period
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, month_key, period_start, period_end, status, created_at, updated_at
FROM accounting_periods WHERE tenant_id=$1 AND month_key=$2`, tenantID, monthKey).
		Scan(&p.ID, &p.TenantID, &p.MonthKey, &p.PeriodStart, &p.PeriodEnd, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, false, nil
		}
		return Period{}, false, err
	}
	return p, true, nil
}

func (r *txRepository) CreatePeriod(ctx context.Context, p Period) (Period, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (tenant_id, month_key, period_start, period_end, status)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (tenant_id, month_key) DO UPDATE SET updated_at=NOW()
RETURNING id, status, created_at, updated_at`, p.TenantID, p.MonthKey, p.PeriodStart, p.PeriodEnd, p.Status).
		Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) GetTransactionSet(ctx context.Context, tenantID, id uuid.UUID) (TransactionSet, error) {
	var s TransactionSet
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, status, source, business_date, notes, created_at, updated_at
FROM transaction_sets WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id).
		Scan(&s.ID, &s.TenantID, &s.Status, &s.Source, &s.BusinessDate, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionSet{}, ErrSetNotFound
		}
		return TransactionSet{}, err
	}
	return s, nil
}

func (r *txRepository) UpdateTransactionSetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to SetStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE transaction_sets SET status=$4, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status=$3`, tenantID, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (r *txRepository) GetPostingIntent(ctx context.Context, tenantID, setID uuid.UUID) (PostingIntent, error) {
	var intent PostingIntent
	err := r.tx.QueryRow(ctx, `SELECT i.transaction_set_id, i.posting_date, i.memo
FROM posting_intents i
JOIN transaction_sets s ON s.id = i.transaction_set_id
WHERE s.tenant_id=$1 AND i.transaction_set_id=$2`, tenantID, setID).
		Scan(&intent.TransactionSetID, &intent.PostingDate, &intent.Memo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostingIntent{}, ErrIntentNotFound
		}
		return PostingIntent{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT account_code, account_id, debit, credit, description
FROM posting_intent_lines WHERE transaction_set_id=$1 ORDER BY line_no ASC`, setID)
	if err != nil {
		return PostingIntent{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line IntentLine
		var accountID *int64
		if err := rows.Scan(&line.AccountCode, &accountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return PostingIntent{}, err
		}
		if accountID != nil {
			line.AccountID = *accountID
		}
		intent.Lines = append(intent.Lines, line)
	}
	return intent, rows.Err()
}

func (r *txRepository) CountPendingApprovals(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM approvals
WHERE tenant_id=$1 AND entity_type=$2 AND entity_id=$3 AND status='pending'`, tenantID, entityType, entityID).Scan(&count)
	return count, err
}

func (r *txRepository) ListUnresolvedIssues(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]ValidationIssue, error) {
	rows, err := r.tx.Query(ctx, `SELECT v.id, v.tenant_id, v.entity_type, v.entity_id, v.code, v.severity, v.message, v.open
FROM validation_issues v
WHERE v.tenant_id=$1 AND v.entity_type=$2 AND v.entity_id=$3 AND v.open AND v.severity='error'
AND NOT EXISTS (SELECT 1 FROM validation_overrides o WHERE o.issue_id = v.id)
ORDER BY v.id ASC`, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var issues []ValidationIssue
	for rows.Next() {
		var issue ValidationIssue
		if err := rows.Scan(&issue.ID, &issue.TenantID, &issue.EntityType, &issue.EntityID, &issue.Code, &issue.Severity, &issue.Message, &issue.Open); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (r *txRepository) HasEvidence(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM document_links
WHERE tenant_id=$1 AND entity_type=$2 AND entity_id=$3)`, tenantID, entityType, entityID).Scan(&exists)
	return exists, err
}

func (r *txRepository) HasEntityOverride(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entity_overrides
WHERE tenant_id=$1 AND entity_type=$2 AND entity_id=$3)`, tenantID, entityType, entityID).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, posting_date, memo, source_transaction_set_id, posted_by)
VALUES ($1,$2,$3,$4,$5) RETURNING id, posted_at`,
		entry.TenantID, entry.PostingDate, entry.Memo, entry.SourceTransactionSetID, entry.PostedBy).
		Scan(&entry.ID, &entry.PostedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (journal_entry_id, line_no, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, line.LineNo, line.AccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetJournalEntry(ctx context.Context, tenantID uuid.UUID, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, posting_date, memo, source_transaction_set_id, posted_by, posted_at
FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&entry.ID, &entry.TenantID, &entry.PostingDate, &entry.Memo, &entry.SourceTransactionSetID, &entry.PostedBy, &entry.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) GetJournalLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, journal_entry_id, line_no, account_id, debit, credit, description
FROM journal_lines WHERE journal_entry_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalEntryID, &line.LineNo, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) GetReversalLink(ctx context.Context, tenantID uuid.UUID, originalEntryID int64) (ReversalLink, bool, error) {
	var link ReversalLink
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, original_journal_entry_id, reversal_journal_entry_id, reason, created_at
FROM reversal_links WHERE tenant_id=$1 AND original_journal_entry_id=$2`, tenantID, originalEntryID).
		Scan(&link.ID, &link.TenantID, &link.OriginalJournalEntryID, &link.ReversalJournalEntryID, &link.Reason, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReversalLink{}, false, nil
		}
		return ReversalLink{}, false, err
	}
	return link, true, nil
}

func (r *txRepository) InsertReversalLink(ctx context.Context, link ReversalLink) (ReversalLink, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO reversal_links (tenant_id, original_journal_entry_id, reversal_journal_entry_id, reason)
VALUES ($1,$2,$3,$4) RETURNING id, created_at`,
		link.TenantID, link.OriginalJournalEntryID, link.ReversalJournalEntryID, link.Reason).
		Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ReversalLink{}, ErrReversalConflict
		}
		return ReversalLink{}, err
	}
	return link, nil
}

func (r *txRepository) MarkRunSucceeded(ctx context.Context, runID, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE posting_runs SET status='succeeded', journal_entry_id=$2, updated_at=NOW()
WHERE id=$1 AND status='started'`, runID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRunConflict
	}
	return nil
}

func (r *txRepository) GetPostingLink(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID) (PostingLink, bool, error) {
	var link PostingLink
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, doc_kind, doc_id, journal_entry_id, transaction_set_id, created_at
FROM posting_links WHERE tenant_id=$1 AND doc_kind=$2 AND doc_id=$3`, tenantID, kind, docID).
		Scan(&link.ID, &link.TenantID, &link.DocKind, &link.DocID, &link.JournalEntryID, &link.TransactionSetID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostingLink{}, false, nil
		}
		return PostingLink{}, false, err
	}
	return link, true, nil
}

func (r *txRepository) InsertPostingLink(ctx context.Context, link PostingLink) (PostingLink, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO posting_links (tenant_id, doc_kind, doc_id, journal_entry_id, transaction_set_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		link.TenantID, link.DocKind, link.DocID, link.JournalEntryID, link.TransactionSetID).
		Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return PostingLink{}, ErrLinkConflict
		}
		return PostingLink{}, err
	}
	return link, nil
}

func (r *txRepository) GetSalesInvoice(ctx context.Context, tenantID, id uuid.UUID) (SalesInvoice, error) {
	var inv SalesInvoice
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, number, status, invoice_date, total
FROM sales_invoices WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id).
		Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.Status, &inv.InvoiceDate, &inv.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesInvoice{}, ErrDocNotFound
		}
		return SalesInvoice{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.item_id, l.description, l.qty, l.unit_price, l.amount, l.shipped,
m.unit_cost, it.default_purchase_cost
FROM sales_invoice_lines l
LEFT JOIN inventory_movements m ON m.sales_invoice_line_id = l.id
LEFT JOIN items it ON it.id = l.item_id
WHERE l.sales_invoice_id=$1 ORDER BY l.id ASC`, id)
	if err != nil {
		return SalesInvoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SalesInvoiceLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Description, &line.Quantity, &line.UnitPrice, &line.Amount,
			&line.Shipped, &line.MovementUnitCost, &line.DefaultUnitCost); err != nil {
			return SalesInvoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *txRepository) GetPurchaseInvoice(ctx context.Context, tenantID, id uuid.UUID) (PurchaseInvoice, error) {
	var inv PurchaseInvoice
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, number, status, invoice_date, total
FROM purchase_invoices WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id).
		Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.Status, &inv.InvoiceDate, &inv.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseInvoice{}, ErrDocNotFound
		}
		return PurchaseInvoice{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.item_id, l.description, l.qty, l.unit_price, l.amount,
COALESCE(it.inventory_tracked, FALSE)
FROM purchase_invoice_lines l
LEFT JOIN items it ON it.id = l.item_id
WHERE l.purchase_invoice_id=$1 ORDER BY l.id ASC`, id)
	if err != nil {
		return PurchaseInvoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line PurchaseInvoiceLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Description, &line.Quantity, &line.UnitPrice, &line.Amount, &line.InventoryTracked); err != nil {
			return PurchaseInvoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *txRepository) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (Payment, error) {
	var pay Payment
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, number, kind, status, payment_date, method, cash_account_code
FROM payments WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, id).
		Scan(&pay.ID, &pay.TenantID, &pay.Number, &pay.Kind, &pay.Status, &pay.PaymentDate, &pay.Method, &pay.CashAccountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrDocNotFound
		}
		return Payment{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, payment_id, doc_id, amount
FROM payment_allocations WHERE payment_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var alloc PaymentAllocation
		if err := rows.Scan(&alloc.ID, &alloc.PaymentID, &alloc.DocID, &alloc.Amount); err != nil {
			return Payment{}, err
		}
		pay.Allocations = append(pay.Allocations, alloc)
	}
	return pay, rows.Err()
}

func (r *txRepository) UpdateDocStatus(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID, status DocStatus) error {
	table, ok := docTables[kind]
	if !ok {
		return ErrDocNotFound
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE `+table+` SET status=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, docID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDocNotFound
	}
	return nil
}

func (r *txRepository) ZeroPaymentAllocation(ctx context.Context, tenantID, paymentID uuid.UUID, allocationID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE payment_allocations a SET amount=$4
FROM payments p
WHERE a.id=$3 AND a.payment_id=$2 AND p.id=a.payment_id AND p.tenant_id=$1`,
		tenantID, paymentID, allocationID, decimal.Zero)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDocNotFound
	}
	return nil
}

var docTables = map[DocKind]string{
	DocKindSalesInvoice:    "sales_invoices",
	DocKindPurchaseInvoice: "purchase_invoices",
	DocKindPayment:         "payments",
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
