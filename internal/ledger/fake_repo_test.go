package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// memRepo is an in-memory Repository with the same semantics as the pgx
// implementation: run claims are visible immediately, WithTx rolls the working
// state back when the callback errors, and the uniqueness rules surface the
// same sentinel conflicts.
type memRepo struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	accounts   map[int64]Account
	accountSeq int64

	periods   map[string]Period
	periodSeq int64

	sets    map[uuid.UUID]TransactionSet
	intents map[uuid.UUID]PostingIntent

	runs    map[string]PostingRun
	runSeq  int64
	history []RunHistory

	pendingApprovals map[string]int
	issues           map[string][]ValidationIssue
	evidence         map[string]bool
	entityOverrides  map[string]bool

	entries  map[int64]JournalEntry
	entrySeq int64
	lines    map[int64][]JournalLine
	lineSeq  int64

	reversals   map[string]ReversalLink
	reversalSeq int64

	links   map[string]PostingLink
	linkSeq int64

	salesInvoices    map[uuid.UUID]SalesInvoice
	purchaseInvoices map[uuid.UUID]PurchaseInvoice
	payments         map[uuid.UUID]Payment
}

func newMemRepo() *memRepo {
	return &memRepo{st: &memState{
		accounts:         map[int64]Account{},
		periods:          map[string]Period{},
		sets:             map[uuid.UUID]TransactionSet{},
		intents:          map[uuid.UUID]PostingIntent{},
		runs:             map[string]PostingRun{},
		pendingApprovals: map[string]int{},
		issues:           map[string][]ValidationIssue{},
		evidence:         map[string]bool{},
		entityOverrides:  map[string]bool{},
		entries:          map[int64]JournalEntry{},
		lines:            map[int64][]JournalLine{},
		reversals:        map[string]ReversalLink{},
		links:            map[string]PostingLink{},
		salesInvoices:    map[uuid.UUID]SalesInvoice{},
		purchaseInvoices: map[uuid.UUID]PurchaseInvoice{},
		payments:         map[uuid.UUID]Payment{},
	}}
}

func runKey(tenantID, setID uuid.UUID) string {
	return tenantID.String() + "|" + setID.String()
}

func entityKey(tenantID uuid.UUID, entityType string, entityID uuid.UUID) string {
	return tenantID.String() + "|" + entityType + "|" + entityID.String()
}

func linkKey(tenantID uuid.UUID, kind DocKind, docID uuid.UUID) string {
	return tenantID.String() + "|" + string(kind) + "|" + docID.String()
}

func reversalKey(tenantID uuid.UUID, entryID int64) string {
	return fmt.Sprintf("%s|%d", tenantID, entryID)
}

func periodKey(tenantID uuid.UUID, monthKey string) string {
	return tenantID.String() + "|" + monthKey
}

func (r *memRepo) FindRun(ctx context.Context, tenantID, setID uuid.UUID) (PostingRun, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.st.runs[runKey(tenantID, setID)]
	return run, ok, nil
}

func (r *memRepo) InsertRun(ctx context.Context, run PostingRun) (PostingRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := runKey(run.TenantID, run.TransactionSetID)
	if existing, ok := r.st.runs[key]; ok &&
		(existing.Status == RunStatusStarted || existing.Status == RunStatusSucceeded) {
		return PostingRun{}, ErrRunConflict
	}
	r.st.runSeq++
	run.ID = r.st.runSeq
	run.StartedAt = time.Now()
	run.UpdatedAt = run.StartedAt
	r.st.runs[key] = run
	return run, nil
}

func (r *memRepo) DeleteRun(ctx context.Context, tenantID, setID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.st.runs, runKey(tenantID, setID))
	return nil
}

func (r *memRepo) AppendRunHistory(ctx context.Context, rec RunHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = int64(len(r.st.history) + 1)
	rec.RecordedAt = time.Now()
	r.st.history = append(r.st.history, rec)
	return nil
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.st.clone()
	if err := fn(ctx, &memTx{st: r.st}); err != nil {
		r.st = snapshot
		return err
	}
	return nil
}

func (s *memState) clone() *memState {
	out := &memState{
		accounts:         map[int64]Account{},
		accountSeq:       s.accountSeq,
		periods:          map[string]Period{},
		periodSeq:        s.periodSeq,
		sets:             map[uuid.UUID]TransactionSet{},
		intents:          map[uuid.UUID]PostingIntent{},
		runs:             map[string]PostingRun{},
		runSeq:           s.runSeq,
		history:          append([]RunHistory(nil), s.history...),
		pendingApprovals: map[string]int{},
		issues:           map[string][]ValidationIssue{},
		evidence:         map[string]bool{},
		entityOverrides:  map[string]bool{},
		entries:          map[int64]JournalEntry{},
		entrySeq:         s.entrySeq,
		lines:            map[int64][]JournalLine{},
		lineSeq:          s.lineSeq,
		reversals:        map[string]ReversalLink{},
		reversalSeq:      s.reversalSeq,
		links:            map[string]PostingLink{},
		linkSeq:          s.linkSeq,
		salesInvoices:    map[uuid.UUID]SalesInvoice{},
		purchaseInvoices: map[uuid.UUID]PurchaseInvoice{},
		payments:         map[uuid.UUID]Payment{},
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	for k, v := range s.sets {
		out.sets[k] = v
	}
	for k, v := range s.intents {
		v.Lines = append([]IntentLine(nil), v.Lines...)
		out.intents[k] = v
	}
	for k, v := range s.runs {
		out.runs[k] = v
	}
	for k, v := range s.pendingApprovals {
		out.pendingApprovals[k] = v
	}
	for k, v := range s.issues {
		out.issues[k] = append([]ValidationIssue(nil), v...)
	}
	for k, v := range s.evidence {
		out.evidence[k] = v
	}
	for k, v := range s.entityOverrides {
		out.entityOverrides[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]JournalLine(nil), v...)
	}
	for k, v := range s.reversals {
		out.reversals[k] = v
	}
	for k, v := range s.links {
		out.links[k] = v
	}
	for k, v := range s.salesInvoices {
		v.Lines = append([]SalesInvoiceLine(nil), v.Lines...)
		out.salesInvoices[k] = v
	}
	for k, v := range s.purchaseInvoices {
		v.Lines = append([]PurchaseInvoiceLine(nil), v.Lines...)
		out.purchaseInvoices[k] = v
	}
	for k, v := range s.payments {
		v.Allocations = append([]PaymentAllocation(nil), v.Allocations...)
		out.payments[k] = v
	}
	return out
}

type memTx struct {
	st *memState
}

func (t *memTx) GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	for _, a := range t.st.accounts {
		if a.TenantID == tenantID && a.Code == code {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (t *memTx) GetAccountByID(ctx context.Context, tenantID uuid.UUID, id int64) (Account, error) {
	a, ok := t.st.accounts[id]
	if !ok || a.TenantID != tenantID {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (t *memTx) GetPeriod(ctx context.Context, tenantID uuid.UUID, monthKey string) (Period, bool, error) {
	p, ok := t.st.periods[periodKey(tenantID, monthKey)]
	return p, ok, nil
}

func (t *memTx) CreatePeriod(ctx context.Context, p Period) (Period, error) {
	key := periodKey(p.TenantID, p.MonthKey)
	if existing, ok := t.st.periods[key]; ok {
		return existing, nil
	}
	t.st.periodSeq++
	p.ID = t.st.periodSeq
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	t.st.periods[key] = p
	return p, nil
}

func (t *memTx) GetTransactionSet(ctx context.Context, tenantID, id uuid.UUID) (TransactionSet, error) {
	s, ok := t.st.sets[id]
	if !ok || s.TenantID != tenantID {
		return TransactionSet{}, ErrSetNotFound
	}
	return s, nil
}

func (t *memTx) UpdateTransactionSetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to SetStatus) error {
	s, ok := t.st.sets[id]
	if !ok || s.TenantID != tenantID || s.Status != from {
		return ErrSetNotFound
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	t.st.sets[id] = s
	return nil
}

func (t *memTx) GetPostingIntent(ctx context.Context, tenantID, setID uuid.UUID) (PostingIntent, error) {
	set, ok := t.st.sets[setID]
	if !ok || set.TenantID != tenantID {
		return PostingIntent{}, ErrIntentNotFound
	}
	intent, ok := t.st.intents[setID]
	if !ok {
		return PostingIntent{}, ErrIntentNotFound
	}
	return intent, nil
}

func (t *memTx) CountPendingApprovals(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (int, error) {
	return t.st.pendingApprovals[entityKey(tenantID, entityType, entityID)], nil
}

func (t *memTx) ListUnresolvedIssues(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]ValidationIssue, error) {
	var out []ValidationIssue
	for _, issue := range t.st.issues[entityKey(tenantID, entityType, entityID)] {
		if issue.Open && issue.Severity == SeverityError && !issue.Overridden {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (t *memTx) HasEvidence(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	return t.st.evidence[entityKey(tenantID, entityType, entityID)], nil
}

func (t *memTx) HasEntityOverride(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) (bool, error) {
	return t.st.entityOverrides[entityKey(tenantID, entityType, entityID)], nil
}

func (t *memTx) InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	t.st.entrySeq++
	entry.ID = t.st.entrySeq
	entry.PostedAt = time.Now()
	entry.Lines = nil
	t.st.entries[entry.ID] = entry
	return entry, nil
}

func (t *memTx) InsertJournalLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		t.st.lineSeq++
		line.ID = t.st.lineSeq
		line.JournalEntryID = entryID
		t.st.lines[entryID] = append(t.st.lines[entryID], line)
	}
	return nil
}

func (t *memTx) GetJournalEntry(ctx context.Context, tenantID uuid.UUID, id int64) (JournalEntry, error) {
	entry, ok := t.st.entries[id]
	if !ok || entry.TenantID != tenantID {
		return JournalEntry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (t *memTx) GetJournalLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return append([]JournalLine(nil), t.st.lines[entryID]...), nil
}

func (t *memTx) GetReversalLink(ctx context.Context, tenantID uuid.UUID, originalEntryID int64) (ReversalLink, bool, error) {
	link, ok := t.st.reversals[reversalKey(tenantID, originalEntryID)]
	return link, ok, nil
}

func (t *memTx) InsertReversalLink(ctx context.Context, link ReversalLink) (ReversalLink, error) {
	key := reversalKey(link.TenantID, link.OriginalJournalEntryID)
	if _, ok := t.st.reversals[key]; ok {
		return ReversalLink{}, ErrReversalConflict
	}
	t.st.reversalSeq++
	link.ID = t.st.reversalSeq
	link.CreatedAt = time.Now()
	t.st.reversals[key] = link
	return link, nil
}

func (t *memTx) MarkRunSucceeded(ctx context.Context, runID, entryID int64) error {
	for key, run := range t.st.runs {
		if run.ID == runID {
			if run.Status != RunStatusStarted {
				return ErrRunConflict
			}
			run.Status = RunStatusSucceeded
			run.JournalEntryID = &entryID
			run.UpdatedAt = time.Now()
			t.st.runs[key] = run
			return nil
		}
	}
	return ErrRunConflict
}

func (t *memTx) GetPostingLink(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID) (PostingLink, bool, error) {
	link, ok := t.st.links[linkKey(tenantID, kind, docID)]
	return link, ok, nil
}

func (t *memTx) InsertPostingLink(ctx context.Context, link PostingLink) (PostingLink, error) {
	key := linkKey(link.TenantID, link.DocKind, link.DocID)
	if _, ok := t.st.links[key]; ok {
		return PostingLink{}, ErrLinkConflict
	}
	t.st.linkSeq++
	link.ID = t.st.linkSeq
	link.CreatedAt = time.Now()
	t.st.links[key] = link
	return link, nil
}

func (t *memTx) GetSalesInvoice(ctx context.Context, tenantID, id uuid.UUID) (SalesInvoice, error) {
	inv, ok := t.st.salesInvoices[id]
	if !ok || inv.TenantID != tenantID {
		return SalesInvoice{}, ErrDocNotFound
	}
	return inv, nil
}

func (t *memTx) GetPurchaseInvoice(ctx context.Context, tenantID, id uuid.UUID) (PurchaseInvoice, error) {
	inv, ok := t.st.purchaseInvoices[id]
	if !ok || inv.TenantID != tenantID {
		return PurchaseInvoice{}, ErrDocNotFound
	}
	return inv, nil
}

func (t *memTx) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (Payment, error) {
	pay, ok := t.st.payments[id]
	if !ok || pay.TenantID != tenantID {
		return Payment{}, ErrDocNotFound
	}
	return pay, nil
}

func (t *memTx) UpdateDocStatus(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID, status DocStatus) error {
	switch kind {
	case DocKindSalesInvoice:
		inv, ok := t.st.salesInvoices[docID]
		if !ok || inv.TenantID != tenantID {
			return ErrDocNotFound
		}
		inv.Status = status
		t.st.salesInvoices[docID] = inv
	case DocKindPurchaseInvoice:
		inv, ok := t.st.purchaseInvoices[docID]
		if !ok || inv.TenantID != tenantID {
			return ErrDocNotFound
		}
		inv.Status = status
		t.st.purchaseInvoices[docID] = inv
	case DocKindPayment:
		pay, ok := t.st.payments[docID]
		if !ok || pay.TenantID != tenantID {
			return ErrDocNotFound
		}
		pay.Status = status
		t.st.payments[docID] = pay
	default:
		return ErrDocNotFound
	}
	return nil
}

func (t *memTx) ZeroPaymentAllocation(ctx context.Context, tenantID, paymentID uuid.UUID, allocationID int64) error {
	pay, ok := t.st.payments[paymentID]
	if !ok || pay.TenantID != tenantID {
		return ErrDocNotFound
	}
	for i := range pay.Allocations {
		if pay.Allocations[i].ID == allocationID {
			pay.Allocations[i].Amount = decimal.Zero
			t.st.payments[paymentID] = pay
			return nil
		}
	}
	return ErrDocNotFound
}

// captureAudit records emitted audit events for assertions.
type captureAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (c *captureAudit) Record(ctx context.Context, log shared.AuditLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
	return nil
}

func (c *captureAudit) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.logs))
	for _, log := range c.logs {
		out = append(out, log.Action)
	}
	return out
}

func (c *captureAudit) has(action string) bool {
	for _, a := range c.actions() {
		if a == action {
			return true
		}
	}
	return false
}
