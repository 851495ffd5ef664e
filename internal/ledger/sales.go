package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// PostSalesInvoice posts Dr AR / Cr Revenue for the invoice total, plus
// Dr COGS / Cr Inventory for the aggregated cost of the shipped lines. The
// posting link on the invoice is the idempotency key: a second invocation
// returns the original entry.
func (s *Service) PostSalesInvoice(ctx context.Context, tenantID uuid.UUID, actorID int64, invoiceID uuid.UUID, opts PostOptions) (PostResult, error) {
	accounts := s.defaults.merge(opts.Accounts)

	var (
		entry      JournalEntry
		cached     PostingLink
		cachedHit  bool
		softPeriod *Period
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		link, found, err := tx.GetPostingLink(ctx, tenantID, DocKindSalesInvoice, invoiceID)
		if err != nil {
			return err
		}
		if found {
			cached = link
			cachedHit = true
			return nil
		}

		inv, err := tx.GetSalesInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == DocStatusVoid {
			return ErrDocVoided
		}

		postingDate := resolvePostingDate(opts.PostingDate, inv.InvoiceDate, s.now)
		decision, period, err := evaluatePeriod(ctx, tx, tenantID, postingDate)
		if err != nil {
			s.observeGateRejection("period")
			return err
		}
		if decision == PeriodAllowWithWarning {
			softPeriod = &period
		}

		lines := []IntentLine{
			debitLine(accounts.AR, inv.Total, "Invoice "+inv.Number),
			creditLine(accounts.Revenue, inv.Total, "Invoice "+inv.Number),
		}
		cost := shippedCost(inv.Lines)
		if !cost.IsZero() {
			lines = append(lines,
				debitLine(accounts.COGS, cost, "COGS invoice "+inv.Number),
				creditLine(accounts.Inventory, cost, "COGS invoice "+inv.Number),
			)
		}

		memo := opts.Memo
		if memo == "" {
			memo = fmt.Sprintf("Sales invoice %s", inv.Number)
		}
		entry, err = buildEntry(ctx, tx, buildInput{
			TenantID:    tenantID,
			PostingDate: postingDate,
			Memo:        memo,
			Actor:       actorID,
			Lines:       lines,
		})
		if err != nil {
			return err
		}

		if _, err := tx.InsertPostingLink(ctx, PostingLink{
			TenantID:       tenantID,
			DocKind:        DocKindSalesInvoice,
			DocID:          invoiceID,
			JournalEntryID: entry.ID,
		}); err != nil {
			return err
		}
		return tx.UpdateDocStatus(ctx, tenantID, DocKindSalesInvoice, invoiceID, DocStatusPosted)
	})
	if err != nil {
		if errors.Is(err, ErrLinkConflict) {
			return s.cachedDocResult(ctx, tenantID, DocKindSalesInvoice, invoiceID, "sales_invoice")
		}
		s.observePosting("sales_invoice", "rejected")
		return PostResult{}, err
	}
	if cachedHit {
		s.observePosting("sales_invoice", "idempotent")
		return PostResult{JournalEntryID: cached.JournalEntryID, Idempotent: true}, nil
	}

	s.emitSoftPeriodWarning(ctx, tenantID, actorID, softPeriod, "sales_invoice", invoiceID, entry.ID)
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"sales_invoice_id": invoiceID.String()},
	})
	s.observePosting("sales_invoice", "posted")
	return PostResult{JournalEntryID: entry.ID}, nil
}

// shippedCost aggregates unit cost for shipped lines, preferring the recorded
// movement cost, falling back to the item's default purchase cost, and
// skipping lines where neither is known.
func shippedCost(lines []SalesInvoiceLine) decimal.Decimal {
	var total decimal.Decimal
	for _, line := range lines {
		if !line.Shipped {
			continue
		}
		var unit decimal.Decimal
		switch {
		case line.MovementUnitCost != nil:
			unit = *line.MovementUnitCost
		case line.DefaultUnitCost != nil:
			unit = *line.DefaultUnitCost
		default:
			continue
		}
		total = total.Add(line.Quantity.Mul(unit))
	}
	return total
}

// resolvePostingDate prefers the caller-supplied date, then the document
// date, then today.
func resolvePostingDate(override *time.Time, docDate time.Time, now func() time.Time) time.Time {
	if override != nil {
		return *override
	}
	if !docDate.IsZero() {
		return docDate
	}
	return now().UTC().Truncate(24 * time.Hour)
}

// cachedDocResult resolves an idempotent adapter result after losing the
// posting-link uniqueness race: the winner's link carries the entry id.
func (s *Service) cachedDocResult(ctx context.Context, tenantID uuid.UUID, kind DocKind, docID uuid.UUID, path string) (PostResult, error) {
	var link PostingLink
	var found bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		link, found, err = tx.GetPostingLink(ctx, tenantID, kind, docID)
		return err
	})
	if err != nil {
		return PostResult{}, err
	}
	if !found {
		return PostResult{}, ErrPostingInProgress
	}
	s.observePosting(path, "idempotent")
	return PostResult{JournalEntryID: link.JournalEntryID, Idempotent: true}, nil
}

func (s *Service) emitSoftPeriodWarning(ctx context.Context, tenantID uuid.UUID, actorID int64, period *Period, entityType string, entityID uuid.UUID, entryID int64) {
	if period == nil {
		return
	}
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "period.soft_closed_posting",
		Entity:   entityType,
		EntityID: entityID.String(),
		Meta: map[string]any{
			"month_key":        period.MonthKey,
			"journal_entry_id": entryID,
		},
	})
}
