package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// PostPurchaseInvoice classifies each line by whether its item is
// inventory-tracked (Dr Inventory) or a service (Dr Expense), and credits AP
// for the document total. A bucket with an amount but no configured account
// code fails loudly; value is never dropped.
func (s *Service) PostPurchaseInvoice(ctx context.Context, tenantID uuid.UUID, actorID int64, invoiceID uuid.UUID, opts PostOptions) (PostResult, error) {
	accounts := s.defaults.merge(opts.Accounts)

	var (
		entry      JournalEntry
		cached     PostingLink
		cachedHit  bool
		softPeriod *Period
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		link, found, err := tx.GetPostingLink(ctx, tenantID, DocKindPurchaseInvoice, invoiceID)
		if err != nil {
			return err
		}
		if found {
			cached = link
			cachedHit = true
			return nil
		}

		inv, err := tx.GetPurchaseInvoice(ctx, tenantID, invoiceID)
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

		var inventoryTotal, expenseTotal decimal.Decimal
		for _, line := range inv.Lines {
			if line.InventoryTracked {
				inventoryTotal = inventoryTotal.Add(line.Amount)
			} else {
				expenseTotal = expenseTotal.Add(line.Amount)
			}
		}

		var lines []IntentLine
		if !inventoryTotal.IsZero() {
			if accounts.Inventory == "" {
				return fmt.Errorf("%w: inventory amount %s on invoice %s",
					ErrAccountNotConfigured, inventoryTotal.String(), inv.Number)
			}
			lines = append(lines, debitLine(accounts.Inventory, inventoryTotal, "Inventory invoice "+inv.Number))
		}
		if !expenseTotal.IsZero() {
			if accounts.Expense == "" {
				return fmt.Errorf("%w: expense amount %s on invoice %s",
					ErrAccountNotConfigured, expenseTotal.String(), inv.Number)
			}
			lines = append(lines, debitLine(accounts.Expense, expenseTotal, "Expense invoice "+inv.Number))
		}
		lines = append(lines, creditLine(accounts.AP, inv.Total, "Invoice "+inv.Number))

		memo := opts.Memo
		if memo == "" {
			memo = fmt.Sprintf("Purchase invoice %s", inv.Number)
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
			DocKind:        DocKindPurchaseInvoice,
			DocID:          invoiceID,
			JournalEntryID: entry.ID,
		}); err != nil {
			return err
		}
		return tx.UpdateDocStatus(ctx, tenantID, DocKindPurchaseInvoice, invoiceID, DocStatusPosted)
	})
	if err != nil {
		if errors.Is(err, ErrLinkConflict) {
			return s.cachedDocResult(ctx, tenantID, DocKindPurchaseInvoice, invoiceID, "purchase_invoice")
		}
		s.observePosting("purchase_invoice", "rejected")
		return PostResult{}, err
	}
	if cachedHit {
		s.observePosting("purchase_invoice", "idempotent")
		return PostResult{JournalEntryID: cached.JournalEntryID, Idempotent: true}, nil
	}

	s.emitSoftPeriodWarning(ctx, tenantID, actorID, softPeriod, "purchase_invoice", invoiceID, entry.ID)
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"purchase_invoice_id": invoiceID.String()},
	})
	s.observePosting("purchase_invoice", "posted")
	return PostResult{JournalEntryID: entry.ID}, nil
}
