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

// PostPayment posts a payment for the sum of its allocation amounts. Receipts
// debit cash/bank and credit AR; outbound payments debit AP and credit
// cash/bank. The cash/bank account code comes from the payment record itself
// and depends on the method; the configured defaults are only a fallback.
func (s *Service) PostPayment(ctx context.Context, tenantID uuid.UUID, actorID int64, paymentID uuid.UUID, opts PostOptions) (PostResult, error) {
	accounts := s.defaults.merge(opts.Accounts)

	var (
		entry      JournalEntry
		cached     PostingLink
		cachedHit  bool
		softPeriod *Period
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		link, found, err := tx.GetPostingLink(ctx, tenantID, DocKindPayment, paymentID)
		if err != nil {
			return err
		}
		if found {
			cached = link
			cachedHit = true
			return nil
		}

		pay, err := tx.GetPayment(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if pay.Status == DocStatusVoid {
			return ErrDocVoided
		}

		amount := allocationTotal(pay.Allocations)
		if amount.IsZero() {
			return ErrNoAllocations
		}

		cashCode := pay.CashAccountCode
		if cashCode == "" {
			if pay.Method == "cash" {
				cashCode = accounts.Cash
			} else {
				cashCode = accounts.Bank
			}
		}

		postingDate := resolvePostingDate(opts.PostingDate, pay.PaymentDate, s.now)
		decision, period, err := evaluatePeriod(ctx, tx, tenantID, postingDate)
		if err != nil {
			s.observeGateRejection("period")
			return err
		}
		if decision == PeriodAllowWithWarning {
			softPeriod = &period
		}

		var lines []IntentLine
		switch pay.Kind {
		case PaymentKindReceipt:
			lines = []IntentLine{
				debitLine(cashCode, amount, "Receipt "+pay.Number),
				creditLine(accounts.AR, amount, "Receipt "+pay.Number),
			}
		case PaymentKindPayment:
			lines = []IntentLine{
				debitLine(accounts.AP, amount, "Payment "+pay.Number),
				creditLine(cashCode, amount, "Payment "+pay.Number),
			}
		default:
			return fmt.Errorf("%w: unknown payment kind %q", ErrDocNotPostable, pay.Kind)
		}

		memo := opts.Memo
		if memo == "" {
			memo = fmt.Sprintf("Payment %s", pay.Number)
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
			DocKind:        DocKindPayment,
			DocID:          paymentID,
			JournalEntryID: entry.ID,
		}); err != nil {
			return err
		}
		return tx.UpdateDocStatus(ctx, tenantID, DocKindPayment, paymentID, DocStatusPosted)
	})
	if err != nil {
		if errors.Is(err, ErrLinkConflict) {
			return s.cachedDocResult(ctx, tenantID, DocKindPayment, paymentID, "payment")
		}
		s.observePosting("payment", "rejected")
		return PostResult{}, err
	}
	if cachedHit {
		s.observePosting("payment", "idempotent")
		return PostResult{JournalEntryID: cached.JournalEntryID, Idempotent: true}, nil
	}

	s.emitSoftPeriodWarning(ctx, tenantID, actorID, softPeriod, "payment", paymentID, entry.ID)
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"payment_id": paymentID.String()},
	})
	s.observePosting("payment", "posted")
	return PostResult{JournalEntryID: entry.ID}, nil
}

// ZeroPaymentAllocation sets one allocation amount to zero. Allocation rows
// are never deleted; zeroing keeps the audit trail reconstructable and is the
// required precursor to voiding a posted payment.
func (s *Service) ZeroPaymentAllocation(ctx context.Context, tenantID uuid.UUID, actorID int64, paymentID uuid.UUID, allocationID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPayment(ctx, tenantID, paymentID); err != nil {
			return err
		}
		return tx.ZeroPaymentAllocation(ctx, tenantID, paymentID, allocationID)
	})
	if err != nil {
		return err
	}
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "payment.allocation_zeroed",
		Entity:   "payment",
		EntityID: paymentID.String(),
		Meta:     map[string]any{"allocation_id": allocationID},
	})
	return nil
}

func allocationTotal(allocations []PaymentAllocation) decimal.Decimal {
	var total decimal.Decimal
	for _, alloc := range allocations {
		total = total.Add(alloc.Amount)
	}
	return total
}
