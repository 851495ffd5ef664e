package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

const reversalPrefix = "REVERSAL: "

// ReverseJournalEntry inverts a posted entry into a new entry with every
// line's debit/credit swapped and amounts preserved, linked for traceability.
// A second invocation returns the existing reversal. Historical rows are
// never mutated.
func (s *Service) ReverseJournalEntry(ctx context.Context, tenantID uuid.UUID, actorID int64, entryID int64, reason string, at *time.Time) (ReverseResult, error) {
	date := s.now().UTC().Truncate(24 * time.Hour)
	if at != nil {
		date = *at
	}

	var (
		link     ReversalLink
		existing bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		link, existing, err = s.reverseEntryTx(ctx, tx, tenantID, actorID, entryID, reason, date)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrReversalConflict) {
			// A concurrent caller created the reversal first; return theirs.
			return s.cachedReversal(ctx, tenantID, entryID)
		}
		s.observeReversal("rejected")
		return ReverseResult{}, err
	}
	if existing {
		s.observeReversal("idempotent")
		return ReverseResult{ReversalJournalEntryID: link.ReversalJournalEntryID, Idempotent: true}, nil
	}

	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "journal.reverse",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entryID, 10),
		Meta: map[string]any{
			"reversal_journal_entry_id": link.ReversalJournalEntryID,
			"reason":                    reason,
		},
	})
	s.observeReversal("reversed")
	return ReverseResult{ReversalJournalEntryID: link.ReversalJournalEntryID}, nil
}

// reverseEntryTx is the shared in-transaction reversal path. It returns the
// link and whether it already existed.
func (s *Service) reverseEntryTx(ctx context.Context, tx TxRepository, tenantID uuid.UUID, actorID, entryID int64, reason string, date time.Time) (ReversalLink, bool, error) {
	link, found, err := tx.GetReversalLink(ctx, tenantID, entryID)
	if err != nil {
		return ReversalLink{}, false, err
	}
	if found {
		return link, true, nil
	}

	original, err := tx.GetJournalEntry(ctx, tenantID, entryID)
	if err != nil {
		return ReversalLink{}, false, err
	}
	originalLines, err := tx.GetJournalLines(ctx, entryID)
	if err != nil {
		return ReversalLink{}, false, err
	}
	if len(originalLines) == 0 {
		return ReversalLink{}, false, fmt.Errorf("%w: entry %d has no lines", ErrEntryNotFound, entryID)
	}

	memo := fmt.Sprintf("Reversal of journal entry %d", original.ID)
	if reason != "" {
		memo = fmt.Sprintf("%s: %s", memo, reason)
	}
	reversal, err := buildEntry(ctx, tx, buildInput{
		TenantID:    tenantID,
		PostingDate: date,
		Memo:        memo,
		Actor:       actorID,
		Lines:       swapLines(originalLines),
	})
	if err != nil {
		return ReversalLink{}, false, err
	}

	link, err = tx.InsertReversalLink(ctx, ReversalLink{
		TenantID:               tenantID,
		OriginalJournalEntryID: original.ID,
		ReversalJournalEntryID: reversal.ID,
		Reason:                 reason,
	})
	if err != nil {
		return ReversalLink{}, false, err
	}
	return link, false, nil
}

// swapLines flips each line's debit/credit role, preserving amounts and
// line-number order, and prefixes descriptions to mark them as reversals.
func swapLines(lines []JournalLine) []IntentLine {
	out := make([]IntentLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, IntentLine{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: reversalPrefix + line.Description,
		})
	}
	return out
}

func (s *Service) cachedReversal(ctx context.Context, tenantID uuid.UUID, entryID int64) (ReverseResult, error) {
	var (
		link  ReversalLink
		found bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		link, found, err = tx.GetReversalLink(ctx, tenantID, entryID)
		return err
	})
	if err != nil {
		return ReverseResult{}, err
	}
	if !found {
		return ReverseResult{}, ErrReversalConflict
	}
	s.observeReversal("idempotent")
	return ReverseResult{ReversalJournalEntryID: link.ReversalJournalEntryID, Idempotent: true}, nil
}

// VoidPayment reverses a posted payment's journal entry and marks the payment
// void. Voiding is blocked while nonzero allocations remain; allocations must
// be explicitly zeroed first so the audit trail stays reconstructable. Voiding
// an already-void payment returns the existing reversal.
func (s *Service) VoidPayment(ctx context.Context, tenantID uuid.UUID, actorID int64, paymentID uuid.UUID, reason string) (VoidResult, error) {
	date := s.now().UTC().Truncate(24 * time.Hour)

	var (
		link       ReversalLink
		idempotent bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pay, err := tx.GetPayment(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}

		postingLink, found, err := tx.GetPostingLink(ctx, tenantID, DocKindPayment, paymentID)
		if err != nil {
			return err
		}

		if pay.Status == DocStatusVoid {
			if !found {
				return ErrPaymentNotVoidable
			}
			existing, ok, err := tx.GetReversalLink(ctx, tenantID, postingLink.JournalEntryID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrPaymentNotVoidable
			}
			link = existing
			idempotent = true
			return nil
		}
		if pay.Status != DocStatusPosted || !found {
			return ErrPaymentNotVoidable
		}
		for _, alloc := range pay.Allocations {
			if !alloc.Amount.IsZero() {
				return fmt.Errorf("%w: allocation %d is %s",
					ErrAllocationsNotZeroed, alloc.ID, alloc.Amount.String())
			}
		}

		link, _, err = s.reverseEntryTx(ctx, tx, tenantID, actorID, postingLink.JournalEntryID, reason, date)
		if err != nil {
			return err
		}
		return tx.UpdateDocStatus(ctx, tenantID, DocKindPayment, paymentID, DocStatusVoid)
	})
	if err != nil {
		s.observeReversal("rejected")
		return VoidResult{}, err
	}
	if idempotent {
		s.observeReversal("idempotent")
		return VoidResult{Status: DocStatusVoid, ReversalJournalEntryID: link.ReversalJournalEntryID, Idempotent: true}, nil
	}

	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "payment.void",
		Entity:   "payment",
		EntityID: paymentID.String(),
		Meta: map[string]any{
			"reversal_journal_entry_id": link.ReversalJournalEntryID,
			"reason":                    reason,
		},
	})
	s.observeReversal("voided")
	return VoidResult{Status: DocStatusVoid, ReversalJournalEntryID: link.ReversalJournalEntryID}, nil
}
