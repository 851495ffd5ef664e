package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// SubmitTransactionSet moves a draft set into review. Submitting an already
// reviewed or posted set is a no-op, which makes the transition idempotent.
func (s *Service) SubmitTransactionSet(ctx context.Context, tenantID uuid.UUID, actorID int64, setID uuid.UUID) (TransactionSet, error) {
	var set TransactionSet
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransactionSet(ctx, tenantID, setID)
		if err != nil {
			return err
		}
		if current.Status != SetStatusDraft {
			set = current
			return nil
		}
		if err := tx.UpdateTransactionSetStatus(ctx, tenantID, setID, SetStatusDraft, SetStatusReview); err != nil {
			return err
		}
		current.Status = SetStatusReview
		set = current
		return nil
	})
	if err != nil {
		return TransactionSet{}, err
	}
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "transaction_set.submit",
		Entity:   EntityTransactionSet,
		EntityID: setID.String(),
	})
	return set, nil
}

// PostTransactionSet runs the full posting workflow for a reviewed set: claim
// the run, pass the approval, validation-override, evidence and period gates,
// build the balanced entry from the stored intent, flip the set to posted and
// finalize the run. Gate reads and ledger writes share one transaction, so a
// gate change concurrent with the write cannot slip through. Any rejection
// before the build leaves the ledger untouched.
func (s *Service) PostTransactionSet(ctx context.Context, tenantID uuid.UUID, actorID int64, setID uuid.UUID) (PostResult, error) {
	claim, err := s.runs.Claim(ctx, tenantID, setID)
	if err != nil {
		s.observePosting("transaction_set", "rejected")
		return PostResult{}, err
	}
	if claim.Cached {
		s.observePosting("transaction_set", "idempotent")
		return PostResult{JournalEntryID: *claim.Run.JournalEntryID, Idempotent: true}, nil
	}

	var (
		entry      JournalEntry
		softPeriod *Period
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		set, err := tx.GetTransactionSet(ctx, tenantID, setID)
		if err != nil {
			return err
		}
		switch set.Status {
		case SetStatusPosted:
			return ErrAlreadyPosted
		case SetStatusDraft:
			return ErrNotSubmitted
		}

		if err := s.checkGates(ctx, tx, tenantID, setID); err != nil {
			return err
		}

		intent, err := tx.GetPostingIntent(ctx, tenantID, setID)
		if err != nil {
			return err
		}

		decision, period, err := evaluatePeriod(ctx, tx, tenantID, intent.PostingDate)
		if err != nil {
			s.observeGateRejection("period")
			return err
		}
		if decision == PeriodAllowWithWarning {
			softPeriod = &period
		}

		entry, err = buildEntry(ctx, tx, buildInput{
			TenantID:    tenantID,
			PostingDate: intent.PostingDate,
			Memo:        intent.Memo,
			Actor:       actorID,
			SourceSetID: &setID,
			Lines:       intent.Lines,
		})
		if err != nil {
			return err
		}

		if err := tx.UpdateTransactionSetStatus(ctx, tenantID, setID, SetStatusReview, SetStatusPosted); err != nil {
			return err
		}
		return tx.MarkRunSucceeded(ctx, claim.Run.ID, entry.ID)
	})
	if err != nil {
		s.runs.Release(ctx, claim.Run, err)
		s.observePosting("transaction_set", "rejected")
		return PostResult{}, err
	}

	if softPeriod != nil {
		s.emitAudit(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "period.soft_closed_posting",
			Entity:   EntityTransactionSet,
			EntityID: setID.String(),
			Meta: map[string]any{
				"month_key":        softPeriod.MonthKey,
				"journal_entry_id": entry.ID,
			},
		})
	}
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta: map[string]any{
			"transaction_set_id": setID.String(),
			"posting_date":       entry.PostingDate.Format("2006-01-02"),
		},
	})
	s.emitAudit(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   "transaction_set.post",
		Entity:   EntityTransactionSet,
		EntityID: setID.String(),
		Meta:     map[string]any{"journal_entry_id": entry.ID},
	})
	s.observePosting("transaction_set", "posted")
	if s.logger != nil {
		s.logger.Info("transaction set posted",
			slog.String("transaction_set_id", setID.String()),
			slog.Int64("journal_entry_id", entry.ID))
	}
	return PostResult{JournalEntryID: entry.ID}, nil
}

// checkGates evaluates the approval, validation-override and evidence gates
// in order. The first unmet gate rejects; none of them write.
func (s *Service) checkGates(ctx context.Context, tx TxRepository, tenantID, setID uuid.UUID) error {
	pending, err := tx.CountPendingApprovals(ctx, tenantID, EntityTransactionSet, setID)
	if err != nil {
		return err
	}
	if pending > 0 {
		s.observeGateRejection("approval")
		return ErrApprovalPending
	}

	issues, err := tx.ListUnresolvedIssues(ctx, tenantID, EntityTransactionSet, setID)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		s.observeGateRejection("validation")
		first := issues[0]
		return fmt.Errorf("%w: %s", ErrValidationUnresolved, first.Code)
	}

	hasEvidence, err := tx.HasEvidence(ctx, tenantID, EntityTransactionSet, setID)
	if err != nil {
		return err
	}
	if !hasEvidence {
		overridden, err := tx.HasEntityOverride(ctx, tenantID, EntityTransactionSet, setID)
		if err != nil {
			return err
		}
		if !overridden {
			s.observeGateRejection("evidence")
			return ErrEvidenceMissing
		}
	}
	return nil
}

// IsBusinessRejection reports whether an error is a business-rule rejection
// rather than an infrastructure failure. Callers surface these to end users.
func IsBusinessRejection(err error) bool {
	for _, target := range []error{
		ErrUnbalanced, ErrTooFewLines, ErrLineAmounts, ErrNegativeAmount,
		ErrAccountNotFound, ErrAccountInactive, ErrAccountNotConfigured,
		ErrPeriodClosed, ErrPostingInProgress, ErrAlreadyPosted, ErrNotSubmitted,
		ErrApprovalPending, ErrValidationUnresolved, ErrEvidenceMissing,
		ErrSetNotFound, ErrIntentNotFound, ErrEntryNotFound, ErrDocNotFound,
		ErrDocNotPostable, ErrDocVoided, ErrNoAllocations,
		ErrAllocationsNotZeroed, ErrPaymentNotVoidable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
