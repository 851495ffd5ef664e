package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// runTracker enforces at-most-one-successful-posting per transaction set.
// Claims are inserted outside the posting transaction so the partial unique
// index on (tenant, set) across started/succeeded serializes concurrent
// attempts; the losing insert fails and surfaces as "in progress".
type runTracker struct {
	repo   Repository
	logger *slog.Logger
}

// claimResult reports either a fresh claim or a cached prior success.
type claimResult struct {
	Run    PostingRun
	Cached bool
}

// Claim implements the lookup/short-circuit/claim protocol. A succeeded run
// returns the cached entry id; a started run rejects; a failed row is cleared
// before a new started row is inserted.
func (t *runTracker) Claim(ctx context.Context, tenantID, setID uuid.UUID) (claimResult, error) {
	run, found, err := t.repo.FindRun(ctx, tenantID, setID)
	if err != nil {
		return claimResult{}, err
	}
	if found {
		switch run.Status {
		case RunStatusSucceeded:
			return claimResult{Run: run, Cached: true}, nil
		case RunStatusStarted:
			return claimResult{}, ErrPostingInProgress
		case RunStatusFailed:
			if err := t.repo.DeleteRun(ctx, tenantID, setID); err != nil {
				return claimResult{}, err
			}
		}
	}
	claimed, err := t.repo.InsertRun(ctx, PostingRun{
		TenantID:         tenantID,
		TransactionSetID: setID,
		Status:           RunStatusStarted,
	})
	if err != nil {
		if errors.Is(err, ErrRunConflict) {
			// A concurrent attempt won the insert race. If it already
			// finished, hand back its result instead of an error.
			winner, found, ferr := t.repo.FindRun(ctx, tenantID, setID)
			if ferr == nil && found && winner.Status == RunStatusSucceeded {
				return claimResult{Run: winner, Cached: true}, nil
			}
			return claimResult{}, ErrPostingInProgress
		}
		return claimResult{}, err
	}
	return claimResult{Run: claimed}, nil
}

// Release clears a claim after a failed attempt. The failure is appended to
// the run history first so observability survives the delete, then the active
// claim row is removed so a retry restarts cleanly.
func (t *runTracker) Release(ctx context.Context, run PostingRun, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := t.repo.AppendRunHistory(ctx, RunHistory{
		TenantID:         run.TenantID,
		TransactionSetID: run.TransactionSetID,
		Status:           RunStatusFailed,
		Error:            msg,
	}); err != nil && t.logger != nil {
		t.logger.Warn("append run history", slog.Any("error", err))
	}
	if err := t.repo.DeleteRun(ctx, run.TenantID, run.TransactionSetID); err != nil && t.logger != nil {
		t.logger.Error("release posting run", slog.Any("error", err),
			slog.String("transaction_set_id", run.TransactionSetID.String()))
	}
}
