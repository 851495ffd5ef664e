package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PeriodDecision is the outcome of the period gate for a posting date.
type PeriodDecision int

const (
	// PeriodAllow means the period is open.
	PeriodAllow PeriodDecision = iota
	// PeriodAllowWithWarning means soft-closed; the caller must emit an audit
	// warning before proceeding.
	PeriodAllowWithWarning
	// PeriodReject means hard-closed.
	PeriodReject
)

// MonthKey derives the calendar-month period key for a posting date.
func MonthKey(date time.Time) string {
	return date.Format("2006-01")
}

func monthBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return start, end
}

// evaluatePeriod applies period-close policy to a posting date. A missing
// period row counts as open and is lazily materialized inside the same
// transaction so later closes have a row to flip. The gate is a precondition:
// it never touches ledger rows itself.
func evaluatePeriod(ctx context.Context, tx TxRepository, tenantID uuid.UUID, postingDate time.Time) (PeriodDecision, Period, error) {
	key := MonthKey(postingDate)
	period, found, err := tx.GetPeriod(ctx, tenantID, key)
	if err != nil {
		return PeriodReject, Period{}, err
	}
	if !found {
		start, end := monthBounds(postingDate)
		period, err = tx.CreatePeriod(ctx, Period{
			TenantID:    tenantID,
			MonthKey:    key,
			PeriodStart: start,
			PeriodEnd:   end,
			Status:      PeriodStatusOpen,
		})
		if err != nil {
			return PeriodReject, Period{}, err
		}
	}
	switch period.Status {
	case PeriodStatusOpen:
		return PeriodAllow, period, nil
	case PeriodStatusSoftClosed:
		return PeriodAllowWithWarning, period, nil
	case PeriodStatusHardClosed:
		return PeriodReject, period, fmt.Errorf("%w: period %s", ErrPeriodClosed, key)
	default:
		return PeriodReject, period, fmt.Errorf("%w: period %s has unknown status %q", ErrPeriodClosed, key, period.Status)
	}
}
