package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// balanceTolerance bounds |sum(debit) - sum(credit)| for an acceptable entry.
var balanceTolerance = decimal.New(1, -6)

// buildInput carries everything the journal builder needs for one entry.
type buildInput struct {
	TenantID    uuid.UUID
	PostingDate time.Time
	Memo        string
	Actor       int64
	SourceSetID *uuid.UUID
	Lines       []IntentLine
}

// buildEntry validates, resolves, balances and writes one journal entry with
// its lines as part of the surrounding transaction. It is the only write path
// into journal_entries/journal_lines.
func buildEntry(ctx context.Context, tx TxRepository, in buildInput) (JournalEntry, error) {
	if len(in.Lines) < 2 {
		return JournalEntry{}, ErrTooFewLines
	}

	var sumDebit, sumCredit decimal.Decimal
	lines := make([]JournalLine, 0, len(in.Lines))
	for idx, line := range in.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return JournalEntry{}, fmt.Errorf("%w: line %d", ErrNegativeAmount, idx+1)
		}
		debitSet := !line.Debit.IsZero()
		creditSet := !line.Credit.IsZero()
		if debitSet == creditSet {
			return JournalEntry{}, fmt.Errorf("%w: line %d", ErrLineAmounts, idx+1)
		}

		account, err := resolveAccount(ctx, tx, in.TenantID, line)
		if err != nil {
			return JournalEntry{}, err
		}

		sumDebit = sumDebit.Add(line.Debit)
		sumCredit = sumCredit.Add(line.Credit)
		lines = append(lines, JournalLine{
			LineNo:      idx + 1,
			AccountID:   account.ID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}

	if sumDebit.Sub(sumCredit).Abs().Cmp(balanceTolerance) > 0 {
		return JournalEntry{}, fmt.Errorf("%w: debit %s vs credit %s",
			ErrUnbalanced, sumDebit.String(), sumCredit.String())
	}

	entry, err := tx.InsertJournalEntry(ctx, JournalEntry{
		TenantID:               in.TenantID,
		PostingDate:            in.PostingDate,
		Memo:                   in.Memo,
		SourceTransactionSetID: in.SourceSetID,
		PostedBy:               in.Actor,
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertJournalLines(ctx, entry.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	for i := range lines {
		lines[i].JournalEntryID = entry.ID
	}
	entry.Lines = lines
	return entry, nil
}

// resolveAccount looks a line's account up by id or code within the tenant's
// chart of accounts and requires it to be active.
func resolveAccount(ctx context.Context, tx TxRepository, tenantID uuid.UUID, line IntentLine) (Account, error) {
	var (
		account Account
		err     error
	)
	switch {
	case line.AccountID != 0:
		account, err = tx.GetAccountByID(ctx, tenantID, line.AccountID)
	case line.AccountCode != "":
		account, err = tx.GetAccountByCode(ctx, tenantID, line.AccountCode)
	default:
		return Account{}, fmt.Errorf("%w: line has no account reference", ErrAccountNotFound)
	}
	if err != nil {
		if line.AccountCode != "" {
			return Account{}, fmt.Errorf("%w: %s", err, line.AccountCode)
		}
		return Account{}, fmt.Errorf("%w: id %d", err, line.AccountID)
	}
	if !account.Active {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountInactive, account.Code)
	}
	return account, nil
}

// debitLine and creditLine are small helpers for adapter-composed entries.
func debitLine(code string, amount decimal.Decimal, description string) IntentLine {
	return IntentLine{AccountCode: code, Debit: amount, Description: description}
}

func creditLine(code string, amount decimal.Decimal, description string) IntentLine {
	return IntentLine{AccountCode: code, Credit: amount, Description: description}
}
