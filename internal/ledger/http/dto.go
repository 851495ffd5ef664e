package ledgerhttp

import (
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
)

// accountOverrides carries per-call account-code overrides. Empty fields fall
// back to the configured defaults.
type accountOverrides struct {
	AR        string `json:"ar"`
	AP        string `json:"ap"`
	Revenue   string `json:"revenue"`
	COGS      string `json:"cogs"`
	Inventory string `json:"inventory"`
	Expense   string `json:"expense"`
	Cash      string `json:"cash"`
	Bank      string `json:"bank"`
}

type postDocRequest struct {
	Accounts    accountOverrides `json:"accounts"`
	PostingDate string           `json:"posting_date" validate:"omitempty,datetime=2006-01-02"`
	Memo        string           `json:"memo" validate:"max=500"`
}

func (r postDocRequest) options() (ledger.PostOptions, error) {
	opts := ledger.PostOptions{
		Accounts: ledger.AccountDefaults{
			AR:        r.Accounts.AR,
			AP:        r.Accounts.AP,
			Revenue:   r.Accounts.Revenue,
			COGS:      r.Accounts.COGS,
			Inventory: r.Accounts.Inventory,
			Expense:   r.Accounts.Expense,
			Cash:      r.Accounts.Cash,
			Bank:      r.Accounts.Bank,
		},
		Memo: r.Memo,
	}
	if r.PostingDate != "" {
		date, err := time.Parse("2006-01-02", r.PostingDate)
		if err != nil {
			return ledger.PostOptions{}, err
		}
		opts.PostingDate = &date
	}
	return opts, nil
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type postResponse struct {
	Success        bool   `json:"success"`
	JournalEntryID int64  `json:"journal_entry_id,omitempty"`
	Idempotent     bool   `json:"idempotent,omitempty"`
	Error          string `json:"error,omitempty"`
}

type reverseResponse struct {
	Success                bool   `json:"success"`
	ReversalJournalEntryID int64  `json:"reversal_journal_entry_id,omitempty"`
	Idempotent             bool   `json:"idempotent,omitempty"`
	Error                  string `json:"error,omitempty"`
}

type voidResponse struct {
	Success                bool   `json:"success"`
	Status                 string `json:"status,omitempty"`
	ReversalJournalEntryID int64  `json:"reversal_journal_entry_id,omitempty"`
	Idempotent             bool   `json:"idempotent,omitempty"`
	Error                  string `json:"error,omitempty"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
