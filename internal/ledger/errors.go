package ledger

import "errors"

var (
	// ErrUnbalanced indicates debits and credits differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrLineAmounts indicates a line with both or neither of debit/credit set.
	ErrLineAmounts = errors.New("ledger: line must carry exactly one of debit or credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: amounts must not be negative")
	// ErrAccountNotFound indicates an unresolvable account reference.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountInactive indicates a resolved but deactivated account.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrAccountNotConfigured indicates a required default account code is empty.
	ErrAccountNotConfigured = errors.New("ledger: no account configured for amount")

	// ErrPeriodClosed indicates a hard-closed accounting period.
	ErrPeriodClosed = errors.New("ledger: accounting period is closed")

	// ErrPostingInProgress indicates a concurrent attempt holds the run claim.
	ErrPostingInProgress = errors.New("ledger: posting already in progress")
	// ErrAlreadyPosted indicates the transaction set was already posted.
	ErrAlreadyPosted = errors.New("ledger: transaction set already posted")
	// ErrNotSubmitted indicates the set is still in draft.
	ErrNotSubmitted = errors.New("ledger: transaction set must be submitted for review")
	// ErrApprovalPending indicates an unresolved approval gate.
	ErrApprovalPending = errors.New("ledger: approval is pending")
	// ErrValidationUnresolved indicates an open error-severity issue with no override.
	ErrValidationUnresolved = errors.New("ledger: validation issue requires an override")
	// ErrEvidenceMissing indicates no document link and no entity override.
	ErrEvidenceMissing = errors.New("ledger: supporting document required")

	// ErrSetNotFound indicates a missing transaction set.
	ErrSetNotFound = errors.New("ledger: transaction set not found")
	// ErrIntentNotFound indicates a missing posting intent.
	ErrIntentNotFound = errors.New("ledger: posting intent not found")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrDocNotFound indicates a missing source document.
	ErrDocNotFound = errors.New("ledger: document not found")
	// ErrDocNotPostable indicates the document status does not allow posting.
	ErrDocNotPostable = errors.New("ledger: document is not in a postable status")
	// ErrDocVoided indicates the document was voided.
	ErrDocVoided = errors.New("ledger: document is void")
	// ErrNoAllocations indicates a payment without a nonzero allocation.
	ErrNoAllocations = errors.New("ledger: payment requires at least one nonzero allocation")
	// ErrAllocationsNotZeroed blocks voiding while nonzero allocations remain.
	ErrAllocationsNotZeroed = errors.New("ledger: allocations must be zeroed before void")
	// ErrPaymentNotVoidable indicates the payment is not posted.
	ErrPaymentNotVoidable = errors.New("ledger: only posted payments can be voided")

	// ErrRunConflict indicates the run claim insert lost the uniqueness race.
	ErrRunConflict = errors.New("ledger: posting run claim conflict")
	// ErrLinkConflict indicates a concurrent writer created the posting link first.
	ErrLinkConflict = errors.New("ledger: posting link conflict")
	// ErrReversalConflict indicates a concurrent writer reversed the entry first.
	ErrReversalConflict = errors.New("ledger: reversal link conflict")
)
